package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"lessonreel/internal/logging"
	"lessonreel/internal/services"
)

// Uploader stores a local file under an object name. Uploaded is false when
// the object already existed and was left untouched.
type Uploader interface {
	UploadFile(ctx context.Context, objectName, localPath, contentType string) (uploaded bool, err error)
}

// GCS uploads to a Cloud Storage bucket with create-only semantics.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	retry  services.RetryPolicy
	logger *slog.Logger
}

// NewGCS opens a client using Application Default Credentials.
func NewGCS(ctx context.Context, bucket string, logger *slog.Logger) (*GCS, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "storage", "bucket name required", nil)
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "storage", "create client", err)
	}
	return &GCS{
		client: client,
		bucket: client.Bucket(bucket),
		retry:  services.DefaultRetryPolicy(),
		logger: logging.NewComponentLogger(logger, "objectstore"),
	}, nil
}

// WithRetryPolicy replaces the upload retry policy.
func (g *GCS) WithRetryPolicy(policy services.RetryPolicy) *GCS {
	g.retry = policy
	return g
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}

// UploadFile writes localPath to objectName only if the object does not
// already exist, so re-publishing a workflow is a no-op.
func (g *GCS) UploadFile(ctx context.Context, objectName, localPath, contentType string) (bool, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return false, services.Wrap(services.ErrNotFound, "", "storage", localPath, err)
	}
	defer file.Close()

	existed := false
	err = g.retry.Do(ctx, "storage.upload", classify, func(ctx context.Context, _ int) error {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return err
		}
		err := g.write(ctx, objectName, contentType, file)
		if IsPreconditionFailed(err) {
			existed = true
			return nil
		}
		return err
	})
	if err != nil {
		if errors.Is(err, services.ErrRetriesExhausted) || errors.Is(err, context.Canceled) {
			return false, err
		}
		return false, services.Wrap(services.ErrExternalTool, "", "storage", "upload "+objectName, err)
	}
	if existed {
		g.logger.Info("object already exists; skipping",
			logging.String(logging.FieldEventType, "object_exists"),
			logging.String("object", objectName),
		)
		return false, nil
	}
	g.logger.Info("object uploaded",
		logging.String(logging.FieldEventType, "object_uploaded"),
		logging.String("object", objectName),
	)
	return true, nil
}

func (g *GCS) write(ctx context.Context, objectName, contentType string, r io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	writer := g.bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if _, err := io.Copy(writer, r); err != nil {
		cancel()
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

// classify retries server errors and rate limiting.
func classify(err error) (time.Duration, bool) {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return 0, services.RetryableStatus(gerr.Code)
	}
	return services.ClassifyDefault(err)
}

// IsPreconditionFailed reports whether err is the 412 Cloud Storage returns
// when a DoesNotExist condition fails.
func IsPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// ObjectName builds <prefix>/<slug>/<file>, omitting an empty prefix.
func ObjectName(prefix, slug, file string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return path.Join(slug, file)
	}
	return path.Join(prefix, slug, file)
}

// PublicURL returns the https URL for an object in bucket.
func PublicURL(bucket, objectName string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, objectName)
}
