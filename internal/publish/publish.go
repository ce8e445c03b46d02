package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"lessonreel/internal/artifacts"
	"lessonreel/internal/config"
	"lessonreel/internal/fileutil"
	"lessonreel/internal/logging"
	"lessonreel/internal/params"
	"lessonreel/internal/services"
	"lessonreel/internal/services/objectstore"
	"lessonreel/internal/services/youtube"
	"lessonreel/internal/stage"
)

// VideoUploader uploads a video and returns its platform id.
type VideoUploader interface {
	Upload(ctx context.Context, video youtube.Video) (string, error)
}

// Result reports what a Publish call did. ObjectURLs holds the public URL of
// each entry in Objects.
type Result struct {
	VideoURL   string
	Objects    []string
	ObjectURLs []string
}

// Publisher uploads the artifacts of one workflow.
type Publisher struct {
	cfg     *config.Config
	storage objectstore.Uploader
	video   VideoUploader
	retry   services.RetryPolicy
	closers []func() error
	logger  *slog.Logger
}

// Option customizes a Publisher.
type Option func(*Publisher)

// WithStorage injects the storage uploader instead of building one from config.
func WithStorage(uploader objectstore.Uploader) Option {
	return func(p *Publisher) { p.storage = uploader }
}

// WithVideoUploader injects the video uploader instead of building one from
// config.
func WithVideoUploader(uploader VideoUploader) Option {
	return func(p *Publisher) { p.video = uploader }
}

// WithRetryPolicy sets the retry policy for clients built from config.
func WithRetryPolicy(policy services.RetryPolicy) Option {
	return func(p *Publisher) { p.retry = policy }
}

// New returns a publisher for cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Publisher {
	p := &Publisher{cfg: cfg, retry: services.DefaultRetryPolicy()}
	for _, opt := range opts {
		opt(p)
	}
	p.SetLogger(logger)
	return p
}

// SetLogger updates the publisher's logger.
func (p *Publisher) SetLogger(logger *slog.Logger) {
	p.logger = logging.NewComponentLogger(logger, "publish")
}

// Enabled reports whether any destination is configured.
func (p *Publisher) Enabled() bool {
	return p.cfg.Storage.Enabled || p.cfg.YouTube.Enabled
}

// Close releases clients built by the publisher.
func (p *Publisher) Close() error {
	var errs []error
	for _, closer := range p.closers {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}

// Publish uploads the final video to every enabled destination. Failures of
// one destination do not stop the other; all failures are joined.
func (p *Publisher) Publish(ctx context.Context, job *stage.Job) (Result, error) {
	var result Result
	layout := job.Layout
	video := layout.Path(artifacts.FinalVideo)
	if !fileutil.NonEmptyFile(video) {
		return result, services.Wrap(services.ErrNotFound, "publish", "require", "final video missing: "+video, nil)
	}

	var errs []error
	if p.cfg.Storage.Enabled {
		objects, err := p.publishStorage(ctx, layout)
		result.Objects = objects
		for _, name := range objects {
			result.ObjectURLs = append(result.ObjectURLs, objectstore.PublicURL(p.cfg.Storage.Bucket, name))
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if p.cfg.YouTube.Enabled {
		url, err := p.publishYouTube(ctx, job)
		result.VideoURL = url
		if err != nil {
			errs = append(errs, err)
		}
	}
	return result, errors.Join(errs...)
}

func (p *Publisher) publishStorage(ctx context.Context, layout artifacts.Layout) ([]string, error) {
	if p.storage == nil {
		gcs, err := objectstore.NewGCS(ctx, p.cfg.Storage.Bucket, p.logger)
		if err != nil {
			return nil, err
		}
		gcs.WithRetryPolicy(p.retry)
		p.storage = gcs
		p.closers = append(p.closers, gcs.Close)
	}

	files := []struct{ path, contentType string }{
		{layout.Path(artifacts.FinalVideo), "video/mp4"},
		{layout.Thumbnail(), "image/png"},
	}
	var objects []string
	for _, file := range files {
		if !fileutil.NonEmptyFile(file.path) {
			continue
		}
		name := objectstore.ObjectName(p.cfg.Storage.Prefix, layout.Slug, filepath.Base(file.path))
		if _, err := p.storage.UploadFile(ctx, name, file.path, file.contentType); err != nil {
			return objects, err
		}
		objects = append(objects, name)
	}
	return objects, nil
}

func (p *Publisher) publishYouTube(ctx context.Context, job *stage.Job) (string, error) {
	layout := job.Layout
	urlPath := layout.Path(artifacts.YouTubeURL)
	if data, err := os.ReadFile(urlPath); err == nil {
		if url := strings.TrimSpace(string(data)); url != "" {
			p.logger.Info("video already uploaded; skipping",
				logging.String(logging.FieldEventType, "youtube_upload_skipped"),
				logging.String("url", url),
			)
			return url, nil
		}
	}

	if p.video == nil {
		uploader, err := youtube.NewUploaderFromFiles(ctx, p.cfg.YouTube.ClientSecretsFile, p.cfg.YouTube.TokenFile, p.logger)
		if err != nil {
			return "", err
		}
		p.video = uploader.WithRetryPolicy(p.retry)
	}

	video := youtube.Video{
		Path:          layout.Path(artifacts.FinalVideo),
		Title:         Title(layout, job.Params.Topic),
		Description:   Description(layout, job),
		Tags:          p.cfg.YouTube.Tags,
		CategoryID:    p.cfg.YouTube.CategoryID,
		PrivacyStatus: p.cfg.YouTube.PrivacyStatus,
	}
	id, err := p.video.Upload(ctx, video)
	if err != nil {
		return "", err
	}
	url := youtube.WatchURL(id)
	if err := fileutil.WriteFileAtomic(urlPath, []byte(url+"\n"), 0o644); err != nil {
		return url, services.Wrap(services.ErrExternalTool, "publish", "write url", urlPath, err)
	}
	return url, nil
}

// Title returns the first line of youtubetitle.txt, or fallback when the file
// is missing or empty.
func Title(layout artifacts.Layout, fallback string) string {
	data, err := os.ReadFile(layout.Path(artifacts.YouTubeTitle))
	if err == nil {
		first, _, _ := strings.Cut(strings.TrimSpace(string(data)), "\n")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	return fallback
}

// Description returns youtubedescription.txt, adding the lesson date when the
// job carries date context and the file does not mention it yet.
func Description(layout artifacts.Layout, job *stage.Job) string {
	data, _ := os.ReadFile(layout.Path(artifacts.YouTubeDescription))
	description := strings.TrimSpace(string(data))
	if job.UseDateContext && job.Params.LessonDate != "" && !strings.Contains(description, job.Params.LessonDate) {
		date := job.Params.Date()
		description = strings.TrimSpace(fmt.Sprintf("%s\n\nLesson date: %s (%s)", description, date.Format(params.DateLayout), date.Weekday()))
	}
	return description
}
