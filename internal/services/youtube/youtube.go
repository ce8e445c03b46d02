package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"lessonreel/internal/fileutil"
	"lessonreel/internal/logging"
	"lessonreel/internal/services"
	"lessonreel/internal/textutil"
)

// YouTube rejects snippets over these lengths.
const (
	maxTitleRunes       = 100
	maxDescriptionRunes = 5000
)

// WatchURLPrefix is prepended to a video id to form the public link.
const WatchURLPrefix = "https://youtu.be/"

// Video describes one upload.
type Video struct {
	Path          string
	Title         string
	Description   string
	Tags          []string
	CategoryID    string
	PrivacyStatus string
}

// OAuthConfig parses a Google client secrets file for the upload scope.
func OAuthConfig(secretsFile string) (*oauth2.Config, error) {
	data, err := os.ReadFile(secretsFile)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "youtube", "read client secrets", err)
	}
	cfg, err := google.ConfigFromJSON(data, yt.YoutubeUploadScope)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "youtube", "parse client secrets", err)
	}
	return cfg, nil
}

// AuthURL returns the consent URL for an offline (refreshable) token.
func AuthURL(cfg *oauth2.Config, state string) string {
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token.
func Exchange(ctx context.Context, cfg *oauth2.Config, code string) (*oauth2.Token, error) {
	tok, err := cfg.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "youtube", "exchange authorization code", err)
	}
	return tok, nil
}

// LoadToken reads a token previously written by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrConfiguration, "", "youtube", "no token; run `lessonreel youtube auth`", err)
		}
		return nil, services.Wrap(services.ErrConfiguration, "", "youtube", "read token", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "youtube", "parse token", err)
	}
	return &tok, nil
}

// SaveToken persists tok with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	return fileutil.WriteFileAtomic(path, data, 0o600)
}

// Uploader inserts videos through the YouTube Data API.
type Uploader struct {
	service *yt.Service
	retry   services.RetryPolicy
	logger  *slog.Logger
}

// NewUploader wraps an existing service client.
func NewUploader(service *yt.Service, logger *slog.Logger) *Uploader {
	return &Uploader{
		service: service,
		retry:   services.DefaultRetryPolicy(),
		logger:  logging.NewComponentLogger(logger, "youtube"),
	}
}

// WithRetryPolicy replaces the upload retry policy.
func (u *Uploader) WithRetryPolicy(policy services.RetryPolicy) *Uploader {
	u.retry = policy
	return u
}

// NewUploaderFromFiles builds an authenticated uploader from the client
// secrets and the stored token.
func NewUploaderFromFiles(ctx context.Context, secretsFile, tokenFile string, logger *slog.Logger) (*Uploader, error) {
	cfg, err := OAuthConfig(secretsFile)
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(tokenFile)
	if err != nil {
		return nil, err
	}
	service, err := yt.NewService(ctx, option.WithTokenSource(cfg.TokenSource(ctx, tok)))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "youtube", "create service", err)
	}
	return NewUploader(service, logger), nil
}

// Upload inserts the video and returns its id.
func (u *Uploader) Upload(ctx context.Context, video Video) (string, error) {
	if strings.TrimSpace(video.Title) == "" {
		return "", services.Wrap(services.ErrValidation, "", "youtube", "title required", nil)
	}
	file, err := os.Open(video.Path)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "", "youtube", video.Path, err)
	}
	defer file.Close()

	privacy := video.PrivacyStatus
	if privacy == "" {
		privacy = "private"
	}
	body := &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:       textutil.Truncate(video.Title, maxTitleRunes),
			Description: textutil.Truncate(video.Description, maxDescriptionRunes),
			Tags:        video.Tags,
			CategoryId:  video.CategoryID,
		},
		Status: &yt.VideoStatus{PrivacyStatus: privacy},
	}

	u.logger.Info("uploading video",
		logging.String(logging.FieldEventType, "youtube_upload_start"),
		logging.String("path", video.Path),
		logging.String("privacy", privacy),
	)
	var resp *yt.Video
	err = u.retry.Do(ctx, "youtube.insert", classify, func(ctx context.Context, _ int) error {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return err
		}
		inserted, err := u.service.Videos.Insert([]string{"snippet", "status"}, body).Media(file).Context(ctx).Do()
		if err != nil {
			return err
		}
		resp = inserted
		return nil
	})
	if err != nil {
		if errors.Is(err, services.ErrRetriesExhausted) || errors.Is(err, context.Canceled) {
			return "", err
		}
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && (gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden) {
			return "", services.Wrap(services.ErrConfiguration, "", "youtube", "upload rejected credentials", err)
		}
		return "", services.Wrap(services.ErrExternalTool, "", "youtube", "insert video", err)
	}
	u.logger.Info("video uploaded",
		logging.String(logging.FieldEventType, "youtube_upload_complete"),
		logging.String("video_id", resp.Id),
	)
	return resp.Id, nil
}

// classify retries quota back-off and server errors reported by the API.
func classify(err error) (time.Duration, bool) {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if !services.RetryableStatus(gerr.Code) {
			return 0, false
		}
		retryAfter, _ := services.ParseRetryAfter(gerr.Header.Get("Retry-After"))
		return retryAfter, true
	}
	return services.ClassifyDefault(err)
}

// WatchURL returns the short public link for id.
func WatchURL(id string) string {
	return WatchURLPrefix + id
}
