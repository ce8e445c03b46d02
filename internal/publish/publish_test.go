package publish_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"lessonreel/internal/artifacts"
	"lessonreel/internal/config"
	"lessonreel/internal/params"
	"lessonreel/internal/publish"
	"lessonreel/internal/services"
	"lessonreel/internal/services/youtube"
	"lessonreel/internal/stage"
	"lessonreel/internal/testsupport"
)

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string]string
	err     error
}

func (f *fakeStorage) UploadFile(_ context.Context, objectName, localPath, contentType string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.objects == nil {
		f.objects = make(map[string]string)
	}
	if _, ok := f.objects[objectName]; ok {
		return false, nil
	}
	f.objects[objectName] = contentType
	return true, nil
}

type fakeVideo struct {
	calls  int
	videos []youtube.Video
	err    error
}

func (f *fakeVideo) Upload(_ context.Context, video youtube.Video) (string, error) {
	f.calls++
	f.videos = append(f.videos, video)
	if f.err != nil {
		return "", f.err
	}
	return "vid42", nil
}

func composedJob(t *testing.T, cfg *config.Config) *stage.Job {
	t.Helper()
	req := params.Request{Topic: "Ocean tides", Slug: "ocean-tides", LessonDate: "2026-03-14", ReadingLength: 60}
	job := &stage.Job{
		Params: params.WorkflowParams{Request: req, WorkflowID: "wf-1"},
		Layout: artifacts.New(cfg.Paths.WorkspaceDir, req.Slug),
	}
	testsupport.WriteText(t, job.Layout.Path(artifacts.FinalVideo), "mp4")
	testsupport.WriteText(t, job.Layout.Thumbnail(), "png")
	testsupport.WriteText(t, job.Layout.Path(artifacts.YouTubeTitle), "Tides Explained\nsecond line")
	testsupport.WriteText(t, job.Layout.Path(artifacts.YouTubeDescription), "Learn about tides")
	return job
}

func TestPublishUploadsToEnabledDestinations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Storage.Enabled = true
	cfg.Storage.Prefix = "lessons"
	cfg.Storage.Bucket = "reels"
	cfg.YouTube.Enabled = true
	storage := &fakeStorage{}
	video := &fakeVideo{}
	publisher := publish.New(cfg, nil, publish.WithStorage(storage), publish.WithVideoUploader(video))
	job := composedJob(t, cfg)
	job.UseDateContext = true

	result, err := publisher.Publish(context.Background(), job)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if result.VideoURL != "https://youtu.be/vid42" {
		t.Fatalf("unexpected url %q", result.VideoURL)
	}
	if storage.objects["lessons/ocean-tides/final_video.mp4"] != "video/mp4" || storage.objects["lessons/ocean-tides/ocean-tides.png"] != "image/png" {
		t.Fatalf("unexpected objects: %v", storage.objects)
	}
	if len(result.ObjectURLs) != 2 || result.ObjectURLs[0] != "https://storage.googleapis.com/reels/lessons/ocean-tides/final_video.mp4" {
		t.Fatalf("unexpected object urls: %v", result.ObjectURLs)
	}
	if got := video.videos[0]; got.Title != "Tides Explained" || !strings.Contains(got.Description, "Lesson date: 2026-03-14") {
		t.Fatalf("unexpected video metadata: %+v", got)
	}
	if got := strings.TrimSpace(testsupport.ReadText(t, job.Layout.Path(artifacts.YouTubeURL))); got != "https://youtu.be/vid42" {
		t.Fatalf("unexpected youtube_url.txt: %q", got)
	}

	if _, err := publisher.Publish(context.Background(), job); err != nil {
		t.Fatalf("second publish: %v", err)
	}
	if video.calls != 1 {
		t.Fatalf("expected the recorded url to skip a second upload, got %d uploads", video.calls)
	}
}

func TestPublishJoinsDestinationFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Storage.Enabled = true
	cfg.YouTube.Enabled = true
	storage := &fakeStorage{err: services.Wrap(services.ErrExternalTool, "", "storage", "boom", nil)}
	video := &fakeVideo{}
	publisher := publish.New(cfg, nil, publish.WithStorage(storage), publish.WithVideoUploader(video))

	result, err := publisher.Publish(context.Background(), composedJob(t, cfg))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected storage failure, got %v", err)
	}
	if result.VideoURL == "" || video.calls != 1 {
		t.Fatal("expected the youtube upload to proceed despite the storage failure")
	}
}

func TestPublishRequiresFinalVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.YouTube.Enabled = true
	job := &stage.Job{Layout: artifacts.New(cfg.Paths.WorkspaceDir, "empty")}
	_, err := publish.New(cfg, nil, publish.WithVideoUploader(&fakeVideo{})).Publish(context.Background(), job)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUploadStepRequiresDestination(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	handler := publish.NewHandler(publish.New(cfg, nil))
	job := composedJob(t, cfg)
	if err := handler.Prepare(context.Background(), job); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestTitleFallsBackToTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	layout := artifacts.New(cfg.Paths.WorkspaceDir, "none")
	if got := publish.Title(layout, "Ocean tides"); got != "Ocean tides" {
		t.Fatalf("unexpected fallback title %q", got)
	}
}
