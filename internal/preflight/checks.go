package preflight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"lessonreel/internal/artifacts"
	"lessonreel/internal/config"
	"lessonreel/internal/params"
	"lessonreel/internal/pipeline"
	"lessonreel/internal/services"
	"lessonreel/internal/services/llm"
)

// CheckOpenAI verifies that the API is reachable and the key is valid. It
// uses a 30-second timeout and a single attempt.
func CheckOpenAI(ctx context.Context, cfg *config.Config) Result {
	const name = "OpenAI API"
	if strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing (set OPENAI_API_KEY)"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	client := llm.NewClient(llm.Config{
		APIKey:    cfg.OpenAI.APIKey,
		BaseURL:   cfg.OpenAI.BaseURL,
		ChatModel: cfg.OpenAI.MetadataModel,
		Timeout:   cfg.OpenAITimeout(),
	}, llm.WithRetryPolicy(services.RetryPolicy{MaxAttempts: 1}))
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckBackgrounds reports whether the background image for every video
// format is present in the assets directory. Only landscape is required.
func CheckBackgrounds(cfg *config.Config) []Result {
	seen := map[string]bool{}
	var results []Result
	for _, name := range []string{params.FormatLandscape, params.FormatPortrait, params.FormatSquare} {
		format := artifacts.FormatFor(name)
		if seen[format.Background] {
			continue
		}
		seen[format.Background] = true
		path := filepath.Join(cfg.Paths.AssetsDir, format.Background)
		result := Result{
			Name:     "Background " + format.Background,
			Optional: name != params.FormatLandscape,
		}
		if err := unix.Access(path, unix.R_OK); err != nil {
			result.Detail = fmt.Sprintf("%s (error: %v)", path, err)
		} else {
			result.Passed = true
			result.Detail = path
		}
		results = append(results, result)
	}
	return results
}

// CheckStages asks every step handler for its own readiness.
func CheckStages(ctx context.Context, cfg *config.Config, logger *slog.Logger) []Result {
	handlers := pipeline.Handlers(cfg, logger)
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]Result, 0, len(names))
	for _, name := range names {
		health := handlers[name].HealthCheck(ctx)
		results = append(results, Result{
			Name:     "Step " + name,
			Passed:   health.Ready,
			Optional: name == pipeline.StepUpload,
			Detail:   health.Summary(),
		})
	}
	return results
}

// CheckYouTubeCredentials verifies the OAuth client secrets and the stored
// upload token exist.
func CheckYouTubeCredentials(cfg *config.Config) Result {
	const name = "YouTube credentials"
	if err := unix.Access(cfg.YouTube.ClientSecretsFile, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("client secrets %s unreadable: %v", cfg.YouTube.ClientSecretsFile, err)}
	}
	if err := unix.Access(cfg.YouTube.TokenFile, unix.R_OK); err != nil {
		return Result{Name: name, Detail: "no upload token; run `lessonreel youtube auth`"}
	}
	return Result{Name: name, Passed: true, Detail: cfg.YouTube.TokenFile}
}

// CheckStorage verifies the Cloud Storage destination is configured.
// Credentials are resolved by the client library at upload time.
func CheckStorage(cfg *config.Config) Result {
	const name = "Cloud Storage"
	if strings.TrimSpace(cfg.Storage.Bucket) == "" {
		return Result{Name: name, Detail: "storage.bucket is empty"}
	}
	return Result{Name: name, Passed: true, Detail: "gs://" + cfg.Storage.Bucket + "/" + strings.TrimLeft(cfg.Storage.Prefix, "/")}
}

// summarizeLLMError produces a human-readable summary for API check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (OpenAI API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (OpenAI API unreachable)"
	}
	return services.Details(err).Message
}
