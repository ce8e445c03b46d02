package stage

import (
	"fmt"
	"os"
	"strings"

	"lessonreel/internal/fileutil"
	"lessonreel/internal/services"
)

// RequireFile returns ErrNotFound when path is missing or empty. hint names
// the step that should have produced it.
func RequireFile(stageName, path, hint string) error {
	if fileutil.NonEmptyFile(path) {
		return nil
	}
	message := fmt.Sprintf("required file missing: %s", path)
	if hint = strings.TrimSpace(hint); hint != "" {
		message += "; " + hint
	}
	return services.Wrap(services.ErrNotFound, stageName, "require", message, nil)
}

// EnsureOutputDir creates the job's output folder.
func EnsureOutputDir(stageName string, job *Job) error {
	if err := os.MkdirAll(job.Layout.Dir(), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, "create output folder", job.Layout.Dir(), err)
	}
	return nil
}

// RequireOutputDir returns ErrNotFound when the job's output folder does not
// exist yet.
func RequireOutputDir(stageName string, job *Job) error {
	if fileutil.DirExists(job.Layout.Dir()) {
		return nil
	}
	return services.Wrap(services.ErrNotFound, stageName, "require", "output folder missing: "+job.Layout.Dir()+"; run step 1 first", nil)
}
