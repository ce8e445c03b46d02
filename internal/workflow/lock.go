package workflow

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"lessonreel/internal/artifacts"
	"lessonreel/internal/services"
)

// acquireSlugLock takes the advisory lock in the lesson output folder. A held
// lock means another workflow is producing the same slug.
func acquireSlugLock(layout artifacts.Layout) (*flock.Flock, error) {
	if err := os.MkdirAll(layout.Dir(), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "create output folder", layout.Dir(), err)
	}
	lock := flock.New(filepath.Join(layout.Dir(), artifacts.LockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "lock output folder", layout.Dir(), err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "workflow", "lock output folder",
			fmt.Sprintf("another workflow is already producing slug %q", layout.Slug), nil)
	}
	return lock, nil
}
