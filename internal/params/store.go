package params

import (
	"fmt"
	"path/filepath"
	"time"

	"lessonreel/internal/fileutil"
	"lessonreel/internal/services"
	"lessonreel/internal/textutil"
)

// FileName returns the params file name for workflowID.
func FileName(workflowID string) string {
	return "workflow_params_" + workflowID + ".json"
}

// Store persists WorkflowParams under a single directory. The file name is
// derived only from the workflow ID, so concurrent workflows never share a
// params file.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Path returns the deterministic params path for workflowID.
func (s *Store) Path(workflowID string) string {
	return filepath.Join(s.dir, FileName(workflowID))
}

// Save writes the params file for workflowID and returns its path. It is
// called once per workflow, before the first step. A write failure is fatal to
// the workflow and is not retried.
func (s *Store) Save(req Request, workflowID string) (string, error) {
	if err := textutil.ValidateIdentifier("workflowId", workflowID); err != nil {
		return "", invalid(err.Error())
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return "", err
	}
	wp := WorkflowParams{
		Request:    req,
		WorkflowID: workflowID,
		CreatedAt:  s.now().UTC(),
	}
	path := s.Path(workflowID)
	if err := fileutil.WriteJSONAtomic(path, wp); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "params", "write", fmt.Sprintf("write %s", path), err)
	}
	return path, nil
}
