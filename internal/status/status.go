package status

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// TotalSteps is the fixed number of workflow steps reported in every record.
const TotalSteps = 4

// Status is the workflow state written to the status file.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions follow s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusError, StatusCancelled:
		return true
	default:
		return false
	}
}

// Record is the machine-readable progress snapshot external callers poll. The
// file always holds only the latest record.
type Record struct {
	CurrentStep int       `json:"currentStep"`
	TotalSteps  int       `json:"totalSteps"`
	Status      Status    `json:"status"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Error       string    `json:"error,omitempty"`
}

// MarshalJSON renders UpdatedAt as RFC 3339 with nanoseconds in UTC.
func (r Record) MarshalJSON() ([]byte, error) {
	type wire struct {
		CurrentStep int    `json:"currentStep"`
		TotalSteps  int    `json:"totalSteps"`
		Status      Status `json:"status"`
		UpdatedAt   string `json:"updatedAt"`
		Error       string `json:"error,omitempty"`
	}
	return json.Marshal(wire{
		CurrentStep: r.CurrentStep,
		TotalSteps:  r.TotalSteps,
		Status:      r.Status,
		UpdatedAt:   r.UpdatedAt.UTC().Format(time.RFC3339Nano),
		Error:       r.Error,
	})
}

// Read decodes the status file at path.
func Read(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, fmt.Errorf("decode status %s: %w", path, err)
	}
	return record, nil
}
