package workflow

import "lessonreel/internal/pipeline"

// StepSpec identifies one step for the runner.
type StepSpec struct {
	Index               int
	Name                string
	RequiresDateContext bool
	// LogPath receives a copy of the step's output. Empty disables it.
	LogPath string
}

// DefaultSteps returns the four pipeline steps in order.
func DefaultSteps() []StepSpec {
	steps := pipeline.Steps()
	specs := make([]StepSpec, 0, len(steps))
	for _, s := range steps {
		specs = append(specs, StepSpec{Index: s.Index, Name: s.Name, RequiresDateContext: s.RequiresDateContext})
	}
	return specs
}
