package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"lessonreel/internal/logging"
	"lessonreel/internal/services"
	"lessonreel/internal/status"
)

// Environment variables passed to step processes.
const (
	EnvParamsFile = "WORKFLOW_PARAMS_FILE"
	EnvWorkflowID = "LESSONREEL_WORKFLOW_ID"
	EnvStep       = "LESSONREEL_STEP"
	EnvRequestID  = "LESSONREEL_REQUEST_ID"
	EnvConfig     = "LESSONREEL_CONFIG"
)

// DateContextFlag tells a step to read the lesson date from its params file.
const DateContextFlag = "--use-date-context"

// StepRunner executes one step to completion. Implementations write the
// running status before starting and the error status on failure.
type StepRunner interface {
	Run(ctx context.Context, spec StepSpec, paramsPath string, reporter *status.Reporter) error
}

// StepResult is the captured outcome of one step process.
type StepResult struct {
	StepIndex int
	ExitCode  int
	Stdout    string
	Stderr    string
}

// StepError reports a step process that exited non-zero or could not start.
type StepError struct {
	Step     int
	Name     string
	ExitCode int
	Kind     string
	Message  string
	Result   StepResult

	marker error
}

func (e *StepError) Error() string {
	return e.Message
}

// Unwrap exposes the services marker derived from the exit code.
func (e *StepError) Unwrap() error {
	return e.marker
}

// ExecRunner launches each step as a child process: Command followed by the
// step name and, when required, DateContextFlag.
type ExecRunner struct {
	Command []string
	// Env is appended to the parent environment.
	Env    []string
	Logger *slog.Logger
}

// DefaultCommand re-invokes the running binary's step subcommand.
func DefaultCommand() ([]string, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "resolve executable", "cannot locate lessonreel binary", err)
	}
	return []string{exe, "step"}, nil
}

// Run writes the running status, executes the step and waits for it. The
// child is not bound to ctx: cancellation is honoured between steps only.
func (r *ExecRunner) Run(ctx context.Context, spec StepSpec, paramsPath string, reporter *status.Reporter) error {
	logger := logging.NewComponentLogger(r.Logger, "step-runner").With(
		logging.String(logging.FieldStep, spec.Name),
		logging.Int(logging.FieldStepIndex, spec.Index),
	)
	reporter.Update(spec.Index, status.StatusRunning, "")

	if len(r.Command) == 0 {
		return r.fail(logger, reporter, spec, StepResult{StepIndex: spec.Index, ExitCode: -1}, errors.New("no step command configured"))
	}
	args := append([]string{}, r.Command[1:]...)
	args = append(args, spec.Name)
	if spec.RequiresDateContext {
		args = append(args, DateContextFlag)
	}

	requestID := uuid.NewString()
	workflowID, _ := services.WorkflowIDFromContext(ctx)

	cmd := exec.Command(r.Command[0], args...)
	cmd.Env = append(os.Environ(), r.Env...)
	cmd.Env = append(cmd.Env,
		EnvParamsFile+"="+paramsPath,
		EnvWorkflowID+"="+workflowID,
		EnvStep+"="+spec.Name,
		EnvRequestID+"="+requestID,
	)
	detach(cmd)

	var stdout, stderr bytes.Buffer
	stdoutLines := newLineLogger(logger, "stdout")
	stderrLines := newLineLogger(logger, "stderr")
	outWriters := []io.Writer{&stdout, stdoutLines}
	errWriters := []io.Writer{&stderr, stderrLines}
	logFile := openStepLog(logger, spec.LogPath)
	if logFile != nil {
		defer logFile.Close()
		shared := &lockedWriter{w: logFile}
		outWriters = append(outWriters, shared)
		errWriters = append(errWriters, shared)
	}
	cmd.Stdout = io.MultiWriter(outWriters...)
	cmd.Stderr = io.MultiWriter(errWriters...)

	logger.Info("step process starting",
		logging.String(logging.FieldEventType, "step_process_start"),
		logging.String(logging.FieldCorrelationID, requestID),
		logging.String("command", strings.Join(append([]string{r.Command[0]}, args...), " ")),
	)
	runErr := cmd.Run()
	stdoutLines.Flush()
	stderrLines.Flush()

	result := StepResult{
		StepIndex: spec.Index,
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
	}
	if runErr == nil {
		logger.Info("step process finished",
			logging.String(logging.FieldEventType, "step_process_complete"),
			logging.String(logging.FieldCorrelationID, requestID),
		)
		return nil
	}
	result.ExitCode = -1
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	}
	return r.fail(logger, reporter, spec, result, runErr)
}

func (r *ExecRunner) fail(logger *slog.Logger, reporter *status.Reporter, spec StepSpec, result StepResult, runErr error) error {
	reason := strings.TrimSpace(result.Stderr)
	if reason == "" {
		reason = strings.TrimSpace(result.Stdout)
	}
	if reason == "" && runErr != nil {
		reason = runErr.Error()
	}
	message := fmt.Sprintf("Step %d failed: %s", spec.Index, reason)

	marker := services.MarkerForExitCode(result.ExitCode)
	if result.ExitCode == 0 {
		marker = services.ErrExternalTool
	}
	stepErr := &StepError{
		Step:     spec.Index,
		Name:     spec.Name,
		ExitCode: result.ExitCode,
		Kind:     services.Details(marker).Kind,
		Message:  message,
		Result:   result,
		marker:   marker,
	}
	reporter.Update(spec.Index, status.StatusError, message)
	logging.ErrorWithContext(logger, "step process failed", "step_process_failure",
		logging.Int("exit_code", result.ExitCode),
		logging.String("error_kind", stepErr.Kind),
		logging.String(logging.FieldErrorHint, services.Details(marker).Hint),
		logging.String("reason", reason),
	)
	return stepErr
}

func openStepLog(logger *slog.Logger, path string) *os.File {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logStepLogFailure(logger, path, err)
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		logStepLogFailure(logger, path, err)
		return nil
	}
	return f
}

func logStepLogFailure(logger *slog.Logger, path string, err error) {
	logging.WarnWithContext(logger, "step log unavailable", "step_log_failed",
		logging.String("step_log", path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check that the lesson output folder is writable"),
		logging.String(logging.FieldImpact, "step output is only kept in the orchestrator log"),
	)
}

// lockedWriter serializes stdout and stderr copies into one file.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// lineLogger emits each complete line written to it as a debug record.
type lineLogger struct {
	logger *slog.Logger
	stream string
	buf    []byte
}

func newLineLogger(logger *slog.Logger, stream string) *lineLogger {
	return &lineLogger{logger: logger, stream: stream}
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.buf = append(l.buf, p...)
	for {
		idx := bytes.IndexByte(l.buf, '\n')
		if idx < 0 {
			break
		}
		l.emit(string(l.buf[:idx]))
		l.buf = l.buf[idx+1:]
	}
	return len(p), nil
}

// Flush emits a trailing partial line.
func (l *lineLogger) Flush() {
	if len(l.buf) > 0 {
		l.emit(string(l.buf))
		l.buf = nil
	}
}

func (l *lineLogger) emit(line string) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return
	}
	l.logger.Debug("step output",
		logging.String("stream", l.stream),
		logging.String("line", line),
	)
}
