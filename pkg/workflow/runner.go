package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/promptsmith/pkg/logger"
)

// Step statuses.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusError   = "error"
)

// Completer answers a single prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// MissingInputsError lists the inputs that were not provided.
type MissingInputsError struct {
	Names []string
}

func (e *MissingInputsError) Error() string {
	return "please provide values for: " + strings.Join(e.Names, ", ")
}

// StepResult is the outcome of one step.
type StepResult struct {
	StepID   string        `json:"step_id"`
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	Output   string        `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// StepFunc observes a finished step.
type StepFunc func(StepResult)

// Runner runs workflows through a Completer.
type Runner struct {
	completer Completer
	logger    *slog.Logger
	onStep    StepFunc
}

// NewRunner returns a Runner. onStep may be nil.
func NewRunner(c Completer, onStep StepFunc, l *slog.Logger) *Runner {
	return &Runner{completer: c, onStep: onStep, logger: logger.OrNop(l)}
}

// Run executes the steps in order, feeding each output into later prompts.
// It stops at the first failing step; steps after it stay pending. The
// returned map holds the inputs plus every produced variable.
func (r *Runner) Run(ctx context.Context, wf *Workflow, inputs map[string]string) ([]StepResult, map[string]string, error) {
	var missing []string
	for _, name := range wf.RequiredInputs() {
		if strings.TrimSpace(inputs[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &MissingInputsError{Names: missing}
	}

	vars := make(map[string]string, len(inputs)+len(wf.Steps))
	for k, v := range inputs {
		vars[k] = v
	}

	results := make([]StepResult, len(wf.Steps))
	for i, s := range wf.Steps {
		results[i] = StepResult{StepID: s.ID, Name: s.Name, Status: StatusPending}
	}

	for i, s := range wf.Steps {
		start := time.Now()
		r.logger.Debug("running workflow step", "step", s.ID, "type", s.Type)

		output, err := r.completer.Complete(ctx, Substitute(s.Prompt, vars))
		results[i].Duration = time.Since(start)
		if err != nil {
			results[i].Status = StatusError
			results[i].Error = err.Error()
			r.notify(results[i])
			return results, vars, fmt.Errorf("step %q failed: %w", s.Name, err)
		}

		vars[s.OutputVariable] = output
		results[i].Status = StatusSuccess
		results[i].Output = output
		r.notify(results[i])
	}
	return results, vars, nil
}

func (r *Runner) notify(res StepResult) {
	if r.onStep != nil {
		r.onStep(res)
	}
}
