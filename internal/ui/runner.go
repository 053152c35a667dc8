package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// RunnerConfig describes one command run
type RunnerConfig struct {
	Title   string            // Command title (e.g., "Turn On")
	Command string            // Full command (e.g., "goveectl power on desk")
	Params  map[string]string // Parameters to display in header
	Steps   []string          // One name per command in the batch
	Output  io.Writer         // Output writer (default: os.Stdout)

	// Hints returns troubleshooting tips for a failure
	Hints func(err error) []string
}

// Runner orchestrates the header, step list and result for a batch of
// light commands.
type Runner struct {
	config   RunnerConfig
	header   *Header
	progress *Progress
	output   io.Writer
	width    int
}

// NewRunner creates a new runner
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	width := GetTerminalWidth()
	header := NewHeader(config.Title, config.Command, config.Params).SetWidth(width)

	return &Runner{
		config:   config,
		header:   header,
		progress: NewProgress(config.Steps, width),
		output:   config.Output,
		width:    width,
	}
}

// Operation performs the work, reporting each step through onStep
type Operation func(ctx context.Context, onStep StepCallback) (map[string]string, error)

// Run prints the header, executes the operation and prints the result
func (r *Runner) Run(ctx context.Context, operation Operation) error {
	start := time.Now()

	_, _ = fmt.Fprintln(r.output, r.header.Render())
	_, _ = fmt.Fprintln(r.output)

	details, err := operation(ctx, r.stepCallback())
	duration := time.Since(start)

	_, _ = fmt.Fprintln(r.output)

	if err != nil {
		r.progress.SkipRemaining()
		for _, step := range r.progress.Steps {
			if step.Status == StepSkipped {
				_, _ = fmt.Fprintln(r.output, r.progress.renderStepLine(step))
			}
		}

		var tips []string
		if r.config.Hints != nil {
			tips = r.config.Hints(err)
		}
		result := NewFailureResult(r.config.Title+" failed", err, tips).SetWidth(r.width)
		_, _ = fmt.Fprintln(r.output, result.Render())
		return err
	}

	if details == nil {
		details = make(map[string]string)
	}
	details["Duration"] = duration.Round(time.Millisecond).String()

	result := NewSuccessResult(r.config.Title+" complete", details).SetWidth(r.width)
	_, _ = fmt.Fprintln(r.output, result.Render())
	return nil
}

// stepCallback prints each step as it changes
func (r *Runner) stepCallback() StepCallback {
	return func(stepNumber int, status StepStatus, message string) {
		if stepNumber < 1 || stepNumber > r.progress.Total() {
			return
		}
		r.progress.UpdateStep(stepNumber, status, message)

		line := r.progress.renderStepLine(r.progress.Steps[stepNumber-1])
		if status == StepRunning {
			// Overwritten when the step finishes
			_, _ = fmt.Fprint(r.output, line+"\r")
			return
		}
		_, _ = fmt.Fprintln(r.output, line)
	}
}
