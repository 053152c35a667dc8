// Package ui provides terminal UI components for the goveectl CLI.
//
// This package uses Lipgloss to render styled output and Bubble Tea for the
// one interactive screen, the effect picker. Everything else follows a "run
// once and exit" pattern: components render to a writer and return.
//
// # Components
//
//   - Header: Command banner showing operation name and parameters
//   - Progress: Step list for a batch of light commands
//   - Result: Success/failure boxes with troubleshooting tips
//   - Table: Column-aligned listings (devices, effects, frames, metrics)
//   - PickerModel: Filterable effect list for "goveectl effects pick"
//
// # Usage Pattern
//
// Commands that send frames use a Runner, which prints the header, reports
// each command of the batch as it is written and ends with a result box:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:   "Turn On",
//	    Command: "goveectl power on desk",
//	    Params:  map[string]string{"Device": "A4:C1:38:12:34:56"},
//	    Steps:   []string{"Power{on}", "Brightness{128}"},
//	})
//
//	err := runner.Run(ctx, func(ctx context.Context, onStep ui.StepCallback) (map[string]string, error) {
//	    onStep(1, ui.StepRunning, "")
//	    // ... write frames ...
//	    onStep(1, ui.StepComplete, "1 frame")
//	    return nil, nil
//	})
//
// # Logging Integration
//
// Logging is controlled via the GOVEECTL_LOG_LEVEL environment variable or
// the --log-level flag. When unset, zap logging is silent so the curated UI
// output is displayed cleanly.
package ui
