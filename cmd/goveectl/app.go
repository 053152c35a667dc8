package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"tinygo.org/x/bluetooth"

	"github.com/muurk/goveectl/internal/catalog"
	"github.com/muurk/goveectl/internal/config"
	"github.com/muurk/goveectl/internal/discovery"
	"github.com/muurk/goveectl/internal/link"
	"github.com/muurk/goveectl/internal/metrics"
	"github.com/muurk/goveectl/internal/protocol"
	"github.com/muurk/goveectl/internal/ui"
)

// Connection flags, shared by every command that talks Bluetooth
var (
	connectAttempts int
	connectDelay    time.Duration
	scanTimeout     time.Duration
)

// addConnectionFlags registers the connection flags on cmd
func addConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&connectAttempts, "attempts", link.DefaultConnectAttempts, "Connection attempts per command")
	cmd.Flags().DurationVar(&connectDelay, "delay", link.DefaultConnectDelay, "Pause between connection attempts")
	cmd.Flags().DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "How long to scan for the device")
}

var (
	metricsOnce     sync.Once
	metricsRegistry = metrics.NewRegistry()
	linkMetrics     *metrics.LinkMetrics
	cloudMetrics    *metrics.CloudMetrics
)

func initMetrics() {
	metricsOnce.Do(func() {
		linkMetrics = metrics.NewLinkMetrics(metricsRegistry)
		cloudMetrics = metrics.NewCloudMetrics(metricsRegistry)
	})
}

// printStats prints the metrics table when --stats is set
func printStats(cmd *cobra.Command) {
	if !showStats {
		return
	}
	samples, err := metrics.Snapshot(metricsRegistry)
	if err != nil {
		return
	}
	p := ui.NewPrinter(cmd.OutOrStdout())
	p.Newline()
	p.PrintTable(ui.MetricsTable(samples))
}

// loadCatalogs returns the effect catalogs, including the configured
// overlay directory
func loadCatalogs(reg *config.Registry) (*catalog.Registry, error) {
	dir := catalogDir
	if dir == "" && reg.Preferences != nil {
		dir = reg.Preferences.CatalogDir
	}
	if dir == "" {
		return catalog.DefaultRegistry()
	}
	return catalog.Load(dir)
}

// target is a resolved Bluetooth device
type target struct {
	Alias   string
	Address string
	Model   *catalog.Descriptor
}

// Name returns the alias if there is one, the address otherwise
func (t *target) Name() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Address
}

// resolveTarget looks up an alias or address and its model descriptor.
// Without a model the generic encoding is used: full-range brightness,
// manual color and no catalog effects.
func resolveTarget(reg *config.Registry, name string) (*target, error) {
	alias, device := reg.ResolveDevice(name)
	if !device.HasBluetooth() {
		return nil, fmt.Errorf("device %q has no Bluetooth address (use 'goveectl cloud' or 'goveectl device add --address')", name)
	}

	t := &target{Alias: alias, Address: device.Address}

	model := modelFlag
	if model == "" {
		model = device.Model
	}
	if model == "" {
		return t, nil
	}

	cats, err := loadCatalogs(reg)
	if err != nil {
		return nil, err
	}
	t.Model, err = cats.Lookup(model)
	if err != nil {
		return nil, fmt.Errorf("%w (known models: %s)", err, strings.Join(cats.Models(), ", "))
	}
	return t, nil
}

// retryPolicy merges the saved preferences with explicit flags
func retryPolicy(cmd *cobra.Command, reg *config.Registry) link.RetryPolicy {
	policy := reg.Preferences.RetryPolicy()
	if cmd.Flags().Changed("attempts") {
		policy.MaxAttempts = connectAttempts
	}
	if cmd.Flags().Changed("delay") {
		policy.Delay = connectDelay
	}
	return policy
}

// scanDuration merges the saved preference with the --timeout flag
func scanDuration(cmd *cobra.Command, reg *config.Registry) (time.Duration, error) {
	if f := cmd.Flags().Lookup("timeout"); f != nil && f.Changed {
		if scanTimeout <= 0 {
			return 0, fmt.Errorf("--timeout must be positive, got %s", scanTimeout)
		}
		return scanTimeout, nil
	}
	return reg.Preferences.ScanDuration(), nil
}

// newScanner creates a scanner on the default adapter
func newScanner(cmd *cobra.Command, reg *config.Registry) (*discovery.Scanner, error) {
	timeout, err := scanDuration(cmd, reg)
	if err != nil {
		return nil, err
	}
	scanner := discovery.NewScanner()
	scanner.Timeout = timeout
	return scanner, nil
}

// newDispatcher creates a Bluetooth dispatcher with the effective policy
func newDispatcher(cmd *cobra.Command, reg *config.Registry) (*link.Dispatcher, error) {
	scanner, err := newScanner(cmd, reg)
	if err != nil {
		return nil, err
	}
	initMetrics()
	connector := link.NewBLEConnector(bluetooth.DefaultAdapter, scanner)
	return link.NewDispatcher(connector, retryPolicy(cmd, reg), linkMetrics), nil
}

// sendBatch writes a batch of sequences to the target, reporting each
// command as it goes
func sendBatch(cmd *cobra.Command, reg *config.Registry, t *target, title string, seqs []protocol.Sequence) error {
	d, err := newDispatcher(cmd, reg)
	if err != nil {
		return err
	}

	steps := make([]string, len(seqs))
	for i, seq := range seqs {
		steps[i] = seq.Command.String()
	}

	params := map[string]string{
		"Device":   t.Address,
		"Attempts": strconv.Itoa(d.Policy().MaxAttempts),
	}
	if t.Alias != "" {
		params["Alias"] = t.Alias
	}
	if t.Model != nil {
		params["Model"] = t.Model.Model
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   title,
		Command: cmd.CommandPath() + " " + t.Name(),
		Params:  params,
		Steps:   steps,
		Output:  cmd.OutOrStdout(),
		Hints:   transportHints,
	})

	err = runner.Run(cmd.Context(), func(ctx context.Context, onStep ui.StepCallback) (map[string]string, error) {
		frames := 0
		err := d.SendSequencesObserved(ctx, t.Address, seqs, func(i int, seq protocol.Sequence, done bool, err error) {
			switch {
			case !done:
				onStep(i+1, ui.StepRunning, "")
			case err != nil:
				onStep(i+1, ui.StepFailed, "")
			default:
				frames += len(seq.Frames)
				onStep(i+1, ui.StepComplete, pluralFrames(len(seq.Frames)))
			}
		})
		return map[string]string{"Frames": strconv.Itoa(frames)}, err
	})

	printStats(cmd)
	return err
}

func pluralFrames(n int) string {
	if n == 1 {
		return "1 frame"
	}
	return fmt.Sprintf("%d frames", n)
}

// transportHints returns troubleshooting tips for a failed send
func transportHints(err error) []string {
	switch {
	case errors.Is(err, discovery.ErrDeviceNotFound):
		return []string{
			"Check the light is powered and within range",
			"Close the Govee app, lights accept one connection at a time",
			"Run 'goveectl scan' to confirm the address",
			"Try a longer --timeout",
		}
	case errors.Is(err, link.ErrCharacteristicNotFound):
		return []string{
			"The device does not expose the Govee control service",
			"Check the address belongs to a Govee light",
		}
	case protocol.IsValidationError(err):
		return []string{
			"Check the command values and the --model flag",
			"Run 'goveectl effects list --model <model>' for valid effect indexes",
		}
	case link.IsTransportError(err):
		return []string{
			"Move closer to the light and try again",
			"Increase --attempts or add a --delay between attempts",
			"Run with --log-level debug to see each frame",
		}
	default:
		return nil
	}
}
