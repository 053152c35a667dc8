package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/goveectl/internal/cloud"
	"github.com/muurk/goveectl/internal/config"
	"github.com/muurk/goveectl/internal/protocol"
	"github.com/muurk/goveectl/internal/ui"
	"github.com/muurk/goveectl/internal/urls"
)

// cloud flags
var (
	cloudDeviceID string
	cloudSKU      string
	cloudBaseURL  string
)

func init() {
	cloudCmd.PersistentFlags().StringVar(&cloudDeviceID, "device", "", "Cloud device id (instead of a saved alias)")
	cloudCmd.PersistentFlags().StringVar(&cloudSKU, "sku", "", "Cloud SKU (instead of a saved alias)")
	cloudCmd.PersistentFlags().StringVar(&cloudBaseURL, "api-url", cloud.DefaultBaseURL, "Cloud API base URL")

	cloudCmd.AddCommand(cloudDevicesCmd)
	cloudCmd.AddCommand(cloudScenesCmd)
	cloudCmd.AddCommand(cloudStateCmd)
	cloudCmd.AddCommand(cloudPowerCmd)
	cloudCmd.AddCommand(cloudBrightnessCmd)
	cloudCmd.AddCommand(cloudColorCmd)
	cloudCmd.AddCommand(cloudTempCmd)
	cloudCmd.AddCommand(cloudSceneCmd)
	rootCmd.AddCommand(cloudCmd)
}

var cloudCmd = &cobra.Command{
	Use:   "cloud",
	Short: "Control lights through the Govee cloud API",
	Long: `Control lights through the Govee cloud API.

The API key is read from the ` + cloud.APIKeyEnvVar + ` environment variable and
is never written to the config file. Keys are requested through the Govee
Home app, see ` + urls.DeveloperPortal + `. Devices are addressed by a saved
alias with a cloud device id, or by --device and --sku.`,
	Example: `  export ` + cloud.APIKeyEnvVar + `=...
  goveectl cloud devices
  goveectl cloud power on porch
  goveectl cloud scene --device 12:34:56:78:9A:BC:DE:F0 --sku H6072 Sunrise`,
}

// newCloudClient creates a client from the environment
func newCloudClient() (*cloud.Client, error) {
	key := strings.TrimSpace(os.Getenv(cloud.APIKeyEnvVar))
	if key == "" {
		return nil, fmt.Errorf("%s is not set", cloud.APIKeyEnvVar)
	}
	initMetrics()
	c := cloud.NewClientWithURL(cloudBaseURL, key)
	c.SetMetrics(cloudMetrics)
	return c, nil
}

// cloudTarget is a device addressed through the cloud API
type cloudTarget struct {
	Name   string
	SKU    string
	Device string
}

// resolveCloudTarget returns the flags if set, the saved alias otherwise
func resolveCloudTarget(args []string) (*cloudTarget, error) {
	if cloudDeviceID != "" || cloudSKU != "" {
		if cloudDeviceID == "" || cloudSKU == "" {
			return nil, fmt.Errorf("--device and --sku must be used together")
		}
		return &cloudTarget{Name: cloudDeviceID, SKU: strings.ToUpper(cloudSKU), Device: cloudDeviceID}, nil
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("a device alias or --device and --sku are required")
	}

	reg, err := config.GetGlobalRegistry()
	if err != nil {
		return nil, err
	}
	d := reg.GetDevice(args[0])
	if d == nil {
		return nil, fmt.Errorf("no device named %q", args[0])
	}
	if !d.HasCloud() {
		return nil, fmt.Errorf("device %q has no cloud id (add one with 'goveectl device add %s --cloud-device ... --cloud-sku ...')", args[0], args[0])
	}
	return &cloudTarget{Name: args[0], SKU: d.CloudSKU, Device: d.CloudDevice}, nil
}

// cloudHints puts the short message first, followed by the tips
func cloudHints(err error) []string {
	return append([]string{cloud.GetShortErrorMessage(err)}, ui.HintLines(cloud.GetTroubleshootingHint(err))...)
}

// runCloud sends one command to the target and reports the result
func runCloud(cmd *cobra.Command, args []string, title string, c protocol.Command) error {
	t, err := resolveCloudTarget(args)
	if err != nil {
		return err
	}
	client, err := newCloudClient()
	if err != nil {
		return err
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   title,
		Command: cmd.CommandPath() + " " + t.Name,
		Params: map[string]string{
			"Device": t.Device,
			"SKU":    t.SKU,
		},
		Steps:  []string{c.String()},
		Output: cmd.OutOrStdout(),
		Hints:  cloudHints,
	})

	err = runner.Run(cmd.Context(), func(ctx context.Context, onStep ui.StepCallback) (map[string]string, error) {
		onStep(1, ui.StepRunning, "")
		if err := client.Execute(ctx, t.SKU, t.Device, c); err != nil {
			onStep(1, ui.StepFailed, "")
			return nil, err
		}
		onStep(1, ui.StepComplete, "")
		return nil, nil
	})

	printStats(cmd)
	return err
}

// cloudArgs splits "[alias] values..." when the target may come from flags
func cloudArgs(args []string) (target, values []string) {
	if cloudDeviceID != "" || cloudSKU != "" {
		return nil, args
	}
	if len(args) == 0 {
		return nil, nil
	}
	return args[:1], args[1:]
}

var cloudDevicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List devices on the account",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newCloudClient()
		if err != nil {
			return err
		}

		p := ui.NewPrinter(cmd.OutOrStdout())
		devices, err := client.ListDevices(cmd.Context())
		if err != nil {
			p.PrintError("Device List Failed", err, cloudHints(err))
			return err
		}

		t := ui.NewTable(fmt.Sprintf("Cloud Devices (%d)", len(devices)), "Name", "SKU", "Device", "Capabilities")
		for _, d := range devices {
			if !d.IsLight() {
				continue
			}
			t.AddRow(d.DeviceName, d.SKU, d.Device, strings.Join(d.Instances(), ", "))
		}
		p.PrintTable(t)
		printStats(cmd)
		return nil
	},
}

var cloudScenesCmd = &cobra.Command{
	Use:   "scenes [alias]",
	Short: "List the scenes a device offers",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := resolveCloudTarget(args)
		if err != nil {
			return err
		}
		client, err := newCloudClient()
		if err != nil {
			return err
		}

		p := ui.NewPrinter(cmd.OutOrStdout())
		scenes, err := client.ListScenes(cmd.Context(), t.SKU, t.Device)
		if err != nil {
			p.PrintError("Scene List Failed", err, cloudHints(err))
			return err
		}

		table := ui.NewTable(fmt.Sprintf("%s Scenes (%d)", t.SKU, len(scenes)), "Name")
		for _, s := range scenes {
			table.AddRow(s.Name)
		}
		p.PrintTable(table)
		return nil
	},
}

var cloudStateCmd = &cobra.Command{
	Use:   "state [alias]",
	Short: "Show the reported state of a device",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := resolveCloudTarget(args)
		if err != nil {
			return err
		}
		client, err := newCloudClient()
		if err != nil {
			return err
		}

		p := ui.NewPrinter(cmd.OutOrStdout())
		state, err := client.DeviceState(cmd.Context(), t.SKU, t.Device)
		if err != nil {
			p.PrintError("State Query Failed", err, cloudHints(err))
			return err
		}

		details := make(map[string]string, len(state.Capabilities))
		for _, c := range state.Capabilities {
			details[c.Instance] = fmt.Sprintf("%v", c.State.Value)
		}
		p.PrintSuccess(fmt.Sprintf("%s %s", state.SKU, state.Device), details)
		return nil
	},
}

var cloudPowerCmd = &cobra.Command{
	Use:   "power <on|off> [alias]",
	Short: "Switch a light on or off",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parsePower(args[0])
		if err != nil {
			return err
		}
		title := "Cloud Power Off"
		if on {
			title = "Cloud Power On"
		}
		return runCloud(cmd, args[1:], title, protocol.Power{On: on})
	},
}

var cloudBrightnessCmd = &cobra.Command{
	Use:   "brightness [alias] <0-255>",
	Short: "Set brightness",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, values := cloudArgs(args)
		if len(values) != 1 {
			return fmt.Errorf("brightness takes one level")
		}
		level, err := parseLevel(values[0])
		if err != nil {
			return err
		}
		return runCloud(cmd, target, "Cloud Brightness", protocol.Brightness{Level: level})
	},
}

var cloudColorCmd = &cobra.Command{
	Use:   "color [alias] <hex | r g b>",
	Short: "Set a solid color",
	Args:  cobra.RangeArgs(1, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, values := cloudArgs(args)
		c, err := parseColor(values)
		if err != nil {
			return err
		}
		return runCloud(cmd, target, "Cloud Color", c)
	},
}

var cloudTempCmd = &cobra.Command{
	Use:   "temp [alias] <kelvin>",
	Short: "Set a white color temperature",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, values := cloudArgs(args)
		if len(values) != 1 {
			return fmt.Errorf("temp takes one value in kelvin")
		}
		k, err := parseKelvin(values[0])
		if err != nil {
			return err
		}
		return runCloud(cmd, target, "Cloud Color Temperature", protocol.ColorTemperature{Kelvin: k})
	},
}

var cloudSceneCmd = &cobra.Command{
	Use:   "scene [alias] <name>",
	Short: "Activate a scene by name",
	Long: `Activate a scene by name.

Names are matched exactly against 'goveectl cloud scenes'. Multi-word names
can be given unquoted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, values := cloudArgs(args)
		if len(values) == 0 {
			return fmt.Errorf("scene name required")
		}
		return runCloud(cmd, target, "Cloud Scene", protocol.Scene{Name: strings.Join(values, " ")})
	},
}
