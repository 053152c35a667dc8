package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/muurk/goveectl/internal/catalog"
	"github.com/muurk/goveectl/internal/config"
	"github.com/muurk/goveectl/internal/discovery"
	"github.com/muurk/goveectl/internal/protocol"
	"github.com/muurk/goveectl/internal/ui"
)

// power flags
var (
	powerBrightness string
	powerColor      string
	powerEffect     string
)

// effect flags
var effectParams string

// decode flags
var decodeHeaderLen int

func init() {
	powerCmd.Flags().StringVar(&powerBrightness, "brightness", "", "Brightness 0-255 to apply after switching on")
	powerCmd.Flags().StringVar(&powerColor, "color", "", "Color to apply after switching on (hex, e.g. ff8000)")
	powerCmd.Flags().StringVar(&powerEffect, "effect", "", "Effect index c/s/e/v to play after switching on")
	addConnectionFlags(powerCmd)

	addConnectionFlags(brightnessCmd)
	addConnectionFlags(colorCmd)

	effectCmd.Flags().StringVar(&effectParams, "params", "", "Raw effect parameters (base64, or hex: prefix) instead of a catalog index")
	addConnectionFlags(effectCmd)

	addConnectionFlags(effectsPickCmd)
	effectsCmd.AddCommand(effectsListCmd)
	effectsCmd.AddCommand(effectsPickCmd)

	decodeCmd.Flags().IntVar(&decodeHeaderLen, "header-len", 1, "Header length of fragmented sequences")

	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "How long to scan")

	rootCmd.AddCommand(powerCmd)
	rootCmd.AddCommand(brightnessCmd)
	rootCmd.AddCommand(colorCmd)
	rootCmd.AddCommand(effectCmd)
	rootCmd.AddCommand(effectsCmd)
	rootCmd.AddCommand(framesCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(modelsCmd)
}

// runLight resolves the target, builds the commands and sends them
func runLight(cmd *cobra.Command, name, title string, build func(*protocol.Builder) ([]protocol.Sequence, error)) error {
	reg, err := config.GetGlobalRegistry()
	if err != nil {
		return err
	}
	t, err := resolveTarget(reg, name)
	if err != nil {
		return err
	}

	seqs, err := build(protocol.NewBuilder(t.Model))
	if err != nil {
		ui.NewPrinter(cmd.OutOrStdout()).PrintError("Invalid Command", err, transportHints(err))
		return err
	}

	if err := sendBatch(cmd, reg, t, title, seqs); err != nil {
		return err
	}

	// Remember the model for next time
	if t.Alias != "" && t.Model != nil {
		if d := reg.GetDevice(t.Alias); d != nil && d.Model == "" {
			d.Model = t.Model.Model
			if err := reg.Save(); err != nil {
				ui.NewPrinter(cmd.ErrOrStderr()).PrintWarning("Could not save config", map[string]string{"Error": err.Error()})
			}
		}
	}
	return nil
}

var powerCmd = &cobra.Command{
	Use:   "power <on|off> <device>",
	Short: "Switch a light on or off",
	Long: `Switch a light on or off.

When switching on, --brightness, --color and --effect are applied in that
order on the same connection. All values are checked before anything is
written.`,
	Example: `  goveectl power off desk
  goveectl power on desk --brightness 200 --color 00ff80`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parsePower(args[0])
		if err != nil {
			return err
		}

		if !on {
			return runLight(cmd, args[1], "Power Off", func(b *protocol.Builder) ([]protocol.Sequence, error) {
				return b.TurnOff()
			})
		}

		var opts protocol.TurnOnOptions
		if powerBrightness != "" {
			level, err := parseLevel(powerBrightness)
			if err != nil {
				return err
			}
			opts.Brightness = &level
		}
		if powerColor != "" {
			c, err := parseColor([]string{powerColor})
			if err != nil {
				return err
			}
			opts.Color = &c
		}
		if powerEffect != "" {
			idx, err := catalog.ParseEffectIndex(powerEffect)
			if err != nil {
				return err
			}
			opts.Effect = &idx
		}

		return runLight(cmd, args[1], "Power On", func(b *protocol.Builder) ([]protocol.Sequence, error) {
			return b.TurnOn(opts)
		})
	},
}

var brightnessCmd = &cobra.Command{
	Use:     "brightness <device> <0-255>",
	Short:   "Set brightness",
	Example: `  goveectl brightness desk 128`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := parseLevel(args[1])
		if err != nil {
			return err
		}
		return runLight(cmd, args[0], "Set Brightness", func(b *protocol.Builder) ([]protocol.Sequence, error) {
			return b.BuildAll(protocol.Brightness{Level: level})
		})
	},
}

var colorCmd = &cobra.Command{
	Use:   "color <device> <hex | r g b>",
	Short: "Set a solid color",
	Example: `  goveectl color desk ff0000
  goveectl color desk 255 128 0`,
	Args: cobra.RangeArgs(2, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := parseColor(args[1:])
		if err != nil {
			return err
		}
		return runLight(cmd, args[0], "Set Color", func(b *protocol.Builder) ([]protocol.Sequence, error) {
			return b.BuildAll(c)
		})
	},
}

var effectCmd = &cobra.Command{
	Use:   "effect <device> [c/s/e/v | label]",
	Short: "Play a catalog effect",
	Long: `Play an effect from the model's catalog.

The effect is addressed by its index, as printed by 'goveectl effects list',
or by a label containing "[c/s/e/v]". With --params the given parameter
blob is sent as is and no catalog is needed.`,
	Example: `  goveectl effect desk 0/3/0/0
  goveectl effect desk --params hex:0104...`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var scene protocol.Scene

		switch {
		case effectParams != "":
			params, err := parseEffectParams(effectParams)
			if err != nil {
				return err
			}
			scene.Params = params
		case len(args) == 2:
			idx, err := catalog.ParseEffectIndex(args[1])
			if err != nil {
				return err
			}
			scene.Effect = idx
		default:
			return fmt.Errorf("effect index or --params required")
		}

		return runLight(cmd, args[0], "Play Effect", func(b *protocol.Builder) ([]protocol.Sequence, error) {
			return b.BuildAll(scene)
		})
	},
}

var effectsCmd = &cobra.Command{
	Use:   "effects",
	Short: "Browse model effect catalogs",
}

var effectsListCmd = &cobra.Command{
	Use:     "list [device]",
	Short:   "List the effects of a model",
	Example: `  goveectl effects list --model H6199`,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, err := effectsModel(args)
		if err != nil {
			return err
		}

		t := ui.NewTable(fmt.Sprintf("%s Effects (%d)", desc.Model, desc.EffectCount()), "Index", "Name")
		for _, e := range desc.Effects() {
			t.AddRow(e.Index.String(), e.Name)
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintTable(t)
		return nil
	},
}

var effectsPickCmd = &cobra.Command{
	Use:   "pick <device>",
	Short: "Pick an effect interactively and play it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !ui.IsTerminal() {
			return fmt.Errorf("effects pick needs an interactive terminal (use 'goveectl effect')")
		}

		desc, err := effectsModel(args)
		if err != nil {
			return err
		}

		entry, err := ui.PickEffect(desc)
		if errors.Is(err, ui.ErrPickerCancelled) {
			return nil
		}
		if err != nil {
			return err
		}

		return runLight(cmd, args[0], "Play "+entry.Name, func(b *protocol.Builder) ([]protocol.Sequence, error) {
			return b.BuildAll(protocol.Scene{Effect: entry.Index})
		})
	},
}

// effectsModel returns the descriptor for --model or the device's model
func effectsModel(args []string) (*catalog.Descriptor, error) {
	reg, err := config.GetGlobalRegistry()
	if err != nil {
		return nil, err
	}

	if len(args) == 1 {
		t, err := resolveTarget(reg, args[0])
		if err != nil {
			return nil, err
		}
		if t.Model == nil {
			return nil, fmt.Errorf("model of %s unknown (use --model)", t.Name())
		}
		return t.Model, nil
	}

	if modelFlag == "" {
		return nil, fmt.Errorf("--model or a device is required")
	}
	cats, err := loadCatalogs(reg)
	if err != nil {
		return nil, err
	}
	return cats.Lookup(modelFlag)
}

var framesCmd = &cobra.Command{
	Use:   "frames <command> [args...]",
	Short: "Print the frames for a command without sending them",
	Long: `Print the frames a command encodes to, without touching Bluetooth.

Commands: power <on|off>, brightness <0-255>, color <hex | r g b>,
effect <c/s/e/v>, temp <kelvin>. Use --model for model-specific encodings.`,
	Example: `  goveectl frames color ff8000 --model H6199
  goveectl frames effect 0/1/0/0 --model H6072`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := parseCommand(args)
		if err != nil {
			return err
		}

		var desc *catalog.Descriptor
		if modelFlag != "" {
			reg, err := config.GetGlobalRegistry()
			if err != nil {
				return err
			}
			cats, err := loadCatalogs(reg)
			if err != nil {
				return err
			}
			if desc, err = cats.Lookup(modelFlag); err != nil {
				return err
			}
		}

		p := ui.NewPrinter(cmd.OutOrStdout())
		seqs, err := protocol.NewBuilder(desc).BuildAll(c)
		if err != nil {
			p.PrintError("Cannot Encode", err, transportHints(err))
			return err
		}

		title := "Frames"
		if desc != nil {
			title += " for " + desc.Model
		}
		p.PrintTable(ui.FrameTable(title, seqs))
		return nil
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode <hex> [hex...]",
	Short: "Decode captured frames",
	Long: `Decode one or more captured frames.

Each frame is 20 bytes of hex. Frames with a bad checksum are still shown.
Several frames forming a fragmented sequence are reassembled and their
header and payload printed.`,
	Example: `  goveectl decode 3301010000000000000000000000000000000033`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		frames := make([]protocol.Frame, 0, len(args))
		for _, arg := range args {
			f, err := protocol.ParseHexFrame(arg)
			if err != nil && !errors.Is(err, protocol.ErrChecksumMismatch) {
				return err
			}
			frames = append(frames, f)
		}

		p := ui.NewPrinter(cmd.OutOrStdout())
		p.PrintTable(ui.DecodeTable(frames))

		if len(frames) < 2 || frames[0].Kind() != protocol.FrameLead {
			return nil
		}

		r, err := protocol.Reassemble(frames, decodeHeaderLen)
		if err != nil {
			p.PrintError("Reassembly Failed", err, nil)
			return err
		}
		p.PrintSuccess("Reassembled", map[string]string{
			"Tag":     fmt.Sprintf("0x%02x", r.Tag),
			"Frames":  strconv.Itoa(r.Frames),
			"Header":  fmt.Sprintf("%x", r.Header),
			"Payload": fmt.Sprintf("%x", r.Payload),
		})
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover Govee lights in range",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.GetGlobalRegistry()
		if err != nil {
			return err
		}

		scanner, err := newScanner(cmd, reg)
		if err != nil {
			return err
		}
		p := ui.NewPrinter(cmd.OutOrStdout())
		p.PrintHeader("Bluetooth Scan", cmd.CommandPath(), map[string]string{
			"Timeout": scanner.Timeout.String(),
		})

		devices, err := scanner.ScanForDevices(cmd.Context())
		if err != nil {
			p.PrintError("Scan Failed", err, []string{
				"Check Bluetooth is enabled on this machine",
				"On Linux the user needs access to BlueZ over D-Bus",
			})
			return err
		}

		if len(devices) == 0 {
			p.PrintWarning("No Lights Found", map[string]string{
				"Hint": "Make sure lights are powered and not connected to the Govee app",
			})
			return nil
		}

		t := ui.NewTable(fmt.Sprintf("Found %d light(s)", len(devices)), "Address", "Name", "Model", "RSSI", "Alias")
		seen := false
		for _, d := range devices {
			alias, _ := reg.FindByAddress(d.Address)
			if alias != "" {
				reg.UpdateDeviceLastSeen(alias, d.RSSI)
				seen = true
			}
			t.AddRow(d.Address, d.Name, d.Model, fmt.Sprintf("%d dBm", d.RSSI), alias)
		}
		p.PrintTable(t)

		if seen {
			if err := reg.Save(); err != nil {
				p.PrintWarning("Could not save config", map[string]string{"Error": err.Error()})
			}
		}
		return nil
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models with effect catalogs",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.GetGlobalRegistry()
		if err != nil {
			return err
		}
		cats, err := loadCatalogs(reg)
		if err != nil {
			return err
		}

		t := ui.NewTable("Models", "Model", "Color Mode", "Brightness", "Effects")
		for _, m := range cats.Models() {
			d, err := cats.Lookup(m)
			if err != nil {
				return err
			}
			mode := "manual"
			if d.IsSegmented() {
				mode = "segmented"
			}
			t.AddRow(d.Model, mode, d.Brightness.String(), strconv.Itoa(d.EffectCount()))
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintTable(t)
		return nil
	},
}
