package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/goveectl/internal/config"
	"github.com/muurk/goveectl/internal/ui"
)

// device add flags
var (
	deviceAddress  string
	deviceNickname string
	deviceCloudID  string
	deviceCloudSKU string
)

func init() {
	deviceAddCmd.Flags().StringVar(&deviceAddress, "address", "", "Bluetooth address")
	deviceAddCmd.Flags().StringVar(&deviceNickname, "nickname", "", "Display name")
	deviceAddCmd.Flags().StringVar(&deviceCloudID, "cloud-device", "", "Device id from 'goveectl cloud devices'")
	deviceAddCmd.Flags().StringVar(&deviceCloudSKU, "cloud-sku", "", "SKU from 'goveectl cloud devices'")

	deviceCmd.AddCommand(deviceAddCmd)
	deviceCmd.AddCommand(deviceListCmd)
	deviceCmd.AddCommand(deviceRemoveCmd)
	rootCmd.AddCommand(deviceCmd)
}

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Manage saved devices",
	Long: `Manage devices saved in the config file.

Saved devices can be addressed by alias in every command. The config file
lives in the user config directory (see 'goveectl device list').`,
}

var deviceAddCmd = &cobra.Command{
	Use:   "add <alias>",
	Short: "Save a device under an alias",
	Example: `  goveectl device add desk --address A4:C1:38:12:34:56 --model H6199
  goveectl device add porch --cloud-device 12:34:56:78:9A:BC:DE:F0 --cloud-sku H6072`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.GetGlobalRegistry()
		if err != nil {
			return err
		}

		device := &config.Device{
			Address:     deviceAddress,
			Model:       modelFlag,
			Nickname:    deviceNickname,
			CloudDevice: deviceCloudID,
			CloudSKU:    deviceCloudSKU,
		}
		if device.Model == "" && device.CloudSKU != "" {
			device.Model = device.CloudSKU
		}

		if err := reg.AddDevice(args[0], device); err != nil {
			return err
		}
		if err := reg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Device Saved", deviceDetails(args[0], device))
		return nil
	},
}

var deviceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.GetGlobalRegistry()
		if err != nil {
			return err
		}

		p := ui.NewPrinter(cmd.OutOrStdout())
		path, _ := config.GetConfigPath()

		aliases := reg.Aliases()
		if len(aliases) == 0 {
			p.PrintWarning("No Saved Devices", map[string]string{
				"Config": path,
				"Hint":   "Run 'goveectl scan' then 'goveectl device add'",
			})
			return nil
		}

		t := ui.NewTable("Devices ("+path+")", "Alias", "Nickname", "Model", "Address", "Cloud", "Last Seen")
		for _, alias := range aliases {
			d := reg.GetDevice(alias)
			cloud := ""
			if d.HasCloud() {
				cloud = d.CloudSKU + " " + d.CloudDevice
			}
			t.AddRow(alias, d.Nickname, d.Model, d.Address, cloud, lastSeen(d))
		}
		p.PrintTable(t)
		return nil
	},
}

var deviceRemoveCmd = &cobra.Command{
	Use:     "remove <alias>",
	Aliases: []string{"rm"},
	Short:   "Forget a saved device",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.GetGlobalRegistry()
		if err != nil {
			return err
		}
		if !reg.RemoveDevice(args[0]) {
			return fmt.Errorf("no device named %q", args[0])
		}
		if err := reg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Device Removed", map[string]string{"Alias": args[0]})
		return nil
	},
}

func deviceDetails(alias string, d *config.Device) map[string]string {
	details := map[string]string{"Alias": alias}
	if d.Address != "" {
		details["Address"] = d.Address
	}
	if d.Model != "" {
		details["Model"] = d.Model
	}
	if d.Nickname != "" {
		details["Nickname"] = d.Nickname
	}
	if d.HasCloud() {
		details["Cloud"] = d.CloudSKU + " " + d.CloudDevice
	}
	return details
}

func lastSeen(d *config.Device) string {
	if d.LastSeen.IsZero() {
		return "never"
	}
	return fmt.Sprintf("%s (%d dBm)", d.LastSeen.Format(time.DateTime), d.LastRSSI)
}
