// Package discovery finds Govee lights over Bluetooth LE.
//
// Lights advertise a local name made of a vendor prefix, the model and the
// last two bytes of their address, for example "ihoment_H6199_A1B2" or
// "Govee_H6053_0C3D". The scanner listens for advertisements until the
// timeout and keeps those whose name matches.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	scanner.Timeout = 5 * time.Second
//
//	devices, err := scanner.ScanForDevices(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, d := range devices {
//	    fmt.Printf("%s  %s  %d dBm\n", d.Address, d.Model, d.RSSI)
//	}
//
// # Addresses
//
// Addresses are whatever the platform adapter reports: a MAC address on
// Linux and Windows, a per-host UUID on macOS. Connecting therefore goes
// through WaitForDevice, which returns the adapter's own address value.
//
// # Scan Sources
//
// Scanner runs any ScanFunc. AdapterScan wraps a tinygo.org/x/bluetooth
// adapter; tests replay recorded advertisements.
package discovery
