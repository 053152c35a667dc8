package discovery

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// namePattern matches the local names Govee lights advertise,
// e.g. "ihoment_H6199_A1B2" or "Govee_H6053_0C3D"
var namePattern = regexp.MustCompile(`(?i)^(ihoment|govee|minger|gbk)_(h[0-9a-z]{4})(?:_([0-9a-f]{4}))?`)

// Device represents a light found in a Bluetooth scan
type Device struct {
	// Address is the Bluetooth address as reported by the adapter
	// (a MAC on Linux and Windows, a UUID on macOS)
	Address string

	// Name is the advertised local name (e.g., "ihoment_H6199_A1B2")
	Name string

	// Model is the model parsed from the name (e.g., "H6199"), empty if unknown
	Model string

	// Suffix is the trailing address fragment in the name (e.g., "A1B2")
	Suffix string

	// RSSI is the signal strength of the last advertisement in dBm
	RSSI int16

	// DiscoveredAt is when the device was first seen
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	model := d.Model
	if model == "" {
		model = "unknown model"
	}
	return fmt.Sprintf("%s (%s) at %s, %d dBm", d.Name, model, d.Address, d.RSSI)
}

// NewDevice builds a Device from an advertisement. It returns nil when
// the name is not a Govee light name.
func NewDevice(address, name string, rssi int16) *Device {
	m := namePattern.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return nil
	}

	return &Device{
		Address:      strings.ToUpper(address),
		Name:         name,
		Model:        strings.ToUpper(m[2]),
		Suffix:       strings.ToUpper(m[3]),
		RSSI:         rssi,
		DiscoveredAt: time.Now(),
	}
}

// ModelFromName extracts the model from an advertised name
func ModelFromName(name string) (string, bool) {
	m := namePattern.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[2]), true
}
