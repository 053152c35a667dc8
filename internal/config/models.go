package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/muurk/goveectl/internal/link"
)

// Default preference values
const (
	DefaultScanTimeout = 10 // seconds
)

// Registry represents the entire user configuration file.
// This stores named devices and application preferences.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by lowercase alias
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Device represents a named light.
// A device can be reached over Bluetooth (Address), the cloud API
// (CloudDevice and CloudSKU), or both.
type Device struct {
	Address     string    `yaml:"address,omitempty"`      // Bluetooth address (MAC, or UUID on macOS)
	Model       string    `yaml:"model,omitempty"`        // Model number, e.g. H6199
	Nickname    string    `yaml:"nickname,omitempty"`     // User-friendly name
	CloudDevice string    `yaml:"cloud_device,omitempty"` // Device id from the cloud device list
	CloudSKU    string    `yaml:"cloud_sku,omitempty"`    // SKU from the cloud device list
	LastSeen    time.Time `yaml:"last_seen,omitempty"`    // Last scan or successful command
	LastRSSI    int16     `yaml:"last_rssi,omitempty"`    // Signal strength at LastSeen
}

// HasBluetooth reports whether the device can be reached over Bluetooth
func (d *Device) HasBluetooth() bool {
	return d.Address != ""
}

// HasCloud reports whether the device can be reached through the cloud API
func (d *Device) HasCloud() bool {
	return d.CloudDevice != "" && d.CloudSKU != ""
}

// Preferences represents application-wide user preferences.
// Note: The cloud API key is NEVER stored - it is read from GOVEE_API_KEY.
type Preferences struct {
	ConnectAttempts int    `yaml:"connect_attempts"`      // Bluetooth connection attempts per sequence
	ConnectDelayMS  int    `yaml:"connect_delay_ms"`      // Delay between connection attempts
	ScanTimeout     int    `yaml:"scan_timeout"`          // Bluetooth scan timeout in seconds
	CatalogDir      string `yaml:"catalog_dir,omitempty"` // Directory of <MODEL>.json effect catalogs
}

func defaultPreferences() *Preferences {
	return &Preferences{
		ConnectAttempts: link.DefaultConnectAttempts,
		ConnectDelayMS:  int(link.DefaultConnectDelay / time.Millisecond),
		ScanTimeout:     DefaultScanTimeout,
	}
}

// RetryPolicy returns the connection retry policy
func (p *Preferences) RetryPolicy() link.RetryPolicy {
	if p == nil || p.ConnectAttempts < 1 {
		return link.DefaultRetryPolicy()
	}
	delay := p.ConnectDelayMS
	if delay < 0 {
		delay = 0
	}
	return link.RetryPolicy{
		MaxAttempts: p.ConnectAttempts,
		Delay:       time.Duration(delay) * time.Millisecond,
	}
}

// ScanDuration returns the scan timeout
func (p *Preferences) ScanDuration() time.Duration {
	if p == nil || p.ScanTimeout <= 0 {
		return DefaultScanTimeout * time.Second
	}
	return time.Duration(p.ScanTimeout) * time.Second
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Devices:     make(map[string]*Device),
		Preferences: defaultPreferences(),
	}
}

func normalizeAlias(alias string) string {
	return strings.ToLower(strings.TrimSpace(alias))
}

// GetDevice retrieves a device by alias.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(alias string) *Device {
	return r.Devices[normalizeAlias(alias)]
}

// EnsureDevice ensures a device entry exists in the registry.
// If the device doesn't exist, creates a new empty entry.
func (r *Registry) EnsureDevice(alias string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}

	key := normalizeAlias(alias)
	if device, exists := r.Devices[key]; exists {
		return device
	}

	device := &Device{}
	r.Devices[key] = device
	return device
}

// AddDevice stores a device under an alias, replacing any existing entry.
func (r *Registry) AddDevice(alias string, device *Device) error {
	key := normalizeAlias(alias)
	if key == "" {
		return fmt.Errorf("alias cannot be empty")
	}
	if strings.ContainsAny(key, " \t/") {
		return fmt.Errorf("alias %q cannot contain spaces or slashes", alias)
	}
	if device == nil || (!device.HasBluetooth() && !device.HasCloud()) {
		return fmt.Errorf("device %q needs a Bluetooth address or a cloud device id and SKU", alias)
	}

	device.Address = strings.ToUpper(device.Address)
	device.Model = strings.ToUpper(device.Model)
	device.CloudSKU = strings.ToUpper(device.CloudSKU)

	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}
	r.Devices[key] = device
	return nil
}

// RemoveDevice deletes a device. Returns false if the alias was unknown.
func (r *Registry) RemoveDevice(alias string) bool {
	key := normalizeAlias(alias)
	if _, ok := r.Devices[key]; !ok {
		return false
	}
	delete(r.Devices, key)
	return true
}

// Aliases returns all device aliases in sorted order
func (r *Registry) Aliases() []string {
	aliases := make([]string, 0, len(r.Devices))
	for alias := range r.Devices {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// FindByAddress returns the alias and device with the given Bluetooth address
func (r *Registry) FindByAddress(address string) (string, *Device) {
	for _, alias := range r.Aliases() {
		if d := r.Devices[alias]; strings.EqualFold(d.Address, address) {
			return alias, d
		}
	}
	return "", nil
}

// ResolveDevice looks up a device by alias, then by Bluetooth address.
// An unknown target is treated as a bare Bluetooth address with no alias.
func (r *Registry) ResolveDevice(target string) (string, *Device) {
	if d := r.GetDevice(target); d != nil {
		return normalizeAlias(target), d
	}
	if alias, d := r.FindByAddress(target); d != nil {
		return alias, d
	}
	return "", &Device{Address: strings.ToUpper(strings.TrimSpace(target))}
}

// UpdateDeviceLastSeen records a sighting of a device.
func (r *Registry) UpdateDeviceLastSeen(alias string, rssi int16) {
	device := r.EnsureDevice(alias)
	device.LastSeen = time.Now()
	device.LastRSSI = rssi
}

// SetDeviceNickname sets a user-friendly nickname for a device.
func (r *Registry) SetDeviceNickname(alias, nickname string) {
	device := r.EnsureDevice(alias)
	device.Nickname = nickname
}
