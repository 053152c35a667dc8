package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/muurk/goveectl/internal/logging"
	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"
)

const (
	// DefaultScanTimeout is the default timeout for device discovery
	DefaultScanTimeout = 10 * time.Second
)

// ErrDeviceNotFound is returned when a device does not advertise before
// the scan timeout
var ErrDeviceNotFound = errors.New("device not found")

var (
	enableOnce sync.Once
	enableErr  error
)

// EnableAdapter powers on the adapter once per process
func EnableAdapter(adapter *bluetooth.Adapter) error {
	enableOnce.Do(func() {
		enableErr = adapter.Enable()
	})
	if enableErr != nil {
		return fmt.Errorf("failed to enable Bluetooth adapter: %w", enableErr)
	}
	return nil
}

// Advertisement is the part of a scan result the scanner inspects
type Advertisement struct {
	Address string
	Name    string
	RSSI    int16

	// BLEAddress is the adapter's address value, needed to connect.
	// It is zero for advertisements that did not come from an adapter.
	BLEAddress bluetooth.Address
}

// ScanFunc runs a scan, calling found for every advertisement until found
// returns false or ctx is done
type ScanFunc func(ctx context.Context, found func(Advertisement) bool) error

// Scanner handles Bluetooth LE device discovery
type Scanner struct {
	// Timeout is the maximum time to wait for device discovery
	Timeout time.Duration

	scan ScanFunc
}

// NewScanner creates a scanner on the default adapter
func NewScanner() *Scanner {
	return NewScannerWithFunc(AdapterScan(bluetooth.DefaultAdapter))
}

// NewScannerWithFunc creates a scanner backed by an arbitrary scan source
func NewScannerWithFunc(scan ScanFunc) *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
		scan:    scan,
	}
}

// stopRetryInterval is how often a pending StopScan is retried
const stopRetryInterval = 50 * time.Millisecond

// scanAdapter is the part of a bluetooth.Adapter used for scanning
type scanAdapter interface {
	Scan(callback func(*bluetooth.Adapter, bluetooth.ScanResult)) error
	StopScan() error
}

// AdapterScan returns a ScanFunc that scans with a tinygo bluetooth adapter
func AdapterScan(adapter *bluetooth.Adapter) ScanFunc {
	return scanWith(adapter, func() error { return EnableAdapter(adapter) })
}

func scanWith(adapter scanAdapter, enable func() error) ScanFunc {
	return func(ctx context.Context, found func(Advertisement) bool) error {
		if err := enable(); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		// Scan blocks until StopScan is called
		done := make(chan struct{})
		defer close(done)
		go stopOnDone(ctx, adapter, done)

		err := adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			if ctx.Err() != nil {
				_ = adapter.StopScan()
				return
			}
			adv := Advertisement{
				Address: result.Address.String(),
				Name:    result.LocalName(),
				RSSI:    result.RSSI,

				BLEAddress: result.Address,
			}
			if !found(adv) {
				_ = adapter.StopScan()
			}
		})
		if err != nil {
			return fmt.Errorf("bluetooth scan failed: %w", err)
		}
		return nil
	}
}

// stopOnDone stops the scan once ctx is done. StopScan fails until Scan has
// started, so it is retried until it succeeds or the scan returns.
func stopOnDone(ctx context.Context, adapter scanAdapter, done <-chan struct{}) {
	select {
	case <-ctx.Done():
	case <-done:
		return
	}

	ticker := time.NewTicker(stopRetryInterval)
	defer ticker.Stop()
	for {
		if err := adapter.StopScan(); err == nil {
			return
		}
		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}

// ScanForDevices discovers all Govee lights in range until the timeout
func (s *Scanner) ScanForDevices(ctx context.Context) ([]*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	seen := make(map[string]*Device)

	err := s.scan(ctx, func(adv Advertisement) bool {
		device := NewDevice(adv.Address, adv.Name, adv.RSSI)
		if device == nil {
			return true
		}

		if existing, ok := seen[device.Address]; ok {
			existing.RSSI = device.RSSI
			return true
		}

		logging.Debug("Discovered device",
			zap.String("address", device.Address),
			zap.String("name", device.Name),
			zap.String("model", device.Model),
			zap.Int16("rssi", device.RSSI),
		)
		seen[device.Address] = device
		return true
	})
	if err != nil {
		return nil, err
	}

	devices := make([]*Device, 0, len(seen))
	for _, d := range seen {
		devices = append(devices, d)
	}

	// Strongest signal first
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].RSSI != devices[j].RSSI {
			return devices[i].RSSI > devices[j].RSSI
		}
		return devices[i].Address < devices[j].Address
	})

	return devices, nil
}

// WaitForDevice scans until the device with the given address advertises.
// The name filter is not applied so that renamed lights can still be found.
func (s *Scanner) WaitForDevice(ctx context.Context, address string) (*Advertisement, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	want := strings.ToUpper(address)
	var match *Advertisement

	err := s.scan(ctx, func(adv Advertisement) bool {
		if strings.ToUpper(adv.Address) == want {
			found := adv
			match = &found
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s did not advertise within %s", ErrDeviceNotFound, address, s.Timeout)
	}
	return match, nil
}
