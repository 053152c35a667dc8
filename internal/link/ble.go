package link

import (
	"context"
	"errors"
	"fmt"

	"github.com/muurk/goveectl/internal/discovery"
	"github.com/muurk/goveectl/internal/logging"
	"github.com/muurk/goveectl/internal/protocol"
	"tinygo.org/x/bluetooth"
)

// GATT identifiers of the Govee light control service
const (
	ServiceUUID = "00010203-0405-0607-0809-0a0b0c0d1910"
	ControlUUID = "00010203-0405-0607-0809-0a0b0c0d2b11"
)

// ErrCharacteristicNotFound is returned when a device lacks the control
// characteristic
var ErrCharacteristicNotFound = errors.New("control characteristic not found")

// BLEConnector connects to lights with a tinygo bluetooth adapter
type BLEConnector struct {
	adapter *bluetooth.Adapter
	scanner *discovery.Scanner
}

// NewBLEConnector creates a connector on adapter. The scanner locates the
// device before connecting.
func NewBLEConnector(adapter *bluetooth.Adapter, scanner *discovery.Scanner) *BLEConnector {
	return &BLEConnector{adapter: adapter, scanner: scanner}
}

// Connect finds address, connects and resolves the control characteristic
func (c *BLEConnector) Connect(ctx context.Context, address string) (Session, error) {
	if err := discovery.EnableAdapter(c.adapter); err != nil {
		return nil, err
	}

	adv, err := c.scanner.WaitForDevice(ctx, address)
	if err != nil {
		return nil, err
	}

	device, err := c.adapter.Connect(adv.BLEAddress, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	logging.LogConnection(address, "connected")

	char, err := controlCharacteristic(device)
	if err != nil {
		_ = device.Disconnect()
		return nil, err
	}

	return &bleSession{
		address:    address,
		char:       char,
		disconnect: device.Disconnect,
	}, nil
}

func controlCharacteristic(device bluetooth.Device) (bluetooth.DeviceCharacteristic, error) {
	var char bluetooth.DeviceCharacteristic

	serviceUUID, err := bluetooth.ParseUUID(ServiceUUID)
	if err != nil {
		return char, fmt.Errorf("failed to parse service UUID: %w", err)
	}
	controlUUID, err := bluetooth.ParseUUID(ControlUUID)
	if err != nil {
		return char, fmt.Errorf("failed to parse characteristic UUID: %w", err)
	}

	services, err := device.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil {
		return char, fmt.Errorf("failed to discover services: %w", err)
	}
	if len(services) == 0 {
		return char, fmt.Errorf("%w: service %s missing", ErrCharacteristicNotFound, ServiceUUID)
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{controlUUID})
	if err != nil {
		return char, fmt.Errorf("failed to discover characteristics: %w", err)
	}
	if len(chars) == 0 {
		return char, ErrCharacteristicNotFound
	}

	return chars[0], nil
}

type bleSession struct {
	address    string
	char       bluetooth.DeviceCharacteristic
	disconnect func() error
}

// Write sends one frame without waiting for a response
func (s *bleSession) Write(ctx context.Context, frame protocol.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.char.WriteWithoutResponse(frame.Bytes())
	return err
}

// Close disconnects from the device
func (s *bleSession) Close() error {
	logging.LogConnection(s.address, "disconnected")
	return s.disconnect()
}
