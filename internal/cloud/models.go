package cloud

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Capability types and instances used by the control endpoint
const (
	CapOnOff        = "devices.capabilities.on_off"
	CapRange        = "devices.capabilities.range"
	CapColorSetting = "devices.capabilities.color_setting"
	CapDynamicScene = "devices.capabilities.dynamic_scene"

	InstancePowerSwitch      = "powerSwitch"
	InstanceBrightness       = "brightness"
	InstanceColorRGB         = "colorRgb"
	InstanceColorTemperature = "colorTemperatureK"
	InstanceLightScene       = "lightScene"
)

// DeviceTypeLight is the device type of lights in the device list
const DeviceTypeLight = "devices.types.light"

// Device is one entry of the user's device list
type Device struct {
	SKU          string       `json:"sku"`
	Device       string       `json:"device"`
	DeviceName   string       `json:"deviceName"`
	Type         string       `json:"type"`
	Capabilities []Capability `json:"capabilities"`
}

// IsLight reports whether the device is a light
func (d *Device) IsLight() bool {
	return d.Type == DeviceTypeLight
}

// Supports reports whether the device lists a capability instance
func (d *Device) Supports(instance string) bool {
	for _, c := range d.Capabilities {
		if c.Instance == instance {
			return true
		}
	}
	return false
}

// Instances returns the capability instance names, in API order
func (d *Device) Instances() []string {
	names := make([]string, 0, len(d.Capabilities))
	for _, c := range d.Capabilities {
		names = append(names, c.Instance)
	}
	return names
}

// String returns a one-line summary of the device
func (d *Device) String() string {
	return fmt.Sprintf("%s (%s) %s [%s]", d.DeviceName, d.SKU, d.Device, strings.Join(d.Instances(), ","))
}

// Capability describes one controllable feature of a device
type Capability struct {
	Type       string          `json:"type"`
	Instance   string          `json:"instance"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// Scene is a named dynamic scene. Value is passed back verbatim when
// activating the scene.
type Scene struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// ControlCapability is the capability object sent to device/control
type ControlCapability struct {
	Type     string      `json:"type"`
	Instance string      `json:"instance"`
	Value    interface{} `json:"value"`
}

// String returns a debug representation
func (c ControlCapability) String() string {
	return fmt.Sprintf("%s=%v", c.Instance, c.Value)
}

// StateCapability is one capability in a device/state response
type StateCapability struct {
	Type     string `json:"type"`
	Instance string `json:"instance"`
	State    struct {
		Value interface{} `json:"value"`
	} `json:"state"`
}

// DeviceState is the payload of a device/state response
type DeviceState struct {
	SKU          string            `json:"sku"`
	Device       string            `json:"device"`
	Capabilities []StateCapability `json:"capabilities"`
}

// Value returns the state value of a capability instance
func (s *DeviceState) Value(instance string) (interface{}, bool) {
	for _, c := range s.Capabilities {
		if c.Instance == instance {
			return c.State.Value, true
		}
	}
	return nil, false
}

// Request and response envelopes

type devicePayload struct {
	SKU        string             `json:"sku"`
	Device     string             `json:"device"`
	Capability *ControlCapability `json:"capability,omitempty"`
}

type requestEnvelope struct {
	RequestID string        `json:"requestId"`
	Payload   devicePayload `json:"payload"`
}

// responseStatus holds the status fields common to every response. The
// device list reports "message", the device endpoints report "msg".
type responseStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Msg     string `json:"msg"`
}

func (s responseStatus) text() string {
	if s.Msg != "" {
		return s.Msg
	}
	return s.Message
}

type devicesResponse struct {
	responseStatus
	Data []Device `json:"data"`
}

type scenesResponse struct {
	responseStatus
	Payload struct {
		Capabilities []struct {
			Parameters struct {
				Options []Scene `json:"options"`
			} `json:"parameters"`
		} `json:"capabilities"`
	} `json:"payload"`
}

type stateResponse struct {
	responseStatus
	Payload DeviceState `json:"payload"`
}

type controlResponse struct {
	responseStatus
}
