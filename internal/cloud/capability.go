package cloud

import (
	"encoding/json"
	"fmt"

	"github.com/muurk/goveectl/internal/catalog"
	"github.com/muurk/goveectl/internal/protocol"
)

// Color temperature range accepted by the API
const (
	MinKelvin = 2000
	MaxKelvin = 9000
)

// PowerCapability switches a device on or off
func PowerCapability(on bool) ControlCapability {
	value := 0
	if on {
		value = 1
	}
	return ControlCapability{Type: CapOnOff, Instance: InstancePowerSwitch, Value: value}
}

// BrightnessCapability sets brightness from a 0-255 level. The API takes a
// percentage starting at 1.
func BrightnessCapability(level uint8) ControlCapability {
	percent := int(catalog.BrightnessPercent.Scale(level))
	if percent < 1 {
		percent = 1
	}
	return ControlCapability{Type: CapRange, Instance: InstanceBrightness, Value: percent}
}

// ColorCapability sets an RGB color packed as 0xRRGGBB
func ColorCapability(r, g, b uint8) ControlCapability {
	value := int(r)<<16 | int(g)<<8 | int(b)
	return ControlCapability{Type: CapColorSetting, Instance: InstanceColorRGB, Value: value}
}

// ColorTemperatureCapability sets a white color temperature
func ColorTemperatureCapability(kelvin int) (ControlCapability, error) {
	if kelvin < MinKelvin || kelvin > MaxKelvin {
		return ControlCapability{}, NewValidationError(
			fmt.Sprintf("color temperature %dK outside %d-%dK", kelvin, MinKelvin, MaxKelvin), nil)
	}
	return ControlCapability{Type: CapColorSetting, Instance: InstanceColorTemperature, Value: kelvin}, nil
}

// SceneCapability activates a scene by the value from the scene list
func SceneCapability(scene Scene) ControlCapability {
	return ControlCapability{Type: CapDynamicScene, Instance: InstanceLightScene, Value: scene.Value}
}

// CapabilityFor maps a light command to its cloud capability. Scenes need
// the device's scene list and are resolved by Client.Execute instead.
func CapabilityFor(cmd protocol.Command) (ControlCapability, error) {
	switch c := cmd.(type) {
	case protocol.Power:
		return PowerCapability(c.On), nil
	case protocol.Brightness:
		return BrightnessCapability(c.Level), nil
	case protocol.Color:
		return ColorCapability(c.Red, c.Green, c.Blue), nil
	case protocol.ColorTemperature:
		return ColorTemperatureCapability(c.Kelvin)
	case protocol.Scene:
		return ControlCapability{}, NewValidationError("scenes are resolved by name", protocol.ErrUnsupported)
	case nil:
		return ControlCapability{}, NewValidationError("nil command", protocol.ErrInvalidCommand)
	default:
		return ControlCapability{}, NewValidationError(fmt.Sprintf("%s has no cloud capability", cmd), protocol.ErrUnsupported)
	}
}

// FindScene returns the scene with the given name
func FindScene(scenes []Scene, name string) (Scene, error) {
	for _, s := range scenes {
		if s.Name == name {
			return s, nil
		}
	}
	return Scene{}, NewValidationError(fmt.Sprintf("scene %q not found", name), protocol.ErrUnknownEffect)
}

// sceneValue decodes a scene value for logging
func sceneValue(scene Scene) string {
	var v interface{}
	if err := json.Unmarshal(scene.Value, &v); err != nil {
		return string(scene.Value)
	}
	return fmt.Sprintf("%v", v)
}
