package cloud

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/muurk/goveectl/internal/protocol"
)

func TestBrightnessCapability(t *testing.T) {
	tests := []struct {
		level uint8
		want  int
	}{
		{0, 1},
		{1, 1},
		{64, 25},
		{128, 50},
		{255, 100},
	}

	for _, tt := range tests {
		c := BrightnessCapability(tt.level)
		if c.Value != tt.want {
			t.Errorf("BrightnessCapability(%d) = %v, want %d", tt.level, c.Value, tt.want)
		}
		if c.Instance != InstanceBrightness || c.Type != CapRange {
			t.Errorf("BrightnessCapability(%d) = %s/%s", tt.level, c.Type, c.Instance)
		}
	}
}

func TestColorCapability(t *testing.T) {
	c := ColorCapability(0x12, 0x34, 0x56)
	if c.Value != 0x123456 {
		t.Errorf("Value = %#x, want 0x123456", c.Value)
	}
	if got := ColorCapability(255, 255, 255).Value; got != 0xFFFFFF {
		t.Errorf("white = %#x, want 0xffffff", got)
	}
}

func TestColorTemperatureCapability(t *testing.T) {
	for _, k := range []int{MinKelvin, 6500, MaxKelvin} {
		c, err := ColorTemperatureCapability(k)
		if err != nil {
			t.Errorf("ColorTemperatureCapability(%d) error = %v", k, err)
			continue
		}
		if c.Value != k {
			t.Errorf("Value = %v, want %d", c.Value, k)
		}
	}

	for _, k := range []int{0, MinKelvin - 1, MaxKelvin + 1} {
		if _, err := ColorTemperatureCapability(k); !IsValidationError(err) {
			t.Errorf("ColorTemperatureCapability(%d) error = %v, want validation error", k, err)
		}
	}
}

func TestCapabilityFor(t *testing.T) {
	c, err := CapabilityFor(protocol.Power{On: false})
	if err != nil || c.Value != 0 || c.Instance != InstancePowerSwitch {
		t.Errorf("CapabilityFor(Power off) = %v, %v", c, err)
	}

	if _, err := CapabilityFor(protocol.Scene{Name: "Sunrise"}); !errors.Is(err, protocol.ErrUnsupported) {
		t.Errorf("CapabilityFor(Scene) error = %v, want ErrUnsupported", err)
	}

	if _, err := CapabilityFor(nil); !errors.Is(err, protocol.ErrInvalidCommand) {
		t.Errorf("CapabilityFor(nil) error = %v, want ErrInvalidCommand", err)
	}

	if _, err := CapabilityFor(protocol.ColorTemperature{Kelvin: 100}); !IsValidationError(err) {
		t.Errorf("CapabilityFor(100K) error = %v, want validation error", err)
	}
}

func TestSceneCapability_EncodesValueVerbatim(t *testing.T) {
	scene := Scene{Name: "Sunrise", Value: json.RawMessage(`{"paramId":4280,"id":3853}`)}

	data, err := json.Marshal(SceneCapability(scene))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"type":"devices.capabilities.dynamic_scene","instance":"lightScene","value":{"paramId":4280,"id":3853}}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestFindScene(t *testing.T) {
	scenes := []Scene{
		{Name: "Sunrise", Value: json.RawMessage(`1`)},
		{Name: "Aurora", Value: json.RawMessage(`2`)},
	}

	s, err := FindScene(scenes, "Aurora")
	if err != nil || string(s.Value) != "2" {
		t.Errorf("FindScene(Aurora) = %v, %v", s, err)
	}

	if _, err := FindScene(scenes, "aurora"); !errors.Is(err, protocol.ErrUnknownEffect) {
		t.Errorf("FindScene(aurora) error = %v, want ErrUnknownEffect", err)
	}
}
