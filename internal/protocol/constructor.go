package protocol

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/muurk/goveectl/internal/catalog"
)

// Control command codes (byte 1 of a control frame)
const (
	CmdPower      = 0x01
	CmdBrightness = 0x04
	CmdColor      = 0x05
)

// Color modes (first payload byte of a color command)
const (
	ModeManual     = 0x02
	ModeScenes     = 0x05
	ModeMicrophone = 0x06
	ModeSegments   = 0x15
)

// Effect parameter framing
const (
	EffectClassTag = TagExtended
	EffectHeader   = 0x02
)

// segmentSelector addresses all segments, and segmentMask is the fixed
// trailer that goes with it
var (
	segmentSelector = byte(0x01)
	segmentMask     = []byte{0xff, 0x7f}
)

// CommandKind identifies a logical light operation
type CommandKind int

const (
	KindPower CommandKind = iota
	KindBrightness
	KindColor
	KindScene
	KindColorTemperature
)

// String returns the command kind name
func (k CommandKind) String() string {
	switch k {
	case KindPower:
		return "power"
	case KindBrightness:
		return "brightness"
	case KindColor:
		return "color"
	case KindScene:
		return "scene"
	case KindColorTemperature:
		return "color_temperature"
	default:
		return fmt.Sprintf("CommandKind(%d)", int(k))
	}
}

// Command is a logical light operation. The set of implementations is
// closed: Power, Brightness, Color, Scene and ColorTemperature.
type Command interface {
	Kind() CommandKind
	String() string
}

// Power switches the light on or off
type Power struct {
	On bool
}

func (c Power) Kind() CommandKind { return KindPower }

func (c Power) String() string {
	if c.On {
		return "Power{on}"
	}
	return "Power{off}"
}

// Brightness sets the level on a 0-255 scale. Models with a different wire
// range are scaled by their descriptor.
type Brightness struct {
	Level uint8
}

func (c Brightness) Kind() CommandKind { return KindBrightness }

func (c Brightness) String() string { return fmt.Sprintf("Brightness{%d}", c.Level) }

// Color sets a static RGB color
type Color struct {
	Red, Green, Blue uint8
}

func (c Color) Kind() CommandKind { return KindColor }

func (c Color) String() string {
	return fmt.Sprintf("Color{#%02x%02x%02x}", c.Red, c.Green, c.Blue)
}

// Scene plays an effect. Over Bluetooth the effect is taken from Params
// when set, otherwise looked up by Effect in the model catalog. Name
// selects the scene on the cloud path.
type Scene struct {
	Effect catalog.EffectIndex
	Params []byte
	Name   string
}

func (c Scene) Kind() CommandKind { return KindScene }

func (c Scene) String() string {
	if c.Params != nil {
		return fmt.Sprintf("Scene{raw %d bytes}", len(c.Params))
	}
	if c.Name != "" {
		return fmt.Sprintf("Scene{%q}", c.Name)
	}
	return fmt.Sprintf("Scene{%s}", c.Effect)
}

// ColorTemperature sets a white color temperature. Only the cloud API
// supports it.
type ColorTemperature struct {
	Kelvin int
}

func (c ColorTemperature) Kind() CommandKind { return KindColorTemperature }

func (c ColorTemperature) String() string { return fmt.Sprintf("ColorTemperature{%dK}", c.Kelvin) }

// Builder turns commands into frames for one device model
type Builder struct {
	model *catalog.Descriptor
}

// NewBuilder creates a builder for the given model descriptor. A nil
// descriptor builds for a plain, non-segmented light without an effect
// catalog.
func NewBuilder(model *catalog.Descriptor) *Builder {
	return &Builder{model: model}
}

// Model returns the descriptor the builder consults
func (b *Builder) Model() *catalog.Descriptor {
	return b.model
}

// Build encodes cmd into the frames to write, in order
func (b *Builder) Build(cmd Command) ([]Frame, error) {
	switch c := cmd.(type) {
	case Power:
		return b.single(BuildPower(c.On))
	case Brightness:
		return b.single(BuildBrightness(b.model.BrightnessLevel(c.Level)))
	case Color:
		if b.model.IsSegmented() {
			return b.single(BuildSegmentColor(c.Red, c.Green, c.Blue))
		}
		return b.single(BuildManualColor(c.Red, c.Green, c.Blue))
	case Scene:
		return b.buildScene(c)
	case nil:
		return nil, newValidationError(ErrInvalidCommand, "nil command")
	default:
		return nil, newValidationError(ErrUnsupported, "%s is not available over Bluetooth", cmd)
	}
}

func (b *Builder) single(f Frame, err error) ([]Frame, error) {
	if err != nil {
		return nil, err
	}
	return []Frame{f}, nil
}

func (b *Builder) buildScene(c Scene) ([]Frame, error) {
	params := c.Params
	if params == nil {
		var err error
		params, err = b.EffectParams(c.Effect)
		if err != nil {
			return nil, err
		}
	}
	return BuildEffect(params)
}

// EffectParams resolves and decodes the parameter blob of an effect
func (b *Builder) EffectParams(idx catalog.EffectIndex) ([]byte, error) {
	effect, err := b.model.Effect(idx)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownEffect) {
			return nil, newValidationError(ErrUnknownEffect, "%s", idx)
		}
		return nil, err
	}

	params, err := base64.StdEncoding.DecodeString(effect.Param)
	if err != nil {
		return nil, &DataIntegrityError{Source: "effect " + idx.String(), Err: err}
	}
	return params, nil
}

// BuildPower builds the power on/off control frame
//
//	[0] 0x33  [1] 0x01  [2] 0x01 on / 0x00 off
func BuildPower(on bool) (Frame, error) {
	value := byte(0x00)
	if on {
		value = 0x01
	}
	return EncodeControl(CmdPower, []byte{value})
}

// BuildBrightness builds the brightness control frame with a wire level
// already scaled for the model
//
//	[0] 0x33  [1] 0x04  [2] level
func BuildBrightness(level uint8) (Frame, error) {
	return EncodeControl(CmdBrightness, []byte{level})
}

// BuildManualColor builds a color frame for non-segmented lights
//
//	[0] 0x33  [1] 0x05  [2] 0x02 (manual)  [3-5] r g b
func BuildManualColor(r, g, b uint8) (Frame, error) {
	return EncodeControl(CmdColor, []byte{ModeManual, r, g, b})
}

// BuildSegmentColor builds a color frame addressing every segment of a
// segmented light
//
//	[0] 0x33  [1] 0x05  [2] 0x15 (segments)  [3] 0x01
//	[4-6] r g b  [7-11] zero  [12-13] 0xff 0x7f
func BuildSegmentColor(r, g, b uint8) (Frame, error) {
	payload := []byte{ModeSegments, segmentSelector, r, g, b, 0x00, 0x00, 0x00, 0x00, 0x00}
	payload = append(payload, segmentMask...)
	return EncodeControl(CmdColor, payload)
}

// BuildEffect fragments an effect parameter blob into extended frames
func BuildEffect(params []byte) ([]Frame, error) {
	return Fragment(EffectClassTag, []byte{EffectHeader}, params)
}

// Sequence is the frame sequence for one command. A sequence must be
// written without interruption.
type Sequence struct {
	Command Command
	Frames  []Frame
}

// TurnOnOptions selects what to apply when switching a light on
type TurnOnOptions struct {
	Brightness *uint8
	Color      *Color
	Effect     *catalog.EffectIndex
}

// TurnOn builds power on followed by the optional brightness, color and
// effect commands. Every command is validated before any sequence is
// returned, so a bad option never results in a partial write.
func (b *Builder) TurnOn(opts TurnOnOptions) ([]Sequence, error) {
	cmds := []Command{Power{On: true}}

	if opts.Brightness != nil {
		cmds = append(cmds, Brightness{Level: *opts.Brightness})
	}
	if opts.Color != nil {
		cmds = append(cmds, *opts.Color)
	}
	if opts.Effect != nil {
		cmds = append(cmds, Scene{Effect: *opts.Effect})
	}

	return b.BuildAll(cmds...)
}

// TurnOff builds the power off sequence
func (b *Builder) TurnOff() ([]Sequence, error) {
	return b.BuildAll(Power{On: false})
}

// BuildAll builds one sequence per command, failing on the first invalid one
func (b *Builder) BuildAll(cmds ...Command) ([]Sequence, error) {
	seqs := make([]Sequence, 0, len(cmds))
	for _, cmd := range cmds {
		frames, err := b.Build(cmd)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cmd, err)
		}
		seqs = append(seqs, Sequence{Command: cmd, Frames: frames})
	}
	return seqs, nil
}
