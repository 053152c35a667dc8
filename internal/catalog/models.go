package catalog

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnknownModel is returned when no descriptor exists for a model
	ErrUnknownModel = errors.New("unknown device model")

	// ErrUnknownEffect is returned when an effect index is out of range
	ErrUnknownEffect = errors.New("unknown effect")
)

// BrightnessQuirk describes how a model expects brightness on the wire
type BrightnessQuirk int

const (
	// BrightnessFull sends the 0-255 level unchanged
	BrightnessFull BrightnessQuirk = iota
	// BrightnessPercent sends the level scaled to 0-100
	BrightnessPercent
)

// String returns the quirk name used in catalog files
func (q BrightnessQuirk) String() string {
	switch q {
	case BrightnessFull:
		return "full"
	case BrightnessPercent:
		return "percent"
	default:
		return fmt.Sprintf("BrightnessQuirk(%d)", int(q))
	}
}

// ParseBrightnessQuirk parses a quirk name. An empty name means full range.
func ParseBrightnessQuirk(s string) (BrightnessQuirk, error) {
	switch s {
	case "", "full":
		return BrightnessFull, nil
	case "percent":
		return BrightnessPercent, nil
	default:
		return BrightnessFull, fmt.Errorf("unknown brightness encoding %q", s)
	}
}

// Scale converts a 0-255 brightness level to the model's wire value
func (q BrightnessQuirk) Scale(level uint8) uint8 {
	switch q {
	case BrightnessPercent:
		return uint8(math.Round(float64(level) * 100 / 255))
	default:
		return level
	}
}

// Descriptor is the static capability record for one model
type Descriptor struct {
	Model      string
	Segmented  bool
	Brightness BrightnessQuirk
	Categories []Category
}

// Category groups scenes in a catalog file
type Category struct {
	Name   string  `json:"categoryName"`
	Scenes []Scene `json:"scenes"`
}

// Scene is a named scene with one or more light effects
type Scene struct {
	Name         string        `json:"sceneName"`
	LightEffects []LightEffect `json:"lightEffects"`
}

// LightEffect is one rendition of a scene
type LightEffect struct {
	Name           string          `json:"scenceName"`
	SpecialEffects []SpecialEffect `json:"specialEffect"`
}

// SpecialEffect carries the opaque parameter blob sent to the light
type SpecialEffect struct {
	Param      string   `json:"scenceParam"` // base64
	SupportSku []string `json:"supportSku,omitempty"`
}

// catalogFile is the on-disk layout of a <MODEL>.json file
type catalogFile struct {
	Segmented  *bool  `json:"segmented,omitempty"`
	Brightness string `json:"brightness,omitempty"`
	Data       struct {
		Categories []Category `json:"categories"`
	} `json:"data"`
}

// modelProfile holds the built-in quirks for a model
type modelProfile struct {
	Segmented  bool
	Brightness BrightnessQuirk
}

// modelProfiles lists models whose wire encoding differs from the default.
// Catalog files may override these with "segmented" and "brightness".
var modelProfiles = map[string]modelProfile{
	"H6053": {Segmented: true},
	"H6072": {Segmented: true},
	"H6102": {Segmented: true},
	"H6199": {Segmented: true},
}

// IsSegmented reports whether the model uses segmented color addressing
func (d *Descriptor) IsSegmented() bool {
	return d != nil && d.Segmented
}

// BrightnessLevel converts a 0-255 level to the model's wire value
func (d *Descriptor) BrightnessLevel(level uint8) uint8 {
	if d == nil {
		return level
	}
	return d.Brightness.Scale(level)
}

// Effect returns the special effect at idx
func (d *Descriptor) Effect(idx EffectIndex) (*SpecialEffect, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: %s (no catalog)", ErrUnknownEffect, idx)
	}
	if idx.Category < 0 || idx.Category >= len(d.Categories) {
		return nil, fmt.Errorf("%w: %s (category out of range)", ErrUnknownEffect, idx)
	}
	category := d.Categories[idx.Category]

	if idx.Scene < 0 || idx.Scene >= len(category.Scenes) {
		return nil, fmt.Errorf("%w: %s (scene out of range)", ErrUnknownEffect, idx)
	}
	scene := category.Scenes[idx.Scene]

	if idx.Effect < 0 || idx.Effect >= len(scene.LightEffects) {
		return nil, fmt.Errorf("%w: %s (effect out of range)", ErrUnknownEffect, idx)
	}
	effect := scene.LightEffects[idx.Effect]

	if idx.Variant < 0 || idx.Variant >= len(effect.SpecialEffects) {
		return nil, fmt.Errorf("%w: %s (variant out of range)", ErrUnknownEffect, idx)
	}
	return &effect.SpecialEffects[idx.Variant], nil
}

// EffectCount returns the total number of addressable effects
func (d *Descriptor) EffectCount() int {
	count := 0
	d.walk(func(EffectIndex, string) { count++ })
	return count
}

// EffectLabels lists every effect as "Category - Scene - Effect [c/s/e/v]"
func (d *Descriptor) EffectLabels() []string {
	var labels []string
	d.walk(func(idx EffectIndex, name string) {
		labels = append(labels, fmt.Sprintf("%s [%s]", name, idx))
	})
	return labels
}

// Effects lists every effect with its index and display name
func (d *Descriptor) Effects() []EffectEntry {
	var entries []EffectEntry
	d.walk(func(idx EffectIndex, name string) {
		entries = append(entries, EffectEntry{Index: idx, Name: name})
	})
	return entries
}

// EffectEntry names one addressable effect
type EffectEntry struct {
	Index EffectIndex
	Name  string
}

// Label returns the entry in the same format as EffectLabels
func (e EffectEntry) Label() string {
	return fmt.Sprintf("%s [%s]", e.Name, e.Index)
}

func (d *Descriptor) walk(fn func(EffectIndex, string)) {
	if d == nil {
		return
	}
	for c, category := range d.Categories {
		for s, scene := range category.Scenes {
			for e, effect := range scene.LightEffects {
				for v := range effect.SpecialEffects {
					name := category.Name + " - " + scene.Name + " - " + effect.Name
					fn(EffectIndex{Category: c, Scene: s, Effect: e, Variant: v}, name)
				}
			}
		}
	}
}
