package main

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/muurk/goveectl/internal/catalog"
	"github.com/muurk/goveectl/internal/protocol"
)

// parseLevel parses a 0-255 brightness level
func parseLevel(s string) (uint8, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 || v > 255 {
		return 0, fmt.Errorf("invalid brightness %q (expected 0-255)", s)
	}
	return uint8(v), nil
}

// parseColor accepts "R G B" as three arguments or a single hex value
// such as "ff8800" or "#ff8800"
func parseColor(args []string) (protocol.Color, error) {
	switch len(args) {
	case 1:
		s := strings.TrimPrefix(strings.TrimSpace(args[0]), "#")
		b, err := hex.DecodeString(s)
		if err != nil || len(b) != 3 {
			return protocol.Color{}, fmt.Errorf("invalid color %q (expected RRGGBB)", args[0])
		}
		return protocol.Color{Red: b[0], Green: b[1], Blue: b[2]}, nil

	case 3:
		var rgb [3]uint8
		for i, a := range args {
			v, err := strconv.Atoi(strings.TrimSpace(a))
			if err != nil || v < 0 || v > 255 {
				return protocol.Color{}, fmt.Errorf("invalid color component %q (expected 0-255)", a)
			}
			rgb[i] = uint8(v)
		}
		return protocol.Color{Red: rgb[0], Green: rgb[1], Blue: rgb[2]}, nil

	default:
		return protocol.Color{}, fmt.Errorf("expected R G B or RRGGBB, got %d argument(s)", len(args))
	}
}

// parsePower accepts on/off and the usual synonyms
func parsePower(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("invalid power state %q (expected on or off)", s)
	}
}

// parseKelvin parses a color temperature
func parseKelvin(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(s)), "K"))
	if err != nil {
		return 0, fmt.Errorf("invalid color temperature %q", s)
	}
	return v, nil
}

// parseEffectParams decodes a raw effect parameter blob given as base64
// (the catalog format) or as hex with a "hex:" prefix
func parseEffectParams(s string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(s, "hex:"); ok {
		b, err := hex.DecodeString(strings.ReplaceAll(rest, " ", ""))
		if err != nil {
			return nil, fmt.Errorf("invalid hex effect parameters: %w", err)
		}
		return b, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 effect parameters: %w", err)
	}
	return b, nil
}

// parseCommand turns "<kind> <args...>" into a light command. Used by
// the frames dry run.
func parseCommand(args []string) (protocol.Command, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("missing command (power, brightness, color, effect, temp)")
	}

	kind, rest := strings.ToLower(args[0]), args[1:]
	need := func(n int) error {
		if len(rest) != n {
			return fmt.Errorf("%s takes %d argument(s), got %d", kind, n, len(rest))
		}
		return nil
	}

	switch kind {
	case "power":
		if err := need(1); err != nil {
			return nil, err
		}
		on, err := parsePower(rest[0])
		if err != nil {
			return nil, err
		}
		return protocol.Power{On: on}, nil

	case "brightness":
		if err := need(1); err != nil {
			return nil, err
		}
		level, err := parseLevel(rest[0])
		if err != nil {
			return nil, err
		}
		return protocol.Brightness{Level: level}, nil

	case "color":
		c, err := parseColor(rest)
		if err != nil {
			return nil, err
		}
		return c, nil

	case "effect":
		if err := need(1); err != nil {
			return nil, err
		}
		idx, err := catalog.ParseEffectIndex(rest[0])
		if err != nil {
			return nil, err
		}
		return protocol.Scene{Effect: idx}, nil

	case "temp":
		if err := need(1); err != nil {
			return nil, err
		}
		k, err := parseKelvin(rest[0])
		if err != nil {
			return nil, err
		}
		return protocol.ColorTemperature{Kelvin: k}, nil

	default:
		return nil, fmt.Errorf("unknown command %q", kind)
	}
}
