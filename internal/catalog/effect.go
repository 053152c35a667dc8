package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// effectLabelPattern matches the index embedded in an effect label
var effectLabelPattern = regexp.MustCompile(`\[(\d+)/(\d+)/(\d+)/(\d+)\]`)

// EffectIndex addresses a special effect within a model catalog
type EffectIndex struct {
	Category int
	Scene    int
	Effect   int
	Variant  int
}

// String formats the index as "c/s/e/v"
func (i EffectIndex) String() string {
	return fmt.Sprintf("%d/%d/%d/%d", i.Category, i.Scene, i.Effect, i.Variant)
}

// ParseEffectLabel extracts the "[c/s/e/v]" index from an effect label
func ParseEffectLabel(label string) (EffectIndex, error) {
	m := effectLabelPattern.FindStringSubmatch(label)
	if m == nil {
		return EffectIndex{}, fmt.Errorf("no effect index in %q", label)
	}
	return indexFromParts(m[1:])
}

// ParseEffectIndex parses a bare "c/s/e/v" index. A bracketed label is
// accepted as well.
func ParseEffectIndex(s string) (EffectIndex, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "[") {
		return ParseEffectLabel(s)
	}

	parts := strings.Split(s, "/")
	if len(parts) != 4 {
		return EffectIndex{}, fmt.Errorf("invalid effect index %q (expected c/s/e/v)", s)
	}
	return indexFromParts(parts)
}

func indexFromParts(parts []string) (EffectIndex, error) {
	var values [4]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return EffectIndex{}, fmt.Errorf("invalid effect index component %q", p)
		}
		values[i] = v
	}
	return EffectIndex{
		Category: values[0],
		Scene:    values[1],
		Effect:   values[2],
		Variant:  values[3],
	}, nil
}
