package catalog

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
	defaultRegistryErr  error
)

// Registry maps model identifiers to descriptors
type Registry struct {
	models map[string]*Descriptor
}

// DefaultRegistry returns the registry of built-in model profiles. It
// carries no effect catalogs. It is loaded once and shared.
func DefaultRegistry() (*Registry, error) {
	defaultRegistryOnce.Do(func() {
		defaultRegistry, defaultRegistryErr = Load("")
	})
	return defaultRegistry, defaultRegistryErr
}

// Load builds a registry from the <MODEL>.json files found in dir. An
// empty dir loads only the built-in model profiles.
func Load(dir string) (*Registry, error) {
	r := &Registry{models: make(map[string]*Descriptor)}

	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("failed to open catalog directory: %w", err)
		}
		if err := r.loadFS(os.DirFS(dir)); err != nil {
			return nil, err
		}
	}

	// Models with a known profile but no catalog file still get a descriptor
	for model, profile := range modelProfiles {
		if _, ok := r.models[model]; !ok {
			r.models[model] = &Descriptor{
				Model:      model,
				Segmented:  profile.Segmented,
				Brightness: profile.Brightness,
			}
		}
	}

	return r, nil
}

func (r *Registry) loadFS(fsys fs.FS) error {
	matches, err := fs.Glob(fsys, "*.json")
	if err != nil {
		return fmt.Errorf("failed to list catalogs: %w", err)
	}

	for _, name := range matches {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("failed to read catalog %s: %w", name, err)
		}

		model := strings.ToUpper(strings.TrimSuffix(filepath.Base(name), ".json"))
		desc, err := ParseCatalog(model, data)
		if err != nil {
			return err
		}
		r.models[model] = desc
	}

	return nil
}

// ParseCatalog decodes one catalog file for model
func ParseCatalog(model string, data []byte) (*Descriptor, error) {
	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog for %s: %w", model, err)
	}

	profile := modelProfiles[model]
	desc := &Descriptor{
		Model:      model,
		Segmented:  profile.Segmented,
		Brightness: profile.Brightness,
		Categories: file.Data.Categories,
	}

	if file.Segmented != nil {
		desc.Segmented = *file.Segmented
	}
	if file.Brightness != "" {
		quirk, err := ParseBrightnessQuirk(file.Brightness)
		if err != nil {
			return nil, fmt.Errorf("catalog for %s: %w", model, err)
		}
		desc.Brightness = quirk
	}

	return desc, nil
}

// Lookup returns the descriptor for model. Model names are case-insensitive.
func (r *Registry) Lookup(model string) (*Descriptor, error) {
	desc, ok := r.models[strings.ToUpper(strings.TrimSpace(model))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	return desc, nil
}

// Models returns the known model identifiers, sorted
func (r *Registry) Models() []string {
	models := make([]string, 0, len(r.models))
	for m := range r.models {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}
