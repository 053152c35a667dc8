// Package catalog provides the read-only device model descriptors used when
// building light commands.
//
// A descriptor records, per model (SKU):
//   - whether the light uses segmented color addressing
//   - how brightness levels are encoded on the wire
//   - the scene/effect catalog: category → scene → light effect → special
//     effect, each special effect carrying a base64 parameter blob
//
// No effect catalogs ship with the binary. Segmented models are known
// from built-in profiles; effects come from a directory of <MODEL>.json
// files (the catalog_dir preference or --catalog-dir). A catalog file may
// set "segmented" and "brightness" to override the profile.
//
// # Effect Indexes
//
// Effect names in the catalogs are not unique, so effects are addressed by
// their position: category/scene/effect/variant. Labels produced by
// EffectLabels embed this index as "[c/s/e/v]" and ParseEffectLabel
// recovers it.
//
// # Usage Example
//
//	registry, err := catalog.Load("/path/to/catalogs")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	desc, err := registry.Lookup("H6199")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, label := range desc.EffectLabels() {
//	    fmt.Println(label)
//	}
//
// # Thread Safety
//
// Descriptors are never mutated after loading and may be shared freely.
package catalog
