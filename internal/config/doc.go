// Package config stores named lights and connection preferences in a YAML
// file.
//
// A device alias maps to a Bluetooth address, a cloud device id and SKU,
// or both, so that commands can say "desk" instead of an address. Aliases
// are case-insensitive and stored lowercase.
//
// The file lives in the user config directory (see GetConfigDir) and can be
// relocated with GOVEECTL_CONFIG_DIR. Saves replace the file atomically.
// The cloud API key is never written to it.
//
//	reg, err := config.GetGlobalRegistry()
//	if err != nil {
//	    return err
//	}
//	if err := reg.AddDevice("desk", &config.Device{Address: "A4:C1:38:12:34:56", Model: "H6199"}); err != nil {
//	    return err
//	}
//	return reg.Save()
package config
