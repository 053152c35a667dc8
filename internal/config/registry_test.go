package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/muurk/goveectl/internal/link"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "goveectl") {
		t.Errorf("GetConfigDir() = %v, should contain 'goveectl'", configDir)
	}

	t.Logf("Config directory: %s", configDir)
}

func TestGetConfigDir_XDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME is only honored on Linux")
	}

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	want := filepath.Join(tmpDir, "goveectl", "config.yaml")
	if configPath != want {
		t.Errorf("GetConfigPath() = %v, want %v", configPath, want)
	}
}

func TestGetConfigDir_Override(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(ConfigDirEnvVar, dir)

	got, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if want := filepath.Join(dir, "config.yaml"); got != want {
		t.Errorf("GetConfigPath() = %v, want %v", got, want)
	}
}

func TestRegistrySave_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "goveectl")
	t.Setenv(ConfigDirEnvVar, dir)

	reg := NewRegistry()
	if err := reg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "config.yaml" {
		t.Errorf("config dir entries = %v, want only config.yaml", entries)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}

	if reg.Devices == nil {
		t.Error("NewRegistry().Devices should not be nil")
	}

	if reg.Preferences.ConnectAttempts != link.DefaultConnectAttempts {
		t.Errorf("ConnectAttempts = %v, want %v", reg.Preferences.ConnectAttempts, link.DefaultConnectAttempts)
	}

	if reg.Preferences.ScanTimeout != DefaultScanTimeout {
		t.Errorf("ScanTimeout = %v, want %v", reg.Preferences.ScanTimeout, DefaultScanTimeout)
	}
}

func TestRegistryAddDevice(t *testing.T) {
	tests := []struct {
		name    string
		alias   string
		device  *Device
		wantErr bool
	}{
		{"bluetooth only", "desk", &Device{Address: "a4:c1:38:12:34:56", Model: "h6199"}, false},
		{"cloud only", "porch", &Device{CloudDevice: "AB:CD", CloudSKU: "h6072"}, false},
		{"empty alias", "  ", &Device{Address: "A4:C1:38:12:34:56"}, true},
		{"alias with space", "living room", &Device{Address: "A4:C1:38:12:34:56"}, true},
		{"no transport", "desk", &Device{Model: "H6199"}, true},
		{"cloud id without sku", "desk", &Device{CloudDevice: "AB:CD"}, true},
		{"nil device", "desk", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			err := reg.AddDevice(tt.alias, tt.device)
			if (err != nil) != tt.wantErr {
				t.Fatalf("AddDevice() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if len(reg.Devices) != 0 {
					t.Errorf("Devices = %v, want empty after error", reg.Devices)
				}
				return
			}
			if reg.GetDevice(strings.ToUpper(tt.alias)) != tt.device {
				t.Error("GetDevice() should be case-insensitive")
			}
		})
	}
}

func TestRegistryAddDevice_Normalizes(t *testing.T) {
	reg := NewRegistry()
	if err := reg.AddDevice("Desk", &Device{Address: "a4:c1:38:12:34:56", Model: "h6199", CloudDevice: "ab", CloudSKU: "h6199"}); err != nil {
		t.Fatalf("AddDevice() error = %v", err)
	}

	d := reg.Devices["desk"]
	if d == nil {
		t.Fatal("alias should be stored lowercase")
	}
	if d.Address != "A4:C1:38:12:34:56" {
		t.Errorf("Address = %v, want uppercase", d.Address)
	}
	if d.Model != "H6199" || d.CloudSKU != "H6199" {
		t.Errorf("Model = %v, CloudSKU = %v, want H6199", d.Model, d.CloudSKU)
	}
}

func TestRegistryRemoveDevice(t *testing.T) {
	reg := NewRegistry()
	_ = reg.AddDevice("desk", &Device{Address: "A4:C1:38:12:34:56"})

	if !reg.RemoveDevice("DESK") {
		t.Error("RemoveDevice() = false, want true")
	}
	if reg.RemoveDevice("desk") {
		t.Error("RemoveDevice() on a removed alias = true, want false")
	}
}

func TestRegistryResolveDevice(t *testing.T) {
	reg := NewRegistry()
	_ = reg.AddDevice("desk", &Device{Address: "A4:C1:38:12:34:56", Model: "H6199"})

	tests := []struct {
		target      string
		wantAlias   string
		wantAddress string
		wantModel   string
	}{
		{"desk", "desk", "A4:C1:38:12:34:56", "H6199"},
		{"Desk", "desk", "A4:C1:38:12:34:56", "H6199"},
		{"a4:c1:38:12:34:56", "desk", "A4:C1:38:12:34:56", "H6199"},
		{"a4:c1:38:ff:ff:ff", "", "A4:C1:38:FF:FF:FF", ""},
	}

	for _, tt := range tests {
		alias, d := reg.ResolveDevice(tt.target)
		if alias != tt.wantAlias {
			t.Errorf("ResolveDevice(%q) alias = %q, want %q", tt.target, alias, tt.wantAlias)
		}
		if d.Address != tt.wantAddress || d.Model != tt.wantModel {
			t.Errorf("ResolveDevice(%q) = %+v", tt.target, d)
		}
	}
}

func TestRegistryAliases(t *testing.T) {
	reg := NewRegistry()
	_ = reg.AddDevice("porch", &Device{Address: "A"})
	_ = reg.AddDevice("desk", &Device{Address: "B"})
	_ = reg.AddDevice("bed", &Device{Address: "C"})

	got := strings.Join(reg.Aliases(), ",")
	if got != "bed,desk,porch" {
		t.Errorf("Aliases() = %v, want bed,desk,porch", got)
	}
}

func TestRegistryUpdateDeviceLastSeen(t *testing.T) {
	reg := NewRegistry()

	before := time.Now()
	reg.UpdateDeviceLastSeen("desk", -61)
	after := time.Now()

	device := reg.GetDevice("desk")
	if device == nil {
		t.Fatal("Device should exist after UpdateDeviceLastSeen()")
	}

	if device.LastRSSI != -61 {
		t.Errorf("LastRSSI = %v, want -61", device.LastRSSI)
	}

	if device.LastSeen.Before(before) || device.LastSeen.After(after) {
		t.Errorf("LastSeen = %v, should be between %v and %v", device.LastSeen, before, after)
	}
}

func TestRegistrySetDeviceNickname(t *testing.T) {
	reg := NewRegistry()

	reg.SetDeviceNickname("desk", "Desk strip")

	if got := reg.GetDevice("desk").Nickname; got != "Desk strip" {
		t.Errorf("Nickname = %v, want 'Desk strip'", got)
	}
}

func TestPreferencesRetryPolicy(t *testing.T) {
	tests := []struct {
		name  string
		prefs *Preferences
		want  link.RetryPolicy
	}{
		{"nil", nil, link.DefaultRetryPolicy()},
		{"zero attempts", &Preferences{}, link.DefaultRetryPolicy()},
		{"custom", &Preferences{ConnectAttempts: 5, ConnectDelayMS: 250}, link.RetryPolicy{MaxAttempts: 5, Delay: 250 * time.Millisecond}},
		{"negative delay", &Preferences{ConnectAttempts: 2, ConnectDelayMS: -1}, link.RetryPolicy{MaxAttempts: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.prefs.RetryPolicy(); got != tt.want {
				t.Errorf("RetryPolicy() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPreferencesScanDuration(t *testing.T) {
	if got := (&Preferences{ScanTimeout: 3}).ScanDuration(); got != 3*time.Second {
		t.Errorf("ScanDuration() = %v, want 3s", got)
	}
	if got := (&Preferences{}).ScanDuration(); got != DefaultScanTimeout*time.Second {
		t.Errorf("ScanDuration() = %v, want default", got)
	}
}

func TestRegistrySaveAndLoad(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	reg := NewRegistry()
	reg.Preferences.ConnectAttempts = 4
	reg.Preferences.CatalogDir = "/opt/catalogs"
	if err := reg.AddDevice("desk", &Device{Address: "A4:C1:38:12:34:56", Model: "H6199", Nickname: "Desk strip"}); err != nil {
		t.Fatalf("AddDevice() error = %v", err)
	}

	if err := reg.SaveFile(configPath); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}

	if matches, _ := filepath.Glob(filepath.Join(filepath.Dir(configPath), ".*.tmp")); len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "# goveectl Configuration File") {
		t.Error("saved file should start with the header comment")
	}

	loaded, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	device := loaded.GetDevice("desk")
	if device == nil {
		t.Fatal("Device should exist in loaded registry")
	}
	if device.Nickname != "Desk strip" || device.Model != "H6199" {
		t.Errorf("loaded device = %+v", device)
	}
	if loaded.Preferences.ConnectAttempts != 4 || loaded.Preferences.CatalogDir != "/opt/catalogs" {
		t.Errorf("loaded preferences = %+v", loaded.Preferences)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		return path
	}

	t.Run("missing file gives defaults", func(t *testing.T) {
		reg, err := LoadFile(filepath.Join(dir, "absent.yaml"))
		if err != nil {
			t.Fatalf("LoadFile() error = %v", err)
		}
		if reg.Preferences.ScanTimeout != DefaultScanTimeout {
			t.Errorf("ScanTimeout = %v, want default", reg.Preferences.ScanTimeout)
		}
	})

	t.Run("mixed case aliases", func(t *testing.T) {
		path := write("mixed.yaml", "version: 1\ndevices:\n  Desk:\n    address: A4:C1:38:12:34:56\n")
		reg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile() error = %v", err)
		}
		if reg.GetDevice("desk") == nil {
			t.Error("alias should be normalized on load")
		}
		if reg.Preferences == nil {
			t.Error("Preferences should be defaulted")
		}
	})

	t.Run("empty device entry dropped", func(t *testing.T) {
		path := write("empty.yaml", "version: 1\ndevices:\n  desk:\n")
		reg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile() error = %v", err)
		}
		if len(reg.Devices) != 0 {
			t.Errorf("Devices = %v, want empty", reg.Devices)
		}
	})

	t.Run("unsupported version", func(t *testing.T) {
		path := write("v2.yaml", "version: 2\n")
		if _, err := LoadFile(path); err == nil {
			t.Error("LoadFile() should reject version 2")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := write("bad.yaml", "version: [1\n")
		if _, err := LoadFile(path); err == nil {
			t.Error("LoadFile() should reject malformed YAML")
		}
	})
}

func BenchmarkResolveDevice(b *testing.B) {
	reg := NewRegistry()
	_ = reg.AddDevice("desk", &Device{Address: "A4:C1:38:12:34:56"})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.ResolveDevice("a4:c1:38:12:34:56")
	}
}
