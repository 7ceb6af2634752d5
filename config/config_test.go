package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kr/pretty"
)

func writeConfig(t *testing.T, name, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigurationYAML(t *testing.T) {
	path := writeConfig(t, "wchar-tag.yaml", `
config_version: 1
value: 0
jobs: 4
targets:
  - path: toolchain/lib
    patterns: ["*.o", "*.a"]
  - path: toolchain/crt0.o
`)

	cfg, err := LoadConfigurationFromFile(path, ConfigFormatYAML)
	if err != nil {
		t.Fatalf("LoadConfigurationFromFile failed: %v", err)
	}

	zero := uint8(0)
	want := &Configuration{
		ConfigVersion: 1,
		Value:         &zero,
		Jobs:          4,
		Targets: []Target{
			{Path: "toolchain/lib", Patterns: []string{"*.o", "*.a"}},
			{Path: "toolchain/crt0.o", Patterns: DefaultPatterns},
		},
	}

	if diff := pretty.Diff(want, cfg); len(diff) != 0 {
		t.Errorf("configuration mismatch:\n%s", pretty.Sprint(diff))
	}
}

func TestLoadConfigurationJSON(t *testing.T) {
	path := writeConfig(t, "wchar-tag.json", `{
  "config_version": 1,
  "targets": [{"path": "lib"}]
}`)

	cfg, err := LoadConfigurationFromFile(path, ConfigFormatJSON)
	if err != nil {
		t.Fatalf("LoadConfigurationFromFile failed: %v", err)
	}

	if cfg.Replacement() != 0 {
		t.Errorf("Replacement() = %d, want the 0 default", cfg.Replacement())
	}
	if len(cfg.Targets) != 1 || cfg.Targets[0].Path != "lib" {
		t.Errorf("unexpected targets %# v", pretty.Formatter(cfg.Targets))
	}
	if len(cfg.Targets[0].Patterns) == 0 {
		t.Error("target patterns not defaulted")
	}
}

func TestLoadConfigurationUnsupportedVersion(t *testing.T) {
	path := writeConfig(t, "wchar-tag.yaml", `
config_version: 9
targets:
  - path: lib
`)

	_, err := LoadConfigurationFromFile(path, ConfigFormatYAML)
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestLoadConfigurationRejectsWideValue(t *testing.T) {
	path := writeConfig(t, "wchar-tag.yaml", `
config_version: 1
value: 200
targets:
  - path: lib
`)

	if _, err := LoadConfigurationFromFile(path, ConfigFormatYAML); err == nil {
		t.Fatal("expected an error for a value that doesn't fit one ULEB128 byte")
	}
}

func TestLoadConfigurationRequiresTargets(t *testing.T) {
	path := writeConfig(t, "wchar-tag.yaml", "config_version: 1\n")

	if _, err := LoadConfigurationFromFile(path, ConfigFormatYAML); err == nil {
		t.Fatal("expected an error for a configuration without targets")
	}
}
