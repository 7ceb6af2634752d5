// Package config loads the batch-strip configuration from a JSON or
// YAML file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"
)

type ConfigFormat uint8

const (
	ConfigFormatJSON ConfigFormat = iota
	ConfigFormatYAML
)

func (format ConfigFormat) decode(src io.Reader, dst any) error {
	switch format {
	case ConfigFormatJSON:
		return json.NewDecoder(src).Decode(dst)

	case ConfigFormatYAML:
		return yaml.NewDecoder(src).Decode(dst)

	default:
		return errors.New("unsupported config format")
	}
}

var (
	ErrUnsupportedVersion = errors.New("unsupported configuration version")

	// DefaultPatterns selects the object files a target directory is
	// walked for when a target doesn't name its own patterns.
	DefaultPatterns = []string{"*.o", "*.a"}
)

// Target is one file or directory tree the strip batch operates on.
type Target struct {
	// Path is the file or directory root to process.
	Path string `json:"path" yaml:"path"`

	// Patterns are base-name glob patterns selecting the files to
	// process when Path is a directory. Defaults to DefaultPatterns.
	Patterns []string `json:"patterns" yaml:"patterns"`
}

// Configuration drives one strip batch.
type Configuration struct {
	ConfigVersion int `json:"config_version" yaml:"config_version"`

	// Value is the replacement written to every matched object's
	// wchar tag, in 0..127. Defaults to 0, which marks the object as
	// wchar_t-agnostic.
	Value *uint8 `json:"value" yaml:"value"`

	// Jobs bounds how many files are processed concurrently. Zero or
	// negative leaves the choice to the caller.
	Jobs int `json:"jobs" yaml:"jobs"`

	Targets []Target `json:"targets" yaml:"targets"`
}

type configVersion struct {
	ConfigVersion int `json:"config_version" yaml:"config_version"`
}

// Replacement returns the value written to matched objects,
// defaulting to 0 when the configuration didn't set one.
func (config *Configuration) Replacement() uint8 {
	if config.Value == nil {
		return 0
	}

	return *config.Value
}

// LoadConfigurationFromFile reads, decodes, and validates a strip
// configuration. The version field is probed first so future schema
// revisions can be dispatched the same way.
func LoadConfigurationFromFile(srcFile string, format ConfigFormat) (*Configuration, error) {
	src, err := os.OpenFile(srcFile, os.O_RDONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open configuration file: %w", err)
	}
	defer src.Close()

	var configVer configVersion
	if err = format.decode(src, &configVer); err != nil {
		return nil, fmt.Errorf("decode config version: %w", err)
	} else if _, err = src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to start of config: %w", err)
	}

	switch configVer.ConfigVersion {
	case 0, 1:
	default:
		return nil, ErrUnsupportedVersion
	}

	config := new(Configuration)
	if err = format.decode(src, config); err != nil {
		return nil, fmt.Errorf("decode configuration file: %w", err)
	}

	if err = config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (config *Configuration) validate() error {
	if config.Value != nil && *config.Value > 0x7f {
		return fmt.Errorf("replacement value %d doesn't fit a single ULEB128 byte", *config.Value)
	}

	if len(config.Targets) == 0 {
		return errors.New("configuration names no targets")
	}

	for i := range config.Targets {
		if config.Targets[i].Path == "" {
			return fmt.Errorf("target %d has no path", i)
		}

		if len(config.Targets[i].Patterns) == 0 {
			config.Targets[i].Patterns = DefaultPatterns
		}
	}

	return nil
}
