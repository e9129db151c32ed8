// Package config parses the datasource configuration file into multiredis.Settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sharedcode/multiredis"
)

const (
	// PathEnvVar names the environment variable holding the config file path.
	PathEnvVar = "MULTIREDIS_CONFIG"
	// DefaultPath is used when PathEnvVar is not set.
	DefaultPath = "multiredis.yaml"
)

// File mirrors the on-disk layout. Datasource names are the map keys.
type File struct {
	// DynamicDatabase is the process-wide default mode; nil means dynamic.
	DynamicDatabase *bool                             `yaml:"dynamic_database" toml:"dynamic_database"`
	Primary         string                            `yaml:"primary" toml:"primary"`
	Datasource      map[string]multiredis.StoreConfig `yaml:"datasource" toml:"datasource"`
}

// Load reads a YAML (.yaml, .yml) or TOML (.toml) file and returns the Settings it describes.
// The result is not validated beyond parsing; the registry normalizes it.
func Load(path string) (multiredis.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return multiredis.Settings{}, fmt.Errorf("reading config: %w", err)
	}
	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &f); err != nil {
			return multiredis.Settings{}, fmt.Errorf("parsing config: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return multiredis.Settings{}, fmt.Errorf("parsing config: %w", err)
		}
	default:
		return multiredis.Settings{}, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return f.Settings(), nil
}

// Settings converts the file layout. Datasources are ordered by name so the
// primary fallback (first datasource) is deterministic.
func (f File) Settings() multiredis.Settings {
	s := multiredis.Settings{Primary: f.Primary}
	if f.DynamicDatabase != nil {
		if *f.DynamicDatabase {
			s.DefaultMode = multiredis.Dynamic
		} else {
			s.DefaultMode = multiredis.Static
		}
	}
	names := make([]string, 0, len(f.Datasource))
	for name := range f.Datasource {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ds := f.Datasource[name]
		ds.Name = name
		s.Datasources = append(s.Datasources, ds)
	}
	return s
}

// LoadEnv loads the given .env files into the process environment without
// overriding variables that are already set. With no arguments it loads ./.env
// when present.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("loading env files: %w", err)
	}
	return nil
}

// Path returns the config file path from the environment, or DefaultPath.
func Path() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		return p
	}
	return DefaultPath
}
