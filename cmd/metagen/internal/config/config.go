// Package config loads the optional blocks.yaml project configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
	"gopkg.in/yaml.v3"
)

// Config represents the optional blocks.yaml configuration.
type Config struct {
	Docs   DocsConfig   `yaml:"docs"`
	Engine EngineConfig `yaml:"engine"`
}

// DocsConfig controls metadata documentation output.
type DocsConfig struct {
	// Output is the directory generated files are written to.
	Output string `yaml:"output,omitempty"`
	// Include restricts generation to the named components.
	Include []string `yaml:"include,omitempty"`
}

// EngineConfig pins the host engine the project targets.
type EngineConfig struct {
	Version string `yaml:"version,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Root          string
	ModulePath    string
	Output        string
	Include       []string
	EngineVersion string
}

// LoadOptional reads blocks.yaml if present.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, "blocks.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read blocks.yaml: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse blocks.yaml: %w", err)
	}

	return &cfg, nil
}

// Resolve loads blocks.yaml (if present) and resolves defaults.
func Resolve(dir string) (*Resolved, error) {
	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}

	output := strings.TrimSpace(cfg.Docs.Output)
	if output == "" {
		output = "docs/components"
	}

	path, _ := modulePath(dir)
	return &Resolved{
		Root:          dir,
		ModulePath:    path,
		Output:        filepath.Join(dir, output),
		Include:       cfg.Docs.Include,
		EngineVersion: strings.TrimSpace(cfg.Engine.Version),
	}, nil
}

// modulePath reads the module path from go.mod, walking up from dir.
func modulePath(dir string) (string, error) {
	for cur := dir; ; {
		data, err := os.ReadFile(filepath.Join(cur, "go.mod"))
		if err == nil {
			f, perr := modfile.ParseLax("go.mod", data, nil)
			if perr != nil {
				return "", fmt.Errorf("failed to parse go.mod: %w", perr)
			}
			return f.Module.Mod.Path, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", errors.New("go.mod not found")
		}
		cur = parent
	}
}
