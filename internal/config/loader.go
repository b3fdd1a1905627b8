package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileLoader reads Config from a YAML file. A missing file is not an error:
// Load returns the defaults.
type FileLoader struct {
	Path string
}

// NewFileLoader returns a loader for path, or for DefaultFile when path is
// empty.
func NewFileLoader(path string) *FileLoader {
	if path == "" {
		path = DefaultFile
	}
	return &FileLoader{Path: path}
}

func (l *FileLoader) ConfigPath() string {
	abs, err := filepath.Abs(l.Path)
	if err != nil {
		return l.Path
	}
	return abs
}

func (l *FileLoader) Load() (*Config, error) {
	data, err := os.ReadFile(l.Path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := Config{}.WithDefaults()
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", l.Path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrInvalidConfig, l.Path, err)
	}
	cfg = cfg.WithDefaults()
	return &cfg, nil
}
