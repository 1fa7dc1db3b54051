package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Boundary defaults, repeated in the envconfig tags.
const (
	DefaultBinary     = "vendor/bin/dep"
	DefaultPort       = 22
	DefaultWorkingDir = "."
)

// File holds optional defaults loaded from a YAML file. Explicit flags and
// environment variables win over file values.
type File struct {
	Environment string `yaml:"environment"`
	Binary      string `yaml:"binary"`
	Port        int    `yaml:"port"`
	WorkingDir  string `yaml:"working_dir"`
	Verbosity   string `yaml:"verbosity"`
	Options     string `yaml:"options"`
	TimeoutMS   string `yaml:"timeout_ms"`
}

// LoadFile parses a defaults file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &f, nil
}

// ApplyFile fills unset or default-valued inputs from file defaults.
func (in *Inputs) ApplyFile(f *File) {
	if f == nil {
		return
	}
	if f.Environment != "" && in.Environment == "" {
		in.Environment = f.Environment
	}
	if f.Binary != "" && (in.Binary == "" || in.Binary == DefaultBinary) {
		in.Binary = f.Binary
	}
	if f.Port != 0 && (in.Port == 0 || in.Port == DefaultPort) {
		in.Port = f.Port
	}
	if f.WorkingDir != "" && (in.WorkingDir == "" || in.WorkingDir == DefaultWorkingDir) {
		in.WorkingDir = f.WorkingDir
	}
	if f.Verbosity != "" && in.Verbosity == "" {
		in.Verbosity = f.Verbosity
	}
	if f.Options != "" && in.Options == "" {
		in.Options = f.Options
	}
	if f.TimeoutMS != "" && in.TimeoutMS == "" {
		in.TimeoutMS = f.TimeoutMS
	}
}
