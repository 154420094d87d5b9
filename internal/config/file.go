package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// BrandingFile is the on-disk layout of a --branding file. Both sections are
// optional; missing branding fields keep their defaults.
type BrandingFile struct {
	Branding BrandingConfig    `yaml:"branding"`
	Vehicle  VehicleAttributes `yaml:"vehicle"`
}

// LoadBranding reads a YAML branding file over the defaults. An empty path
// returns the defaults.
func LoadBranding(path string) (BrandingFile, error) {
	out := BrandingFile{Branding: DefaultBranding()}
	if path == "" {
		return out, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return out, errors.Wrap(err, "read branding file")
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return out, errors.Wrapf(err, "parse branding file %s", path)
	}
	return out, nil
}
