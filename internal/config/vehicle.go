package config

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// VehicleAttributes describes the listed vehicle. Year, Mileage and Price
// are numbers carried as text.
type VehicleAttributes struct {
	Brand        string `yaml:"brand"`
	Model        string `yaml:"model"`
	Color        string `yaml:"color"`
	FuelType     string `yaml:"fuel_type"`
	Transmission string `yaml:"transmission"`
	Place        string `yaml:"place"`
	Year         string `yaml:"year"`
	Mileage      string `yaml:"mileage"`
	Price        string `yaml:"price"`
}

const (
	CurrencyPrefix = "₹"
	MetaSeparator  = " • "
)

var numericText = regexp.MustCompile(`^[0-9]+([, ][0-9]+)*$`)

// Title is brand and model joined by a space, empty parts omitted.
func (v VehicleAttributes) Title() string {
	parts := make([]string, 0, 2)
	for _, p := range []string{v.Brand, v.Model} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// MetaParts returns the detail entries in their fixed display order.
func (v VehicleAttributes) MetaParts() []string {
	var parts []string
	add := func(s string) {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if p := strings.TrimSpace(v.Price); p != "" {
		add(CurrencyPrefix + p)
	}
	if m := strings.TrimSpace(v.Mileage); m != "" {
		add(m + " km")
	}
	add(strings.TrimSpace(v.FuelType))
	add(strings.TrimSpace(v.Year))
	add(strings.TrimSpace(v.Transmission))
	add(strings.TrimSpace(v.Color))
	if p := strings.TrimSpace(v.Place); p != "" {
		add("Available at " + p)
	}
	return parts
}

// MetaLine is MetaParts joined by " • ".
func (v VehicleAttributes) MetaLine() string {
	return strings.Join(v.MetaParts(), MetaSeparator)
}

// Validate checks the numeric-as-text fields and that there is a title.
func (v VehicleAttributes) Validate() error {
	if v.Title() == "" {
		return errors.New("brand or model is required")
	}
	for _, f := range []struct {
		name  string
		value string
	}{
		{"year", v.Year},
		{"mileage", v.Mileage},
		{"price", v.Price},
	} {
		s := strings.TrimSpace(f.value)
		if s != "" && !numericText.MatchString(s) {
			return errors.Errorf("%s must be numeric, got %q", f.name, f.value)
		}
	}
	return nil
}
