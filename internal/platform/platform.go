package platform

import (
	"fmt"
	"sort"
	"time"
)

// Platform describes one output preset.
type Platform interface {
	// GetName returns the platform name
	GetName() string

	// GetDimensions returns the fixed canvas size
	GetDimensions() (width, height int)

	// IsVideo reports whether the preset produces a reel
	IsVideo() bool

	// GetMaxDuration returns the maximum reel duration (zero for stills)
	GetMaxDuration() time.Duration

	// GetPreviewDimensions returns the live preview size
	GetPreviewDimensions() (width, height int)
}

var platforms = make(map[string]Platform)

// Register adds a platform to the registry
func Register(p Platform) {
	platforms[p.GetName()] = p
}

// Get returns a platform by name
func Get(name string) (Platform, error) {
	p, ok := platforms[name]
	if !ok {
		return nil, fmt.Errorf("unsupported platform: %s", name)
	}
	return p, nil
}

// MustGet is Get for names registered in this package.
func MustGet(name string) Platform {
	p, err := Get(name)
	if err != nil {
		panic(err)
	}
	return p
}

// GetSupportedPlatforms returns the registered platform names, sorted
func GetSupportedPlatforms() []string {
	names := make([]string, 0, len(platforms))
	for name := range platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
