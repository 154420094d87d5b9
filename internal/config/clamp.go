package config

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Bounds is an inclusive [Min, Max] range.
type Bounds struct {
	Min int
	Max int
}

func (b Bounds) Apply(v int) int {
	return Clamp(v, b.Min, b.Max)
}

// Engine-defined limits applied to every BrandingConfig before layout.
var (
	OutputWidthBounds      = Bounds{Min: 1080, Max: 2160}
	MarginPercentBounds    = Bounds{Min: 0, Max: 25}
	TextAreaHeightBounds   = Bounds{Min: 100, Max: 640}
	TitleFontSizeBounds    = Bounds{Min: 28, Max: 96}
	MetaFontSizeBounds     = Bounds{Min: 18, Max: 48}
	LogoSizeBounds         = Bounds{Min: 16, Max: 600}
	LogoPaddingBounds      = Bounds{Min: 0, Max: 400}
	OutlineThicknessBounds = Bounds{Min: 1, Max: 8}
)
