package config

import "strings"

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type LogoPosition string

const (
	LogoTopLeft     LogoPosition = "top-left"
	LogoTopRight    LogoPosition = "top-right"
	LogoTopCenter   LogoPosition = "top-center"
	LogoBottomLeft  LogoPosition = "bottom-left"
	LogoBottomRight LogoPosition = "bottom-right"
)

// BrandingConfig holds the tunable layout parameters shared by posters and
// reels. All sizes are pixels on the 1080-wide render target.
type BrandingConfig struct {
	Theme            Theme        `yaml:"theme"`
	OutputWidth      int          `yaml:"output_width"`
	MarginPercent    int          `yaml:"margin_percent"`
	TextAreaHeight   int          `yaml:"text_area_height"`
	TitleFontSize    int          `yaml:"title_font_size"`
	MetaFontSize     int          `yaml:"meta_font_size"`
	LogoSize         int          `yaml:"logo_size"`
	LogoPadding      int          `yaml:"logo_padding"`
	LogoPosition     LogoPosition `yaml:"logo_position"`
	OutlineThickness int          `yaml:"outline_thickness"`
}

// DefaultBranding returns the stock configuration.
func DefaultBranding() BrandingConfig {
	return BrandingConfig{
		Theme:            ThemeLight,
		OutputWidth:      1080,
		MarginPercent:    5,
		TextAreaHeight:   220,
		TitleFontSize:    56,
		MetaFontSize:     24,
		LogoSize:         80,
		LogoPadding:      40,
		LogoPosition:     LogoTopRight,
		OutlineThickness: 2,
	}
}

// Clamped returns a copy with every numeric field forced into its engine
// bounds and enums normalized. The receiver is left untouched.
func (c BrandingConfig) Clamped() BrandingConfig {
	out := c
	out.Theme = normalizeTheme(c.Theme)
	out.LogoPosition = normalizeLogoPosition(c.LogoPosition)
	out.OutputWidth = OutputWidthBounds.Apply(c.OutputWidth)
	out.MarginPercent = MarginPercentBounds.Apply(c.MarginPercent)
	out.TextAreaHeight = TextAreaHeightBounds.Apply(c.TextAreaHeight)
	out.TitleFontSize = TitleFontSizeBounds.Apply(c.TitleFontSize)
	out.MetaFontSize = MetaFontSizeBounds.Apply(c.MetaFontSize)
	out.LogoSize = LogoSizeBounds.Apply(c.LogoSize)
	out.LogoPadding = LogoPaddingBounds.Apply(c.LogoPadding)
	if c.OutlineThickness == 0 {
		out.OutlineThickness = 2
	}
	out.OutlineThickness = OutlineThicknessBounds.Apply(out.OutlineThickness)
	return out
}

func normalizeTheme(t Theme) Theme {
	switch Theme(strings.ToLower(string(t))) {
	case ThemeDark, "black":
		return ThemeDark
	default:
		return ThemeLight
	}
}

func normalizeLogoPosition(p LogoPosition) LogoPosition {
	switch LogoPosition(strings.ToLower(string(p))) {
	case LogoTopRight:
		return LogoTopRight
	case LogoTopCenter:
		return LogoTopCenter
	case LogoBottomLeft:
		return LogoBottomLeft
	case LogoBottomRight:
		return LogoBottomRight
	default:
		return LogoTopLeft
	}
}
