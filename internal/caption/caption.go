// Package caption builds the text that accompanies every generated asset.
package caption

import (
	"strings"

	"github.com/ZacxDev/dealer-poster/internal/config"
)

const Separator = " | "

// Build returns "<title> | <meta line>", dropping whichever side is empty.
// Posters, reels and stored metadata all use this one function.
func Build(v config.VehicleAttributes) string {
	parts := make([]string, 0, 2)
	if t := v.Title(); t != "" {
		parts = append(parts, t)
	}
	if m := v.MetaLine(); m != "" {
		parts = append(parts, m)
	}
	return strings.Join(parts, Separator)
}
