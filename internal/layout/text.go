package layout

import (
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

var (
	outlineInk = image.NewUniform(color.Black)
	textInk    = image.NewUniform(color.White)
)

// Wrap breaks text into lines greedily: words are appended while the line
// fits maxWidth; a word that overflows a non-empty line starts the next one.
// A single word wider than maxWidth stays on its own line.
func Wrap(face font.Face, text string, maxWidth fixed.Int26_6) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		candidate := line + " " + word
		if font.MeasureString(face, candidate) > maxWidth {
			lines = append(lines, line)
			line = word
			continue
		}
		line = candidate
	}
	return append(lines, line)
}

// textBlock is a wrapped, centered run of text anchored at a baseline.
type textBlock struct {
	lines      []string
	centerX    fixed.Int26_6
	baseline   int
	lineHeight int
}

func (b textBlock) height() int {
	if len(b.lines) == 0 {
		return 0
	}
	return (len(b.lines) - 1) * b.lineHeight
}

// drawCentered draws every line of b, each centered on centerX+dx.
func drawCentered(dst draw.Image, face font.Face, src image.Image, b textBlock, dx, dy int) {
	d := font.Drawer{Dst: dst, Src: src, Face: face}
	for i, line := range b.lines {
		w := font.MeasureString(face, line)
		d.Dot = fixed.Point26_6{
			X: b.centerX + fixed.I(dx) - w/2,
			Y: fixed.I(b.baseline + dy + i*b.lineHeight),
		}
		d.DrawString(line)
	}
}

// drawOutlined strokes text by redrawing it in black at every integer offset
// of the (2r+1)² square around the origin, then once in white on top. Native
// stroking is avoided so output does not depend on a rasterizer's stroker.
func drawOutlined(dst draw.Image, face font.Face, b textBlock, r int) {
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			drawCentered(dst, face, outlineInk, b, dx, dy)
		}
	}
	drawCentered(dst, face, textInk, b, 0, 0)
}
