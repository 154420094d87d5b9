package layout

import (
	"image"
	"math"

	"github.com/ZacxDev/dealer-poster/internal/config"
	"github.com/ZacxDev/dealer-poster/internal/platform"
)

// Target is the output canvas. Only PosterTarget and ReelTarget exist.
type Target struct {
	Width   int
	Height  int
	IsVideo bool
}

var (
	PosterTarget = TargetFor(platform.MustGet(platform.PosterName))
	ReelTarget   = TargetFor(platform.MustGet(platform.ReelName))
)

// TargetFor is the render canvas of a platform preset.
func TargetFor(p platform.Platform) Target {
	w, h := p.GetDimensions()
	return Target{Width: w, Height: h, IsVideo: p.IsVideo()}
}

func (t Target) Bounds() image.Rectangle {
	return image.Rect(0, 0, t.Width, t.Height)
}

// round matches the half-up rounding the layout constants were tuned with
// (math.Round rounds negative halves away from zero).
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}

// ContainRect fits a srcW×srcH image inside box, preserving aspect ratio,
// centered.
func ContainRect(box image.Rectangle, srcW, srcH int) image.Rectangle {
	if srcW <= 0 || srcH <= 0 || box.Empty() {
		return image.Rectangle{}
	}
	boxW, boxH := float64(box.Dx()), float64(box.Dy())
	ratio := math.Min(boxW/float64(srcW), boxH/float64(srcH))
	w := round(float64(srcW) * ratio)
	h := round(float64(srcH) * ratio)
	x := round(float64(box.Min.X) + (boxW-float64(w))/2)
	y := round(float64(box.Min.Y) + (boxH-float64(h))/2)
	return image.Rect(x, y, x+w, y+h)
}

// CoverRect scales a srcW×srcH frame so it fully covers a w×h canvas,
// centered. The result may extend past the canvas on one axis.
func CoverRect(w, h, srcW, srcH int) image.Rectangle {
	if srcW <= 0 || srcH <= 0 {
		return image.Rect(0, 0, w, h)
	}
	canvasRatio := float64(w) / float64(h)
	srcRatio := float64(srcW) / float64(srcH)
	dw, dh := w, h
	if srcRatio > canvasRatio {
		dw = round(float64(h) * srcRatio)
	} else {
		dh = round(float64(w) / srcRatio)
	}
	dx := round(float64(w-dw) / 2)
	dy := round(float64(h-dh) / 2)
	return image.Rect(dx, dy, dx+dw, dy+dh)
}

// ContentBox is the region a poster photo is contained in: the canvas inset
// by the margin on every side, with the bottom further inset by the text
// area.
func ContentBox(t Target, cfg config.BrandingConfig) image.Rectangle {
	cfg = cfg.Clamped()
	margin := round(float64(t.Width) * float64(cfg.MarginPercent) / 100)
	return image.Rect(margin, margin, t.Width-margin, t.Height-margin-cfg.TextAreaHeight)
}

// LogoRect is where the logo's logoSize² square lands.
func LogoRect(t Target, cfg config.BrandingConfig) image.Rectangle {
	cfg = cfg.Clamped()
	size, pad := cfg.LogoSize, cfg.LogoPadding
	x, y := pad, pad
	switch cfg.LogoPosition {
	case config.LogoTopCenter:
		x = (t.Width - size) / 2
	case config.LogoTopRight:
		x = t.Width - size - pad
	case config.LogoBottomRight:
		x = t.Width - size - pad
		y = t.Height - size - pad
	case config.LogoBottomLeft:
		y = t.Height - size - pad
	}
	return image.Rect(x, y, x+size, y+size)
}
