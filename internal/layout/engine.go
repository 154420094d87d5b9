package layout

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/fixed"

	"github.com/ZacxDev/dealer-poster/internal/config"
)

const (
	textWidthRatio      = 0.88
	textAnchorGap       = 35
	cornerRatio         = 0.03
	shadowBlurRatio     = 0.012
	shadowDYRatio       = 0.004
	logoShadowBlurRatio = 0.005
	borderWidth         = 2
)

// logoShadowColor is black at 20% alpha.
var logoShadowColor = color.NRGBA{A: 51}

// Palette is the background/ink pair a theme selects.
type Palette struct {
	Background color.RGBA
	Ink        color.RGBA
}

func PaletteFor(t config.Theme) Palette {
	if t == config.ThemeDark {
		return Palette{Background: color.RGBA{A: 0xff}, Ink: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}}
	}
	return Palette{Background: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, Ink: color.RGBA{A: 0xff}}
}

// Overlay is the pre-composited title, meta line and logo for one
// (target, config, attributes, logo) tuple. It is immutable once built, so
// a recorder builds it once and stamps it onto every frame.
type Overlay struct {
	target Target
	layer  *image.RGBA
	dirty  image.Rectangle
}

// Bounds is the region of the canvas the overlay actually paints.
func (o *Overlay) Bounds() image.Rectangle { return o.dirty }

// BuildOverlay renders the text and logo layer for target.
func (rc *RenderContext) BuildOverlay(t Target, cfg config.BrandingConfig, attrs config.VehicleAttributes, logo image.Image) (*Overlay, error) {
	cfg = cfg.Clamped()
	layer := image.NewRGBA(t.Bounds())
	ov := &Overlay{target: t, layer: layer}

	textTop := t.Height - cfg.TextAreaHeight
	centerX := fixed.I(t.Width) / 2
	maxWidth := fixed.Int26_6(float64(t.Width) * textWidthRatio * 64)

	titleBlock := 0
	if title := attrs.Title(); title != "" {
		fe, err := rc.faceFor(cfg.TitleFontSize)
		if err != nil {
			return nil, err
		}
		fe.mu.Lock()
		b := textBlock{
			lines:      Wrap(fe.face, title, maxWidth),
			centerX:    centerX,
			baseline:   textTop + cfg.TitleFontSize + textAnchorGap,
			lineHeight: round(float64(cfg.TitleFontSize) * 1.15),
		}
		drawOutlined(layer, fe.face, b, cfg.OutlineThickness)
		fe.mu.Unlock()
		titleBlock = round(float64(cfg.TitleFontSize)*0.85) + b.height()
	}

	if meta := attrs.MetaLine(); meta != "" {
		fe, err := rc.faceFor(cfg.MetaFontSize)
		if err != nil {
			return nil, err
		}
		fe.mu.Lock()
		b := textBlock{
			lines:      Wrap(fe.face, meta, maxWidth),
			centerX:    centerX,
			baseline:   textTop + cfg.TitleFontSize + titleBlock + cfg.MetaFontSize + textAnchorGap,
			lineHeight: round(float64(cfg.MetaFontSize) * 1.25),
		}
		drawOutlined(layer, fe.face, b, cfg.OutlineThickness)
		fe.mu.Unlock()
	}

	if attrs.Title() != "" || attrs.MetaLine() != "" {
		ov.dirty = image.Rect(0, textTop, t.Width, t.Height)
	}

	if logo != nil && !logo.Bounds().Empty() {
		r := LogoRect(t, cfg)
		shadow := alphaShadow(layer, logo, r, round(float64(t.Width)*logoShadowBlurRatio), logoShadowColor)
		draw.CatmullRom.Scale(layer, r, logo, logo.Bounds(), draw.Over, nil)
		ov.dirty = ov.dirty.Union(r.Intersect(t.Bounds())).Union(shadow)
	}
	return ov, nil
}

// stamp composites the overlay onto dst.
func (o *Overlay) stamp(dst *image.RGBA) {
	if o == nil || o.dirty.Empty() {
		return
	}
	draw.Draw(dst, o.dirty, o.layer, o.dirty.Min, draw.Over)
}

// Render composites a full poster or reel frame for target. The returned
// surface belongs to the caller.
func (rc *RenderContext) Render(t Target, src image.Image, cfg config.BrandingConfig, attrs config.VehicleAttributes, logo image.Image) (*image.RGBA, error) {
	ov, err := rc.BuildOverlay(t, cfg, attrs, logo)
	if err != nil {
		return nil, err
	}
	dst := image.NewRGBA(t.Bounds())
	if t.IsVideo {
		rc.RenderFrame(dst, src, ov)
		return dst, nil
	}
	rc.renderPoster(dst, t, src, cfg)
	ov.stamp(dst)
	return dst, nil
}

// renderPoster paints the background, the contained photo with its rounded
// clip, shadow and hairline border, and the solid text band.
func (rc *RenderContext) renderPoster(dst *image.RGBA, t Target, src image.Image, cfg config.BrandingConfig) {
	cfg = cfg.Clamped()
	pal := PaletteFor(cfg.Theme)
	fill(dst, dst.Bounds(), pal.Background)

	if src != nil {
		sb := src.Bounds()
		rect := ContainRect(ContentBox(t, cfg), sb.Dx(), sb.Dy())
		if !rect.Empty() {
			radius := round(float64(min(rect.Dx(), rect.Dy())) * cornerRatio)

			dropShadow(dst, rect, radius,
				round(float64(t.Width)*shadowBlurRatio),
				round(float64(t.Width)*shadowDYRatio),
				color.NRGBA{A: 31})

			scaled := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
			draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, sb, draw.Src, nil)
			clip := roundedMask(rect.Dx(), rect.Dy(), radius)
			draw.DrawMask(dst, rect, scaled, image.Point{}, clip, image.Point{}, draw.Over)

			ink := pal.Ink
			strokeRounded(dst, rect, radius, borderWidth, color.NRGBA{R: ink.R, G: ink.G, B: ink.B, A: 15})
		}
	}

	// The band intentionally covers the photo's lower margin.
	fill(dst, image.Rect(0, t.Height-cfg.TextAreaHeight, t.Width, t.Height), pal.Background)
}

// RenderFrame draws one reel frame into dst: black fill, the frame scaled to
// cover the canvas and cropped, then the overlay. dst must match the
// overlay's target size.
func (rc *RenderContext) RenderFrame(dst *image.RGBA, frame image.Image, ov *Overlay) {
	fill(dst, dst.Bounds(), color.Black)
	if frame != nil {
		fb := frame.Bounds()
		b := dst.Bounds()
		r := CoverRect(b.Dx(), b.Dy(), fb.Dx(), fb.Dy())
		draw.ApproxBiLinear.Scale(dst, r, frame, fb, draw.Src, nil)
	}
	ov.stamp(dst)
}

// CoverFit scales img to cover a w×h surface, cropping overflow. Used for
// reel thumbnails.
func (rc *RenderContext) CoverFit(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	fill(dst, dst.Bounds(), color.Black)
	if img != nil {
		ib := img.Bounds()
		draw.BiLinear.Scale(dst, CoverRect(w, h, ib.Dx(), ib.Dy()), img, ib, draw.Src, nil)
	}
	return dst
}

// Downscale resamples a rendered canvas to a preview or thumbnail size. The
// layout is untouched because it was computed on the full target.
func (rc *RenderContext) Downscale(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Resize resamples a finished poster to its export width, keeping the 4:5
// aspect. Used when OutputWidth asks for a denser export than the layout
// target.
func (rc *RenderContext) Resize(img image.Image, width int) *image.RGBA {
	b := img.Bounds()
	height := round(float64(width) * float64(b.Dy()) / float64(b.Dx()))
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
