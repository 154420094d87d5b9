package layout

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// roundedRect traces a rounded rectangle with quadratic corners relative to
// the rasterizer origin. reverse flips the winding so the path cuts a hole
// in a previously traced one.
func roundedRect(z *vector.Rasterizer, x, y, w, h, r float32, reverse bool) {
	maxR := w / 2
	if h/2 < maxR {
		maxR = h / 2
	}
	if r > maxR {
		r = maxR
	}
	if r < 0 {
		r = 0
	}
	if !reverse {
		z.MoveTo(x+r, y)
		z.LineTo(x+w-r, y)
		z.QuadTo(x+w, y, x+w, y+r)
		z.LineTo(x+w, y+h-r)
		z.QuadTo(x+w, y+h, x+w-r, y+h)
		z.LineTo(x+r, y+h)
		z.QuadTo(x, y+h, x, y+h-r)
		z.LineTo(x, y+r)
		z.QuadTo(x, y, x+r, y)
	} else {
		z.MoveTo(x+r, y)
		z.QuadTo(x, y, x, y+r)
		z.LineTo(x, y+h-r)
		z.QuadTo(x, y+h, x+r, y+h)
		z.LineTo(x+w-r, y+h)
		z.QuadTo(x+w, y+h, x+w, y+h-r)
		z.LineTo(x+w, y+r)
		z.QuadTo(x+w, y, x+w-r, y)
	}
	z.ClosePath()
}

// roundedMask rasterizes a w×h rounded rectangle into an alpha mask whose
// bounds start at the origin.
func roundedMask(w, h, r int) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	z := vector.NewRasterizer(w, h)
	roundedRect(z, 0, 0, float32(w), float32(h), float32(r), false)
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

// strokeRounded paints a stroke of the given width centered on the rounded
// rect outline of rect.
func strokeRounded(dst draw.Image, rect image.Rectangle, r, width int, c color.Color) {
	half := float32(width) / 2
	outer := rect.Inset(-width)
	outer = outer.Intersect(dst.Bounds())
	if outer.Empty() {
		return
	}
	mask := image.NewAlpha(image.Rect(0, 0, outer.Dx(), outer.Dy()))
	z := vector.NewRasterizer(outer.Dx(), outer.Dy())
	ox := float32(rect.Min.X - outer.Min.X)
	oy := float32(rect.Min.Y - outer.Min.Y)
	w, h := float32(rect.Dx()), float32(rect.Dy())
	roundedRect(z, ox-half, oy-half, w+2*half, h+2*half, float32(r)+half, false)
	roundedRect(z, ox+half, oy+half, w-2*half, h-2*half, float32(r)-half, true)
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	draw.DrawMask(dst, outer, image.NewUniform(c), image.Point{}, mask, image.Point{}, draw.Over)
}

// dropShadow paints a soft shadow of a rounded rect, offset vertically by
// dy and blurred by roughly blur pixels.
func dropShadow(dst draw.Image, rect image.Rectangle, r, blur, dy int, c color.Color) {
	pad := blur * 2
	area := rect.Add(image.Pt(0, dy)).Inset(-pad)
	clipped := area.Intersect(dst.Bounds())
	if clipped.Empty() {
		return
	}
	mask := image.NewAlpha(image.Rect(0, 0, area.Dx(), area.Dy()))
	z := vector.NewRasterizer(area.Dx(), area.Dy())
	roundedRect(z, float32(pad), float32(pad), float32(rect.Dx()), float32(rect.Dy()), float32(r), false)
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	// Three box passes approximate a gaussian with sigma ≈ blur/2.
	radius := blur / 2
	if radius < 1 {
		radius = 1
	}
	for i := 0; i < 3; i++ {
		boxBlur(mask, radius)
	}
	mp := clipped.Min.Sub(area.Min)
	draw.DrawMask(dst, clipped, image.NewUniform(c), image.Point{}, mask, mp, draw.Over)
}

// boxBlur runs a separable box filter of the given radius over an alpha mask
// in place. Integer arithmetic keeps it exact across platforms.
func boxBlur(m *image.Alpha, radius int) {
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return
	}
	size := 2*radius + 1
	line := make([]int, max(w, h))

	at := func(x, y int) *uint8 { return &m.Pix[y*m.Stride+x] }

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			line[x] = int(*at(x, y))
		}
		sum := 0
		for i := -radius; i <= radius; i++ {
			sum += line[clampIndex(i, w)]
		}
		for x := 0; x < w; x++ {
			*at(x, y) = uint8(sum / size)
			sum += line[clampIndex(x+radius+1, w)] - line[clampIndex(x-radius, w)]
		}
	}
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			line[y] = int(*at(x, y))
		}
		sum := 0
		for i := -radius; i <= radius; i++ {
			sum += line[clampIndex(i, h)]
		}
		for y := 0; y < h; y++ {
			*at(x, y) = uint8(sum / size)
			sum += line[clampIndex(y+radius+1, h)] - line[clampIndex(y-radius, h)]
		}
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func fill(dst *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// alphaShadow paints a soft shadow shaped by src's alpha as if src were
// scaled into rect. It returns the painted region.
func alphaShadow(dst draw.Image, src image.Image, rect image.Rectangle, blur int, c color.Color) image.Rectangle {
	pad := blur * 2
	area := rect.Inset(-pad)
	clipped := area.Intersect(dst.Bounds())
	if clipped.Empty() {
		return image.Rectangle{}
	}
	mask := image.NewAlpha(image.Rect(0, 0, area.Dx(), area.Dy()))
	draw.CatmullRom.Scale(mask, image.Rect(pad, pad, pad+rect.Dx(), pad+rect.Dy()), src, src.Bounds(), draw.Src, nil)

	radius := max(blur/2, 1)
	for i := 0; i < 3; i++ {
		boxBlur(mask, radius)
	}
	draw.DrawMask(dst, clipped, image.NewUniform(c), image.Point{}, mask, clipped.Min.Sub(area.Min), draw.Over)
	return clipped
}
