package layout

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/ZacxDev/dealer-poster/internal/config"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fill(img, img.Bounds(), c)
	return img
}

func sampleAttrs() config.VehicleAttributes {
	return config.VehicleAttributes{
		Brand:    "Honda",
		Model:    "City",
		Price:    "500000",
		Mileage:  "20000",
		FuelType: "Petrol",
	}
}

func countDark(img *image.RGBA, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := img.RGBAAt(x, y)
			if c.R < 0x40 && c.G < 0x40 && c.B < 0x40 {
				n++
			}
		}
	}
	return n
}

func TestRenderIsDeterministic(t *testing.T) {
	rc := MustRenderContext()
	src := solid(800, 600, color.RGBA{R: 200, G: 40, B: 40, A: 255})
	logo := solid(64, 64, color.RGBA{B: 255, A: 255})
	cfg := config.DefaultBranding()

	a, err := rc.Render(PosterTarget, src, cfg, sampleAttrs(), logo)
	require.NoError(t, err)
	b, err := rc.Render(PosterTarget, src, cfg, sampleAttrs(), logo)
	require.NoError(t, err)

	assert.Equal(t, PosterTarget.Bounds(), a.Bounds())
	assert.Equal(t, a.Pix, b.Pix)
}

func TestRenderPosterBackgroundFollowsTheme(t *testing.T) {
	rc := MustRenderContext()
	src := solid(400, 300, color.RGBA{G: 255, A: 255})

	light, err := rc.Render(PosterTarget, src, config.DefaultBranding(), config.VehicleAttributes{}, nil)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, light.RGBAAt(0, 0))

	cfg := config.DefaultBranding()
	cfg.Theme = config.ThemeDark
	dark, err := rc.Render(PosterTarget, src, cfg, config.VehicleAttributes{}, nil)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{A: 255}, dark.RGBAAt(0, 0))
}

func TestRenderPosterPlacesPhotoInContentBox(t *testing.T) {
	rc := MustRenderContext()
	cfg := config.DefaultBranding()
	src := solid(400, 300, color.RGBA{G: 255, A: 255})

	out, err := rc.Render(PosterTarget, src, cfg, config.VehicleAttributes{}, nil)
	require.NoError(t, err)

	rect := ContainRect(ContentBox(PosterTarget, cfg), 400, 300)
	center := out.RGBAAt((rect.Min.X+rect.Max.X)/2, (rect.Min.Y+rect.Max.Y)/2)
	assert.Greater(t, center.G, uint8(0xf0))
	assert.Less(t, center.R, uint8(0x10))
}

func TestRenderDrawsOutlinedTextInBand(t *testing.T) {
	rc := MustRenderContext()
	cfg := config.DefaultBranding()
	src := solid(400, 300, color.White)
	band := image.Rect(0, PosterTarget.Height-cfg.TextAreaHeight, PosterTarget.Width, PosterTarget.Height)

	plain, err := rc.Render(PosterTarget, src, cfg, config.VehicleAttributes{}, nil)
	require.NoError(t, err)
	assert.Zero(t, countDark(plain, band))

	withText, err := rc.Render(PosterTarget, src, cfg, sampleAttrs(), nil)
	require.NoError(t, err)
	assert.Positive(t, countDark(withText, band))
}

func TestRenderPlacesLogo(t *testing.T) {
	rc := MustRenderContext()
	cfg := config.DefaultBranding()
	logo := solid(10, 10, color.RGBA{B: 255, A: 255})

	for _, pos := range []config.LogoPosition{
		config.LogoTopLeft, config.LogoTopRight, config.LogoTopCenter,
		config.LogoBottomLeft, config.LogoBottomRight,
	} {
		t.Run(string(pos), func(t *testing.T) {
			cfg.LogoPosition = pos
			out, err := rc.Render(PosterTarget, nil, cfg, config.VehicleAttributes{}, logo)
			require.NoError(t, err)
			r := LogoRect(PosterTarget, cfg)
			c := out.RGBAAt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
			assert.Greater(t, c.B, uint8(0xf0))
			assert.Less(t, c.R, uint8(0x10))
		})
	}
}

func TestRenderFrameCoversCanvas(t *testing.T) {
	rc := MustRenderContext()
	ov, err := rc.BuildOverlay(ReelTarget, config.DefaultBranding(), config.VehicleAttributes{}, nil)
	require.NoError(t, err)
	assert.True(t, ov.Bounds().Empty())

	frame := solid(1920, 1080, color.RGBA{R: 255, A: 255})
	dst := rc.AcquireSurface(ReelTarget.Width, ReelTarget.Height)
	defer rc.ReleaseSurface(dst)
	rc.RenderFrame(dst, frame, ov)

	for _, p := range []image.Point{{0, 0}, {540, 960}, {1079, 1919}} {
		c := dst.RGBAAt(p.X, p.Y)
		assert.Greater(t, c.R, uint8(0xf0), "at %v", p)
		assert.Less(t, c.G, uint8(0x10), "at %v", p)
	}
}

func TestRenderVideoTargetUsesFramePath(t *testing.T) {
	rc := MustRenderContext()
	frame := solid(720, 1280, color.RGBA{G: 255, A: 255})
	out, err := rc.Render(ReelTarget, frame, config.DefaultBranding(), config.VehicleAttributes{}, nil)
	require.NoError(t, err)
	assert.Equal(t, ReelTarget.Bounds(), out.Bounds())

	// No background band on video: the frame reaches the bottom edge.
	c := out.RGBAAt(5, ReelTarget.Height-5)
	assert.Greater(t, c.G, uint8(0xf0))
}

func TestOverlayBoundsCoverTextAndLogo(t *testing.T) {
	rc := MustRenderContext()
	cfg := config.DefaultBranding()
	logo := solid(10, 10, color.White)

	ov, err := rc.BuildOverlay(PosterTarget, cfg, sampleAttrs(), logo)
	require.NoError(t, err)
	assert.True(t, LogoRect(PosterTarget, cfg).In(ov.Bounds()))
	assert.Equal(t, PosterTarget.Height, ov.Bounds().Max.Y)
}

func TestContainRect(t *testing.T) {
	box := image.Rect(0, 0, 100, 100)
	assert.Equal(t, image.Rect(0, 25, 100, 75), ContainRect(box, 200, 100))
	assert.Equal(t, image.Rect(25, 0, 75, 100), ContainRect(box, 100, 200))
	assert.Equal(t, image.Rect(10, 10, 110, 110), ContainRect(box.Add(image.Pt(10, 10)), 50, 50))
	assert.True(t, ContainRect(box, 0, 10).Empty())
}

func TestCoverRect(t *testing.T) {
	r := CoverRect(1080, 1920, 1920, 1080)
	assert.Equal(t, 0, r.Min.Y)
	assert.Equal(t, 1920, r.Dy())
	assert.GreaterOrEqual(t, r.Dx(), 1080)
	assert.InDelta(t, 540, (r.Min.X+r.Max.X)/2, 1)

	r = CoverRect(1080, 1920, 1080, 1080)
	assert.Equal(t, 0, r.Min.Y)
	assert.Equal(t, image.Rect(-420, 0, 1500, 1920), r)
}

func TestContentBoxAndLogoRect(t *testing.T) {
	cfg := config.DefaultBranding()
	assert.Equal(t, image.Rect(54, 54, 1026, 1076), ContentBox(PosterTarget, cfg))
	assert.Equal(t, image.Rect(960, 40, 1040, 120), LogoRect(PosterTarget, cfg))

	cfg.LogoPosition = config.LogoTopCenter
	assert.Equal(t, image.Rect(500, 40, 580, 120), LogoRect(PosterTarget, cfg))

	cfg.LogoPosition = "sideways"
	assert.Equal(t, image.Rect(40, 40, 120, 120), LogoRect(PosterTarget, cfg))

	cfg.LogoSize = 100000
	assert.Equal(t, config.LogoSizeBounds.Max, LogoRect(PosterTarget, cfg).Dx())
}

func TestWrap(t *testing.T) {
	rc := MustRenderContext()
	fe, err := rc.faceFor(24)
	require.NoError(t, err)
	maxWidth := fixed.I(200)

	lines := Wrap(fe.face, "Available at Downtown Showroom on Main Street", maxWidth)
	require.Greater(t, len(lines), 1)
	for _, l := range lines {
		assert.LessOrEqual(t, measure(fe, l), maxWidth, l)
	}

	long := "Supercalifragilisticexpialidocious"
	lines = Wrap(fe.face, "a "+long+" b", fixed.I(40))
	assert.Equal(t, []string{"a", long, "b"}, lines)

	assert.Nil(t, Wrap(fe.face, "   ", maxWidth))
}

func TestDownscaleMatchesPreviewSize(t *testing.T) {
	rc := MustRenderContext()
	full, err := rc.Render(PosterTarget, solid(300, 300, color.White), config.DefaultBranding(), sampleAttrs(), nil)
	require.NoError(t, err)

	a := rc.Downscale(full, config.ThumbnailWidth, config.ThumbnailHeight)
	b := rc.Downscale(full, config.ThumbnailWidth, config.ThumbnailHeight)
	assert.Equal(t, image.Rect(0, 0, 180, 225), a.Bounds())
	assert.Equal(t, a.Pix, b.Pix)
}

func measure(fe *faceEntry, s string) fixed.Int26_6 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return font.MeasureString(fe.face, s)
}

func TestResizeKeepsAspect(t *testing.T) {
	rc := MustRenderContext()
	out := rc.Resize(solid(1080, 1350, color.White), 2160)
	assert.Equal(t, image.Rect(0, 0, 2160, 2700), out.Bounds())
}

func TestTargetsFollowPlatformPresets(t *testing.T) {
	assert.Equal(t, Target{Width: 1080, Height: 1350}, PosterTarget)
	assert.Equal(t, Target{Width: 1080, Height: 1920, IsVideo: true}, ReelTarget)
}

func TestLogoCastsSoftShadow(t *testing.T) {
	rc := MustRenderContext()
	cfg := config.DefaultBranding()
	logo := solid(10, 10, color.RGBA{B: 255, A: 255})

	ov, err := rc.BuildOverlay(PosterTarget, cfg, config.VehicleAttributes{}, logo)
	require.NoError(t, err)

	r := LogoRect(PosterTarget, cfg)
	edge := image.Pt(r.Min.X-2, (r.Min.Y+r.Max.Y)/2)
	c := ov.layer.RGBAAt(edge.X, edge.Y)
	assert.Greater(t, c.A, uint8(0))
	assert.Less(t, c.A, uint8(51))
	assert.Zero(t, c.B)
	assert.True(t, edge.In(ov.Bounds()))

	far := ov.layer.RGBAAt(r.Min.X-40, edge.Y)
	assert.Zero(t, far.A)
}
