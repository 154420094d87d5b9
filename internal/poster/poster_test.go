package poster

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZacxDev/dealer-poster/internal/config"
	"github.com/ZacxDev/dealer-poster/internal/domain"
	"github.com/ZacxDev/dealer-poster/internal/layout"
)

var rc = layout.MustRenderContext()

func pngSource(t *testing.T, name string, w, h int, c color.Color) Source {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return Source{Name: name, Data: buf.Bytes()}
}

func logo() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

func attrs() config.VehicleAttributes {
	return config.VehicleAttributes{Brand: "Honda", Model: "City", Price: "500000", Mileage: "20000", FuelType: "Petrol"}
}

func newPipeline() *Pipeline {
	p := NewPipeline(rc, zerolog.Nop())
	p.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return p
}

func TestExportBatch(t *testing.T) {
	sources := []Source{
		pngSource(t, "a.png", 400, 300, color.RGBA{R: 255, A: 255}),
		pngSource(t, "b.png", 300, 400, color.RGBA{G: 255, A: 255}),
		pngSource(t, "c.png", 200, 200, color.RGBA{B: 255, A: 255}),
	}

	assets, err := newPipeline().Export(context.Background(), sources, config.DefaultBranding(), attrs(), logo())
	require.NoError(t, err)
	require.Len(t, assets, 3)

	ids := map[string]bool{}
	for i, a := range assets {
		ids[a.ID] = true
		assert.Equal(t, "Honda City | ₹500000 • 20000 km • Petrol", a.Caption)
		assert.Equal(t, i, a.SourceIndex)
		assert.Equal(t, domain.AssetPoster, a.Kind)
		assert.Equal(t, "image/jpeg", a.ContentType)

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(a.Data))
		require.NoError(t, err)
		assert.Equal(t, 1080, cfg.Width)
		assert.Equal(t, 1350, cfg.Height)

		thumb, err := jpeg.DecodeConfig(bytes.NewReader(a.Thumbnail))
		require.NoError(t, err)
		assert.Equal(t, 180, thumb.Width)
		assert.Equal(t, 225, thumb.Height)
	}
	assert.Len(t, ids, 3)
	assert.Equal(t, "img-1700000000000-0", assets[0].ID)
	assert.Equal(t, "img-1700000000000-2", assets[2].ID)
}

func TestExportHonorsOutputWidth(t *testing.T) {
	cfg := config.DefaultBranding()
	cfg.OutputWidth = 2160

	assets, err := newPipeline().Export(context.Background(),
		[]Source{pngSource(t, "a.png", 100, 100, color.White)}, cfg, attrs(), logo())
	require.NoError(t, err)

	ic, err := jpeg.DecodeConfig(bytes.NewReader(assets[0].Data))
	require.NoError(t, err)
	assert.Equal(t, 2160, ic.Width)
	assert.Equal(t, 2700, ic.Height)
}

func TestExportValidation(t *testing.T) {
	src := []Source{pngSource(t, "a.png", 10, 10, color.White)}
	p := newPipeline()

	_, err := p.Export(context.Background(), src, config.DefaultBranding(), attrs(), nil)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
	assert.ErrorIs(t, err, domain.ErrMissingLogo)

	_, err = p.Export(context.Background(), nil, config.DefaultBranding(), attrs(), logo())
	assert.ErrorIs(t, err, domain.ErrMissingSource)

	bad := attrs()
	bad.Year = "twenty"
	_, err = p.Export(context.Background(), src, config.DefaultBranding(), bad, logo())
	assert.ErrorIs(t, err, domain.ErrInvalidAttributes)
}

func TestExportDecodeFailureAbortsBatch(t *testing.T) {
	sources := []Source{
		pngSource(t, "a.png", 10, 10, color.White),
		{Name: "broken.jpg", Data: []byte("not a jpeg")},
		pngSource(t, "c.png", 10, 10, color.White),
	}

	assets, err := newPipeline().Export(context.Background(), sources, config.DefaultBranding(), attrs(), logo())
	assert.Nil(t, assets)
	assert.True(t, domain.IsKind(err, domain.KindDecode))
	assert.Contains(t, err.Error(), "broken.jpg")
}

func TestExportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assets, err := newPipeline().Export(ctx, []Source{pngSource(t, "a.png", 10, 10, color.White)},
		config.DefaultBranding(), attrs(), logo())
	assert.Nil(t, assets)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestThumbnailMatchesDownscaledRender(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 50, 50))
	full, err := rc.Render(layout.PosterTarget, src, config.DefaultBranding(), attrs(), logo())
	require.NoError(t, err)

	assert.Equal(t, rc.Downscale(full, 180, 225).Pix, Thumbnail(rc, full).Pix)
}
