// Package poster exports branded 4:5 stills, one per source photo.
package poster

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ZacxDev/dealer-poster/internal/caption"
	"github.com/ZacxDev/dealer-poster/internal/config"
	"github.com/ZacxDev/dealer-poster/internal/domain"
	"github.com/ZacxDev/dealer-poster/internal/imageio"
	"github.com/ZacxDev/dealer-poster/internal/layout"
)

// Source is one encoded source photo.
type Source struct {
	Name string
	Data []byte
}

// Pipeline renders and encodes still batches.
type Pipeline struct {
	rc  *layout.RenderContext
	log zerolog.Logger
	now func() time.Time
}

func NewPipeline(rc *layout.RenderContext, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		rc:  rc,
		log: log.With().Str("component", "poster").Logger(),
		now: time.Now,
	}
}

// Export renders every source into a poster. The batch is all or nothing:
// any decode failure or cancellation returns an error and no assets.
func (p *Pipeline) Export(ctx context.Context, sources []Source, cfg config.BrandingConfig, attrs config.VehicleAttributes, logo image.Image) ([]domain.GeneratedAsset, error) {
	const op = "poster.Export"

	if logo == nil {
		return nil, domain.Validation(op, domain.ErrMissingLogo)
	}
	if len(sources) == 0 {
		return nil, domain.Validation(op, domain.ErrMissingSource)
	}
	if err := attrs.Validate(); err != nil {
		return nil, domain.InvalidAttributes(op, err)
	}

	cfg = cfg.Clamped()
	text := caption.Build(attrs)
	batch := p.now()
	start := time.Now()
	p.log.Info().Int("images", len(sources)).Msg("exporting posters")

	assets := make([]domain.GeneratedAsset, 0, len(sources))
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		asset, err := p.exportOne(i, src, cfg, attrs, logo)
		if err != nil {
			p.log.Warn().Err(err).Int("index", i).Str("source", src.Name).Msg("poster batch aborted")
			return nil, err
		}
		asset.ID = fmt.Sprintf("img-%d-%d", batch.UnixMilli(), i)
		asset.Caption = text
		asset.CreatedAt = batch
		assets = append(assets, asset)
		p.log.Debug().Int("index", i).Str("id", asset.ID).Int("bytes", len(asset.Data)).Msg("poster rendered")
	}

	p.log.Info().Int("images", len(assets)).Dur("took", time.Since(start)).Msg("posters exported")
	return assets, nil
}

func (p *Pipeline) exportOne(i int, src Source, cfg config.BrandingConfig, attrs config.VehicleAttributes, logo image.Image) (domain.GeneratedAsset, error) {
	const op = "poster.Export"

	img, err := imageio.Decode(src.Data)
	if err != nil {
		return domain.GeneratedAsset{}, domain.Decode(op, errors.Wrapf(err, "source %d (%s)", i, src.Name))
	}

	full, err := p.rc.Render(layout.PosterTarget, img, cfg, attrs, logo)
	if err != nil {
		return domain.GeneratedAsset{}, domain.Capture(op, err)
	}

	export := full
	if cfg.OutputWidth > layout.PosterTarget.Width {
		export = p.rc.Resize(full, cfg.OutputWidth)
	}
	data, err := imageio.EncodeJPEG(export, config.ExportQuality)
	if err != nil {
		return domain.GeneratedAsset{}, domain.Capture(op, err)
	}

	thumb, err := imageio.EncodeJPEG(Thumbnail(p.rc, full), config.ThumbnailQuality)
	if err != nil {
		return domain.GeneratedAsset{}, domain.Capture(op, err)
	}

	return domain.GeneratedAsset{
		Kind:          domain.AssetPoster,
		Data:          data,
		ContentType:   "image/jpeg",
		Ext:           "jpg",
		Thumbnail:     thumb,
		ThumbnailType: "image/jpeg",
		SourceIndex:   i,
	}, nil
}

// Thumbnail is the batch thumbnail of a full poster render. Previews use the
// same function so both are pixel-identical.
func Thumbnail(rc *layout.RenderContext, full image.Image) *image.RGBA {
	return rc.Downscale(full, config.ThumbnailWidth, config.ThumbnailHeight)
}
