// Package preview holds the editable inputs of a session and keeps the live
// preview and batch thumbnails in step with them.
package preview

import (
	"image"
	"slices"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ZacxDev/dealer-poster/internal/config"
	"github.com/ZacxDev/dealer-poster/internal/domain"
	"github.com/ZacxDev/dealer-poster/internal/imageio"
	"github.com/ZacxDev/dealer-poster/internal/layout"
	"github.com/ZacxDev/dealer-poster/internal/poster"
)

type Mode string

const (
	ModeStill Mode = "still"
	ModeVideo Mode = "video"
)

// State is safe for concurrent use. Buffers returned by Preview and
// Thumbnails are replaced, never modified, by later renders.
type State struct {
	rc  *layout.RenderContext
	log zerolog.Logger

	mu         sync.RWMutex
	cfg        config.BrandingConfig
	attrs      config.VehicleAttributes
	sources    []poster.Source
	images     []image.Image
	selected   int
	mode       Mode
	logo       image.Image
	videoFrame image.Image

	generation uint64
	preview    *image.RGBA
	thumbs     []*image.RGBA
}

// New returns a still-mode state with default branding, rendered once.
func New(rc *layout.RenderContext, log zerolog.Logger) *State {
	s := &State{
		rc:   rc,
		log:  log.With().Str("component", "preview").Logger(),
		cfg:  config.DefaultBranding(),
		mode: ModeStill,
	}
	if err := s.render(); err != nil {
		s.log.Warn().Err(err).Msg("initial preview render failed")
	}
	return s
}

func (s *State) SetConfig(cfg config.BrandingConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return s.render()
}

func (s *State) SetAttributes(a config.VehicleAttributes) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = a
	return s.render()
}

// SetSources replaces the batch. Every source must decode; on failure the
// state is left unchanged.
func (s *State) SetSources(sources []poster.Source) error {
	imgs, err := decodeAll(sources)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = slices.Clone(sources)
	s.images = imgs
	s.selected = 0
	return s.render()
}

// AddSources appends to the batch and selects the first added source.
func (s *State) AddSources(sources []poster.Source) error {
	imgs, err := decodeAll(sources)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	first := len(s.sources)
	s.sources = append(s.sources, sources...)
	s.images = append(s.images, imgs...)
	if len(sources) > 0 {
		s.selected = first
	}
	return s.render()
}

func (s *State) RemoveSource(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.sources) {
		return domain.Validation("preview.RemoveSource", errors.Errorf("no source at index %d", i))
	}
	s.sources = slices.Delete(s.sources, i, i+1)
	s.images = slices.Delete(s.images, i, i+1)
	switch {
	case s.selected > i:
		s.selected--
	case s.selected >= len(s.sources):
		s.selected = 0
	}
	return s.render()
}

// Select picks the previewed source. Out-of-range indexes select the first.
func (s *State) Select(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.sources) {
		i = 0
	}
	s.selected = i
	return s.render()
}

func (s *State) SetMode(m Mode) error {
	if m != ModeStill && m != ModeVideo {
		return domain.Validation("preview.SetMode", errors.Errorf("unknown mode %q", m))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
	return s.render()
}

func (s *State) SetLogo(logo image.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logo = logo
	return s.render()
}

// SetVideoFrame swaps in the frame shown by the video-mode preview.
func (s *State) SetVideoFrame(frame image.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoFrame = frame
	return s.render()
}

func decodeAll(sources []poster.Source) ([]image.Image, error) {
	imgs := make([]image.Image, len(sources))
	for i, src := range sources {
		img, err := imageio.Decode(src.Data)
		if err != nil {
			return nil, domain.Decode("preview.SetSources", errors.Wrapf(err, "source %d (%s)", i, src.Name))
		}
		imgs[i] = img
	}
	return imgs, nil
}

// render rebuilds the preview and, in still mode, every thumbnail. Callers
// hold mu.
func (s *State) render() error {
	if s.mode == ModeVideo {
		full, err := s.rc.Render(layout.ReelTarget, s.videoFrame, s.cfg, s.attrs, s.logo)
		if err != nil {
			return errors.Wrap(err, "render video preview")
		}
		s.preview = s.rc.Downscale(full, config.ReelPreviewWidth, config.ReelPreviewHeight)
		s.thumbs = nil
		s.generation++
		return nil
	}

	var selected image.Image
	if s.selected < len(s.images) {
		selected = s.images[s.selected]
	}
	full, err := s.rc.Render(layout.PosterTarget, selected, s.cfg, s.attrs, s.logo)
	if err != nil {
		return errors.Wrap(err, "render preview")
	}
	preview := s.rc.Downscale(full, config.PosterPreviewWidth, config.PosterPreviewHeight)

	thumbs := make([]*image.RGBA, len(s.images))
	for i, img := range s.images {
		if i == s.selected {
			thumbs[i] = poster.Thumbnail(s.rc, full)
			continue
		}
		f, err := s.rc.Render(layout.PosterTarget, img, s.cfg, s.attrs, s.logo)
		if err != nil {
			return errors.Wrapf(err, "render thumbnail %d", i)
		}
		thumbs[i] = poster.Thumbnail(s.rc, f)
	}

	s.preview = preview
	s.thumbs = thumbs
	s.generation++
	s.log.Debug().Uint64("generation", s.generation).Int("thumbnails", len(thumbs)).Msg("preview rendered")
	return nil
}

func (s *State) Preview() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.preview
}

func (s *State) Thumbnails() []*image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.thumbs)
}

// Generation increments on every completed render.
func (s *State) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *State) Config() config.BrandingConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *State) Attributes() config.VehicleAttributes {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attrs
}

func (s *State) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *State) Selected() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

func (s *State) Sources() []poster.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.sources)
}

func (s *State) Logo() image.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logo
}
