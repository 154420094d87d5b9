// Package studio is the export surface of one editing session: it turns the
// preview state into posters or a reel, keeps the results and saves them to
// the dealer's library.
package studio

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ZacxDev/dealer-poster/internal/config"
	"github.com/ZacxDev/dealer-poster/internal/domain"
	"github.com/ZacxDev/dealer-poster/internal/layout"
	"github.com/ZacxDev/dealer-poster/internal/poster"
	"github.com/ZacxDev/dealer-poster/internal/preview"
	"github.com/ZacxDev/dealer-poster/internal/reel"
	"github.com/ZacxDev/dealer-poster/internal/session"
	"github.com/ZacxDev/dealer-poster/internal/storage"
)

// ReelOptions are the per-recording knobs.
type ReelOptions struct {
	TrimEnd      time.Duration
	FrameRate    int
	IncludeAudio bool
	OnProgress   func(float64)
}

// Saved is one uploaded asset.
type Saved struct {
	ID  string
	Key string
	URL string
}

type Studio struct {
	rc       *layout.RenderContext
	state    *preview.State
	posters  *poster.Pipeline
	encoders reel.Encoders
	store    storage.Store
	session  session.Session
	log      zerolog.Logger
	now      func() time.Time

	mu          sync.Mutex
	assets      []domain.GeneratedAsset
	batchActive bool
	recorder    *reel.Recorder
	video       reel.Video
}

func New(rc *layout.RenderContext, state *preview.State, encoders reel.Encoders, store storage.Store, sess session.Session, log zerolog.Logger) *Studio {
	return &Studio{
		rc:       rc,
		state:    state,
		posters:  poster.NewPipeline(rc, log),
		encoders: encoders,
		store:    store,
		session:  sess,
		log:      log.With().Str("component", "studio").Logger(),
		now:      time.Now,
	}
}

func (s *Studio) State() *preview.State { return s.state }

// GenerateStills exports a poster per source in the preview state. Previous
// poster results are dropped before the batch starts.
func (s *Studio) GenerateStills(ctx context.Context) ([]domain.GeneratedAsset, error) {
	const op = "studio.GenerateStills"
	if s.state.Mode() != preview.ModeStill {
		return nil, domain.Validation(op, domain.ErrWrongMode)
	}

	s.mu.Lock()
	if s.batchActive {
		s.mu.Unlock()
		return nil, domain.Validation(op, domain.ErrBatchActive)
	}
	s.batchActive = true
	s.assets = slices.DeleteFunc(s.assets, func(a domain.GeneratedAsset) bool { return a.Kind == domain.AssetPoster })
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.batchActive = false
		s.mu.Unlock()
	}()

	assets, err := s.posters.Export(ctx, s.state.Sources(), s.state.Config(), s.state.Attributes(), s.state.Logo())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.assets = append(s.assets, assets...)
	s.mu.Unlock()
	return slices.Clone(assets), nil
}

// LoadVideo probes v, shows its preview frame and switches to video mode.
func (s *Studio) LoadVideo(ctx context.Context, v reel.Video) error {
	const op = "studio.LoadVideo"
	meta, err := v.Info(ctx)
	if err != nil {
		return domain.Decode(op, err)
	}

	offset := min(config.VideoPreviewOffset, meta.Duration/2)
	frame, err := v.StillAt(ctx, offset)
	if err != nil {
		s.log.Warn().Err(err).Msg("video preview frame unavailable")
		frame = nil
	}

	s.mu.Lock()
	s.video = v
	s.mu.Unlock()

	if err := s.state.SetVideoFrame(frame); err != nil {
		return err
	}
	return s.state.SetMode(preview.ModeVideo)
}

// GenerateReel records the loaded video. Only one recording runs per
// studio; a second request while one is active fails with ErrRecorderBusy.
// A completed reel replaces any earlier one.
func (s *Studio) GenerateReel(ctx context.Context, opts ReelOptions) (*domain.GeneratedAsset, error) {
	const op = "studio.GenerateReel"
	if s.state.Mode() != preview.ModeVideo {
		return nil, domain.Validation(op, domain.ErrWrongMode)
	}

	s.mu.Lock()
	if s.recorder != nil && !s.recorder.State().Terminal() {
		s.mu.Unlock()
		return nil, domain.Validation(op, domain.ErrRecorderBusy)
	}
	video := s.video
	if video == nil {
		s.mu.Unlock()
		return nil, domain.Validation(op, domain.ErrMissingSource)
	}
	rec := reel.NewRecorder(s.rc, s.encoders, s.log)
	s.recorder = rec
	s.mu.Unlock()

	asset, err := rec.Record(ctx, reel.Request{
		Video:        video,
		Branding:     s.state.Config(),
		Attributes:   s.state.Attributes(),
		Logo:         s.state.Logo(),
		TrimEnd:      opts.TrimEnd,
		FrameRate:    opts.FrameRate,
		IncludeAudio: opts.IncludeAudio,
		OnProgress:   opts.OnProgress,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.assets = slices.DeleteFunc(s.assets, func(a domain.GeneratedAsset) bool { return a.Kind == domain.AssetReel })
	s.assets = append(s.assets, *asset)
	s.mu.Unlock()
	return asset, nil
}

// CancelReel cancels the active recording, if any.
func (s *Studio) CancelReel() {
	s.mu.Lock()
	rec := s.recorder
	s.mu.Unlock()
	if rec != nil {
		rec.Cancel()
	}
}

// Recorder is the most recent recorder, for progress polling.
func (s *Studio) Recorder() *reel.Recorder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorder
}

func (s *Studio) Assets() []domain.GeneratedAsset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.assets)
}

func (s *Studio) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.assets, func(a domain.GeneratedAsset) bool { return a.ID == id })
	if i < 0 {
		return domain.Validation("studio.Remove", errors.Wrap(domain.ErrAssetNotFound, id))
	}
	s.assets = slices.Delete(s.assets, i, i+1)
	return nil
}

func (s *Studio) asset(id string) (domain.GeneratedAsset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.assets, func(a domain.GeneratedAsset) bool { return a.ID == id })
	if i < 0 {
		return domain.GeneratedAsset{}, false
	}
	return s.assets[i], true
}

func (s *Studio) dealer(op string) (string, error) {
	id, ok := s.session.CurrentDealerID()
	if !ok {
		return "", domain.Validation(op, domain.ErrNoDealer)
	}
	return id, nil
}

// Save uploads one asset to <dealer>/<date>/<id>.<ext>.
func (s *Studio) Save(ctx context.Context, id string) (Saved, error) {
	const op = "studio.Save"
	dealer, err := s.dealer(op)
	if err != nil {
		return Saved{}, err
	}
	a, ok := s.asset(id)
	if !ok {
		return Saved{}, domain.Validation(op, errors.Wrap(domain.ErrAssetNotFound, id))
	}
	return s.upload(ctx, op, dealer, a)
}

// SaveAll uploads every asset in order and stops at the first failure,
// returning what was stored before it.
func (s *Studio) SaveAll(ctx context.Context) ([]Saved, error) {
	const op = "studio.SaveAll"
	dealer, err := s.dealer(op)
	if err != nil {
		return nil, err
	}
	var saved []Saved
	for _, a := range s.Assets() {
		out, err := s.upload(ctx, op, dealer, a)
		if err != nil {
			return saved, err
		}
		saved = append(saved, out)
	}
	return saved, nil
}

func (s *Studio) upload(ctx context.Context, op, dealer string, a domain.GeneratedAsset) (Saved, error) {
	key := storage.ObjectKey(dealer, s.now(), a.Filename())
	url, err := s.store.Upload(ctx, key, a.Data, a.ContentType)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("upload failed")
		return Saved{}, domain.Storage(op, err)
	}
	s.log.Info().Str("key", key).Int("bytes", len(a.Data)).Msg("asset saved")
	return Saved{ID: a.ID, Key: key, URL: url}, nil
}

// Library lists the dealer's stored files, newest date folder first.
func (s *Studio) Library(ctx context.Context) ([]storage.Entry, error) {
	const op = "studio.Library"
	dealer, err := s.dealer(op)
	if err != nil {
		return nil, err
	}
	top, err := s.store.List(ctx, storage.DealerPrefix(dealer))
	if err != nil {
		return nil, domain.Storage(op, err)
	}

	var files []storage.Entry
	for _, e := range top {
		if !e.IsFolder {
			files = append(files, e)
			continue
		}
		inner, err := s.store.List(ctx, e.Name+"/")
		if err != nil {
			return nil, domain.Storage(op, err)
		}
		for _, f := range inner {
			if !f.IsFolder {
				files = append(files, f)
			}
		}
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].Name > files[j].Name })
	return files, nil
}
