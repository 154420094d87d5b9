// Package reel records a branded 9:16 reel from a source clip.
//
// A Recorder samples the clip at the reel frame rate, composites every frame
// through the layout engine's video path and feeds the result to an encoder,
// stopping at the trim boundary, at end of stream or on Cancel.
package reel

import (
	"context"
	"fmt"
	"image"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ZacxDev/dealer-poster/internal/caption"
	"github.com/ZacxDev/dealer-poster/internal/config"
	"github.com/ZacxDev/dealer-poster/internal/domain"
	"github.com/ZacxDev/dealer-poster/internal/ffmpeg"
	"github.com/ZacxDev/dealer-poster/internal/imageio"
	"github.com/ZacxDev/dealer-poster/internal/layout"
)

type State int

const (
	Idle State = iota
	Preparing
	Recording
	Finalizing
	Completed
	Cancelled
	Failed
)

var stateNames = [...]string{"idle", "preparing", "recording", "finalizing", "completed", "cancelled", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == Completed || s == Cancelled || s == Failed
}

// Request is everything one recording needs.
type Request struct {
	Video      Video
	Branding   config.BrandingConfig
	Attributes config.VehicleAttributes
	Logo       image.Image

	// TrimEnd caps the reel length; zero or negative means no trim.
	TrimEnd      time.Duration
	FrameRate    int
	IncludeAudio bool

	// OnProgress, when set, is called from the recording goroutine after
	// every submitted frame.
	OnProgress func(float64)
}

// Recorder is a single-use recording state machine. Record blocks; every
// other method may be called from any goroutine.
type Recorder struct {
	rc       *layout.RenderContext
	encoders Encoders
	log      zerolog.Logger
	now      func() time.Time

	mu        sync.Mutex
	state     State
	used      bool
	cancelled bool
	cancel    context.CancelFunc
	progress  float64
	frames    int

	// submit is held around every frame submission so Cancel can wait out
	// one in flight.
	submit sync.Mutex
}

func NewRecorder(rc *layout.RenderContext, encoders Encoders, log zerolog.Logger) *Recorder {
	return &Recorder{
		rc:       rc,
		encoders: encoders,
		log:      log.With().Str("component", "recorder").Logger(),
		now:      time.Now,
	}
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Progress is elapsed source time over the target duration, in [0, 1].
func (r *Recorder) Progress() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

// Frames is the number of frames submitted to the encoder.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Cancel stops the recording. Once it returns no further frame is
// submitted. A Cancel before Record makes Record return ErrCancelled
// without starting; after a terminal state it is a no-op.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	if r.state == Idle && !r.used {
		r.cancelled = true
		r.mu.Unlock()
		return
	}
	active := r.state == Preparing || r.state == Recording
	if active && !r.cancelled {
		r.cancelled = true
		if r.cancel != nil {
			r.cancel()
		}
		r.log.Debug().Stringer("state", r.state).Msg("cancel requested")
	}
	r.mu.Unlock()

	if active {
		// Wait out a submission already past its cancellation check.
		r.submit.Lock()
		r.submit.Unlock()
	}
}

func (r *Recorder) isCancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

func (r *Recorder) setState(s State) {
	r.mu.Lock()
	prev := r.state
	r.state = s
	r.mu.Unlock()
	r.log.Debug().Stringer("from", prev).Stringer("to", s).Msg("recorder state")
}

// plan is the outcome of Preparing.
type plan struct {
	meta    *ffmpeg.VideoMetadata
	target  time.Duration
	fps     int
	codec   ffmpeg.Codec
	audio   string
	overlay *layout.Overlay
}

// Record runs the whole recording and returns the finished reel. A recorder
// runs at most once.
func (r *Recorder) Record(ctx context.Context, req Request) (*domain.GeneratedAsset, error) {
	const op = "reel.Record"

	r.mu.Lock()
	if r.used {
		r.mu.Unlock()
		return nil, domain.Validation(op, domain.ErrRecorderUsed)
	}
	r.used = true
	if r.cancelled {
		r.state = Cancelled
		r.mu.Unlock()
		r.log.Debug().Stringer("to", Cancelled).Msg("recorder state")
		return nil, domain.E(domain.KindCancelled, op, domain.ErrCancelled)
	}
	r.state = Preparing
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()
	defer cancel()
	r.log.Debug().Stringer("to", Preparing).Msg("recorder state")

	if err := validate(req); err != nil {
		r.setState(Failed)
		return nil, err
	}

	p, err := r.prepare(ctx, req)
	if err != nil {
		return nil, r.fail(ctx, op, err)
	}

	r.setState(Recording)
	src, enc, err := r.record(ctx, req, p)
	if err != nil {
		if enc != nil {
			_ = enc.Abort()
		}
		if src != nil {
			_ = src.Close()
		}
		return nil, r.fail(ctx, op, err)
	}

	r.setState(Finalizing)
	return r.finalize(ctx, req, p, src, enc)
}

func validate(req Request) error {
	const op = "reel.Record"
	if req.Video == nil {
		return domain.Validation(op, domain.ErrMissingSource)
	}
	if req.Logo == nil {
		return domain.Validation(op, domain.ErrMissingLogo)
	}
	if err := req.Attributes.Validate(); err != nil {
		return domain.InvalidAttributes(op, err)
	}
	if req.FrameRate != 0 && !slices.Contains(config.SupportedFrameRates, req.FrameRate) {
		return domain.Validation(op, errors.Errorf("frame rate %d not in %v", req.FrameRate, config.SupportedFrameRates))
	}
	return nil
}

// fail records the terminal state for err. Cancellation wins over whatever
// error it caused downstream.
func (r *Recorder) fail(ctx context.Context, op string, err error) error {
	if r.isCancelled() || ctx.Err() != nil {
		r.setState(Cancelled)
		return domain.E(domain.KindCancelled, op, domain.ErrCancelled)
	}
	r.setState(Failed)
	r.log.Warn().Err(err).Msg("recording failed")
	return err
}

// TargetDuration is min(trimEnd, min(30s, source)); trimEnd <= 0 means no
// trim.
func TargetDuration(trimEnd, source time.Duration) time.Duration {
	d := min(config.MaxReelDuration, source)
	if trimEnd > 0 && trimEnd < d {
		d = trimEnd
	}
	return d
}

func (r *Recorder) prepare(ctx context.Context, req Request) (*plan, error) {
	const op = "reel.prepare"

	meta, err := req.Video.Info(ctx)
	if err != nil {
		return nil, domain.Decode(op, err)
	}
	if meta.Duration <= 0 || meta.Width <= 0 || meta.Height <= 0 {
		return nil, domain.Decode(op, errors.Errorf("unusable clip: %s %dx%d", meta.Duration, meta.Width, meta.Height))
	}

	p := &plan{
		meta:   meta,
		target: TargetDuration(req.TrimEnd, meta.Duration),
		fps:    req.FrameRate,
	}
	if p.fps == 0 {
		p.fps = config.DefaultFrameRate
	}

	p.codec, err = r.encoders.Negotiate(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.E(domain.KindEncoderUnavailable, op, errors.Wrap(domain.ErrNoSupportedEncoder, err.Error()))
	}

	if req.IncludeAudio && meta.HasAudio {
		if p.audio, err = req.Video.AudioPath(ctx); err != nil {
			r.log.Warn().Err(err).Msg("audio track unavailable; recording without audio")
			p.audio = ""
		}
	}

	p.overlay, err = r.rc.BuildOverlay(layout.ReelTarget, req.Branding, req.Attributes, req.Logo)
	if err != nil {
		return nil, domain.Capture(op, err)
	}

	r.log.Info().
		Dur("source", meta.Duration).
		Dur("target", p.target).
		Int("fps", p.fps).
		Str("codec", p.codec.MIME).
		Bool("audio", p.audio != "").
		Msg("recording prepared")
	return p, nil
}

// record runs the frame loop. It returns the still-open source and encoder
// for finalize, or an error after which the caller releases whichever of the
// two is non-nil.
func (r *Recorder) record(ctx context.Context, req Request, p *plan) (FrameSource, Encoder, error) {
	const op = "reel.record"
	t := layout.ReelTarget
	interval := time.Second / time.Duration(p.fps)

	src, err := req.Video.Play(ctx, ffmpeg.PlayOptions{
		FrameRate:   p.fps,
		Limit:       p.target + interval,
		CoverWidth:  t.Width,
		CoverHeight: t.Height,
	})
	if err != nil {
		return nil, nil, domain.Capture(op, errors.Wrap(err, "start playback"))
	}

	enc, err := r.encoders.OpenEncoder(ctx, ffmpeg.EncodeParams{
		Codec:     p.codec,
		Width:     t.Width,
		Height:    t.Height,
		FrameRate: p.fps,
		AudioPath: p.audio,
		Duration:  p.target,
	})
	if err != nil {
		return src, nil, domain.Capture(op, errors.Wrap(err, "open encoder"))
	}

	surface := r.rc.AcquireSurface(t.Width, t.Height)
	defer r.rc.ReleaseSurface(surface)

	var (
		start, last time.Duration
		started     bool
		reported    = -1
	)
	for {
		if r.isCancelled() {
			return src, enc, nil
		}
		frame, err := src.Next(ctx)
		if err == io.EOF {
			return src, enc, nil
		}
		if err != nil {
			return src, enc, domain.Capture(op, errors.Wrap(err, "read frame"))
		}

		if !started {
			start, last, started = frame.Timestamp, frame.Timestamp-1, true
		}
		if frame.Timestamp <= last {
			continue
		}
		elapsed := frame.Timestamp - start
		if elapsed > p.target {
			return src, enc, nil
		}

		submitted, err := r.submitFrame(enc, surface, frame, p.overlay)
		if err != nil {
			return src, enc, domain.Capture(op, errors.Wrap(err, "encode frame"))
		}
		if !submitted {
			return src, enc, nil
		}
		last = frame.Timestamp

		progress := config.Clamp(float64(elapsed)/float64(p.target), 0, 1)
		r.mu.Lock()
		r.progress = progress
		r.mu.Unlock()
		if req.OnProgress != nil {
			req.OnProgress(progress)
		}
		if step := int(progress * 10); step > reported {
			reported = step
			r.log.Debug().Float64("progress", progress).Int("frames", r.Frames()).Msg("recording")
		}

		if elapsed >= p.target {
			return src, enc, nil
		}
	}
}

// submitFrame composites and encodes one frame unless cancellation got there
// first.
func (r *Recorder) submitFrame(enc Encoder, surface *image.RGBA, frame ffmpeg.Frame, ov *layout.Overlay) (bool, error) {
	r.submit.Lock()
	defer r.submit.Unlock()
	if r.isCancelled() {
		return false, nil
	}
	r.rc.RenderFrame(surface, frame.Image, ov)
	if err := enc.WriteFrame(surface); err != nil {
		return false, err
	}
	r.mu.Lock()
	r.frames++
	r.mu.Unlock()
	return true, nil
}

func (r *Recorder) finalize(ctx context.Context, req Request, p *plan, src FrameSource, enc Encoder) (*domain.GeneratedAsset, error) {
	const op = "reel.finalize"

	if err := src.Close(); err != nil {
		r.log.Debug().Err(err).Msg("close playback")
	}

	if r.isCancelled() || ctx.Err() != nil {
		_ = enc.Abort()
		r.setState(Cancelled)
		r.log.Info().Int("frames", r.Frames()).Msg("recording cancelled")
		return nil, domain.E(domain.KindCancelled, op, domain.ErrCancelled)
	}

	data, err := enc.Finish()
	if err != nil {
		return nil, r.fail(ctx, op, domain.Capture(op, err))
	}

	thumb := r.thumbnail(ctx, req.Video, p.meta)

	r.mu.Lock()
	r.progress = 1
	r.mu.Unlock()
	r.setState(Completed)

	now := r.now()
	asset := &domain.GeneratedAsset{
		ID:            fmt.Sprintf("reel-%d", now.UnixMilli()),
		Kind:          domain.AssetReel,
		Data:          data,
		ContentType:   p.codec.ContentType(),
		Ext:           p.codec.Ext,
		Codec:         p.codec.MIME,
		Caption:       caption.Build(req.Attributes),
		Thumbnail:     thumb,
		ThumbnailType: "image/jpeg",
		CreatedAt:     now,
	}
	r.log.Info().
		Str("id", asset.ID).
		Int("frames", r.Frames()).
		Int("bytes", len(data)).
		Msg("reel recorded")
	return asset, nil
}

// thumbnail grabs the poster frame and cover-fits it. Failure falls back to
// a black frame.
func (r *Recorder) thumbnail(ctx context.Context, v Video, meta *ffmpeg.VideoMetadata) []byte {
	offset := config.ReelPosterFrameOffset
	if last := meta.Duration - 100*time.Millisecond; offset > last {
		offset = max(last, 0)
	}

	still, err := v.StillAt(ctx, offset)
	if err != nil {
		r.log.Warn().Err(err).Msg("thumbnail grab failed; using black frame")
		still = nil
	}
	img := r.rc.CoverFit(still, config.ReelThumbnailWidth, config.ReelThumbnailHeight)
	data, err := imageio.EncodeJPEG(img, config.ReelThumbnailQuality)
	if err != nil {
		r.log.Warn().Err(err).Msg("thumbnail encode failed")
		return nil
	}
	return data
}
