package reel

import (
	"context"
	"image"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZacxDev/dealer-poster/internal/config"
	"github.com/ZacxDev/dealer-poster/internal/domain"
	"github.com/ZacxDev/dealer-poster/internal/ffmpeg"
	"github.com/ZacxDev/dealer-poster/internal/layout"
)

var renderContext = layout.MustRenderContext()

type fakeSource struct {
	fps       int
	n         int
	i         int
	duplicate bool
	frame     *image.RGBA
	closed    bool
	maxTS     time.Duration
}

func (s *fakeSource) Next(ctx context.Context) (ffmpeg.Frame, error) {
	if err := ctx.Err(); err != nil {
		return ffmpeg.Frame{}, err
	}
	if s.i >= s.n {
		return ffmpeg.Frame{}, io.EOF
	}
	idx := s.i
	if s.duplicate {
		idx = s.i / 2
	}
	s.i++
	ts := time.Duration(idx) * time.Second / time.Duration(s.fps)
	s.maxTS = max(s.maxTS, ts)
	return ffmpeg.Frame{Image: s.frame, Timestamp: ts}, nil
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

type fakeVideo struct {
	meta      ffmpeg.VideoMetadata
	infoErr   error
	stillErr  error
	audioErr  error
	duplicate bool
	source    *fakeSource
	playOpts  ffmpeg.PlayOptions
}

func (v *fakeVideo) Info(context.Context) (*ffmpeg.VideoMetadata, error) {
	if v.infoErr != nil {
		return nil, v.infoErr
	}
	m := v.meta
	return &m, nil
}

func (v *fakeVideo) Play(_ context.Context, opts ffmpeg.PlayOptions) (FrameSource, error) {
	v.playOpts = opts
	total := int(v.meta.Duration * time.Duration(opts.FrameRate) / time.Second)
	if v.duplicate {
		total *= 2
	}
	img := image.NewRGBA(image.Rect(0, 0, 16, 9))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	v.source = &fakeSource{fps: opts.FrameRate, n: total, duplicate: v.duplicate, frame: img}
	return v.source, nil
}

func (v *fakeVideo) StillAt(context.Context, time.Duration) (image.Image, error) {
	if v.stillErr != nil {
		return nil, v.stillErr
	}
	return whiteImage(64, 36), nil
}

func (v *fakeVideo) AudioPath(context.Context) (string, error) {
	if v.audioErr != nil {
		return "", v.audioErr
	}
	return "clip.mp4", nil
}

type fakeEncoder struct {
	mu       sync.Mutex
	frames   int
	failAt   int
	finished bool
	aborted  bool
}

func (e *fakeEncoder) WriteFrame(img *image.RGBA) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if img.Bounds() != layout.ReelTarget.Bounds() {
		return errors.New("wrong frame size")
	}
	if e.failAt > 0 && e.frames == e.failAt {
		return errors.New("pipe closed")
	}
	e.frames++
	return nil
}

func (e *fakeEncoder) Finish() ([]byte, error) {
	e.finished = true
	return []byte("reel-bytes"), nil
}

func (e *fakeEncoder) Abort() error {
	e.aborted = true
	return nil
}

type fakeEncoders struct {
	negotiateErr error
	onNegotiate  func()
	enc          *fakeEncoder
	params       ffmpeg.EncodeParams
}

func (f *fakeEncoders) Negotiate(context.Context) (ffmpeg.Codec, error) {
	if f.onNegotiate != nil {
		f.onNegotiate()
	}
	if f.negotiateErr != nil {
		return ffmpeg.Codec{}, f.negotiateErr
	}
	return ffmpeg.Codecs[0], nil
}

func (f *fakeEncoders) OpenEncoder(_ context.Context, params ffmpeg.EncodeParams) (Encoder, error) {
	f.params = params
	if f.enc == nil {
		f.enc = &fakeEncoder{}
	}
	return f.enc, nil
}

func whiteImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

func newVideo(d time.Duration) *fakeVideo {
	return &fakeVideo{meta: ffmpeg.VideoMetadata{Duration: d, Width: 1920, Height: 1080, HasAudio: true}}
}

func newRequest(v Video) Request {
	return Request{
		Video:      v,
		Branding:   config.DefaultBranding(),
		Attributes: config.VehicleAttributes{Brand: "Honda", Model: "City", Price: "500000"},
		Logo:       whiteImage(8, 8),
		FrameRate:  24,
	}
}

func newRecorder(enc *fakeEncoders) *Recorder {
	return NewRecorder(renderContext, enc, zerolog.Nop())
}

func TestRecordCompletes(t *testing.T) {
	video := newVideo(10 * time.Second)
	encs := &fakeEncoders{}
	rec := newRecorder(encs)
	req := newRequest(video)
	req.TrimEnd = 2 * time.Second

	var progress []float64
	req.OnProgress = func(p float64) { progress = append(progress, p) }

	asset, err := rec.Record(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, asset)

	assert.Equal(t, Completed, rec.State())
	assert.Equal(t, 1.0, rec.Progress())
	assert.Equal(t, 49, rec.Frames())
	assert.Equal(t, 49, encs.enc.frames)
	assert.InDelta(t, 2.0, float64(rec.Frames())/24, 1.0/24+1e-9)

	assert.True(t, encs.enc.finished)
	assert.False(t, encs.enc.aborted)
	assert.True(t, video.source.closed)
	assert.LessOrEqual(t, video.source.maxTS, 2*time.Second+time.Second/24)

	assert.Regexp(t, `^reel-\d+$`, asset.ID)
	assert.Equal(t, domain.AssetReel, asset.Kind)
	assert.Equal(t, "video/mp4", asset.ContentType)
	assert.Equal(t, "mp4", asset.Ext)
	assert.Equal(t, ffmpeg.Codecs[0].MIME, asset.Codec)
	assert.Equal(t, "Honda City | ₹500000", asset.Caption)
	assert.Equal(t, []byte("reel-bytes"), asset.Data)
	assert.Equal(t, []byte{0xff, 0xd8}, asset.Thumbnail[:2])

	require.NotEmpty(t, progress)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
	assert.Equal(t, 1.0, progress[len(progress)-1])

	assert.Equal(t, 24, encs.params.FrameRate)
	assert.Equal(t, 2*time.Second, encs.params.Duration)
	assert.Equal(t, 24, video.playOpts.FrameRate)
}

func TestRecordStopsAtEndOfStream(t *testing.T) {
	video := newVideo(time.Second)
	encs := &fakeEncoders{}
	rec := newRecorder(encs)

	_, err := rec.Record(context.Background(), newRequest(video))
	require.NoError(t, err)
	assert.Equal(t, 24, rec.Frames())
	assert.Equal(t, Completed, rec.State())
}

func TestRecordSkipsNonIncreasingTimestamps(t *testing.T) {
	video := newVideo(time.Second)
	video.duplicate = true
	rec := newRecorder(&fakeEncoders{})

	_, err := rec.Record(context.Background(), newRequest(video))
	require.NoError(t, err)
	assert.Equal(t, 24, rec.Frames())
}

func TestTargetDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, TargetDuration(0, 45*time.Second))
	assert.Equal(t, 30*time.Second, TargetDuration(40*time.Second, 45*time.Second))
	assert.Equal(t, 12*time.Second, TargetDuration(15*time.Second, 12*time.Second))
	assert.Equal(t, 5*time.Second, TargetDuration(5*time.Second, 12*time.Second))
	assert.Equal(t, 12*time.Second, TargetDuration(-time.Second, 12*time.Second))
}

func TestCancelAtAnyPoint(t *testing.T) {
	for _, at := range []float64{0, 0.25, 0.5, 0.9} {
		t.Run("", func(t *testing.T) {
			video := newVideo(2 * time.Second)
			encs := &fakeEncoders{}
			rec := newRecorder(encs)
			req := newRequest(video)

			var atCancel int
			req.OnProgress = func(p float64) {
				if p >= at && atCancel == 0 {
					rec.Cancel()
					atCancel = rec.Frames()
				}
			}

			asset, err := rec.Record(context.Background(), req)
			assert.Nil(t, asset)
			require.Error(t, err)
			assert.True(t, domain.IsKind(err, domain.KindCancelled))
			assert.ErrorIs(t, err, domain.ErrCancelled)

			assert.Equal(t, Cancelled, rec.State())
			assert.Equal(t, atCancel, rec.Frames(), "no frame after cancel")
			assert.True(t, encs.enc.aborted)
			assert.False(t, encs.enc.finished)
			assert.True(t, video.source.closed)
		})
	}
}

func TestCancelFromAnotherGoroutine(t *testing.T) {
	video := newVideo(10 * time.Second)
	encs := &fakeEncoders{}
	rec := newRecorder(encs)
	req := newRequest(video)

	reached := make(chan struct{})
	var once sync.Once
	req.OnProgress = func(p float64) {
		if p > 0.1 {
			once.Do(func() { close(reached) })
		}
	}

	done := make(chan error, 1)
	go func() {
		_, err := rec.Record(context.Background(), req)
		done <- err
	}()

	<-reached
	rec.Cancel()
	frozen := rec.Frames()

	err := <-done
	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.Equal(t, frozen, rec.Frames())
	assert.Equal(t, Cancelled, rec.State())
	assert.True(t, encs.enc.aborted)
}

func TestCancelDuringPreparing(t *testing.T) {
	video := newVideo(2 * time.Second)
	encs := &fakeEncoders{}
	rec := newRecorder(encs)
	encs.onNegotiate = rec.Cancel

	_, err := rec.Record(context.Background(), newRequest(video))
	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.Equal(t, Cancelled, rec.State())
	assert.Zero(t, rec.Frames())
}

func TestCancelBeforeRecordIsHonoured(t *testing.T) {
	negotiated := false
	encs := &fakeEncoders{onNegotiate: func() { negotiated = true }}
	rec := newRecorder(encs)

	rec.Cancel()
	assert.Equal(t, Idle, rec.State())

	asset, err := rec.Record(context.Background(), newRequest(newVideo(time.Second)))
	assert.Nil(t, asset)
	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.True(t, domain.IsKind(err, domain.KindCancelled))
	assert.Equal(t, Cancelled, rec.State())
	assert.False(t, negotiated)
	assert.Nil(t, encs.enc)

	_, err = rec.Record(context.Background(), newRequest(newVideo(time.Second)))
	assert.ErrorIs(t, err, domain.ErrRecorderUsed)
}

func TestCancelIsNoopAfterCompletion(t *testing.T) {
	rec := newRecorder(&fakeEncoders{})
	_, err := rec.Record(context.Background(), newRequest(newVideo(time.Second)))
	require.NoError(t, err)
	rec.Cancel()
	rec.Cancel()
	assert.Equal(t, Completed, rec.State())
}

func TestRecorderIsSingleUse(t *testing.T) {
	rec := newRecorder(&fakeEncoders{})
	_, err := rec.Record(context.Background(), newRequest(newVideo(time.Second)))
	require.NoError(t, err)

	_, err = rec.Record(context.Background(), newRequest(newVideo(time.Second)))
	assert.ErrorIs(t, err, domain.ErrRecorderUsed)
	assert.Equal(t, Completed, rec.State())
}

func TestRecordValidation(t *testing.T) {
	cases := map[string]struct {
		mutate func(*Request)
		want   error
	}{
		"missing logo":   {func(r *Request) { r.Logo = nil }, domain.ErrMissingLogo},
		"missing video":  {func(r *Request) { r.Video = nil }, domain.ErrMissingSource},
		"bad attributes": {func(r *Request) { r.Attributes.Price = "lots" }, domain.ErrInvalidAttributes},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			encs := &fakeEncoders{}
			rec := newRecorder(encs)
			req := newRequest(newVideo(time.Second))
			tc.mutate(&req)

			asset, err := rec.Record(context.Background(), req)
			assert.Nil(t, asset)
			assert.True(t, domain.IsKind(err, domain.KindValidation))
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, Failed, rec.State())
			assert.Nil(t, encs.enc, "nothing opened")
		})
	}

	req := newRequest(newVideo(time.Second))
	req.FrameRate = 25
	_, err := newRecorder(&fakeEncoders{}).Record(context.Background(), req)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestRecordEncoderUnavailable(t *testing.T) {
	video := newVideo(time.Second)
	encs := &fakeEncoders{negotiateErr: errors.New("no codecs")}
	rec := newRecorder(encs)

	_, err := rec.Record(context.Background(), newRequest(video))
	assert.True(t, domain.IsKind(err, domain.KindEncoderUnavailable))
	assert.ErrorIs(t, err, domain.ErrNoSupportedEncoder)
	assert.Equal(t, Failed, rec.State())
	assert.Nil(t, video.source, "playback never started")
}

func TestRecordDecodeError(t *testing.T) {
	video := newVideo(time.Second)
	video.infoErr = errors.New("moov atom not found")
	rec := newRecorder(&fakeEncoders{})

	_, err := rec.Record(context.Background(), newRequest(video))
	assert.True(t, domain.IsKind(err, domain.KindDecode))
	assert.Equal(t, Failed, rec.State())

	zero := newVideo(0)
	_, err = newRecorder(&fakeEncoders{}).Record(context.Background(), newRequest(zero))
	assert.True(t, domain.IsKind(err, domain.KindDecode))
}

func TestRecordCaptureErrorReleasesResources(t *testing.T) {
	video := newVideo(time.Second)
	encs := &fakeEncoders{enc: &fakeEncoder{failAt: 3}}
	rec := newRecorder(encs)

	asset, err := rec.Record(context.Background(), newRequest(video))
	assert.Nil(t, asset)
	assert.True(t, domain.IsKind(err, domain.KindCapture))
	assert.Equal(t, Failed, rec.State())
	assert.Equal(t, 3, rec.Frames())
	assert.True(t, encs.enc.aborted)
	assert.True(t, video.source.closed)
}

func TestRecordAudio(t *testing.T) {
	video := newVideo(time.Second)
	encs := &fakeEncoders{}
	req := newRequest(video)
	req.IncludeAudio = true

	_, err := newRecorder(encs).Record(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "clip.mp4", encs.params.AudioPath)

	// Failure to obtain audio records silently.
	video = newVideo(time.Second)
	video.audioErr = errors.New("no track")
	encs = &fakeEncoders{}
	req = newRequest(video)
	req.IncludeAudio = true

	asset, err := newRecorder(encs).Record(context.Background(), req)
	require.NoError(t, err)
	assert.NotNil(t, asset)
	assert.Empty(t, encs.params.AudioPath)
}

func TestThumbnailFailureIsNotFatal(t *testing.T) {
	video := newVideo(time.Second)
	video.stillErr = errors.New("seek failed")

	asset, err := newRecorder(&fakeEncoders{}).Record(context.Background(), newRequest(video))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8}, asset.Thumbnail[:2])
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "recording", Recording.String())
	assert.True(t, Cancelled.Terminal())
	assert.False(t, Finalizing.Terminal())
}
