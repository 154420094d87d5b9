package reel

import (
	"context"
	"image"
	"time"

	"github.com/ZacxDev/dealer-poster/internal/ffmpeg"
)

// Video is a decodable source clip.
type Video interface {
	Info(ctx context.Context) (*ffmpeg.VideoMetadata, error)
	// Play starts playback; frames arrive in presentation order.
	Play(ctx context.Context, opts ffmpeg.PlayOptions) (FrameSource, error)
	StillAt(ctx context.Context, offset time.Duration) (image.Image, error)
	// AudioPath names an input the encoder can take the audio track from.
	AudioPath(ctx context.Context) (string, error)
}

// FrameSource is a finite, non-restartable frame sequence. Next returns
// io.EOF once exhausted.
type FrameSource interface {
	Next(ctx context.Context) (ffmpeg.Frame, error)
	Close() error
}

// Encoder accepts composited frames in order and produces one media blob.
type Encoder interface {
	WriteFrame(img *image.RGBA) error
	Finish() ([]byte, error)
	Abort() error
}

// Encoders negotiates a codec and opens encoders for it.
type Encoders interface {
	Negotiate(ctx context.Context) (ffmpeg.Codec, error)
	OpenEncoder(ctx context.Context, params ffmpeg.EncodeParams) (Encoder, error)
}

// FromClip exposes an ffmpeg clip as a Video.
func FromClip(c *ffmpeg.Clip) Video { return clipVideo{c} }

type clipVideo struct{ *ffmpeg.Clip }

func (v clipVideo) Play(ctx context.Context, opts ffmpeg.PlayOptions) (FrameSource, error) {
	p, err := v.Clip.Play(ctx, opts)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FromProcessor exposes an ffmpeg processor as Encoders.
func FromProcessor(p *ffmpeg.Processor) Encoders { return processorEncoders{p} }

type processorEncoders struct{ *ffmpeg.Processor }

func (e processorEncoders) OpenEncoder(ctx context.Context, params ffmpeg.EncodeParams) (Encoder, error) {
	enc, err := e.Processor.OpenEncoder(ctx, params)
	if err != nil {
		return nil, err
	}
	return enc, nil
}
