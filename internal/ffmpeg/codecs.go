package ffmpeg

import (
	"bytes"
	"context"
	"strings"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Codec is one entry of the reel encoding chain.
type Codec struct {
	MIME       string
	VideoCodec string
	AudioCodec string
	Format     string
	Ext        string
	Presets    ffmpeg.KwArgs
}

// ContentType is the MIME type without codec parameters.
func (c Codec) ContentType() string {
	if i := strings.IndexByte(c.MIME, ';'); i >= 0 {
		return c.MIME[:i]
	}
	return c.MIME
}

// Codecs is the negotiation order. Baseline H.264 in MP4 first, so reels
// play back everywhere, then the WebM fallbacks.
var Codecs = []Codec{
	{
		MIME:       "video/mp4;codecs=avc1.42E01E,mp4a.40.2",
		VideoCodec: "libx264",
		AudioCodec: "aac",
		Format:     "mp4",
		Ext:        "mp4",
		Presets: ffmpeg.KwArgs{
			"profile:v": "baseline",
			"preset":    "veryfast",
			"crf":       20,
			"movflags":  "+faststart",
			"g":         60,
		},
	},
	{
		MIME:       "video/webm;codecs=vp9",
		VideoCodec: "libvpx-vp9",
		AudioCodec: "libopus",
		Format:     "webm",
		Ext:        "webm",
		Presets: ffmpeg.KwArgs{
			"b:v":      "8M",
			"deadline": "good",
			"cpu-used": 4,
			"row-mt":   1,
		},
	},
	{
		MIME:       "video/webm;codecs=vp8",
		VideoCodec: "libvpx",
		AudioCodec: "libvorbis",
		Format:     "webm",
		Ext:        "webm",
		Presets: ffmpeg.KwArgs{
			"b:v":      "8M",
			"deadline": "good",
			"cpu-used": 4,
		},
	},
}

// Supports reports whether the local ffmpeg can encode c. Results are
// cached per MIME for the processor's lifetime.
func (p *Processor) Supports(ctx context.Context, c Codec) bool {
	p.mu.Lock()
	ok, cached := p.support[c.MIME]
	p.mu.Unlock()
	if cached {
		return ok
	}

	err := p.testCall(ctx, c)
	if ctx.Err() != nil {
		// A cancelled probe says nothing about the encoder.
		return false
	}
	ok = err == nil
	if !ok {
		p.log.Debug().Err(err).Str("mime", c.MIME).Msg("codec unavailable")
	}
	p.mu.Lock()
	p.support[c.MIME] = ok
	p.mu.Unlock()
	return ok
}

// Negotiate returns the first codec of Codecs this machine can encode.
func (p *Processor) Negotiate(ctx context.Context) (Codec, error) {
	for _, c := range Codecs {
		if p.Supports(ctx, c) {
			p.log.Info().Str("mime", c.MIME).Msg("negotiated reel codec")
			return c, nil
		}
		if err := ctx.Err(); err != nil {
			return Codec{}, err
		}
	}
	return Codec{}, errors.New("none of the reel codecs can be encoded")
}

// testEncode pushes a tenth of a second of synthetic audio and video through
// the codec pair into the null muxer.
func (p *Processor) testEncode(ctx context.Context, c Codec) error {
	video := ffmpeg.Input("color=c=black:s=64x64:r=24:d=0.1", ffmpeg.KwArgs{"f": "lavfi"})
	audio := ffmpeg.Input("anullsrc=r=48000:cl=stereo", ffmpeg.KwArgs{"f": "lavfi", "t": 0.1})

	var stderr bytes.Buffer
	cmd := ffmpeg.Output([]*ffmpeg.Stream{video, audio}, "-", ffmpeg.KwArgs{
		"c:v":     c.VideoCodec,
		"c:a":     c.AudioCodec,
		"pix_fmt": "yuv420p",
		"f":       "null",
	}).WithErrorOutput(&stderr).Compile()

	if err := runCmd(ctx, cmd); err != nil {
		return errors.Wrapf(err, "test encode %s/%s: %s", c.VideoCodec, c.AudioCodec, tail(stderr.String()))
	}
	return nil
}

// tail keeps the last line of ffmpeg's stderr, which carries the failure.
func tail(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
