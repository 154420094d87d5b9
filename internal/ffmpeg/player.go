package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"time"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/ZacxDev/dealer-poster/internal/imageio"
)

// Frame is one decoded video frame and its presentation time from the start
// of playback.
type Frame struct {
	Image     *image.RGBA
	Timestamp time.Duration
}

// PlayOptions controls decoding.
type PlayOptions struct {
	FrameRate int
	// Limit stops decoding after this much playback; zero decodes to the end.
	Limit time.Duration
	// Frames are downscaled, never upscaled, to the smallest size still
	// covering CoverWidth×CoverHeight.
	CoverWidth  int
	CoverHeight int
}

// Player decodes a clip into raw RGBA frames at a fixed rate. Timestamps are
// index/fps, so sampling is exact regardless of wall-clock speed.
type Player struct {
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	stderr  stderrBuffer
	frame   *image.RGBA
	fps     int
	index   int
	waitErr chan error
	stop    func() bool
	done    bool
}

// Play starts decoding inputPath. The returned player owns an ffmpeg process
// until Close.
func (p *Processor) Play(ctx context.Context, inputPath string, meta *VideoMetadata, opts PlayOptions) (*Player, error) {
	if opts.FrameRate <= 0 {
		return nil, errors.Errorf("invalid frame rate %d", opts.FrameRate)
	}
	w, h := decodeSize(meta.Width, meta.Height, opts.CoverWidth, opts.CoverHeight)

	outputKwargs := ffmpeg.KwArgs{
		"format":  "rawvideo",
		"pix_fmt": "rgba",
		"vf":      fmt.Sprintf("fps=%d,scale=%d:%d:flags=bilinear", opts.FrameRate, w, h),
	}
	if opts.Limit > 0 {
		outputKwargs["t"] = seconds(opts.Limit)
	}

	pl := &Player{
		frame:   image.NewRGBA(image.Rect(0, 0, w, h)),
		fps:     opts.FrameRate,
		waitErr: make(chan error, 1),
	}
	cmd := ffmpeg.Input(inputPath).
		Output("pipe:", outputKwargs).
		WithErrorOutput(&pl.stderr).
		Compile()
	pl.cmd = cmd

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "decoder stdout")
	}
	pl.stdout = stdout
	if err := start(ctx, cmd); err != nil {
		return nil, err
	}
	pl.stop = context.AfterFunc(ctx, func() { kill(cmd) })
	go func() { pl.waitErr <- cmd.Wait() }()

	p.log.Debug().Str("path", inputPath).Int("fps", opts.FrameRate).Int("width", w).Int("height", h).Msg("playback started")
	return pl, nil
}

// Next returns the next frame, or io.EOF once the clip (or the limit) is
// exhausted. The frame's image is reused by the following call.
func (pl *Player) Next(ctx context.Context) (Frame, error) {
	if pl.done {
		return Frame{}, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if _, err := io.ReadFull(pl.stdout, pl.frame.Pix); err != nil {
		pl.done = true
		if ctx.Err() != nil {
			return Frame{}, ctx.Err()
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			if werr := pl.wait(); werr != nil {
				return Frame{}, errors.Wrapf(werr, "decoder failed: %s", tail(pl.stderr.String()))
			}
			return Frame{}, io.EOF
		}
		return Frame{}, errors.Wrap(err, "read frame")
	}
	ts := time.Duration(pl.index) * time.Second / time.Duration(pl.fps)
	pl.index++
	return Frame{Image: pl.frame, Timestamp: ts}, nil
}

// Close stops decoding and reaps the process. Safe to call more than once.
func (pl *Player) Close() error {
	if pl.cmd == nil {
		return nil
	}
	kill(pl.cmd)
	_ = pl.wait()
	pl.cmd = nil
	return nil
}

func (pl *Player) wait() error {
	if pl.waitErr == nil {
		return nil
	}
	err := <-pl.waitErr
	pl.waitErr = nil
	pl.stop()
	return err
}

// decodeSize picks even output dimensions preserving the source aspect. When
// the source is larger than needed it is shrunk to the smallest size that
// still covers the canvas.
func decodeSize(srcW, srcH, coverW, coverH int) (int, int) {
	w, h := srcW, srcH
	if coverW > 0 && coverH > 0 {
		if coverW*srcH >= coverH*srcW {
			if coverW < srcW {
				w, h = coverW, ceilDiv(srcH*coverW, srcW)
			}
		} else if coverH < srcH {
			w, h = ceilDiv(srcW*coverH, srcH), coverH
		}
	}
	return w + w%2, h + h%2
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// StillAt grabs the frame at offset as an image.
func (p *Processor) StillAt(ctx context.Context, inputPath string, offset time.Duration) (image.Image, error) {
	var out, stderr bytes.Buffer
	cmd := ffmpeg.Input(inputPath, ffmpeg.KwArgs{"ss": seconds(offset)}).
		Output("pipe:", ffmpeg.KwArgs{"vframes": 1, "format": "image2", "vcodec": "mjpeg"}).
		WithOutput(&out).
		WithErrorOutput(&stderr).
		Compile()
	if err := runCmd(ctx, cmd); err != nil {
		return nil, errors.Wrapf(err, "grab still at %s: %s", offset, tail(stderr.String()))
	}
	if out.Len() == 0 {
		return nil, errors.Errorf("no frame at %s", offset)
	}
	return imageio.Decode(out.Bytes())
}
