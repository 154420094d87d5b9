package ffmpeg

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/ZacxDev/dealer-poster/internal/config"
)

// EncodeParams describes one reel encode.
type EncodeParams struct {
	Codec     Codec
	Width     int
	Height    int
	FrameRate int

	// AudioPath, when set, is muxed in as the audio track, cut to Duration.
	AudioPath string
	Duration  time.Duration
}

// Encoder feeds raw RGBA frames to an ffmpeg process writing into a
// temporary file.
type Encoder struct {
	log       zerolog.Logger
	params    EncodeParams
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stderr    stderrBuffer
	dir       string
	out       string
	frameSize int
	frames    int

	waitErr chan error
	stop    func() bool
	once    sync.Once
}

// OpenEncoder starts ffmpeg for params. The process is killed if ctx is
// cancelled before Finish.
func (p *Processor) OpenEncoder(ctx context.Context, params EncodeParams) (*Encoder, error) {
	if params.Width <= 0 || params.Height <= 0 || params.FrameRate <= 0 {
		return nil, errors.Errorf("invalid encoder geometry %dx%d@%d", params.Width, params.Height, params.FrameRate)
	}
	dir, err := os.MkdirTemp("", config.TempDirPrefix)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create temp directory")
	}

	e := &Encoder{
		log:       p.log,
		params:    params,
		dir:       dir,
		out:       filepath.Join(dir, "reel."+params.Codec.Ext),
		frameSize: params.Width * params.Height * 4,
		waitErr:   make(chan error, 1),
	}

	streams := []*ffmpeg.Stream{
		ffmpeg.Input("pipe:", ffmpeg.KwArgs{
			"format":    "rawvideo",
			"pix_fmt":   "rgba",
			"s":         fmt.Sprintf("%dx%d", params.Width, params.Height),
			"framerate": params.FrameRate,
		}),
	}

	outputKwargs := ffmpeg.KwArgs{
		"c:v":     params.Codec.VideoCodec,
		"pix_fmt": "yuv420p",
		"r":       params.FrameRate,
		"threads": GetOptimalThreadCount(),
		"f":       params.Codec.Format,
	}
	for k, v := range params.Codec.Presets {
		outputKwargs[k] = v
	}
	if params.AudioPath != "" {
		audioKwargs := ffmpeg.KwArgs{}
		if params.Duration > 0 {
			audioKwargs["t"] = seconds(params.Duration)
		}
		streams = append(streams, ffmpeg.Input(params.AudioPath, audioKwargs).Audio())
		outputKwargs["c:a"] = params.Codec.AudioCodec
		outputKwargs["b:a"] = "128k"
	}

	cmd := ffmpeg.Output(streams, e.out, outputKwargs).
		OverWriteOutput().
		WithErrorOutput(&e.stderr).
		Compile()
	e.cmd = cmd

	stdin, err := cmd.StdinPipe()
	if err != nil {
		e.cleanup()
		return nil, errors.Wrap(err, "encoder stdin")
	}
	e.stdin = stdin
	if err := start(ctx, cmd); err != nil {
		e.cleanup()
		return nil, err
	}
	e.stop = context.AfterFunc(ctx, func() { kill(cmd) })
	go func() { e.waitErr <- cmd.Wait() }()

	e.log.Debug().
		Str("mime", params.Codec.MIME).
		Int("fps", params.FrameRate).
		Bool("audio", params.AudioPath != "").
		Str("output", e.out).
		Msg("encoder started")
	return e, nil
}

// WriteFrame submits one frame. img must be exactly Width×Height with its
// origin at zero.
func (e *Encoder) WriteFrame(img *image.RGBA) error {
	b := img.Bounds()
	if b.Min != (image.Point{}) || b.Dx() != e.params.Width || b.Dy() != e.params.Height || img.Stride != 4*b.Dx() {
		return errors.Errorf("frame geometry %v does not match encoder %dx%d", b, e.params.Width, e.params.Height)
	}
	if _, err := e.stdin.Write(img.Pix[:e.frameSize]); err != nil {
		return errors.Wrapf(err, "write frame %d: %s", e.frames, tail(e.stderr.String()))
	}
	e.frames++
	return nil
}

// Frames is the number of frames written so far.
func (e *Encoder) Frames() int { return e.frames }

// Finish flushes the encoder and returns the encoded file.
func (e *Encoder) Finish() ([]byte, error) {
	var (
		data []byte
		err  = errors.New("encoder already closed")
	)
	e.once.Do(func() {
		defer e.cleanup()
		_ = e.stdin.Close()
		werr := <-e.waitErr
		e.stop()
		if werr != nil {
			err = errors.Wrapf(werr, "encoder failed: %s", tail(e.stderr.String()))
			return
		}
		data, err = os.ReadFile(e.out)
		if err != nil {
			err = errors.Wrap(err, "read encoded reel")
			return
		}
		e.log.Debug().Int("frames", e.frames).Int("bytes", len(data)).Msg("encoder finished")
	})
	return data, err
}

// Abort kills the encoder and discards its output. Safe to call after
// Finish.
func (e *Encoder) Abort() error {
	e.once.Do(func() {
		defer e.cleanup()
		kill(e.cmd)
		_ = e.stdin.Close()
		<-e.waitErr
		e.stop()
		e.log.Debug().Int("frames", e.frames).Msg("encoder aborted")
	})
	return nil
}

func (e *Encoder) cleanup() {
	if err := os.RemoveAll(e.dir); err != nil {
		e.log.Warn().Err(err).Str("dir", e.dir).Msg("failed to remove encoder temp dir")
	}
}
