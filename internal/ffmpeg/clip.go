package ffmpeg

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Clip is a video file on disk, probed on first use. A probe cut short by
// its context is retried on the next call; any other outcome is kept.
type Clip struct {
	p     *Processor
	path  string
	probe func(ctx context.Context, path string) (*VideoMetadata, error)

	mu     sync.Mutex
	probed bool
	meta   *VideoMetadata
	err    error
}

// Open returns a lazily probed clip for path.
func (p *Processor) Open(path string) *Clip {
	return &Clip{p: p, path: path, probe: p.GetVideoMetadata}
}

func (c *Clip) Path() string { return c.path }

func (c *Clip) Info(ctx context.Context) (*VideoMetadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.probed {
		return c.meta, c.err
	}
	meta, err := c.probe(ctx, c.path)
	if err != nil && ctx.Err() != nil {
		return nil, err
	}
	c.probed, c.meta, c.err = true, meta, err
	return meta, err
}

func (c *Clip) Play(ctx context.Context, opts PlayOptions) (*Player, error) {
	meta, err := c.Info(ctx)
	if err != nil {
		return nil, err
	}
	return c.p.Play(ctx, c.path, meta, opts)
}

// StillAt clamps offset into the clip before grabbing.
func (c *Clip) StillAt(ctx context.Context, offset time.Duration) (image.Image, error) {
	meta, err := c.Info(ctx)
	if err != nil {
		return nil, err
	}
	if last := meta.Duration - 100*time.Millisecond; offset > last {
		offset = last
	}
	if offset < 0 {
		offset = 0
	}
	return c.p.StillAt(ctx, c.path, offset)
}

// AudioPath returns the clip itself as the audio source when it carries a
// track.
func (c *Clip) AudioPath(ctx context.Context) (string, error) {
	meta, err := c.Info(ctx)
	if err != nil {
		return "", err
	}
	if !meta.HasAudio {
		return "", errors.Errorf("%s has no audio track", c.path)
	}
	return c.path, nil
}
