package ffmpeg

import (
	"bytes"
	"context"
	"os/exec"
	"sync"

	"github.com/pkg/errors"
)

// runCmd runs a compiled ffmpeg command to completion, killing it if ctx is
// cancelled first.
func runCmd(ctx context.Context, cmd *exec.Cmd) error {
	if err := start(ctx, cmd); err != nil {
		return err
	}
	defer context.AfterFunc(ctx, func() { kill(cmd) })()
	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(err, "ffmpeg exited")
	}
	return nil
}

func start(ctx context.Context, cmd *exec.Cmd) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "start ffmpeg")
	}
	return nil
}

func kill(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}

// stderrBuffer collects a running process's stderr. exec copies into it from
// its own goroutine, so reads may happen before Wait returns.
type stderrBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *stderrBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *stderrBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
