package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// implements file copying with retry and source-change detection.
// A copy is aborted if the source file changes between attempts, and the
// written length must match the source length observed before the copy.

var ErrSourceChanged = errors.New("source changed during copy")

func copyWithRetry(ctx context.Context, f FS, src, dst string) error {
	orig, err := f.Stat(src)
	if err != nil {
		return err
	}

	return retry(ctx, "copy", func() error {
		now, err := f.Stat(src)
		if err != nil {
			return err
		}

		if sourceChanged(orig, now) {
			return ErrSourceChanged
		}

		return copyOnce(ctx, src, dst, orig.Size)
	})
}

func sourceChanged(orig, now FileInfo) bool {
	if now.Inode != 0 && orig.Inode != 0 && now.Inode != orig.Inode {
		return true
	}
	if now.MTime.After(orig.MTime) {
		return true
	}
	if now.Size != orig.Size {
		return true
	}
	return false
}

func copyOnce(ctx context.Context, src, dst string, want int64) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	written, err := io.Copy(out, &ctxReader{ctx: ctx, r: in})
	if err != nil {
		return err
	}
	if written != want {
		return fmt.Errorf("%w: expected %d bytes, copied %d", ErrSourceChanged, want, written)
	}

	return out.Sync()
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
