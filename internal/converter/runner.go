package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultOutputLimit = 8 << 10

// Runner spawns an encoder and waits for it to exit.
type Runner interface {
	// Run executes argv and returns the tail of its combined output. A
	// non-zero exit is reported as *EncodeFailure.
	Run(ctx context.Context, argv []string) (string, error)
}

// EncodeFailure is a subprocess that could not be started or exited non-zero.
type EncodeFailure struct {
	Command  string
	ExitCode int
	Output   string
	Err      error
}

func (e *EncodeFailure) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *EncodeFailure) Unwrap() error { return e.Err }

// ExecRunner runs commands with os/exec. stdout and stderr are drained by
// two goroutines so a chatty encoder can never block on a full pipe.
type ExecRunner struct {
	OutputLimit int
	// WaitDelay bounds how long Wait lingers on inherited pipes after the
	// process is killed.
	WaitDelay time.Duration
}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{OutputLimit: defaultOutputLimit, WaitDelay: 10 * time.Second}
}

func (r *ExecRunner) Run(ctx context.Context, argv []string) (string, error) {
	if len(argv) == 0 {
		return "", errors.New("empty command")
	}
	name := strings.Join(argv, " ")

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	setProcessGroup(cmd)
	cmd.WaitDelay = r.WaitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", &EncodeFailure{Command: name, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", &EncodeFailure{Command: name, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return "", &EncodeFailure{Command: name, Err: err}
	}

	out := newTailBuffer(r.OutputLimit)
	var g errgroup.Group
	g.Go(func() error { return drain(out, stdout) })
	g.Go(func() error { return drain(out, stderr) })

	// both pipes must hit EOF before Wait closes them
	drainErr := g.Wait()
	waitErr := cmd.Wait()
	output := out.String()

	if waitErr != nil {
		f := &EncodeFailure{Command: name, Output: output, Err: waitErr}
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			f.ExitCode = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			f.Err = fmt.Errorf("%w (%v)", ctx.Err(), waitErr)
		}
		return output, f
	}
	if drainErr != nil {
		return output, &EncodeFailure{Command: name, Output: output, Err: drainErr}
	}
	return output, nil
}

func drain(w io.Writer, r io.Reader) error {
	_, err := io.Copy(w, r)
	if errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func newTailBuffer(limit int) *tailBuffer {
	if limit <= 0 {
		limit = defaultOutputLimit
	}
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
