package fs

import (
	"errors"
	"syscall"
)

// helpers for detecting transient filesystem errors, which decide whether
// an operation retries or fails immediately.

func isTransient(err error) bool {
	return errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.EINTR)
}
