//go:build !unix

package converter

import "os/exec"

// Without process groups, cancellation kills only the direct child.
func setProcessGroup(*exec.Cmd) {}
