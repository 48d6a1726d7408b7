package main

import (
	"github.com/spf13/cobra"

	"github.com/raoulx24/media-mirror/internal/config"
)

// runOnce mirrors the source once and prints the summary. Failed jobs do not
// change the exit status; they are listed in the summary.
func runOnce(cmd *cobra.Command, cfg *config.Config) error {
	a, err := newApp(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	sum, err := a.mirror(cmd.Context())
	if err != nil {
		return err
	}

	_, werr := cmd.OutOrStdout().Write([]byte(renderSummary(sum) + "\n"))
	return werr
}
