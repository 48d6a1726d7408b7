package main

import (
	"github.com/spf13/cobra"
)

const argsUsage = "<source-dir> <dest-dir> [converter] [encode-parallelism]"

func newRootCommand() *cobra.Command {
	flags := &cliFlags{}

	rootCmd := &cobra.Command{
		Use:   "media-mirror [flags] " + argsUsage,
		Short: "Mirror a media directory, transcoding every file into the destination",
		Long: `media-mirror converts every file of <source-dir> into <dest-dir> with the
selected converter (mencoder or libav), skips files that were already
converted and deletes converted files whose source disappeared.`,
		Args:          cobra.RangeArgs(2, 4),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, flags, args)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true
			return runOnce(cmd, cfg)
		},
	}

	flags.register(rootCmd)
	rootCmd.AddCommand(newWatchCommand(flags))

	return rootCmd
}
