package main

import (
	"github.com/spf13/cobra"

	"romscribe/internal/metadata"
)

type runFlags struct {
	configPath           string
	modelPath            string
	inputDir             string
	outDir               string
	gpuLayers            int
	images               bool
	isolateImageFailures bool
	logLevel             string
	logFormat            string
}

func newRootCommand() *cobra.Command {
	return newRootCommandWith(newCommandContext())
}

func newRootCommandWith(ctx *commandContext) *cobra.Command {
	flags := ctx.flags

	rootCmd := &cobra.Command{
		Use:           "romscribe",
		Short:         "Generate an EmulationStation game list for a ROM directory",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, ctx)
		},
	}

	persistent := rootCmd.PersistentFlags()
	persistent.StringVarP(&flags.configPath, "config", "c", "", "Configuration file path")
	persistent.StringVarP(&flags.modelPath, "modelPath", "m", "", "Path to the GGUF model used for metadata")
	persistent.StringVarP(&flags.inputDir, "inputDir", "i", "", "Directory containing .zip ROM files")
	persistent.StringVarP(&flags.outDir, "outDir", "o", "", "Output directory (deleted and recreated on every run)")
	persistent.IntVarP(&flags.gpuLayers, "gpuLayers", "g", metadata.DefaultGPULayers, "Model layers to offload to the GPU")
	persistent.BoolVar(&flags.images, "images", false, "Generate cover art for every game")
	persistent.BoolVar(&flags.isolateImageFailures, "isolate-image-failures", false, "Skip games whose cover art fails instead of aborting")
	persistent.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	persistent.StringVar(&flags.logFormat, "log-format", "", "Log format (console, json)")

	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
