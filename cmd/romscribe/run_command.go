package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"romscribe/internal/diffusion"
	"romscribe/internal/logging"
	"romscribe/internal/metadata"
	"romscribe/internal/notifications"
	"romscribe/internal/workflow"
)

func runGenerate(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateRun(); err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	newMetadata := func() (metadata.Generator, error) {
		return ctx.newMetadata(cfg, logger)
	}
	var newImages workflow.ImageFactory
	if cfg.Images.Enabled {
		newImages = func() (diffusion.Generator, error) {
			return ctx.newImages(cfg, logger)
		}
	}

	runner := workflow.NewRunner(workflow.Options{
		InputDir:             cfg.Paths.InputDir,
		OutputDir:            cfg.Paths.OutputDir,
		Images:               cfg.Images.Enabled,
		IsolateImageFailures: cfg.Images.IsolateFailures,
		ImageParams:          imageParams(cfg),
		OutputSize:           cfg.Images.OutputSize,
		PromptTemplate:       cfg.Images.PromptTemplate,
	}, newMetadata, newImages, logger)

	report, runErr := runner.Run(signalCtx)
	if report != nil {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, renderReport(report, shouldColorize(out)))
	}
	notifyRun(cmd.Context(), notifications.NewService(cfg), cfg.Paths.InputDir, report, runErr, logger)
	return runErr
}

// notifyRun reports the outcome without affecting the exit status.
// Cancelled runs are not reported.
func notifyRun(ctx context.Context, svc notifications.Service, inputDir string, report *workflow.Report, runErr error, logger *slog.Logger) {
	var err error
	switch {
	case errors.Is(runErr, context.Canceled):
		return
	case runErr != nil:
		err = svc.NotifyRunFailed(ctx, runErr, inputDir)
	default:
		err = svc.NotifyRunCompleted(ctx, notifications.RunSummary{
			InputDir:      inputDir,
			Candidates:    report.Candidates,
			Generated:     report.Generated,
			Failed:        report.Failed,
			ImagesWritten: report.ImagesWritten,
			ImageFailures: report.ImageFailures,
			Duration:      report.Duration(),
			DocumentPath:  report.DocumentPath,
		})
	}
	if err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}
