package workflow

import (
	"context"
	"fmt"
	"path/filepath"

	"romscribe/internal/artwork"
	"romscribe/internal/diffusion"
	"romscribe/internal/gamelist"
	"romscribe/internal/logging"
	"romscribe/internal/outdir"
	"romscribe/internal/roms"
	"romscribe/internal/services"
)

// imagePass renders one cover per game in document order. A failure aborts
// the pass unless failures are isolated, in which case the game keeps no
// image reference.
func (r *Runner) imagePass(ctx context.Context, layout outdir.Layout, list *gamelist.List, report *Report) error {
	logger := logging.WithContext(ctx, r.logger)

	gen, err := r.newImages()
	if err != nil {
		return fmt.Errorf("create image generator: %w", err)
	}
	defer func() {
		if err := gen.Close(); err != nil {
			logging.WarnWithContext(logger, "release image generator failed", "generator_close",
				logging.Error(err),
			)
		}
	}()

	logger.Info("loading image generator")
	if err := gen.Open(ctx); err != nil {
		return fmt.Errorf("load image generator: %w", err)
	}
	r.transition(ctx, StateImagePassRunning)

	namer := artwork.NewNamer()
	for i := 0; i < list.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("image pass interrupted: %w", err)
		}
		result := r.renderOne(ctx, gen, layout, namer, i, list.At(i))
		report.add(result)
		if result.Status != StatusFailed {
			continue
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("image pass interrupted: %w", err)
		}
		if !r.opts.IsolateImageFailures {
			for j := i + 1; j < list.Len(); j++ {
				file := filepath.Base(list.At(j).Path)
				report.add(ItemResult{Index: j, File: file, Label: roms.Label(file), Stage: StageImage, Status: StatusSkipped})
			}
			return fmt.Errorf("image pass aborted: %w", result.Err)
		}
	}

	r.transition(ctx, StateImagePassComplete)
	logger.Info("image pass complete",
		logging.Int("written", report.ImagesWritten),
		logging.Int("failed", report.ImageFailures),
	)
	return nil
}

func (r *Runner) renderOne(ctx context.Context, gen diffusion.Generator, layout outdir.Layout, namer *artwork.Namer, index int, game *gamelist.Game) ItemResult {
	file := filepath.Base(game.Path)
	itemCtx := logging.WithStage(logging.WithItem(ctx, file), string(StageImage))
	logger := logging.WithContext(itemCtx, r.logger)
	result := ItemResult{Index: index, File: file, Label: roms.Label(file), Stage: StageImage}

	logger.Info("starting", logging.Int("index", index), logging.String("game", game.Name))
	started := r.now()
	fileName, err := r.render(itemCtx, gen, layout, namer, game, file)
	result.Duration = r.now().Sub(started)
	defer logger.Info("finished", logging.Elapsed(result.Duration))

	if err != nil {
		result.Status = StatusFailed
		result.Err = services.Wrap(services.ErrExternalTool, string(StageImage), "generate", file, err)
		if ctx.Err() == nil {
			logging.ErrorWithContext(logger, "cover art generation failed", "image_generation_failed",
				logging.Error(result.Err),
				logging.String(logging.FieldErrorHint, services.FailureHint(result.Err)),
				logging.Bool("isolated", r.opts.IsolateImageFailures),
			)
		}
		return result
	}
	game.Image = outdir.ImageRef(fileName)
	result.Status = StatusOK
	logger.Info("wrote file", logging.Path(layout.ImagePath(fileName)))
	return result
}

func (r *Runner) render(ctx context.Context, gen diffusion.Generator, layout outdir.Layout, namer *artwork.Namer, game *gamelist.Game, file string) (fileName string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("image generator panicked: %v", rec)
		}
	}()
	prompt := artwork.Prompt(r.opts.PromptTemplate, *game)
	tensor, err := gen.Generate(ctx, prompt, r.opts.ImageParams)
	if err != nil {
		return "", err
	}
	img, err := artwork.Raster(tensor, r.opts.OutputSize)
	if err != nil {
		return "", err
	}
	fileName = namer.Next(game.Name, file)
	if err := artwork.WritePNG(layout.ImagePath(fileName), img); err != nil {
		return "", err
	}
	return fileName, nil
}
