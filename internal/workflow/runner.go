package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"romscribe/internal/artwork"
	"romscribe/internal/diffusion"
	"romscribe/internal/gamelist"
	"romscribe/internal/logging"
	"romscribe/internal/metadata"
	"romscribe/internal/outdir"
	"romscribe/internal/roms"
	"romscribe/internal/services"
)

// MetadataFactory builds the metadata generator for a run.
type MetadataFactory func() (metadata.Generator, error)

// ImageFactory builds the image generator. It is called only after the
// metadata generator has been closed.
type ImageFactory func() (diffusion.Generator, error)

// Options configures a run.
type Options struct {
	InputDir  string
	OutputDir string
	Images    bool
	// IsolateImageFailures skips a failed image instead of aborting the run.
	IsolateImageFailures bool
	ImageParams          diffusion.Params
	OutputSize           int
	PromptTemplate       string
}

// Runner drives one generation run.
type Runner struct {
	opts        Options
	newMetadata MetadataFactory
	newImages   ImageFactory
	logger      *slog.Logger
	now         func() time.Time

	state   State
	history []State
}

// NewRunner wires a runner. newImages may be nil when images are disabled.
func NewRunner(opts Options, newMetadata MetadataFactory, newImages ImageFactory, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.OutputSize <= 0 {
		opts.OutputSize = artwork.DefaultSize
	}
	if opts.ImageParams == (diffusion.Params{}) {
		opts.ImageParams = diffusion.DefaultParams()
	}
	return &Runner{
		opts:        opts,
		newMetadata: newMetadata,
		newImages:   newImages,
		logger:      logging.NewComponentLogger(logger, "workflow"),
		now:         time.Now,
		state:       StateIdle,
		history:     []State{StateIdle},
	}
}

// State reports the current run state.
func (r *Runner) State() State { return r.state }

// History lists every state the runner entered, in order.
func (r *Runner) History() []State {
	return append([]State(nil), r.history...)
}

func (r *Runner) transition(ctx context.Context, next State) {
	logging.WithContext(ctx, r.logger).Debug("state transition",
		logging.String("from", string(r.state)),
		logging.String("to", string(next)),
	)
	r.state = next
	r.history = append(r.history, next)
}

// Run executes the whole pipeline. Setup, model load, image, and
// serialization failures end the run with an error and no document. A
// failed text generation only skips that ROM.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), StartedAt: r.now()}
	ctx = logging.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, r.logger)
	defer func() {
		report.FinishedAt = r.now()
		report.FinalState = r.state
	}()

	if r.newMetadata == nil {
		return report, errors.New("workflow: metadata generator factory required")
	}
	if r.opts.Images && r.newImages == nil {
		return report, errors.New("workflow: image generator factory required when images are enabled")
	}

	lock, err := outdir.Lock(r.opts.OutputDir)
	if err != nil {
		return report, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("release output lock failed", logging.Error(err))
		}
	}()

	layout, err := outdir.Prepare(r.opts.OutputDir, r.opts.Images, logger)
	if err != nil {
		return report, fmt.Errorf("prepare output directory: %w", err)
	}
	r.transition(ctx, StateDirectoryPrepared)

	list, err := r.textPass(ctx, report)
	if err != nil {
		return report, err
	}

	if r.opts.Images {
		if err := r.imagePass(ctx, layout, list, report); err != nil {
			return report, err
		}
	}

	if err := gamelist.Write(layout.DocumentPath(), list); err != nil {
		return report, fmt.Errorf("serialize game list: %w", err)
	}
	report.DocumentPath = layout.DocumentPath()
	r.transition(ctx, StateSerialized)
	logger.Info("wrote game list",
		logging.Path(layout.DocumentPath()),
		logging.Int("games", list.Len()),
	)
	r.transition(ctx, StateDone)
	return report, nil
}

// textPass opens the metadata generator, generates one record per ROM, and
// closes the generator exactly once on every path.
func (r *Runner) textPass(ctx context.Context, report *Report) (*gamelist.List, error) {
	logger := logging.WithContext(ctx, r.logger)

	gen, err := r.newMetadata()
	if err != nil {
		return nil, fmt.Errorf("create metadata generator: %w", err)
	}
	closed := false
	closeGen := func() {
		if closed {
			return
		}
		closed = true
		if err := gen.Close(); err != nil {
			logging.WarnWithContext(logger, "release metadata generator failed", "generator_close",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check for a leftover llama-server process"),
			)
			return
		}
		logger.Info("released metadata generator")
	}
	defer closeGen()

	if err := gen.Open(ctx); err != nil {
		return nil, fmt.Errorf("load metadata generator: %w", err)
	}
	r.transition(ctx, StateGeneratorReady)

	candidates, err := roms.List(r.opts.InputDir)
	if err != nil {
		return nil, fmt.Errorf("list input directory: %w", err)
	}
	report.Candidates = len(candidates)
	logger.Info("found rom files",
		logging.String("input_dir", r.opts.InputDir),
		logging.Int("count", len(candidates)),
	)
	r.transition(ctx, StateTextPassRunning)

	list := &gamelist.List{}
	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("text pass interrupted: %w", err)
		}
		result, game, ok := r.generateOne(ctx, gen, i, candidate)
		if ctx.Err() != nil && !ok {
			return nil, fmt.Errorf("text pass interrupted: %w", ctx.Err())
		}
		report.add(result)
		if ok {
			list.Append(game)
		}
	}

	closeGen()
	r.transition(ctx, StateTextPassComplete)
	logger.Info("text pass complete",
		logging.Int("generated", report.Generated),
		logging.Int("failed", report.Failed),
	)
	return list, nil
}

func (r *Runner) generateOne(ctx context.Context, gen metadata.Generator, index int, candidate roms.Candidate) (ItemResult, gamelist.Game, bool) {
	itemCtx := logging.WithStage(logging.WithItem(ctx, candidate.Name), string(StageText))
	logger := logging.WithContext(itemCtx, r.logger)
	label := roms.Label(candidate.Name)
	result := ItemResult{Index: index, File: candidate.Name, Label: label, Stage: StageText}

	logger.Info("starting", logging.Int("index", index))
	started := r.now()
	game, err := generateSafely(itemCtx, gen, label)
	result.Duration = r.now().Sub(started)
	defer logger.Info("finished", logging.Elapsed(result.Duration))

	if err != nil {
		result.Status = StatusFailed
		result.Err = classifyTextError(candidate.Name, err)
		if ctx.Err() == nil {
			logging.ErrorWithContext(logger, "metadata generation failed", "text_generation_failed",
				logging.Error(result.Err),
				logging.String(logging.FieldErrorHint, services.FailureHint(result.Err)),
			)
		}
		return result, gamelist.Game{}, false
	}
	game.Path = candidate.Path
	result.Status = StatusOK
	return result, game, true
}

// generateSafely calls the generator, converting a panic into an error so one bad
// item cannot take the run down.
func generateSafely(ctx context.Context, gen metadata.Generator, label string) (game gamelist.Game, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("metadata generator panicked: %v", rec)
		}
	}()
	return gen.Generate(ctx, label)
}

func classifyTextError(file string, err error) error {
	var parseErr *metadata.ParseError
	if errors.As(err, &parseErr) {
		return services.Wrap(services.ErrValidation, string(StageText), "parse", file, err)
	}
	return services.Wrap(services.ErrExternalTool, string(StageText), "generate", file, err)
}
