package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/keagan/cliptrim/internal/clips"
	"github.com/keagan/cliptrim/internal/config"
	"github.com/keagan/cliptrim/internal/ffmpeg"
	"github.com/keagan/cliptrim/pkg/util"
	"github.com/rs/zerolog"
)

// Pipeline exports the clips of a project
type Pipeline struct {
	logger zerolog.Logger
	config *Config
	media  Media
}

// New creates a new pipeline instance backed by ffmpeg
func New(logger zerolog.Logger, cfg *Config, appCfg *config.Config) (*Pipeline, error) {
	ffmpegExec, err := ffmpeg.New(logger, ffmpeg.Options{
		FFmpegPath:  appCfg.FFmpeg.BinaryPath,
		FFprobePath: appCfg.FFmpeg.ProbePath,
		Threads:     appCfg.FFmpeg.Threads,
		Preset:      appCfg.FFmpeg.Preset,
		CRF:         appCfg.FFmpeg.CRF,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}

	if cfg == nil {
		cfg = &Config{Workers: appCfg.Concurrency}
	}
	return NewWithMedia(logger, cfg, ffmpegExec), nil
}

// NewWithMedia creates a pipeline around an existing media backend
func NewWithMedia(logger zerolog.Logger, cfg *Config, media Media) *Pipeline {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Pipeline{
		logger: logger.With().Str("component", "pipeline").Logger(),
		config: cfg,
		media:  media,
	}
}

// Export cuts every clip of project out of its source video and optionally
// joins them. Output paths are returned in clip order.
func (p *Pipeline) Export(ctx context.Context, project *clips.Project, opts ExportOptions) (*Result, error) {
	if project == nil {
		return nil, fmt.Errorf("project cannot be nil")
	}
	if len(project.Clips) == 0 {
		return nil, fmt.Errorf("project has no clips to export")
	}
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("output directory cannot be empty")
	}
	if opts.Join && opts.JoinOutput == "" {
		return nil, fmt.Errorf("join output path cannot be empty")
	}

	p.logger.Info().
		Str("source", project.Source).
		Int("clips", len(project.Clips)).
		Str("output", opts.OutputDir).
		Msg("starting export")

	// Stage 1: probe the source
	info, err := p.media.ProbeVideo(ctx, project.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to probe video: %w", err)
	}

	// Stage 2: every clip must lie inside the video
	for i, c := range project.Clips {
		if c.End <= c.Start || c.Start < 0 {
			return nil, fmt.Errorf("clip %d: %w", i, clips.ErrInvalidRange)
		}
		if c.End > info.Duration {
			return nil, fmt.Errorf("clip %d: %w: ends at %s, video ends at %s",
				i, ErrPastEnd, c.End, info.Duration)
		}
	}

	if err := util.EnsureDir(opts.OutputDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	// Stage 3: extract
	outputs, err := p.extract(ctx, project, opts)
	if err != nil {
		return nil, err
	}
	result := &Result{Clips: outputs}

	// Stage 4: join
	if opts.Join {
		if err := p.media.Concat(ctx, ffmpeg.ConcatOptions{
			Inputs:   outputs,
			Output:   opts.JoinOutput,
			ReEncode: !opts.CopyCodec,
		}); err != nil {
			return nil, fmt.Errorf("failed to join clips: %w", err)
		}
		result.Joined = opts.JoinOutput
		if !opts.KeepParts {
			util.CleanupFiles(outputs...)
			result.Clips = nil
		}
	}

	p.logger.Info().
		Int("clips", len(outputs)).
		Str("joined", result.Joined).
		Msg("export complete")

	return result, nil
}

// extract runs clip extraction on a bounded worker pool
func (p *Pipeline) extract(ctx context.Context, project *clips.Project, opts ExportOptions) ([]string, error) {
	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outputs := make([]string, len(project.Clips))
	jobs := make(chan int)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	workers := min(p.config.Workers, len(project.Clips))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				c := project.Clips[i]
				out := util.ClipOutputPath(opts.OutputDir, project.Source, i+1)

				clipOpts := ffmpeg.ClipOptions{
					Start:     c.Start,
					End:       c.End,
					Output:    out,
					CopyCodec: opts.CopyCodec,
				}
				if opts.Progress != nil {
					total := c.Duration()
					idx := i
					clipOpts.ProgressFunc = func(pr *ffmpeg.Progress) {
						elapsed, err := util.ParseTimestamp(pr.Time)
						if err != nil {
							return
						}
						percent := min(float64(elapsed)/float64(total)*100, 100)
						opts.Progress(ClipProgress{Index: idx, Elapsed: elapsed, Percent: percent})
					}
				}

				if err := p.media.ExtractClip(workCtx, project.Source, clipOpts); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("clip %d %s: %w", i, c, err)
					}
					mu.Unlock()
					cancel()
					continue
				}

				p.logger.Debug().Int("clip", i).Str("output", out).Msg("clip exported")
				outputs[i] = out
			}
		}()
	}

feed:
	for i := range project.Clips {
		select {
		case jobs <- i:
		case <-workCtx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr == nil && ctx.Err() != nil {
		firstErr = fmt.Errorf("export cancelled: %w", ctx.Err())
	}
	if firstErr != nil {
		util.CleanupFiles(outputs...)
		return nil, firstErr
	}
	return outputs, nil
}
