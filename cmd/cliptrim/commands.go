package main

import (
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/keagan/cliptrim/internal/clips"
	"github.com/keagan/cliptrim/internal/config"
	"github.com/keagan/cliptrim/internal/ffmpeg"
	"github.com/keagan/cliptrim/internal/gui"
	"github.com/keagan/cliptrim/internal/logging"
	"github.com/keagan/cliptrim/internal/pipeline"
	"github.com/keagan/cliptrim/internal/slider"
	"github.com/keagan/cliptrim/internal/thumbnails"
	"github.com/keagan/cliptrim/internal/tui"
	"github.com/keagan/cliptrim/pkg/util"
)

var (
	thumbsOutput string
	thumbsWidth  int

	trimStart  string
	trimEnd    string
	trimOutput string
	trimCopy   bool
	trimWidth  int
	trimHeight int
	trimFill   bool
	trimFPS    float64
	trimVF     string

	exportOutput    string
	exportJoin      string
	exportKeepParts bool

	frameAt     string
	frameOutput string

	tuiSave string
)

func newExecutor(cfg *config.Config) (*ffmpeg.Executor, error) {
	exec, err := ffmpeg.New(log.Logger, ffmpeg.Options{
		FFmpegPath:  cfg.FFmpeg.BinaryPath,
		FFprobePath: cfg.FFmpeg.ProbePath,
		Threads:     cfg.FFmpeg.Threads,
		Preset:      cfg.FFmpeg.Preset,
		CRF:         cfg.FFmpeg.CRF,
	})
	if ffmpeg.IsNotFound(err) {
		return nil, fmt.Errorf("%w (install ffmpeg or set ffmpeg.binary_path / ffmpeg.probe_path)", err)
	}
	return exec, err
}

var editCmd = &cobra.Command{
	Use:   "edit [video]",
	Short: "Open the trim editor window",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		video := ""
		if len(args) == 1 {
			video = args[0]
		}
		return gui.Run(cmd.Context(), cfg, video, log.Logger)
	},
}

var tuiCmd = &cobra.Command{
	Use:   "tui [video]",
	Short: "Trim in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		exec, err := newExecutor(cfg)
		if err != nil {
			return err
		}
		info, err := exec.ProbeVideo(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		model := slider.NewModel()
		model.ShowLower = cfg.Slider.ShowLower
		model.ShowMiddle = cfg.Slider.ShowMiddle
		model.ShowUpper = cfg.Slider.ShowUpper
		model.SetAsset(&slider.Asset{Path: args[0], Duration: info.Duration, Timescale: info.Timescale})

		opts, err := tui.OptionsFromConfig(cfg, log.Logger)
		if err != nil {
			return err
		}

		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to open terminal: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("failed to open terminal: %w", err)
		}

		view := tui.New(screen, model, opts)
		runErr := view.Run(cmd.Context())
		screen.Fini()
		if runErr != nil {
			return runErr
		}

		out := cmd.OutOrStdout()
		if r, err := model.Range(); err == nil {
			fmt.Fprintf(out, "range %s - %s (%s)\n",
				util.FormatClock(r.Start.Duration()), util.FormatClock(r.End().Duration()), util.FormatClock(r.Duration.Duration()))
		}
		for i, c := range view.Clips().All() {
			fmt.Fprintf(out, "clip %d %s - %s\n", i+1, util.FormatClock(c.Start), util.FormatClock(c.End))
		}

		if tuiSave != "" && view.Clips().Len() > 0 {
			if err := clips.FromManager(args[0], view.Clips()).Save(tuiSave); err != nil {
				return err
			}
			log.Info().Str("project", tuiSave).Msg("project saved")
		}
		return nil
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe [video]",
	Short: "Print video metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		exec, err := newExecutor(cfg)
		if err != nil {
			return err
		}
		info, err := exec.ProbeVideo(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out, err := yaml.Marshal(map[string]any{
			"file":        info.FilePath,
			"duration":    info.Duration.String(),
			"timescale":   info.Timescale,
			"width":       info.Width,
			"height":      info.Height,
			"fps":         info.FPS,
			"bitrate":     info.Bitrate,
			"video_codec": info.VideoCodec,
			"has_audio":   info.HasAudio,
			"audio_codec": info.AudioCodec,
		})
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

var thumbsCmd = &cobra.Command{
	Use:   "thumbs [video]",
	Short: "Render the thumbnail strip to an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		ctx := cmd.Context()

		exec, err := newExecutor(cfg)
		if err != nil {
			return err
		}
		info, err := exec.ProbeVideo(ctx, args[0])
		if err != nil {
			return err
		}

		opts := thumbnails.Options{
			Workers:      cfg.Concurrency,
			DecodeHeight: cfg.Thumbnails.Height,
			Logger:       log.Logger,
		}
		if cfg.Thumbnails.Cache {
			c, err := openCache(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("thumbnail cache disabled")
			} else {
				defer c.Close()
				opts.Cache = c
			}
		}

		height := cfg.Thumbnails.Height
		strip := thumbnails.New(exec, opts)
		asset := slider.Asset{Path: args[0], Duration: info.Duration, Timescale: info.Timescale}
		cells := strip.Load(ctx, asset, float64(thumbsWidth), float64(height))
		strip.Wait()
		if err := ctx.Err(); err != nil {
			return err
		}

		var frames []thumbnails.Frame
		strip.Drain(func(f thumbnails.Frame) { frames = append(frames, f) })
		strip.Cancel()
		if len(cells) == 0 {
			return fmt.Errorf("nothing to render for %s", args[0])
		}

		cellWidth := int(math.Round(cells[0].Width))
		img := thumbnails.Compose(frames, len(cells), cellWidth, height)
		if err := thumbnails.Save(img, thumbsOutput); err != nil {
			return fmt.Errorf("failed to save strip: %w", err)
		}

		log.Info().
			Str("output", thumbsOutput).
			Int("cells", len(cells)).
			Int("rendered", len(frames)).
			Int("width", img.Bounds().Dx()).
			Int("height", img.Bounds().Dy()).
			Msg("thumbnail strip written")
		return nil
	},
}

var trimCmd = &cobra.Command{
	Use:   "trim [video]",
	Short: "Cut one range out of a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		start, err := util.ParseTimestamp(trimStart)
		if err != nil {
			return err
		}
		end, err := util.ParseTimestamp(trimEnd)
		if err != nil {
			return err
		}
		clip, err := clips.New(start, end, "")
		if err != nil {
			return err
		}

		output := trimOutput
		if output == "" {
			output = util.ClipOutputPath(filepath.Dir(args[0]), args[0], 1)
		}

		exec, err := newExecutor(cfg)
		if err != nil {
			return err
		}
		if trimCopy || cfg.FFmpeg.CopyCodec {
			err = exec.ExtractClip(cmd.Context(), args[0], ffmpeg.ClipOptions{
				Start:     clip.Start,
				End:       clip.End,
				Output:    output,
				CopyCodec: true,
			})
		} else {
			err = exec.Trim(cmd.Context(), args[0], ffmpeg.TrimOptions{
				Start:  clip.Start,
				End:    clip.End,
				Output: output,
				Filter: trimFilter(),
			})
		}
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), output)
		return nil
	},
}

// trimFilter builds the -vf chain from the trim flags
func trimFilter() string {
	fb := ffmpeg.NewFilterBuilder()
	switch {
	case trimWidth > 0 && trimHeight > 0 && trimFill:
		fb.Cover(trimWidth, trimHeight)
	case trimWidth > 0 && trimHeight > 0:
		fb.Scale(trimWidth, trimHeight)
	case trimHeight > 0:
		fb.ScaleHeight(trimHeight)
	}
	return fb.FPS(trimFPS).Custom(trimVF).Build()
}

var frameCmd = &cobra.Command{
	Use:   "frame [video]",
	Short: "Save a single frame as a JPEG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		at, err := util.ParseTimestamp(frameAt)
		if err != nil {
			return err
		}
		exec, err := newExecutor(cfg)
		if err != nil {
			return err
		}
		if err := exec.ExtractFrame(cmd.Context(), args[0], at, frameOutput); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), frameOutput)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [project file]",
	Short: "Export every clip of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		project, err := clips.LoadProject(args[0])
		if err != nil {
			return err
		}

		pipe, err := pipeline.New(log.Logger, &pipeline.Config{Workers: cfg.Concurrency}, cfg)
		if err != nil {
			return err
		}

		outputDir := exportOutput
		if outputDir == "" {
			outputDir = cfg.OutputDir
		}

		logger := logging.WithComponent("export")
		started := time.Now()
		result, err := pipe.Export(cmd.Context(), project, pipeline.ExportOptions{
			OutputDir:  outputDir,
			Join:       exportJoin != "",
			JoinOutput: exportJoin,
			CopyCodec:  cfg.FFmpeg.CopyCodec,
			KeepParts:  exportKeepParts,
			Progress: func(p pipeline.ClipProgress) {
				logger.Debug().Int("clip", p.Index).Float64("percent", p.Percent).Msg("encoding")
			},
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, path := range result.Clips {
			fmt.Fprintln(out, path)
		}
		if result.Joined != "" {
			fmt.Fprintln(out, result.Joined)
		}

		logger.Info().
			Int("clips", len(project.Clips)).
			Dur("took", time.Since(started)).
			Msg("export complete")
		return nil
	},
}

func init() {
	tuiCmd.Flags().StringVar(&tuiSave, "save", "", "save clips added with enter to this project file")

	thumbsCmd.Flags().StringVarP(&thumbsOutput, "output", "o", "thumbs.png", "output image (png or jpg)")
	thumbsCmd.Flags().IntVar(&thumbsWidth, "width", 1200, "strip width in pixels")

	trimCmd.Flags().StringVar(&trimStart, "start", "0", "start timestamp (SS, MM:SS or HH:MM:SS)")
	trimCmd.Flags().StringVar(&trimEnd, "end", "", "end timestamp")
	trimCmd.Flags().StringVarP(&trimOutput, "output", "o", "", "output file (default: next to the input)")
	trimCmd.Flags().BoolVar(&trimCopy, "copy", false, "copy streams instead of re-encoding")
	trimCmd.Flags().IntVar(&trimWidth, "width", 0, "output width (needs --height)")
	trimCmd.Flags().IntVar(&trimHeight, "height", 0, "output height")
	trimCmd.Flags().BoolVar(&trimFill, "fill", false, "crop to fill width x height instead of stretching")
	trimCmd.Flags().Float64Var(&trimFPS, "fps", 0, "output frame rate")
	trimCmd.Flags().StringVar(&trimVF, "vf", "", "extra ffmpeg filters appended to the chain")
	_ = trimCmd.MarkFlagRequired("end")

	frameCmd.Flags().StringVar(&frameAt, "at", "0", "timestamp of the frame")
	frameCmd.Flags().StringVarP(&frameOutput, "output", "o", "frame.jpg", "output image")

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output directory (default: config output_dir)")
	exportCmd.Flags().StringVar(&exportJoin, "join", "", "also join the clips into this file")
	exportCmd.Flags().BoolVar(&exportKeepParts, "keep-parts", false, "keep per-clip files after joining")
}
