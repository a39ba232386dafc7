package gui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/keagan/cliptrim/internal/cache"
	"github.com/keagan/cliptrim/internal/clips"
	"github.com/keagan/cliptrim/internal/config"
	"github.com/keagan/cliptrim/internal/ffmpeg"
	"github.com/keagan/cliptrim/internal/pipeline"
	"github.com/keagan/cliptrim/internal/slider"
	"github.com/keagan/cliptrim/internal/thumbnails"
	"github.com/keagan/cliptrim/pkg/util"
)

// Media is everything the editor needs from the video backend
type Media interface {
	pipeline.Media
	thumbnails.FrameSource
}

var videoExtensions = []string{".mp4", ".mov", ".mkv", ".m4v", ".webm"}

// Editor is the trim window: a range slider over the video's thumbnails
// and a list of the clips cut so far.
type Editor struct {
	ctx    context.Context
	app    fyne.App
	win    fyne.Window
	cfg    *config.Config
	logger zerolog.Logger
	media  Media
	strip  *thumbnails.Strip

	slider  *RangeSlider
	manager *clips.Manager
	source  string
	asset   *slider.Asset
	picked  uuid.UUID

	videoLabel   *widget.Label
	startLabel   *widget.Label
	stopLabel    *widget.Label
	currentLabel *widget.Label
	status       *widget.Label
	clipList     *widget.List
}

// NewEditor builds the editor window. frameCache may be nil.
func NewEditor(ctx context.Context, a fyne.App, cfg *config.Config, media Media, frameCache thumbnails.FrameCache, logger zerolog.Logger) (*Editor, error) {
	tint, err := config.ParseColor(cfg.Slider.TintColor)
	if err != nil {
		return nil, err
	}
	middleTint, err := config.ParseColor(cfg.Slider.MiddleTintColor)
	if err != nil {
		return nil, err
	}

	model := slider.NewModel()
	model.ShowLower = cfg.Slider.ShowLower
	model.ShowMiddle = cfg.Slider.ShowMiddle
	model.ShowUpper = cfg.Slider.ShowUpper
	controller := slider.NewController(model, slider.Options{
		HandleWidth: cfg.Slider.HandleWidth,
		MinRange:    cfg.Slider.MinRange,
	})

	e := &Editor{
		ctx:     ctx,
		app:     a,
		cfg:     cfg,
		logger:  logger.With().Str("component", "editor").Logger(),
		media:   media,
		slider:  NewRangeSlider(controller, tint, middleTint),
		manager: clips.NewManager(),
	}

	if cfg.Thumbnails.Enabled {
		e.strip = thumbnails.New(media, thumbnails.Options{
			Workers:      cfg.Concurrency,
			DecodeHeight: cfg.Thumbnails.Height,
			Cache:        frameCache,
			Notify:       e.drainThumbnails,
			Logger:       logger,
		})
	}

	controller.Subscribe(func(ev slider.Event) {
		if ev == slider.ValueChanged {
			e.updateTimes()
		}
	})
	e.slider.OnResized = func(fyne.Size) { e.loadThumbnails() }

	e.build()
	return e, nil
}

// Window returns the editor window
func (e *Editor) Window() fyne.Window { return e.win }

// Slider returns the range slider widget
func (e *Editor) Slider() *RangeSlider { return e.slider }

// Clips returns the clips added so far
func (e *Editor) Clips() *clips.Manager { return e.manager }

func (e *Editor) build() {
	e.win = e.app.NewWindow("cliptrim")
	e.win.Resize(fyne.NewSize(900, 420))

	e.videoLabel = widget.NewLabel("No video loaded")
	e.startLabel = widget.NewLabel("")
	e.stopLabel = widget.NewLabel("")
	e.currentLabel = widget.NewLabel("")
	e.status = widget.NewLabel("")
	e.updateTimes()

	e.clipList = widget.NewList(
		func() int { return e.manager.Len() },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, o fyne.CanvasObject) {
			all := e.manager.All()
			if id >= len(all) {
				return
			}
			c := all[id]
			o.(*widget.Label).SetText(fmt.Sprintf("%d. %s - %s (%s)",
				id+1, util.FormatClock(c.Start), util.FormatClock(c.End), util.FormatClock(c.Duration())))
		},
	)
	e.clipList.OnSelected = func(id widget.ListItemID) {
		if all := e.manager.All(); id < len(all) {
			e.picked = all[id].ID
		}
	}

	openButton := widget.NewButton("Open Video", e.showOpen)
	addButton := widget.NewButton("Add Clip", func() {
		if _, err := e.AddClip(); err != nil {
			e.setStatus(err.Error())
		}
	})
	removeButton := widget.NewButton("Remove Clip", func() {
		if e.picked != uuid.Nil && e.manager.Remove(e.picked) {
			e.picked = uuid.Nil
			e.clipList.UnselectAll()
			e.clipList.Refresh()
		}
	})
	saveButton := widget.NewButton("Save Project", e.showSave)
	exportButton := widget.NewButton("Export", e.showExport)

	times := container.NewGridWithColumns(3, e.startLabel, e.currentLabel, e.stopLabel)
	buttons := container.NewHBox(openButton, addButton, removeButton, saveButton, exportButton)
	top := container.NewVBox(e.videoLabel, e.slider, times, buttons)

	e.win.SetContent(container.NewBorder(top, e.status, nil, nil, e.clipList))
	e.win.SetOnClosed(func() {
		if e.strip != nil {
			e.strip.Cancel()
		}
	})
}

// Open probes path and resets the slider to the whole video
func (e *Editor) Open(path string) error {
	info, err := e.media.ProbeVideo(e.ctx, path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	e.source = path
	e.asset = &slider.Asset{Path: path, Duration: info.Duration, Timescale: info.Timescale}
	model := e.slider.Controller().Model()
	model.SetAsset(e.asset)
	model.Reset()

	e.logger.Info().
		Str("video", path).
		Dur("duration", info.Duration).
		Int("width", info.Width).
		Int("height", info.Height).
		Msg("video opened")

	e.videoLabel.SetText(fmt.Sprintf("%s  %dx%d  %s",
		filepath.Base(path), info.Width, info.Height, util.FormatClock(info.Duration)))
	e.updateTimes()
	e.slider.Refresh()
	e.loadThumbnails()
	return nil
}

// AddClip stores the selected range as a clip
func (e *Editor) AddClip() (*clips.Clip, error) {
	start, end, err := e.slider.Controller().Model().Bounds()
	if err != nil {
		return nil, errors.New("open a video first")
	}
	c, err := clips.New(start, end, "")
	if err != nil {
		return nil, err
	}
	e.manager.Add(c)
	e.clipList.Refresh()
	e.logger.Debug().Stringer("clip", c).Msg("clip added")
	return c, nil
}

// Project returns the current source and clips as a project
func (e *Editor) Project() *clips.Project {
	return clips.FromManager(e.source, e.manager)
}

// Export runs the export pipeline on the editor's clips
func (e *Editor) Export(ctx context.Context, dir string) (*pipeline.Result, error) {
	p := pipeline.NewWithMedia(e.logger, &pipeline.Config{Workers: e.cfg.Concurrency}, e.media)
	return p.Export(ctx, e.Project(), pipeline.ExportOptions{
		OutputDir: dir,
		CopyCodec: e.cfg.FFmpeg.CopyCodec,
	})
}

func (e *Editor) showOpen() {
	fd := dialog.NewFileOpen(func(ur fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, e.win)
			return
		}
		if ur == nil {
			return
		}
		path := ur.URI().Path()
		ur.Close()
		if err := e.Open(path); err != nil {
			dialog.ShowError(err, e.win)
		}
	}, e.win)
	fd.SetFilter(storage.NewExtensionFileFilter(videoExtensions))
	fd.Show()
}

func (e *Editor) showSave() {
	if e.manager.Len() == 0 {
		e.setStatus("no clips to save")
		return
	}
	fd := dialog.NewFileSave(func(uw fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, e.win)
			return
		}
		if uw == nil {
			return
		}
		path := uw.URI().Path()
		uw.Close()
		if err := e.Project().Save(path); err != nil {
			dialog.ShowError(err, e.win)
			return
		}
		e.setStatus("saved " + path)
	}, e.win)
	fd.SetFileName("project.yaml")
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".yaml", ".yml"}))
	fd.Show()
}

func (e *Editor) showExport() {
	if e.manager.Len() == 0 {
		e.setStatus("no clips to export")
		return
	}
	fd := dialog.NewFolderOpen(func(lu fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(err, e.win)
			return
		}
		if lu == nil {
			return
		}
		dir := lu.Path()
		e.setStatus("exporting...")
		go func() {
			result, err := e.Export(e.ctx, dir)
			fyne.Do(func() {
				if err != nil {
					e.logger.Error().Err(err).Msg("export failed")
					dialog.ShowError(err, e.win)
					e.setStatus("export failed")
					return
				}
				e.setStatus(fmt.Sprintf("exported %d clips to %s", len(result.Clips), dir))
			})
		}()
	}, e.win)
	fd.Show()
}

func (e *Editor) loadThumbnails() {
	if e.strip == nil || e.asset == nil {
		return
	}
	size := e.slider.Size()
	if size.Width <= 0 || size.Height <= 0 {
		return
	}
	cells := e.strip.Load(e.ctx, *e.asset, float64(size.Width), float64(size.Height))
	e.slider.SetCells(cells)
}

// drainThumbnails runs on worker goroutines and hands frames to the UI
func (e *Editor) drainThumbnails() {
	fyne.Do(func() {
		e.strip.Drain(e.slider.SetFrame)
	})
}

func (e *Editor) updateTimes() {
	model := e.slider.Controller().Model()
	e.startLabel.SetText("Start " + clock(model.StartTime()))
	e.currentLabel.SetText("Playhead " + clock(model.CurrentTime()))
	e.stopLabel.SetText("End " + clock(model.StopTime()))
}

func (e *Editor) setStatus(msg string) {
	e.status.SetText(msg)
}

func clock(t slider.Time, err error) string {
	if err != nil {
		return "--:--"
	}
	return util.FormatClock(t.Duration())
}

// Run opens the editor window and blocks until it is closed. video may be
// empty.
func Run(ctx context.Context, cfg *config.Config, video string, logger zerolog.Logger) error {
	exec, err := ffmpeg.New(logger, ffmpeg.Options{
		FFmpegPath:  cfg.FFmpeg.BinaryPath,
		FFprobePath: cfg.FFmpeg.ProbePath,
		Threads:     cfg.FFmpeg.Threads,
		Preset:      cfg.FFmpeg.Preset,
		CRF:         cfg.FFmpeg.CRF,
	})
	if err != nil {
		return err
	}

	var frameCache thumbnails.FrameCache
	if cfg.Thumbnails.Enabled && cfg.Thumbnails.Cache {
		c, err := cache.Open(util.ExpandHome(cfg.Thumbnails.CacheDir), logger)
		if err != nil {
			logger.Warn().Err(err).Msg("thumbnail cache disabled")
		} else {
			defer c.Close()
			frameCache = c
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a := app.NewWithID("io.github.keagan.cliptrim")
	e, err := NewEditor(ctx, a, cfg, exec, frameCache, logger)
	if err != nil {
		return err
	}

	if video != "" {
		if err := e.Open(video); err != nil {
			return err
		}
	}

	e.win.ShowAndRun()
	if e.strip != nil {
		e.strip.Cancel()
		e.strip.Wait()
	}
	return nil
}
