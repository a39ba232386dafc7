// Package tui is a terminal frontend for the range slider, for trimming
// over ssh or without a display.
package tui

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"github.com/keagan/cliptrim/internal/clips"
	"github.com/keagan/cliptrim/internal/config"
	"github.com/keagan/cliptrim/internal/slider"
	"github.com/keagan/cliptrim/pkg/util"
)

const (
	marginX   = 2
	trackY    = 2
	trackRows = 3
	// one terminal column per handle
	handleCols = 1
)

// Options configures a View
type Options struct {
	Tint       tcell.Color
	MiddleTint tcell.Color
	Slider     slider.Options
	Logger     zerolog.Logger
}

// OptionsFromConfig maps the slider config onto terminal colours
func OptionsFromConfig(cfg *config.Config, logger zerolog.Logger) (Options, error) {
	tint, err := config.ParseColor(cfg.Slider.TintColor)
	if err != nil {
		return Options{}, err
	}
	middle, err := config.ParseColor(cfg.Slider.MiddleTintColor)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Tint:       tcell.NewRGBColor(int32(tint.R), int32(tint.G), int32(tint.B)),
		MiddleTint: tcell.NewRGBColor(int32(middle.R), int32(middle.G), int32(middle.B)),
		Slider:     slider.Options{HandleWidth: handleCols, MinRange: cfg.Slider.MinRange},
		Logger:     logger,
	}, nil
}

// View draws a slider on a terminal screen and feeds it mouse and key input
type View struct {
	screen     tcell.Screen
	controller *slider.Controller
	opts       Options
	logger     zerolog.Logger

	title   string
	pressed bool
	focus   slider.Handle
	clips   *clips.Manager
	status  string
}

// New creates a view for model on screen. The screen must be initialised.
func New(screen tcell.Screen, model *slider.Model, opts Options) *View {
	opts.Slider.HandleWidth = handleCols
	v := &View{
		screen:     screen,
		controller: slider.NewController(model, opts.Slider),
		opts:       opts,
		logger:     opts.Logger.With().Str("component", "tui").Logger(),
		focus:      slider.HandleMiddle,
		clips:      clips.NewManager(),
	}
	if a := model.Asset(); a != nil {
		v.title = fmt.Sprintf("%s  %s", filepath.Base(a.Path), util.FormatClock(a.Duration))
	}
	v.resize()
	return v
}

// Controller returns the drag controller behind the view
func (v *View) Controller() *slider.Controller { return v.controller }

// Clips returns the clips added with Enter
func (v *View) Clips() *clips.Manager { return v.clips }

func (v *View) resize() {
	w, _ := v.screen.Size()
	v.controller.Resize(float64(max(w-2*marginX, 0)), trackRows)
}

// trackPoint maps a screen cell to the centre of that cell in track units
func trackPoint(x, y int) slider.Point {
	return slider.Point{X: float64(x-marginX) + 0.5, Y: float64(y-trackY) + 0.5}
}

// Run draws and handles events until the user quits or ctx is done
func (v *View) Run(ctx context.Context) error {
	v.screen.EnableMouse(tcell.MouseButtonEvents | tcell.MouseDragEvents)
	v.screen.HideCursor()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			v.screen.PostEvent(tcell.NewEventInterrupt(nil))
		case <-done:
		}
	}()

	v.Draw()
	for {
		ev := v.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if _, ok := ev.(*tcell.EventInterrupt); ok {
			return ctx.Err()
		}
		if !v.HandleEvent(ev) {
			return nil
		}
		v.Draw()
	}
}

// HandleEvent applies one event and reports whether the view should keep
// running
func (v *View) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.resize()
		v.screen.Sync()
	case *tcell.EventMouse:
		v.handleMouse(ev)
	case *tcell.EventKey:
		return v.handleKey(ev)
	}
	return true
}

func (v *View) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	p := trackPoint(x, y)
	down := ev.Buttons()&tcell.Button1 != 0

	switch {
	case down && !v.pressed:
		v.pressed = true
		if v.controller.PointerDown(p) {
			v.focus = v.controller.HitTest(p)
		}
	case down && v.pressed:
		v.controller.PointerMove(p)
	case !down && v.pressed:
		v.pressed = false
		v.controller.PointerUp()
	}
}

func (v *View) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyTab:
		v.cycleFocus()
	case tcell.KeyLeft:
		v.nudge(-1)
	case tcell.KeyRight:
		v.nudge(1)
	case tcell.KeyEnter:
		v.addClip()
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case 'h':
			v.nudge(-1)
		case 'l':
			v.nudge(1)
		case 'r':
			v.controller.Model().Reset()
		}
	}
	return true
}

func (v *View) cycleFocus() {
	m := v.controller.Model()
	order := []slider.Handle{slider.HandleLower, slider.HandleMiddle, slider.HandleUpper}
	shown := map[slider.Handle]bool{
		slider.HandleLower:  m.ShowLower,
		slider.HandleMiddle: m.ShowMiddle,
		slider.HandleUpper:  m.ShowUpper,
	}
	start := 0
	for i, h := range order {
		if h == v.focus {
			start = i
		}
	}
	for i := 1; i <= len(order); i++ {
		h := order[(start+i)%len(order)]
		if shown[h] {
			v.focus = h
			return
		}
	}
}

// nudge moves the focused handle one column. Trim handles go through a
// synthetic drag so the range guards apply. Keys are ignored while the
// mouse holds a handle.
func (v *View) nudge(cols int) {
	if v.pressed {
		return
	}
	m := v.controller.Model()
	t := v.controller.Track()

	switch v.focus {
	case slider.HandleMiddle:
		if !m.ShowMiddle {
			return
		}
		step := t.DeltaValueForPixelDelta(float64(cols))
		m.SetMiddle(slider.Clamp(m.Middle()+step, m.Lower(), m.Upper()))
	case slider.HandleLower, slider.HandleUpper:
		frame, ok := v.controller.Frame(v.focus)
		if !ok {
			return
		}
		from := slider.Point{X: frame.X + frame.W/2, Y: float64(trackRows) / 2}
		if v.controller.HitTest(from) != v.focus {
			return
		}
		v.controller.PointerDown(from)
		v.controller.PointerMove(slider.Point{X: from.X + float64(cols), Y: from.Y})
		v.controller.PointerUp()
	}
}

func (v *View) addClip() {
	start, end, err := v.controller.Model().Bounds()
	if err != nil {
		v.status = "no video loaded"
		return
	}
	c, err := clips.New(start, end, "")
	if err != nil {
		v.status = err.Error()
		return
	}
	v.clips.Add(c)
	v.status = fmt.Sprintf("added clip %d: %s - %s", v.clips.Len(), util.FormatClock(c.Start), util.FormatClock(c.End))
	v.logger.Debug().Stringer("clip", c).Msg("clip added")
}

// Draw renders the whole view
func (v *View) Draw() {
	s := v.screen
	s.Clear()
	w, _ := s.Size()

	plain := tcell.StyleDefault
	dim := plain.Foreground(tcell.ColorGray)

	v.text(0, 0, plain.Bold(true), v.title)

	snap := v.controller.Snapshot()
	trackW := int(snap.Track.Width)
	fillFrom := int(snap.Fill.X)
	fillTo := int(snap.Fill.X + snap.Fill.W)

	for row := 0; row < trackRows; row++ {
		for col := 0; col < trackW && marginX+col < w; col++ {
			style := dim
			r := '─'
			if row != trackRows/2 {
				r = ' '
			}
			if snap.Lower.Visible && snap.Upper.Visible && col >= fillFrom && col < fillTo {
				style = plain.Background(v.opts.Tint).Foreground(tcell.ColorBlack)
			}
			s.SetContent(marginX+col, trackY+row, r, nil, style)
		}
	}

	v.drawHandle(snap.Lower, '▐', v.opts.Tint, slider.HandleLower)
	v.drawHandle(snap.Upper, '▌', v.opts.Tint, slider.HandleUpper)
	v.drawHandle(snap.Middle, '│', v.opts.MiddleTint, slider.HandleMiddle)

	m := v.controller.Model()
	times := fmt.Sprintf("Start %s   Playhead %s   End %s",
		clock(m.StartTime()), clock(m.CurrentTime()), clock(m.StopTime()))
	v.text(0, trackY+trackRows+1, plain, times)
	v.text(0, trackY+trackRows+2, dim, "drag or tab + arrows to move, enter adds a clip, q quits")
	v.text(0, trackY+trackRows+3, plain, v.status)

	s.Show()
}

func (v *View) drawHandle(h slider.HandleView, r rune, color tcell.Color, which slider.Handle) {
	if !h.Visible {
		return
	}
	style := tcell.StyleDefault.Foreground(color)
	if h.Highlighted || v.focus == which {
		style = style.Reverse(true)
	}
	col := marginX + int(h.Frame.X)
	if which != slider.HandleMiddle {
		col = marginX + int(h.Frame.X+h.Frame.W/2)
	}
	for row := 0; row < trackRows; row++ {
		v.screen.SetContent(col, trackY+row, r, nil, style)
	}
}

func (v *View) text(x, y int, style tcell.Style, s string) {
	for _, r := range s {
		v.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func clock(t slider.Time, err error) string {
	if err != nil {
		return "--:--"
	}
	return util.FormatClock(t.Duration())
}
