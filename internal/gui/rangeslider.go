package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"github.com/keagan/cliptrim/internal/slider"
	"github.com/keagan/cliptrim/internal/thumbnails"
)

var (
	_ desktop.Mouseable = (*RangeSlider)(nil)
	_ fyne.Draggable    = (*RangeSlider)(nil)
)

// RangeSlider is a trim slider over a strip of video thumbnails. The
// outer handles select a range, the line between them is the playhead.
type RangeSlider struct {
	widget.BaseWidget

	controller *slider.Controller
	tint       color.Color
	middleTint color.Color

	cells  []thumbnails.Cell
	frames map[int]thumbnails.Frame

	// OnResized is called when the track width changes
	OnResized func(fyne.Size)
}

// NewRangeSlider creates a slider driving controller
func NewRangeSlider(controller *slider.Controller, tint, middleTint color.Color) *RangeSlider {
	s := &RangeSlider{
		controller: controller,
		tint:       tint,
		middleTint: middleTint,
		frames:     make(map[int]thumbnails.Frame),
	}
	s.ExtendBaseWidget(s)
	return s
}

// Controller returns the drag controller behind the widget
func (s *RangeSlider) Controller() *slider.Controller { return s.controller }

// Resize keeps the controller geometry in step with the widget
func (s *RangeSlider) Resize(size fyne.Size) {
	old := s.Size()
	s.controller.Resize(float64(size.Width), float64(size.Height))
	s.BaseWidget.Resize(size)
	if size.Width != old.Width && s.OnResized != nil {
		s.OnResized(size)
	}
}

// SetCells prepares empty thumbnail slots for a new strip
func (s *RangeSlider) SetCells(cells []thumbnails.Cell) {
	s.cells = cells
	s.frames = make(map[int]thumbnails.Frame, len(cells))
	s.Refresh()
}

// SetFrame fills one thumbnail slot. Must be called on the UI goroutine.
func (s *RangeSlider) SetFrame(f thumbnails.Frame) {
	s.frames[f.Cell.Index] = f
	s.Refresh()
}

// MouseDown starts a drag when the press lands on a handle
func (s *RangeSlider) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	if s.controller.PointerDown(toPoint(e.Position)) {
		s.Refresh()
	}
}

// MouseUp ends the drag
func (s *RangeSlider) MouseUp(*desktop.MouseEvent) {
	s.release()
}

// Dragged moves the active handle. Listeners registered with the
// controller's Subscribe see the resulting events.
func (s *RangeSlider) Dragged(e *fyne.DragEvent) {
	if len(s.controller.PointerMove(toPoint(e.Position))) == 0 {
		return
	}
	s.Refresh()
}

// DragEnd ends the drag
func (s *RangeSlider) DragEnd() {
	s.release()
}

func (s *RangeSlider) release() {
	if s.controller.State() == slider.Idle {
		return
	}
	s.controller.PointerUp()
	s.Refresh()
}

// MinSize gives room for a row of square thumbnails
func (s *RangeSlider) MinSize() fyne.Size {
	return fyne.NewSize(200, 48)
}

// CreateRenderer builds the track, fill and handle objects
func (s *RangeSlider) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.NRGBA{R: 24, G: 24, B: 28, A: 255})

	fill := canvas.NewRectangle(withAlpha(s.tint, 0x40))
	fill.StrokeColor = s.tint
	fill.StrokeWidth = 2

	lower := canvas.NewRectangle(s.tint)
	lower.CornerRadius = 3
	upper := canvas.NewRectangle(s.tint)
	upper.CornerRadius = 3
	middle := canvas.NewRectangle(s.middleTint)

	return &rangeSliderRenderer{
		slider: s,
		bg:     bg,
		fill:   fill,
		lower:  lower,
		middle: middle,
		upper:  upper,
	}
}

type rangeSliderRenderer struct {
	slider *RangeSlider

	bg     *canvas.Rectangle
	thumbs []*canvas.Image
	fill   *canvas.Rectangle
	lower  *canvas.Rectangle
	middle *canvas.Rectangle
	upper  *canvas.Rectangle
}

func (r *rangeSliderRenderer) Destroy()           {}
func (r *rangeSliderRenderer) MinSize() fyne.Size { return r.slider.MinSize() }

func (r *rangeSliderRenderer) Objects() []fyne.CanvasObject {
	objs := make([]fyne.CanvasObject, 0, len(r.thumbs)+5)
	objs = append(objs, r.bg)
	for _, t := range r.thumbs {
		objs = append(objs, t)
	}
	return append(objs, r.fill, r.lower, r.upper, r.middle)
}

func (r *rangeSliderRenderer) Refresh() {
	r.syncThumbs()
	r.Layout(r.slider.Size())
	canvas.Refresh(r.slider)
}

// syncThumbs matches the image objects to the slider's cells and frames
func (r *rangeSliderRenderer) syncThumbs() {
	cells := r.slider.cells
	if len(r.thumbs) != len(cells) {
		r.thumbs = make([]*canvas.Image, len(cells))
		for i := range r.thumbs {
			img := canvas.NewImageFromImage(nil)
			img.FillMode = canvas.ImageFillStretch
			img.ScaleMode = canvas.ImageScaleFastest
			r.thumbs[i] = img
		}
	}
	for i, c := range cells {
		img := r.thumbs[i]
		f, ok := r.slider.frames[c.Index]
		if !ok {
			img.Hide()
			continue
		}
		if img.Image != f.Image {
			img.Image = f.Image
			img.Refresh()
		}
		img.Show()
	}
}

func (r *rangeSliderRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	for i, c := range r.slider.cells {
		if i >= len(r.thumbs) {
			break
		}
		r.thumbs[i].Move(fyne.NewPos(float32(c.X), 0))
		r.thumbs[i].Resize(fyne.NewSize(float32(c.Width), size.Height))
	}

	snap := r.slider.controller.Snapshot()

	place(r.fill, snap.Fill, snap.Lower.Visible && snap.Upper.Visible)
	place(r.lower, snap.Lower.Frame, snap.Lower.Visible)
	place(r.upper, snap.Upper.Frame, snap.Upper.Visible)
	place(r.middle, snap.Middle.Frame, snap.Middle.Visible)

	highlight(r.lower, snap.Lower.Highlighted)
	highlight(r.upper, snap.Upper.Highlighted)
	highlight(r.middle, snap.Middle.Highlighted)
}

func place(o fyne.CanvasObject, rect slider.Rect, visible bool) {
	if !visible {
		o.Hide()
		return
	}
	o.Move(fyne.NewPos(float32(rect.X), float32(rect.Y)))
	o.Resize(fyne.NewSize(float32(rect.W), float32(rect.H)))
	o.Show()
}

func highlight(r *canvas.Rectangle, on bool) {
	if on {
		r.StrokeColor = color.White
		r.StrokeWidth = 2
	} else {
		r.StrokeWidth = 0
	}
	r.Refresh()
}

func toPoint(p fyne.Position) slider.Point {
	return slider.Point{X: float64(p.X), Y: float64(p.Y)}
}

func withAlpha(c color.Color, a uint8) color.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = a
	return n
}
