package slider

// DefaultHandleWidth is the width of the lower and upper handles
const DefaultHandleWidth = 15.0

// handleOverhang is how far handles extend above and below the track
const handleOverhang = 5.0

// middleLineWidth is the drawn width of the playhead handle
const middleLineWidth = 2.0

// Point is a pointer position in track-local coordinates
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle in track-local coordinates
type Rect struct {
	X, Y, W, H float64
}

// Contains reports whether p lies inside r (edges inclusive)
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Track maps between slider values and positions along the track
type Track struct {
	Width       float64
	Height      float64
	HandleWidth float64

	ShowLower bool
	ShowUpper bool

	Minimum float64
	Maximum float64
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// PositionForValue returns the x offset of the centre of a handle at value.
// Half a handle width is reserved on the left when the lower handle shows and
// a full handle width on the right when the upper handle shows.
func (t Track) PositionForValue(value float64) float64 {
	margin := t.HandleWidth / 2 * indicator(t.ShowLower)
	span := t.Maximum - t.Minimum
	if span == 0 {
		return margin
	}
	usable := t.Width - t.HandleWidth*indicator(t.ShowUpper)
	return usable*(value-t.Minimum)/span + margin
}

// DeltaValueForPixelDelta converts a horizontal pointer delta to a value delta.
// A track no wider than a handle cannot move anything and yields 0.
func (t Track) DeltaValueForPixelDelta(pixelDelta float64) float64 {
	usable := t.Width - t.HandleWidth
	if usable <= 0 {
		return 0
	}
	return (t.Maximum - t.Minimum) * pixelDelta / usable
}

// HandleFrame returns the frame of a lower or upper handle at value
func (t Track) HandleFrame(value float64) Rect {
	centre := t.PositionForValue(value)
	return Rect{
		X: centre - t.HandleWidth/2,
		Y: -handleOverhang,
		W: t.HandleWidth,
		H: t.Height + 2*handleOverhang,
	}
}

// PlayheadFrame returns the drawn frame of the middle handle at value
func (t Track) PlayheadFrame(value float64) Rect {
	centre := t.PositionForValue(value)
	return Rect{
		X: centre - t.HandleWidth/2,
		Y: -handleOverhang,
		W: middleLineWidth,
		H: t.Height + 2*handleOverhang,
	}
}

// Bounds is the whole track area
func (t Track) Bounds() Rect {
	return Rect{X: 0, Y: 0, W: t.Width, H: t.Height}
}
