package slider

import "time"

// DefaultMinRange is the shortest selection the lower/upper handles allow
const DefaultMinRange = time.Second

// Handle identifies one of the three slider handles
type Handle int

const (
	HandleNone Handle = iota
	HandleLower
	HandleMiddle
	HandleUpper
)

func (h Handle) String() string {
	switch h {
	case HandleLower:
		return "lower"
	case HandleMiddle:
		return "middle"
	case HandleUpper:
		return "upper"
	default:
		return "none"
	}
}

// State is the drag state of the controller
type State int

const (
	Idle State = iota
	DraggingLower
	DraggingMiddle
	DraggingUpper
)

func (s State) String() string {
	switch s {
	case DraggingLower:
		return "dragging_lower"
	case DraggingMiddle:
		return "dragging_middle"
	case DraggingUpper:
		return "dragging_upper"
	default:
		return "idle"
	}
}

// session lives from pointer-down to pointer-up
type session struct {
	previous Point
	active   Handle
}

// Options configures a Controller
type Options struct {
	HandleWidth float64
	MinRange    time.Duration
}

// Controller turns pointer events into bounded model updates.
// It is not safe for concurrent use; drive it from the UI goroutine.
type Controller struct {
	model       *Model
	width       float64
	height      float64
	handleWidth float64
	minRange    time.Duration

	session     *session
	highlighted [4]bool

	listeners listeners
}

// NewController creates a controller driving model
func NewController(model *Model, opts Options) *Controller {
	if opts.HandleWidth <= 0 {
		opts.HandleWidth = DefaultHandleWidth
	}
	if opts.MinRange < 0 {
		opts.MinRange = 0
	}
	return &Controller{
		model:       model,
		handleWidth: opts.HandleWidth,
		minRange:    opts.MinRange,
	}
}

// Model returns the driven model
func (c *Controller) Model() *Model { return c.model }

// Resize sets the track size in the frontend's units
func (c *Controller) Resize(width, height float64) {
	c.width = width
	c.height = height
}

// Track returns the current geometry
func (c *Controller) Track() Track {
	return Track{
		Width:       c.width,
		Height:      c.height,
		HandleWidth: c.handleWidth,
		ShowLower:   c.model.ShowLower,
		ShowUpper:   c.model.ShowUpper,
		Minimum:     c.model.Minimum,
		Maximum:     c.model.Maximum,
	}
}

// Subscribe registers fn for drag events and returns a func removing it
func (c *Controller) Subscribe(fn Listener) func() {
	return c.listeners.add(fn)
}

// State reports the current drag state
func (c *Controller) State() State {
	if c.session == nil {
		return Idle
	}
	switch c.session.active {
	case HandleLower:
		return DraggingLower
	case HandleMiddle:
		return DraggingMiddle
	case HandleUpper:
		return DraggingUpper
	}
	return Idle
}

// Highlighted reports whether h owns the current drag
func (c *Controller) Highlighted(h Handle) bool {
	return c.highlighted[h]
}

// Frame returns the hit frame of a shown handle
func (c *Controller) Frame(h Handle) (Rect, bool) {
	t := c.Track()
	switch h {
	case HandleLower:
		if c.model.ShowLower {
			return t.HandleFrame(c.model.lower), true
		}
	case HandleUpper:
		if c.model.ShowUpper {
			return t.HandleFrame(c.model.upper), true
		}
	case HandleMiddle:
		// The playhead is grabbed by any press on the track that misses
		// the trim handles.
		if c.model.ShowMiddle {
			b := t.Bounds()
			return Rect{X: b.X, Y: b.Y - handleOverhang, W: b.W, H: b.H + 2*handleOverhang}, true
		}
	}
	return Rect{}, false
}

// HitTest returns the handle under p: lower first, then upper, then middle
func (c *Controller) HitTest(p Point) Handle {
	for _, h := range []Handle{HandleLower, HandleUpper, HandleMiddle} {
		if r, ok := c.Frame(h); ok && r.Contains(p) {
			return h
		}
	}
	return HandleNone
}

// PointerDown starts a drag if p lands on a shown handle. A press replaces
// any drag still in progress.
func (c *Controller) PointerDown(p Point) bool {
	c.highlighted = [4]bool{}
	h := c.HitTest(p)
	c.session = &session{previous: p, active: h}
	if h == HandleNone {
		return false
	}
	c.highlighted[h] = true
	return true
}

// PointerMove applies the pointer movement to the active handle and
// returns the events emitted, in order. Moves while idle do nothing.
func (c *Controller) PointerMove(p Point) []Event {
	if c.session == nil || c.session.active == HandleNone {
		return nil
	}

	t := c.Track()
	m := c.model
	deltaValue := t.DeltaValueForPixelDelta(p.X - c.session.previous.X)
	previous := c.session.previous
	c.session.previous = p

	var events []Event
	switch c.session.active {
	case HandleLower:
		if m.ShowLower && !(deltaValue > 0 && c.atMinRange()) {
			// A hidden upper handle still bounds the range.
			v := min(Clamp(m.lower+deltaValue, m.Minimum, m.Maximum), m.upper)
			m.SetLower(v)
			events = append(events, LowerChanged)
		}
	case HandleMiddle:
		if usable := t.Width - t.HandleWidth; m.ShowMiddle && usable > 0 {
			// Uses the position from before this move, so the playhead
			// trails the pointer by one event.
			m.SetMiddle(previous.X / usable)
		}
	case HandleUpper:
		if m.ShowUpper && !(deltaValue < 0 && c.atMinRange()) {
			v := max(Clamp(m.upper+deltaValue, m.Minimum, m.Maximum), m.lower)
			m.SetUpper(v)
			events = append(events, UpperChanged)
		}
	}

	if m.ShowMiddle {
		m.SetMiddle(Clamp(m.middle, m.lower, m.upper))
		events = append(events, MiddleChanged)
	}
	events = append(events, ValueChanged)

	c.listeners.emit(events)
	return events
}

// PointerUp ends the drag and clears the highlight of shown handles
func (c *Controller) PointerUp() {
	if c.model.ShowLower {
		c.highlighted[HandleLower] = false
	}
	if c.model.ShowMiddle {
		c.highlighted[HandleMiddle] = false
	}
	if c.model.ShowUpper {
		c.highlighted[HandleUpper] = false
	}
	c.session = nil
}

// atMinRange reports whether the selection is already at the minimum length.
// Without an asset there is no length to protect and moves are allowed.
func (c *Controller) atMinRange() bool {
	d, err := c.model.RangeDuration()
	if err != nil {
		return false
	}
	return d.Seconds() <= c.minRange.Seconds()
}
