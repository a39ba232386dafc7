package slider

// HandleView is what a renderer needs to draw one handle
type HandleView struct {
	Frame       Rect
	Visible     bool
	Highlighted bool
}

// Snapshot is a read-only copy of the geometry for one paint
type Snapshot struct {
	Track  Track
	Fill   Rect
	Lower  HandleView
	Middle HandleView
	Upper  HandleView
	State  State
}

// Snapshot captures the current geometry for rendering
func (c *Controller) Snapshot() Snapshot {
	t := c.Track()
	m := c.model

	lowerPos := t.PositionForValue(m.lower)
	upperPos := t.PositionForValue(m.upper)
	fill := Rect{X: lowerPos, Y: 0, W: max(upperPos-lowerPos, 0), H: t.Height}

	s := Snapshot{
		Track: t,
		Fill:  fill,
		State: c.State(),
	}
	if m.ShowLower {
		s.Lower = HandleView{Frame: t.HandleFrame(m.lower), Visible: true, Highlighted: c.highlighted[HandleLower]}
	}
	if m.ShowMiddle {
		s.Middle = HandleView{Frame: t.PlayheadFrame(m.middle), Visible: true, Highlighted: c.highlighted[HandleMiddle]}
	}
	if m.ShowUpper {
		s.Upper = HandleView{Frame: t.HandleFrame(m.upper), Visible: true, Highlighted: c.highlighted[HandleUpper]}
	}
	return s
}
