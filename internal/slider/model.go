package slider

// Model holds the slider values and which handles are active.
// Values are fractions of the asset duration when Minimum/Maximum are 0/1.
type Model struct {
	Minimum float64
	Maximum float64

	ShowLower  bool
	ShowMiddle bool
	ShowUpper  bool

	lower  float64
	middle float64
	upper  float64

	asset *Asset
}

// NewModel creates a model with the default [0,1] range and all handles shown
func NewModel() *Model {
	return &Model{
		Minimum:    0.0,
		Maximum:    1.0,
		ShowLower:  true,
		ShowMiddle: true,
		ShowUpper:  true,
		lower:      0.0,
		middle:     0.0,
		upper:      1.0,
	}
}

func (m *Model) Lower() float64  { return m.lower }
func (m *Model) Middle() float64 { return m.middle }
func (m *Model) Upper() float64  { return m.upper }

// SetLower assigns the lower value unless the lower handle is hidden.
// No clamping happens here; callers bound the value first.
func (m *Model) SetLower(v float64) bool {
	if !m.ShowLower {
		return false
	}
	m.lower = v
	return true
}

// SetMiddle assigns the playhead value unless the middle handle is hidden
func (m *Model) SetMiddle(v float64) bool {
	if !m.ShowMiddle {
		return false
	}
	m.middle = v
	return true
}

// SetUpper assigns the upper value unless the upper handle is hidden
func (m *Model) SetUpper(v float64) bool {
	if !m.ShowUpper {
		return false
	}
	m.upper = v
	return true
}

// Reset moves the range back to cover the whole asset
func (m *Model) Reset() {
	m.SetLower(0.0)
	m.SetUpper(1.0)
}

// Clamp bounds value to [lo, hi]
func Clamp(value, lo, hi float64) float64 {
	return min(max(value, lo), hi)
}
