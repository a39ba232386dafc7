package slider

import (
	"errors"
	"math"
	"time"
)

// ErrNoAsset is returned by time queries when no asset with a usable
// duration is attached to the model.
var ErrNoAsset = errors.New("slider: no video asset attached")

// DefaultTimescale matches the 600 ticks/s used by most QuickTime assets
const DefaultTimescale int32 = 600

// Asset is the duration source backing the normalized slider values
type Asset struct {
	Path      string
	Duration  time.Duration
	Timescale int32
}

// Time is a rational media timestamp: Value ticks of 1/Scale seconds
type Time struct {
	Value int64
	Scale int32
}

// TimeFromSeconds rounds seconds to the nearest tick of scale
func TimeFromSeconds(seconds float64, scale int32) Time {
	if scale <= 0 {
		scale = DefaultTimescale
	}
	return Time{Value: int64(math.Round(seconds * float64(scale))), Scale: scale}
}

// Seconds returns the timestamp in seconds
func (t Time) Seconds() float64 {
	if t.Scale == 0 {
		return 0
	}
	return float64(t.Value) / float64(t.Scale)
}

// Duration converts the timestamp to a time.Duration
func (t Time) Duration() time.Duration {
	return time.Duration(t.Seconds() * float64(time.Second))
}

// TimeRange is a start timestamp plus a duration
type TimeRange struct {
	Start    Time
	Duration Time
}

// End returns Start + Duration in seconds-precision ticks of Start's scale
func (r TimeRange) End() Time {
	return TimeFromSeconds(r.Start.Seconds()+r.Duration.Seconds(), r.Start.Scale)
}

// SetAsset attaches the duration source. A nil asset detaches it.
func (m *Model) SetAsset(a *Asset) {
	m.asset = a
}

// Asset returns the attached asset or nil
func (m *Model) Asset() *Asset {
	return m.asset
}

func (m *Model) timeAt(fraction float64) (Time, error) {
	if m.asset == nil || m.asset.Duration <= 0 {
		return Time{}, ErrNoAsset
	}
	return TimeFromSeconds(m.asset.Duration.Seconds()*fraction, m.asset.Timescale), nil
}

// StartTime is the media time under the lower handle
func (m *Model) StartTime() (Time, error) { return m.timeAt(m.lower) }

// StopTime is the media time under the upper handle
func (m *Model) StopTime() (Time, error) { return m.timeAt(m.upper) }

// CurrentTime is the media time under the middle (playhead) handle
func (m *Model) CurrentTime() (Time, error) { return m.timeAt(m.middle) }

// RangeDuration is the media time between the lower and upper handles
func (m *Model) RangeDuration() (Time, error) {
	if m.asset == nil || m.asset.Duration <= 0 {
		return Time{}, ErrNoAsset
	}
	secs := m.asset.Duration.Seconds()
	return TimeFromSeconds(secs*m.upper-secs*m.lower, m.asset.Timescale), nil
}

// Range returns the selected trim range
func (m *Model) Range() (TimeRange, error) {
	start, err := m.StartTime()
	if err != nil {
		return TimeRange{}, err
	}
	dur, err := m.RangeDuration()
	if err != nil {
		return TimeRange{}, err
	}
	return TimeRange{Start: start, Duration: dur}, nil
}

// Bounds returns the selected range as offsets into the asset. The end is
// capped at the asset duration, since rounding to the timescale can push
// the last tick past it.
func (m *Model) Bounds() (start, end time.Duration, err error) {
	r, err := m.Range()
	if err != nil {
		return 0, 0, err
	}
	return r.Start.Duration(), min(r.End().Duration(), m.asset.Duration), nil
}
