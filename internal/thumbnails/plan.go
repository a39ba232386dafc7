// Package thumbnails produces the strip of video frames drawn behind the
// range slider track.
package thumbnails

import (
	"math"
	"time"
)

// Cell is one slot of the strip
type Cell struct {
	Index int
	X     float64
	Width float64
	At    time.Duration
}

// Plan splits a width x height strip into roughly square cells and picks the
// timestamp sampled for each: the middle of the slice of the video the cell
// sits over.
func Plan(width, height float64, duration time.Duration) []Cell {
	if width <= 0 || height <= 0 || duration <= 0 {
		return nil
	}

	n := max(int(math.Floor(width/height)), 1)
	cellWidth := width / float64(n)

	cells := make([]Cell, n)
	for i := range cells {
		cells[i] = Cell{
			Index: i,
			X:     float64(i) * cellWidth,
			Width: cellWidth,
			At:    time.Duration(float64(duration) * (float64(i) + 0.5) / float64(n)),
		}
	}
	return cells
}
