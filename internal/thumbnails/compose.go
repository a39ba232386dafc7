package thumbnails

import (
	"image"
	"image/color"
	"sort"

	"github.com/disintegration/imaging"
)

// Compose lays frames side by side into one cellWidth*n x cellHeight image.
// Cells without a frame stay black.
func Compose(frames []Frame, n, cellWidth, cellHeight int) *image.NRGBA {
	dst := imaging.New(n*cellWidth, cellHeight, color.Black)

	sorted := make([]Frame, len(frames))
	copy(sorted, frames)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Cell.Index < sorted[j].Cell.Index })

	for _, f := range sorted {
		if f.Cell.Index < 0 || f.Cell.Index >= n {
			continue
		}
		tile := imaging.Fill(f.Image, cellWidth, cellHeight, imaging.Center, imaging.Lanczos)
		dst = imaging.Paste(dst, tile, image.Pt(f.Cell.Index*cellWidth, 0))
	}
	return dst
}

// Save writes a composed strip; the format follows the file extension
func Save(img image.Image, path string) error {
	return imaging.Save(img, path)
}
