package thumbnails

import (
	"image"
	"math"

	"github.com/nfnt/resize"
)

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// Fill scales img to cover width x height and crops the overflow evenly
// from both sides, like an aspect-fill image view.
func Fill(img image.Image, width, height int) image.Image {
	if width <= 0 || height <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return img
	}

	scale := math.Max(float64(width)/float64(b.Dx()), float64(height)/float64(b.Dy()))
	sw := uint(math.Ceil(float64(b.Dx()) * scale))
	sh := uint(math.Ceil(float64(b.Dy()) * scale))

	scaled := img
	if int(sw) != b.Dx() || int(sh) != b.Dy() {
		scaled = resize.Resize(sw, sh, img, resize.Bilinear)
	}

	sb := scaled.Bounds()
	x0 := sb.Min.X + (sb.Dx()-width)/2
	y0 := sb.Min.Y + (sb.Dy()-height)/2
	crop := image.Rect(x0, y0, x0+width, y0+height)

	if si, ok := scaled.(subImager); ok {
		return si.SubImage(crop)
	}
	return scaled
}

// cellPixels returns the pixel size of a cell decoded at decodeHeight,
// keeping the cell's aspect ratio
func cellPixels(cell Cell, trackHeight float64, decodeHeight int) (int, int) {
	if trackHeight <= 0 {
		return 0, 0
	}
	w := int(math.Round(float64(decodeHeight) * cell.Width / trackHeight))
	return max(w, 1), decodeHeight
}
