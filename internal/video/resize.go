package video

import (
	"image"
	"image/draw"

	"github.com/nfnt/resize"
)

// Fit returns img as a width x height RGBA image anchored at the origin.
// Images that already match are returned unchanged.
func Fit(img image.Image, width, height int) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && b.Dx() == width && b.Dy() == height {
		return rgba
	}

	var scaled image.Image = img
	if b.Dx() != width || b.Dy() != height {
		scaled = resize.Resize(uint(width), uint(height), img, resize.Bilinear)
	}
	return toRGBA(scaled)
}

func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
