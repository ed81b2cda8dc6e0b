package drawing

import (
	"image"
	"image/color"
	"image/draw"
)

const (
	DefaultRenderSize  = 512
	DefaultStrokeWidth = 4
)

var ink = color.Gray{Y: 0}

// Render rasterizes lines onto a white size x size canvas, each line stroked
// in black with a square brush of strokeWidth pixels. Stamping is order
// independent, so the output only depends on the set of lines.
func Render(lines []Line, size, strokeWidth int) *image.Gray {
	if size < 1 {
		size = 1
	}
	if strokeWidth < 1 {
		strokeWidth = 1
	}
	img := image.NewGray(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	for _, l := range lines {
		stroke(img, l, size, strokeWidth)
	}
	return img
}

func stroke(img *image.Gray, l Line, size, width int) {
	x0, y0 := int(l.From.X*float64(size)), int(l.From.Y*float64(size))
	x1, y1 := int(l.To.X*float64(size)), int(l.To.Y*float64(size))

	steps := max(abs(x1-x0), abs(y1-y0))
	if steps == 0 {
		stamp(img, x0, y0, width)
		return
	}
	for i := 0; i <= steps; i++ {
		x := x0 + (x1-x0)*i/steps
		y := y0 + (y1-y0)*i/steps
		stamp(img, x, y, width)
	}
}

func stamp(img *image.Gray, cx, cy, width int) {
	lo := -(width - 1) / 2
	hi := lo + width - 1
	bounds := img.Bounds()
	for dy := lo; dy <= hi; dy++ {
		for dx := lo; dx <= hi; dx++ {
			p := image.Pt(cx+dx, cy+dy)
			if p.In(bounds) {
				img.SetGray(p.X, p.Y, ink)
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
