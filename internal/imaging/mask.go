package imaging

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/effect"
)

// Mask is a binary foreground image indexed [y][x]. True marks foreground.
type Mask [][]bool

// NewMask allocates an all-false mask of the given size.
func NewMask(width, height int) Mask {
	m := make(Mask, height)
	for y := range m {
		m[y] = make([]bool, width)
	}
	return m
}

// Width returns the horizontal extent of the mask, 0 when empty.
func (m Mask) Width() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Height returns the vertical extent of the mask.
func (m Mask) Height() int { return len(m) }

// Count returns the number of foreground pixels.
func (m Mask) Count() int {
	n := 0
	for _, row := range m {
		for _, v := range row {
			if v {
				n++
			}
		}
	}
	return n
}

// ToGray renders the mask as a grayscale image with foreground white.
func (m Mask) ToGray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width(), m.Height()))
	for y, row := range m {
		for x, v := range row {
			if v {
				g.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return g
}

// MaskFromGray thresholds a grayscale image at the given level (>= level is
// foreground).
func MaskFromGray(g *image.Gray, level uint8) Mask {
	b := g.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if g.GrayAt(x+b.Min.X, y+b.Min.Y).Y >= level {
				m[y][x] = true
			}
		}
	}
	return m
}

// Close performs a morphological closing (dilate then erode) to bridge small
// gaps in the foreground, e.g. broken line-chart strokes.
func (m Mask) Close(radius float64) Mask {
	g := m.ToGray()
	closed := effect.Erode(effect.Dilate(g, radius), radius)
	return maskFromRGBA(closed, 128)
}

// Dilate grows the foreground by the given radius.
func (m Mask) Dilate(radius float64) Mask {
	return maskFromRGBA(effect.Dilate(m.ToGray(), radius), 128)
}

func maskFromRGBA(img *image.RGBA, level uint8) Mask {
	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, _, _, _ := img.At(x+b.Min.X, y+b.Min.Y).RGBA()
			if uint8(r>>8) >= level {
				m[y][x] = true
			}
		}
	}
	return m
}

// RemoveGridLines erases horizontal and vertical grid lines from a
// foreground mask. A grid line shows up as an uninterrupted foreground run
// spanning a large fraction of a row or column; data marks do not. Detected
// runs are dilated by one pixel before erasure to catch anti-aliased edges.
func RemoveGridLines(m Mask) Mask {
	w, h := m.Width(), m.Height()
	if w == 0 || h == 0 {
		return m
	}

	minHRun := w / 4
	minVRun := h / 4
	grid := NewMask(w, h)

	// Horizontal runs
	for y := 0; y < h; y++ {
		runStart := -1
		for x := 0; x <= w; x++ {
			on := x < w && m[y][x]
			if on && runStart < 0 {
				runStart = x
			}
			if !on && runStart >= 0 {
				if x-runStart >= minHRun {
					for i := runStart; i < x; i++ {
						grid[y][i] = true
					}
				}
				runStart = -1
			}
		}
	}

	// Vertical runs
	for x := 0; x < w; x++ {
		runStart := -1
		for y := 0; y <= h; y++ {
			on := y < h && m[y][x]
			if on && runStart < 0 {
				runStart = y
			}
			if !on && runStart >= 0 {
				if y-runStart >= minVRun {
					for i := runStart; i < y; i++ {
						grid[i][x] = true
					}
				}
				runStart = -1
			}
		}
	}

	// Dilate the grid mask by one pixel, then subtract it.
	cleaned := NewMask(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !m[y][x] {
				continue
			}
			nearGrid := false
			for dy := -1; dy <= 1 && !nearGrid; dy++ {
				for dx := -1; dx <= 1 && !nearGrid; dx++ {
					ny, nx := y+dy, x+dx
					if ny >= 0 && ny < h && nx >= 0 && nx < w && grid[ny][nx] {
						nearGrid = true
					}
				}
			}
			if !nearGrid {
				cleaned[y][x] = true
			}
		}
	}
	return cleaned
}
