package detection

import (
	"math"

	"github.com/chartsnap/chart2csv/internal/imaging"
)

// Blob is a connected foreground component with the shape statistics the
// extractors filter on.
type Blob struct {
	// Area is the number of foreground pixels in the component.
	Area int

	// CentroidX, CentroidY is the pixel-space center of mass.
	CentroidX, CentroidY float64

	// Bounding box, inclusive on all sides.
	MinX, MinY, MaxX, MaxY int

	// Perimeter is the count of component pixels adjacent to background
	// (4-connectivity).
	Perimeter int

	// Circularity is 4*pi*Area / Perimeter^2: ~1.0 for discs, low for
	// elongated shapes such as text strokes and line fragments.
	Circularity float64
}

// Width returns the bounding-box width in pixels.
func (b Blob) Width() int { return b.MaxX - b.MinX + 1 }

// Height returns the bounding-box height in pixels.
func (b Blob) Height() int { return b.MaxY - b.MinY + 1 }

// FillRatio is Area over bounding-box area: ~1.0 for solid rectangles.
func (b Blob) FillRatio() float64 {
	box := b.Width() * b.Height()
	if box == 0 {
		return 0
	}
	return float64(b.Area) / float64(box)
}

// FindBlobs groups foreground pixels of a mask into 8-connected components
// and computes their shape statistics. Components smaller than minArea are
// discarded as noise.
func FindBlobs(mask imaging.Mask, minArea int) []Blob {
	width := mask.Width()
	height := mask.Height()
	visited := imaging.NewMask(width, height)

	blobs := make([]Blob, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !mask[y][x] || visited[y][x] {
				continue
			}
			b := traceComponent(mask, visited, x, y)
			if b.Area >= minArea {
				blobs = append(blobs, b)
			}
		}
	}
	return blobs
}

// traceComponent flood-fills one component iteratively (stack-based, so
// large components cannot overflow the goroutine stack) and accumulates its
// statistics in a single pass.
func traceComponent(mask, visited imaging.Mask, startX, startY int) Blob {
	width := mask.Width()
	height := mask.Height()

	type point struct{ x, y int }
	stack := []point{{startX, startY}}

	b := Blob{MinX: startX, MinY: startY, MaxX: startX, MaxY: startY}
	var sumX, sumY float64

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.x < 0 || p.x >= width || p.y < 0 || p.y >= height {
			continue
		}
		if visited[p.y][p.x] || !mask[p.y][p.x] {
			continue
		}
		visited[p.y][p.x] = true

		b.Area++
		sumX += float64(p.x)
		sumY += float64(p.y)
		if p.x < b.MinX {
			b.MinX = p.x
		}
		if p.x > b.MaxX {
			b.MaxX = p.x
		}
		if p.y < b.MinY {
			b.MinY = p.y
		}
		if p.y > b.MaxY {
			b.MaxY = p.y
		}

		// Boundary pixel: any 4-neighbor outside the mask or foreground
		onBoundary := false
		for _, n := range [4]point{{p.x - 1, p.y}, {p.x + 1, p.y}, {p.x, p.y - 1}, {p.x, p.y + 1}} {
			if n.x < 0 || n.x >= width || n.y < 0 || n.y >= height || !mask[n.y][n.x] {
				onBoundary = true
				break
			}
		}
		if onBoundary {
			b.Perimeter++
		}

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, point{p.x + dx, p.y + dy})
			}
		}
	}

	b.CentroidX = sumX / float64(b.Area)
	b.CentroidY = sumY / float64(b.Area)
	if b.Perimeter > 0 {
		b.Circularity = 4 * math.Pi * float64(b.Area) / float64(b.Perimeter*b.Perimeter)
		if b.Circularity > 1 {
			b.Circularity = 1
		}
	}
	return b
}
