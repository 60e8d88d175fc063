package detection

import (
	"image"

	"github.com/chartsnap/chart2csv/internal/chart"
	"github.com/chartsnap/chart2csv/internal/imaging"
)

// Orientation tolerance bands for bucketing Hough segments, degrees.
const (
	horizontalTol = 10.0
	verticalTol   = 10.0
)

// Fallback confidence when no structure could be found and the full image
// (minus a margin) is returned.
const fallbackCropConfidence = 0.3

// DetectPlotArea finds the bounding rectangle of the plotted region.
//
// Strategies are tried in order until one yields a plausible box:
//
//  1. Axis-frame lines: Hough segments bucketed into near-horizontal and
//     near-vertical; the extremes of each bucket bound the frame. Requires
//     the region to cover at least 30% of the image in both dimensions.
//  2. Background contour: the largest bright connected region (the plot
//     background fill) covering at least 20% of the image.
//  3. Full image with a 10% margin, at a fixed low confidence; the warning
//     engine flags the crop as uncertain downstream.
//
// The returned box always satisfies the CropBox invariants. DetectPlotArea
// never fails; uncertainty is expressed entirely through the confidence.
func DetectPlotArea(img image.Image) (chart.CropBox, float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	edges := imaging.CannyEdges(img, 50, 150)
	minLen := min(w, h) / 4
	segments := DetectSegments(edges, minLen, 50)

	var horizontalYs, verticalXs []int
	for _, s := range segments {
		switch {
		case s.IsHorizontal(horizontalTol):
			horizontalYs = append(horizontalYs, s.MidY())
		case s.IsVertical(verticalTol):
			verticalXs = append(verticalXs, s.MidX())
		}
	}

	if len(horizontalYs) > 0 && len(verticalXs) > 0 {
		left, right := minMax(verticalXs)
		top, bottom := minMax(horizontalYs)

		width := right - left
		height := bottom - top

		// The plot frame should dominate the image; tiny rectangles are
		// legend boxes or stray strokes.
		if width >= w*3/10 && height >= h*3/10 {
			const margin = 5
			box := chart.CropBox{
				X1: clampInt(left+margin, 0, w-1),
				Y1: clampInt(top+margin, 0, h-1),
				X2: clampInt(right-margin, 1, w),
				Y2: clampInt(bottom-margin, 1, h),
			}
			if box.Validate(w, h) == nil {
				conf := 0.8
				if width > w/2 && height > h/2 {
					conf = 0.9
				}
				return box, conf
			}
		}
	}

	if box, ok := detectPlotAreaContour(img); ok {
		return box, 0.7
	}

	return fallbackCrop(w, h), fallbackCropConfidence
}

// detectPlotAreaContour looks for the plot background: the largest bright
// connected region. Works for charts whose plot area is a white/light panel
// on a tinted page.
func detectPlotAreaContour(img image.Image) (chart.CropBox, bool) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	gray := imaging.ToGray(img)
	bright := imaging.MaskFromGray(gray, 240)

	blobs := FindBlobs(bright, w*h/5)
	if len(blobs) == 0 {
		return chart.CropBox{}, false
	}

	best := blobs[0]
	for _, blob := range blobs[1:] {
		if blob.Area > best.Area {
			best = blob
		}
	}

	// A bright region flush with every border is the page itself, not a
	// plot panel inside it.
	if best.MinX <= 1 && best.MinY <= 1 && best.MaxX >= w-2 && best.MaxY >= h-2 {
		return chart.CropBox{}, false
	}

	const margin = 10
	box := chart.CropBox{
		X1: clampInt(best.MinX+margin, 0, w-1),
		Y1: clampInt(best.MinY+margin, 0, h-1),
		X2: clampInt(best.MaxX-margin, 1, w),
		Y2: clampInt(best.MaxY-margin, 1, h),
	}
	if box.Validate(w, h) != nil {
		return chart.CropBox{}, false
	}
	return box, true
}

// fallbackCrop returns the full image shrunk by a 10% margin on all sides.
func fallbackCrop(w, h int) chart.CropBox {
	mx := w / 10
	my := h / 10
	return chart.CropBox{X1: mx, Y1: my, X2: w - mx, Y2: h - my}
}

func minMax(vals []int) (lo, hi int) {
	lo, hi = vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
