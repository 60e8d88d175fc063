package detection

import (
	"image"
	"math"

	"github.com/chartsnap/chart2csv/internal/chart"
	"github.com/chartsnap/chart2csv/internal/imaging"
)

// AxisResult is the outcome of axis detection: both axis lines, the
// combined confidence, and whether the pair deviates from perpendicular.
type AxisResult struct {
	X          chart.AxisLine
	Y          chart.AxisLine
	Confidence float64
	// Skewed is set when the detected axis pair is more than 10 degrees
	// off perpendicular.
	Skewed bool
}

// DetectAxes locates the X axis (bottom-most near-horizontal segment) and the
// Y axis (left-most near-vertical segment) inside the crop region of img.
// Returned pixel positions are in full-image coordinates.
//
// When Hough segments yield no usable axis, a projection-density fallback
// scans the bottom / left 30% bands of the crop for the darkest row/column.
// The final fallback assumes the crop edges themselves are the axes.
func DetectAxes(img image.Image, crop chart.CropBox) AxisResult {
	sub := cropImage(img, crop)
	w := crop.Width()
	h := crop.Height()

	edges := imaging.CannyEdges(sub, 50, 150)
	minLen := min(w, h) / 4
	segments := DetectSegments(edges, minLen, 50)

	var xSeg, ySeg *Segment
	for i := range segments {
		s := &segments[i]
		switch {
		case s.IsHorizontal(horizontalTol):
			// Bottom-most horizontal: the X axis sits under the data.
			if xSeg == nil || s.MidY() > xSeg.MidY() {
				xSeg = s
			}
		case s.IsVertical(verticalTol):
			if ySeg == nil || s.MidX() < ySeg.MidX() {
				ySeg = s
			}
		}
	}

	res := AxisResult{Confidence: 0.9}

	if xSeg != nil {
		res.X = chart.AxisLine{Kind: chart.AxisX, Pixel: crop.Y1 + xSeg.MidY(), Confidence: 0.9}
	}
	if ySeg != nil {
		res.Y = chart.AxisLine{Kind: chart.AxisY, Pixel: crop.X1 + ySeg.MidX(), Confidence: 0.9}
	}

	if xSeg != nil && ySeg != nil {
		between := math.Abs(angleBetween(xSeg.AngleDegrees, ySeg.AngleDegrees))
		if between < 80 || between > 100 {
			res.Skewed = true
			res.Confidence = 0.6
			res.X.Confidence = 0.6
			res.Y.Confidence = 0.6
		}
		return res
	}

	// Projection fallback for whichever axis is missing.
	gray := imaging.ToGray(sub)
	if xSeg == nil {
		if y, ok := darkestRow(gray, h*7/10, h); ok {
			res.X = chart.AxisLine{Kind: chart.AxisX, Pixel: crop.Y1 + y, Confidence: 0.5}
		} else {
			res.X = chart.AxisLine{Kind: chart.AxisX, Pixel: crop.Y2 - 1, Confidence: 0.2}
		}
	}
	if ySeg == nil {
		if x, ok := darkestColumn(gray, 0, w*3/10); ok {
			res.Y = chart.AxisLine{Kind: chart.AxisY, Pixel: crop.X1 + x, Confidence: 0.5}
		} else {
			res.Y = chart.AxisLine{Kind: chart.AxisY, Pixel: crop.X1, Confidence: 0.2}
		}
	}
	res.Confidence = math.Min(res.X.Confidence, res.Y.Confidence)
	return res
}

// angleBetween returns the unsigned difference between two segment
// orientations, folded into [0, 180).
func angleBetween(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 180)
	return d
}

// darkestRow finds the row in [from, to) whose mean brightness is lowest,
// provided it is dark enough to plausibly be a drawn axis line.
func darkestRow(g *image.Gray, from, to int) (int, bool) {
	b := g.Bounds()
	w := b.Dx()
	bestY, bestMean := -1, 255.0
	for y := from; y < to; y++ {
		var sum int
		for x := 0; x < w; x++ {
			sum += int(g.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
		}
		mean := float64(sum) / float64(w)
		if mean < bestMean {
			bestMean = mean
			bestY = y
		}
	}
	if bestY < 0 || bestMean > 200 {
		return 0, false
	}
	return bestY, true
}

// darkestColumn is the vertical counterpart of darkestRow.
func darkestColumn(g *image.Gray, from, to int) (int, bool) {
	b := g.Bounds()
	h := b.Dy()
	bestX, bestMean := -1, 255.0
	for x := from; x < to; x++ {
		var sum int
		for y := 0; y < h; y++ {
			sum += int(g.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
		}
		mean := float64(sum) / float64(h)
		if mean < bestMean {
			bestMean = mean
			bestX = x
		}
	}
	if bestX < 0 || bestMean > 200 {
		return 0, false
	}
	return bestX, true
}

// cropImage returns the crop region of img as a standalone RGBA image with
// bounds starting at (0, 0).
func cropImage(img image.Image, crop chart.CropBox) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, crop.Width(), crop.Height()))
	for y := 0; y < crop.Height(); y++ {
		for x := 0; x < crop.Width(); x++ {
			out.Set(x, y, img.At(b.Min.X+crop.X1+x, b.Min.Y+crop.Y1+y))
		}
	}
	return out
}
