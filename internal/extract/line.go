package extract

import (
	"image"
	"math"
	"sort"

	dimg "github.com/disintegration/imaging"

	"github.com/chartsnap/chart2csv/internal/chart"
	"github.com/chartsnap/chart2csv/internal/detection"
	"github.com/chartsnap/chart2csv/internal/imaging"
)

// lineSeriesGap is the vertical separation, in pixels, at which foreground
// pixels in one column count as two distinct stroke candidates.
const lineSeriesGap = 8

// LinePoints traces a single line chart through the crop region.
//
// The foreground mask is morphologically closed to bridge anti-aliasing
// breaks, grid lines are removed, and then every LineStep-th column takes
// the median Y of its foreground pixels as the line position. The median
// rejects stray marker or text pixels above and below the stroke.
//
// Columns with no foreground form gaps; runs longer than LineGapRun columns
// raise a gap warning. The confidence grows with horizontal coverage:
// min(1, 0.4 + 0.6*coverage).
//
// A column whose foreground splits into vertically separated groups holds
// more than one stroke; when most sampled columns look like that the chart
// has multiple line series, the per-column median lands between them, and a
// multi-series warning is raised.
func LinePoints(img image.Image, crop chart.CropBox, p Params, warn *chart.Collector) ([]PixelPoint, float64) {
	sub := dimg.Crop(img, image.Rect(crop.X1, crop.Y1, crop.X2, crop.Y2))

	mask := imaging.RemoveGridLines(imaging.ForegroundMask(sub).Close(1))
	w := mask.Width()
	h := mask.Height()

	step := p.LineStep
	if step < 1 {
		step = 1
	}

	points := make([]PixelPoint, 0, w/step)
	sampled := 0
	covered := 0
	multiStroke := 0
	gapRun := 0
	longestGap := 0

	for x := 0; x < w; x += step {
		sampled++
		ys := make([]float64, 0, 8)
		for y := 0; y < h; y++ {
			if mask[y][x] {
				ys = append(ys, float64(y))
			}
		}
		if len(ys) == 0 {
			gapRun++
			if gapRun > longestGap {
				longestGap = gapRun
			}
			continue
		}
		gapRun = 0
		covered++

		sort.Float64s(ys)
		if strokeGroups(ys) >= 2 {
			multiStroke++
		}
		mid := ys[len(ys)/2]
		if len(ys)%2 == 0 {
			mid = (ys[len(ys)/2-1] + ys[len(ys)/2]) / 2
		}
		points = append(points, PixelPoint{
			X: float64(crop.X1 + x),
			Y: float64(crop.Y1) + mid,
		})
	}

	if longestGap*step > p.LineGapRun {
		warn.Add(chart.WarnLineGaps, "line missing for a run of %d columns", longestGap*step)
	}
	if len(points) < p.FewPointsMin {
		warn.Add(chart.WarnFewPoints, "only %d points extracted", len(points))
	}
	if covered > 0 && multiStroke*3 >= covered {
		warn.Add(chart.WarnMultiSeriesDetected,
			"%d of %d columns hold more than one stroke, series are merged in the output", multiStroke, covered)
	}
	if legendCluster(detection.FindBlobs(mask, p.MinBlobArea), crop) {
		warn.Add(chart.WarnLegendDetected, "mark cluster in a plot corner looks like a legend")
	}

	coverage := 0.0
	if sampled > 0 {
		coverage = float64(covered) / float64(sampled)
	}
	conf := math.Min(1.0, 0.4+0.6*coverage)
	return points, conf
}

// strokeGroups counts runs of sorted column pixels separated by more than
// lineSeriesGap.
func strokeGroups(sorted []float64) int {
	groups := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i]-sorted[i-1] > lineSeriesGap {
			groups++
		}
	}
	return groups
}
