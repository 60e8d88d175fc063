package extract

import (
	"image"
	"math"
	"sort"

	dimg "github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/chartsnap/chart2csv/internal/chart"
	"github.com/chartsnap/chart2csv/internal/detection"
	"github.com/chartsnap/chart2csv/internal/imaging"
)

// PixelPoint is one extracted mark position in full-image pixel coordinates.
type PixelPoint struct {
	X, Y float64
}

// Params are the tunable thresholds of the extractors. The zero value is not
// usable; start from pipeline.DefaultConfig.
type Params struct {
	// HSV thresholds (0-1) for the color-first scatter pass.
	MinSaturation float64
	MinValue      float64

	// Blob filters for the color pass.
	MinBlobArea    int
	MaxBlobArea    int
	MinCircularity float64

	// Stricter blob filters for the grayscale fallback pass, which sees
	// text and grid fragments the color pass does not.
	FallbackMinArea        int
	FallbackMaxArea        int
	FallbackMinCircularity float64

	// Point-count bands for warnings and the confidence heuristic.
	FewPointsMin int
	NoiseMax     int

	// Line tracing: horizontal resample step and the empty-column run
	// length that counts as a gap.
	LineStep   int
	LineGapRun int

	// Minimum fill ratio for a blob to count as a bar.
	BarMinFill float64
}

// Scatter extracts scatter-plot marks from the crop region.
//
// The first pass masks saturated colored pixels, which ignores the grayscale
// grid, axes and labels entirely. When that yields nothing (monochrome
// charts), a grayscale foreground pass runs with stricter area and
// circularity filters to reject text and line fragments.
func Scatter(img image.Image, crop chart.CropBox, p Params, warn *chart.Collector) ([]PixelPoint, float64) {
	sub := dimg.Crop(img, image.Rect(crop.X1, crop.Y1, crop.X2, crop.Y2))

	mask := imaging.SaturationMask(sub, p.MinSaturation, p.MinValue)
	blobs := filterBlobs(detection.FindBlobs(mask, p.MinBlobArea), p.MaxBlobArea, p.MinCircularity)
	colored := len(blobs) > 0

	if !colored {
		fg := imaging.RemoveGridLines(imaging.ForegroundMask(sub))
		blobs = filterBlobs(detection.FindBlobs(fg, p.FallbackMinArea), p.FallbackMaxArea, p.FallbackMinCircularity)
	}

	points := make([]PixelPoint, 0, len(blobs))
	for _, b := range blobs {
		points = append(points, PixelPoint{
			X: float64(crop.X1) + b.CentroidX,
			Y: float64(crop.Y1) + b.CentroidY,
		})
	}

	if len(points) < p.FewPointsMin {
		warn.Add(chart.WarnFewPoints, "only %d points extracted", len(points))
	}
	if len(points) > p.NoiseMax {
		warn.Add(chart.WarnNoiseDetected, "%d marks extracted, many may be noise", len(points))
	}
	if colored {
		if n := hueClusters(sub, blobs); n >= 2 {
			warn.Add(chart.WarnMultiSeriesDetected, "%d distinct mark colors found, series are merged in the output", n)
		}
	}
	if legendCluster(blobs, crop) {
		warn.Add(chart.WarnLegendDetected, "mark cluster in a plot corner looks like a legend")
	}

	return points, pointCloudConfidence(blobs, crop)
}

// filterBlobs keeps blobs within the area ceiling and circularity floor.
func filterBlobs(blobs []detection.Blob, maxArea int, minCircularity float64) []detection.Blob {
	out := blobs[:0]
	for _, b := range blobs {
		if b.Area > maxArea || b.Circularity < minCircularity {
			continue
		}
		out = append(out, b)
	}
	return out
}

// pointCloudConfidence scores how mark-like the detected blobs are: a count
// in the plausible band, consistent sizes and spatial spread all push the
// score up from the 0.5 base.
func pointCloudConfidence(blobs []detection.Blob, crop chart.CropBox) float64 {
	conf := 0.5
	n := len(blobs)

	switch {
	case n >= 3 && n <= 200:
		conf += 0.2
	case n > 500:
		conf -= 0.2
	}

	if n >= 2 {
		var mean, sq float64
		for _, b := range blobs {
			mean += float64(b.Area)
		}
		mean /= float64(n)
		for _, b := range blobs {
			d := float64(b.Area) - mean
			sq += d * d
		}
		cv := math.Sqrt(sq/float64(n)) / mean
		if cv < 0.5 {
			conf += 0.2
		} else if cv > 1.5 {
			conf -= 0.1
		}

		minX, maxX := blobs[0].CentroidX, blobs[0].CentroidX
		minY, maxY := blobs[0].CentroidY, blobs[0].CentroidY
		for _, b := range blobs[1:] {
			minX = math.Min(minX, b.CentroidX)
			maxX = math.Max(maxX, b.CentroidX)
			minY = math.Min(minY, b.CentroidY)
			maxY = math.Max(maxY, b.CentroidY)
		}
		spreadX := (maxX - minX) / float64(crop.Width())
		spreadY := (maxY - minY) / float64(crop.Height())
		if spreadX > 0.3 && spreadY > 0.3 {
			conf += 0.1
		}
	}

	return math.Min(1.0, math.Max(0.1, conf))
}

// hueClusters counts distinct mark colors: blob centroid hues, sorted and
// split wherever adjacent hues differ by more than 30 degrees. One cluster
// means one series.
func hueClusters(sub image.Image, blobs []detection.Blob) int {
	hues := make([]float64, 0, len(blobs))
	for _, b := range blobs {
		c, ok := colorful.MakeColor(sub.At(int(b.CentroidX), int(b.CentroidY)))
		if !ok {
			continue
		}
		h, s, _ := c.Hsv()
		if s < 0.15 {
			continue
		}
		hues = append(hues, h)
	}
	if len(hues) < 2 {
		return len(hues)
	}
	sort.Float64s(hues)

	clusters := 1
	for i := 1; i < len(hues); i++ {
		if hues[i]-hues[i-1] > 30 {
			clusters++
		}
	}
	// Hue wraps at 360; merge the first and last clusters if they touch.
	if clusters > 1 && hues[0]+360-hues[len(hues)-1] <= 30 {
		clusters--
	}
	return clusters
}

// legendCluster reports whether a tight group of at least three blobs sits
// inside a corner region covering 20% of each crop dimension. Legends render
// as a stack of small swatches in a corner.
func legendCluster(blobs []detection.Blob, crop chart.CropBox) bool {
	w := float64(crop.Width())
	h := float64(crop.Height())
	cornerW := w * 0.2
	cornerH := h * 0.2

	corners := [4][2]float64{
		{0, 0}, {w - cornerW, 0},
		{0, h - cornerH}, {w - cornerW, h - cornerH},
	}
	for _, c := range corners {
		count := 0
		for _, b := range blobs {
			if b.CentroidX >= c[0] && b.CentroidX < c[0]+cornerW &&
				b.CentroidY >= c[1] && b.CentroidY < c[1]+cornerH {
				count++
			}
		}
		if count >= 3 {
			return true
		}
	}
	return false
}
