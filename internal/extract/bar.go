package extract

import (
	"image"
	"math"

	dimg "github.com/disintegration/imaging"

	"github.com/chartsnap/chart2csv/internal/chart"
	"github.com/chartsnap/chart2csv/internal/detection"
	"github.com/chartsnap/chart2csv/internal/imaging"
)

// Bar is one detected bar: the pixel center along the category axis and the
// pixel of the value edge (bar top for vertical bars, right edge for
// horizontal ones). Coordinates are full-image.
type Bar struct {
	Center float64
	Value  float64
}

// BarResult is the outcome of bar extraction.
type BarResult struct {
	Bars []Bar
	// Horizontal is set when the bars grow rightward instead of upward.
	Horizontal bool
	Confidence float64
}

// Bars extracts the bars of a simple single-series bar chart.
//
// Candidate bars are solid connected components with a near-rectangular fill
// ratio. The chart orientation is the majority aspect among candidates:
// taller-than-wide means vertical bars. The value edge is the bar top for
// vertical charts and the right edge for horizontal ones; the opposite end
// sits on the axis and carries no information.
//
// Distinct bar fill colors or a swatch cluster in a plot corner raise the
// multi-series / legend warnings; the bars still come back as one series.
func Bars(img image.Image, crop chart.CropBox, p Params, warn *chart.Collector) BarResult {
	sub := dimg.Crop(img, image.Rect(crop.X1, crop.Y1, crop.X2, crop.Y2))

	mask := imaging.SaturationMask(sub, p.MinSaturation, p.MinValue)
	blobs := rectangular(detection.FindBlobs(mask, p.MinBlobArea), p.BarMinFill)
	colored := len(blobs) > 0
	if !colored {
		fg := imaging.RemoveGridLines(imaging.ForegroundMask(sub))
		blobs = rectangular(detection.FindBlobs(fg, p.MinBlobArea), p.BarMinFill)
	}

	if len(blobs) == 0 {
		warn.Add(chart.WarnFewPoints, "no bars detected")
		return BarResult{Confidence: 0.1}
	}

	vertical := 0
	for _, b := range blobs {
		if b.Height() >= b.Width() {
			vertical++
		}
	}
	horizontal := vertical*2 < len(blobs)

	bars := make([]Bar, 0, len(blobs))
	for _, b := range blobs {
		if horizontal {
			bars = append(bars, Bar{
				Center: float64(crop.Y1) + b.CentroidY,
				Value:  float64(crop.X1 + b.MaxX),
			})
		} else {
			bars = append(bars, Bar{
				Center: float64(crop.X1) + b.CentroidX,
				Value:  float64(crop.Y1 + b.MinY),
			})
		}
	}

	if len(bars) < p.FewPointsMin {
		warn.Add(chart.WarnFewPoints, "only %d bars detected", len(bars))
	}
	if colored {
		if n := hueClusters(sub, blobs); n >= 2 {
			warn.Add(chart.WarnMultiSeriesDetected, "%d distinct bar colors found, series are merged in the output", n)
		}
	}
	if legendCluster(blobs, crop) {
		warn.Add(chart.WarnLegendDetected, "mark cluster in a plot corner looks like a legend")
	}

	return BarResult{
		Bars:       bars,
		Horizontal: horizontal,
		Confidence: barConfidence(blobs, crop),
	}
}

// rectangular keeps blobs that fill their bounding box like a solid bar.
func rectangular(blobs []detection.Blob, minFill float64) []detection.Blob {
	out := blobs[:0]
	for _, b := range blobs {
		if b.FillRatio() >= minFill {
			out = append(out, b)
		}
	}
	return out
}

// barConfidence scores the bar set: a handful of bars with consistent widths
// is the expected shape of a simple bar chart.
func barConfidence(blobs []detection.Blob, crop chart.CropBox) float64 {
	conf := 0.5
	n := len(blobs)
	if n >= 2 && n <= 50 {
		conf += 0.2
	}

	if n >= 2 {
		var mean, sq float64
		for _, b := range blobs {
			mean += float64(b.Width())
		}
		mean /= float64(n)
		for _, b := range blobs {
			d := float64(b.Width()) - mean
			sq += d * d
		}
		if math.Sqrt(sq/float64(n))/mean < 0.3 {
			conf += 0.2
		}
	}
	return math.Min(1.0, math.Max(0.1, conf))
}

// NearestTick snaps a category-axis pixel position to the value of the
// closest tick within tolerance pixels. The second return is false when no
// tick is close enough; callers then fall back to the bar index.
func NearestTick(pixel float64, ticks []chart.Tick, tolerance float64) (float64, bool) {
	best := math.Inf(1)
	var value float64
	for _, t := range ticks {
		d := math.Abs(float64(t.Pixel) - pixel)
		if d < best {
			best = d
			value = t.Value
		}
	}
	if best > tolerance {
		return 0, false
	}
	return value, true
}
