package extract

import (
	"image"

	dimg "github.com/disintegration/imaging"

	"github.com/chartsnap/chart2csv/internal/chart"
	"github.com/chartsnap/chart2csv/internal/detection"
	"github.com/chartsnap/chart2csv/internal/imaging"
)

// Classify guesses the chart type from the shape statistics of the marks in
// the crop region.
//
// The rules, applied in order:
//   - several solid rectangles of similar width: bar
//   - one dominant component spanning most of the crop width while staying
//     thin vertically per column: line
//   - otherwise: scatter
//
// Scatter is the safest default; its extractor degrades most gracefully when
// the guess is wrong.
func Classify(img image.Image, crop chart.CropBox, p Params) chart.ChartType {
	sub := dimg.Crop(img, image.Rect(crop.X1, crop.Y1, crop.X2, crop.Y2))

	mask := imaging.SaturationMask(sub, p.MinSaturation, p.MinValue)
	blobs := detection.FindBlobs(mask, p.MinBlobArea)
	if len(blobs) == 0 {
		fg := imaging.RemoveGridLines(imaging.ForegroundMask(sub))
		blobs = detection.FindBlobs(fg, p.MinBlobArea)
	}
	if len(blobs) == 0 {
		return chart.Scatter
	}

	rects := 0
	for _, b := range blobs {
		if b.FillRatio() >= p.BarMinFill && b.Area >= crop.Width()*crop.Height()/200 {
			rects++
		}
	}
	if rects >= 2 {
		return chart.Bar
	}

	largest := blobs[0]
	for _, b := range blobs[1:] {
		if b.Area > largest.Area {
			largest = b
		}
	}
	spansWidth := float64(largest.Width()) >= 0.6*float64(crop.Width())
	thinStroke := largest.Area < largest.Width()*largest.Height()/3
	if spansWidth && thinStroke {
		return chart.Line
	}

	return chart.Scatter
}
