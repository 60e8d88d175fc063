package ocr

import (
	"context"
	"image"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/chartsnap/chart2csv/internal/chart"
)

// TextCandidate is one piece of text a reader found, anchored to where it
// sits in the full image.
type TextCandidate struct {
	Text   string
	Bounds image.Rectangle
}

// LabelReader reads text from a rectangular region of an image. Coordinates
// in the returned candidates are full-image coordinates.
type LabelReader interface {
	ReadRegion(ctx context.Context, img image.Image, region image.Rectangle) ([]TextCandidate, error)
}

// Axis label strips relative to the detected axis lines. X labels sit in a
// band below the X axis; Y labels sit in a band left of the Y axis.
const (
	xStripTop    = 5
	xStripBottom = 40
	yStripLeft   = 60
	yStripRight  = 5
)

// numberPattern matches a decimal number with optional sign and exponent,
// anywhere inside a label.
var numberPattern = regexp.MustCompile(`[-+]?\d*\.?\d+([eE][-+]?\d+)?`)

// ParseNumber extracts a numeric value from raw label text. Unicode minus
// and dash variants are normalized first, and thousands separators are
// stripped, so "−1,500" parses as -1500.
func ParseNumber(text string) (float64, bool) {
	s := strings.NewReplacer(
		"−", "-", // minus sign
		"–", "-", // en dash
		"—", "-", // em dash
		",", "",
		" ", "",
	).Replace(text)

	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// TierConfidence maps the fraction of labels that parsed as numbers to an
// OCR component confidence, with the warning to emit alongside. The empty
// warning code means no warning.
func TierConfidence(parsedFraction float64) (float64, chart.WarningCode) {
	switch {
	case parsedFraction >= 0.8:
		return 1.0, ""
	case parsedFraction >= 0.6:
		return 0.7, ""
	case parsedFraction >= 0.4:
		return 0.5, chart.WarnOCRPartial
	default:
		return 0.2, chart.WarnOCRFailed
	}
}

// TickResult is what ReadTicks produced for both axes, with parse counts for
// the confidence tiers.
type TickResult struct {
	XTicks    []chart.Tick
	YTicks    []chart.Tick
	Attempted int
	Parsed    int
}

// ParsedFraction is Parsed over Attempted; zero attempts count as total
// failure.
func (r TickResult) ParsedFraction() float64 {
	if r.Attempted == 0 {
		return 0
	}
	return float64(r.Parsed) / float64(r.Attempted)
}

// ReadTicks runs the reader over the X and Y label strips and pairs every
// parseable label with its pixel anchor: the horizontal center of the label
// for X ticks and the vertical center for Y ticks. Ticks come back sorted by
// pixel position.
//
// A reader error on one strip abandons that strip only; its labels simply
// count as unparsed.
func ReadTicks(ctx context.Context, reader LabelReader, img image.Image, crop chart.CropBox, xAxis, yAxis chart.AxisLine) TickResult {
	bounds := img.Bounds()
	var res TickResult

	xStrip := image.Rect(crop.X1, xAxis.Pixel+xStripTop, crop.X2, xAxis.Pixel+xStripBottom)
	xStrip = xStrip.Intersect(bounds)
	if !xStrip.Empty() {
		candidates, err := reader.ReadRegion(ctx, img, xStrip)
		if err == nil {
			for _, c := range candidates {
				res.Attempted++
				v, ok := ParseNumber(c.Text)
				if !ok {
					continue
				}
				res.Parsed++
				anchor := (c.Bounds.Min.X + c.Bounds.Max.X) / 2
				res.XTicks = append(res.XTicks, chart.Tick{Pixel: anchor, Value: v})
			}
		}
	}

	yStrip := image.Rect(yAxis.Pixel-yStripLeft, crop.Y1, yAxis.Pixel-yStripRight, crop.Y2)
	yStrip = yStrip.Intersect(bounds)
	if !yStrip.Empty() {
		candidates, err := reader.ReadRegion(ctx, img, yStrip)
		if err == nil {
			for _, c := range candidates {
				res.Attempted++
				v, ok := ParseNumber(c.Text)
				if !ok {
					continue
				}
				res.Parsed++
				anchor := (c.Bounds.Min.Y + c.Bounds.Max.Y) / 2
				res.YTicks = append(res.YTicks, chart.Tick{Pixel: anchor, Value: v})
			}
		}
	}

	sort.Slice(res.XTicks, func(i, j int) bool { return res.XTicks[i].Pixel < res.XTicks[j].Pixel })
	sort.Slice(res.YTicks, func(i, j int) bool { return res.YTicks[i].Pixel < res.YTicks[j].Pixel })
	return res
}
