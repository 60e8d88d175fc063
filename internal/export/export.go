// Package export writes extraction results to their output formats: the
// data as CSV, the run metadata as JSON, and an annotated overlay image for
// visual verification.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/chartsnap/chart2csv/internal/chart"
	"github.com/chartsnap/chart2csv/internal/pipeline"
)

// WriteCSV writes the extracted points as two-column CSV. Scatter and line
// charts use an "x,y" header; bar charts use "category,value". Numbers are
// formatted with up to six significant digits.
func WriteCSV(w io.Writer, res *chart.ChartResult) error {
	cw := csv.NewWriter(w)

	header := []string{"x", "y"}
	if res.ChartType == chart.Bar {
		header = []string{"category", "value"}
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, p := range res.Data {
		record := []string{formatValue(p.X), formatValue(p.Y)}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteMetadata writes the full run result as indented JSON.
func WriteMetadata(w io.Writer, res *chart.ChartResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	return nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// Annotation colors.
var (
	cropColor = color.RGBA{0, 200, 0, 255}
	axisColor = color.RGBA{0, 80, 255, 255}
	markColor = color.RGBA{230, 30, 30, 255}
	textColor = color.RGBA{10, 10, 10, 255}
	textBack  = color.RGBA{255, 255, 220, 255}
)

// WriteOverlay renders the verification overlay: the working image with the
// crop rectangle in green, the axis lines in blue, every extracted mark as a
// red cross, and a one-line run summary in the top-left corner.
func WriteOverlay(w io.Writer, res *chart.ChartResult, art *pipeline.Artifacts) error {
	b := art.Image.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), art.Image, b.Min, draw.Src)

	drawRect(canvas, art.Crop, cropColor)
	drawHLine(canvas, art.XAxis.Pixel, axisColor)
	drawVLine(canvas, art.YAxis.Pixel, axisColor)
	for _, m := range art.Marks {
		drawCross(canvas, int(m.X), int(m.Y), 3, markColor)
	}

	summary := fmt.Sprintf("%s: %d points, confidence %.2f (%s), %d warnings",
		res.ChartType, res.PointCount, res.Overall, res.Zone, len(res.Warnings))
	drawLabel(canvas, 4, 14, summary)

	if err := png.Encode(w, canvas); err != nil {
		return fmt.Errorf("failed to encode overlay: %w", err)
	}
	return nil
}

func drawRect(img *image.RGBA, box chart.CropBox, c color.RGBA) {
	for x := box.X1; x < box.X2; x++ {
		setIn(img, x, box.Y1, c)
		setIn(img, x, box.Y2-1, c)
	}
	for y := box.Y1; y < box.Y2; y++ {
		setIn(img, box.X1, y, c)
		setIn(img, box.X2-1, y, c)
	}
}

func drawHLine(img *image.RGBA, y int, c color.RGBA) {
	for x := 0; x < img.Bounds().Dx(); x++ {
		setIn(img, x, y, c)
	}
}

func drawVLine(img *image.RGBA, x int, c color.RGBA) {
	for y := 0; y < img.Bounds().Dy(); y++ {
		setIn(img, x, y, c)
	}
}

func drawCross(img *image.RGBA, x, y, arm int, c color.RGBA) {
	for d := -arm; d <= arm; d++ {
		setIn(img, x+d, y, c)
		setIn(img, x, y+d, c)
	}
}

func setIn(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

// drawLabel renders text on a light backing strip so it stays readable over
// any chart content.
func drawLabel(img *image.RGBA, x, y int, text string) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()

	back := image.Rect(x-2, y-face.Ascent-1, x+width+2, y+face.Descent+1)
	draw.Draw(img, back.Intersect(img.Bounds()), &image.Uniform{textBack}, image.Point{}, draw.Src)

	d := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{textColor},
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
