package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/chartsnap/chart2csv/internal/chart"
	"github.com/chartsnap/chart2csv/internal/ocr"
)

// createTestImage creates a solid-color RGBA image.
func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// drawDisc fills a circle of the given radius.
func drawDisc(img *image.RGBA, cx, cy, r int, c color.Color) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r {
				img.Set(x, y, c)
			}
		}
	}
}

// scatterFixture is a clean 300x300 scatter chart with 16 red dots and the
// manual overrides that calibrate it exactly: pixel (20, 280) maps to value
// (0, 0) and pixel (280, 20) to (10, 10).
func scatterFixture() (*image.RGBA, Options) {
	img := createTestImage(300, 300, color.White)
	red := color.RGBA{220, 30, 30, 255}
	for _, x := range []int{72, 124, 176, 228} {
		for _, y := range []int{72, 124, 176, 228} {
			drawDisc(img, x, y, 4, red)
		}
	}

	xAxis := 280
	yAxis := 20
	opts := Options{
		ChartType: chart.Scatter,
		Crop:      &chart.CropBox{X1: 0, Y1: 0, X2: 300, Y2: 300},
		XAxisPos:  &xAxis,
		YAxisPos:  &yAxis,
		Calibration: &chart.Calibration{
			X: [2]Tick{{Pixel: 20, Value: 0}, {Pixel: 280, Value: 10}},
			Y: [2]Tick{{Pixel: 280, Value: 0}, {Pixel: 20, Value: 10}},
		},
	}
	return img, opts
}

type Tick = chart.Tick

func TestRunFullyManualScatter(t *testing.T) {
	img, opts := scatterFixture()
	p := New(DefaultConfig(), nil)

	res, err := p.Run(context.Background(), img, opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(res.Warnings) != 0 {
		t.Errorf("warnings on a clean fully-manual run: %v", res.Warnings)
	}
	if res.PointCount != 16 || len(res.Data) != 16 {
		t.Fatalf("got %d points, want 16", res.PointCount)
	}

	if res.Confidence.Crop != 1.0 || res.Confidence.Axis != 1.0 || res.Confidence.OCR != 1.0 {
		t.Errorf("manual components not pinned to 1.0: %+v", res.Confidence)
	}
	if res.Zone != "high" {
		t.Errorf("zone %q, want high (overall %g)", res.Zone, res.Overall)
	}
	if math.Abs(res.Overall-res.Confidence.Overall()) > 1e-9 {
		t.Errorf("stored overall %g disagrees with computed %g", res.Overall, res.Confidence.Overall())
	}

	if res.Origins.Crop != chart.OriginManual || res.Origins.Axes != chart.OriginManual ||
		res.Origins.Labels != chart.OriginManual || res.Origins.ChartType != chart.OriginManual {
		t.Errorf("origins: %+v, want all manual", res.Origins)
	}

	// Values must land on the calibrated grid: dots at pixel 72..228 map to
	// 2, 4, 6, 8 on both axes.
	for _, p := range res.Data {
		if p.X < 1.5 || p.X > 8.5 || p.Y < 1.5 || p.Y > 8.5 {
			t.Errorf("point (%g, %g) outside the calibrated extent", p.X, p.Y)
		}
		nearestEven := math.Round(p.X/2) * 2
		if math.Abs(p.X-nearestEven) > 0.3 {
			t.Errorf("point x %g not near a grid value", p.X)
		}
	}

	if res.XRange.Min > res.XRange.Max {
		t.Errorf("degenerate x range: %+v", res.XRange)
	}
	if res.RunID == "" {
		t.Error("missing run ID")
	}
}

func TestRunDenseScatterRecovery(t *testing.T) {
	// 50 tightly packed dots. Color filtering must recover at least 85% of
	// them, and any shortfall must show up as a warning or a reduced
	// extraction confidence rather than silently high trust.
	img := createTestImage(300, 300, color.White)
	red := color.RGBA{220, 30, 30, 255}
	total := 0
	for row := 0; row < 5; row++ {
		for col := 0; col < 10; col++ {
			drawDisc(img, 80+col*16, 120+row*16, 3, red)
			total++
		}
	}

	_, opts := scatterFixture()
	p := New(DefaultConfig(), nil)
	res, err := p.Run(context.Background(), img, opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.PointCount < total*85/100 {
		t.Errorf("recovered %d of %d points, want >= 85%%", res.PointCount, total)
	}
	if missing := total - res.PointCount; missing > total/10 {
		if len(res.Warnings) == 0 && res.Confidence.Extraction > 0.7 {
			t.Errorf("%d points missing with no warning and extraction confidence %g",
				missing, res.Confidence.Extraction)
		}
	}
}

func TestRunBlankImageFallbacks(t *testing.T) {
	// Nothing to detect: crop and axes fall back, both uncertainty warnings
	// fire, and with calibration supplied the run still completes.
	img := createTestImage(400, 400, color.White)
	opts := Options{
		ChartType: chart.Scatter,
		Calibration: &chart.Calibration{
			X: [2]Tick{{Pixel: 50, Value: 0}, {Pixel: 350, Value: 10}},
			Y: [2]Tick{{Pixel: 350, Value: 0}, {Pixel: 50, Value: 10}},
		},
	}
	p := New(DefaultConfig(), nil)

	res, err := p.Run(context.Background(), img, opts)
	if err != nil {
		t.Fatalf("Run failed on a blank image: %v", err)
	}

	if res.Confidence.Crop > 0.3 {
		t.Errorf("crop confidence %g on a blank image, want <= 0.3", res.Confidence.Crop)
	}
	if res.Confidence.Axis > 0.2 {
		t.Errorf("axis confidence %g on a blank image, want <= 0.2", res.Confidence.Axis)
	}
	for _, code := range []chart.WarningCode{chart.WarnCropUncertain, chart.WarnAxesUncertain} {
		found := false
		for _, w := range res.Warnings {
			if w.Code == code {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing %s warning", code)
		}
	}
	if res.PointCount != 0 {
		t.Errorf("extracted %d points from a blank image", res.PointCount)
	}
}

// stubTickReader returns canned tick labels: log-spaced values along the x
// strip, linear values along the y strip. The strips are told apart by their
// shape; the x strip is wide and short.
type stubTickReader struct{}

func (stubTickReader) ReadRegion(_ context.Context, _ image.Image, region image.Rectangle) ([]ocr.TextCandidate, error) {
	if region.Dx() >= region.Dy() {
		ticks := []struct {
			text string
			x    int
		}{{"1", 40}, {"10", 120}, {"100", 200}, {"1000", 280}}
		out := make([]ocr.TextCandidate, 0, len(ticks))
		for _, c := range ticks {
			out = append(out, ocr.TextCandidate{
				Text:   c.text,
				Bounds: image.Rect(c.x-8, region.Min.Y+2, c.x+8, region.Min.Y+14),
			})
		}
		return out, nil
	}
	ticks := []struct {
		text string
		y    int
	}{{"10", 40}, {"5", 160}, {"0", 280}}
	out := make([]ocr.TextCandidate, 0, len(ticks))
	for _, c := range ticks {
		out = append(out, ocr.TextCandidate{
			Text:   c.text,
			Bounds: image.Rect(region.Min.X+2, c.y-6, region.Min.X+30, c.y+6),
		})
	}
	return out, nil
}

func TestRunPossibleLogScaleWarning(t *testing.T) {
	// X labels read 1, 10, 100, 1000 at evenly spaced pixels: a linear fit
	// cannot explain them and the log-scale hint must fire. The y labels are
	// perfectly linear and must not.
	img := createTestImage(300, 300, color.White)
	red := color.RGBA{220, 30, 30, 255}
	for i := 0; i < 6; i++ {
		drawDisc(img, 60+i*36, 150, 4, red)
	}

	xAxis := 250
	yAxis := 80
	opts := Options{
		ChartType: chart.Scatter,
		Crop:      &chart.CropBox{X1: 0, Y1: 0, X2: 300, Y2: 300},
		XAxisPos:  &xAxis,
		YAxisPos:  &yAxis,
		Reader:    stubTickReader{},
	}
	p := New(DefaultConfig(), nil)

	res, err := p.Run(context.Background(), img, opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	logWarnings := 0
	for _, w := range res.Warnings {
		if w.Code == chart.WarnPossibleLogScale {
			logWarnings++
		}
	}
	if logWarnings != 1 {
		t.Errorf("got %d POSSIBLE_LOG_SCALE warnings, want exactly 1 (x axis only): %v",
			logWarnings, res.Warnings)
	}
	if res.Confidence.OCR != 1.0 {
		t.Errorf("ocr confidence %g with every label parsed, want 1.0", res.Confidence.OCR)
	}
	if res.Origins.Labels != chart.OriginAuto {
		t.Errorf("labels origin %q, want auto", res.Origins.Labels)
	}
}

func TestRunSkewWarning(t *testing.T) {
	img := createTestImage(300, 300, color.White)
	// X axis tilted about 9 degrees down-right, y axis leaning the opposite
	// way at about 82: the pair is 73 degrees apart, well off perpendicular.
	for x := 20; x <= 272; x++ {
		y := 240 + (x-20)*40/252
		img.Set(x, y, color.Black)
		img.Set(x, y+1, color.Black)
	}
	for y := 30; y <= 258; y++ {
		x := 30 + (y-30)*32/228
		img.Set(x, y, color.Black)
		img.Set(x+1, y, color.Black)
	}

	opts := Options{
		ChartType: chart.Scatter,
		Crop:      &chart.CropBox{X1: 0, Y1: 0, X2: 300, Y2: 300},
		Calibration: &chart.Calibration{
			X: [2]Tick{{Pixel: 20, Value: 0}, {Pixel: 280, Value: 10}},
			Y: [2]Tick{{Pixel: 280, Value: 0}, {Pixel: 20, Value: 10}},
		},
	}
	p := New(DefaultConfig(), nil)

	res, err := p.Run(context.Background(), img, opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	found := false
	for _, w := range res.Warnings {
		if w.Code == chart.WarnSkewDetected {
			found = true
		}
	}
	if !found {
		t.Errorf("missing SKEW_DETECTED warning: %v", res.Warnings)
	}
	if res.Confidence.Axis >= 0.9 {
		t.Errorf("axis confidence %g for skewed axes, want degraded", res.Confidence.Axis)
	}
}

func TestRunSingleManualAxisMixedOrigin(t *testing.T) {
	img, opts := scatterFixture()
	opts.YAxisPos = nil
	p := New(DefaultConfig(), nil)

	res, err := p.Run(context.Background(), img, opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Origins.Axes != chart.OriginMixed {
		t.Errorf("axes origin %q with one manual axis, want mixed", res.Origins.Axes)
	}
	if res.Confidence.Axis >= 1.0 {
		t.Errorf("axis confidence %g, want below 1.0 when one axis is detected", res.Confidence.Axis)
	}
}

func TestRunDataSortedByX(t *testing.T) {
	img, opts := scatterFixture()
	p := New(DefaultConfig(), nil)

	res, err := p.Run(context.Background(), img, opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for i := 1; i < len(res.Data); i++ {
		if res.Data[i].X < res.Data[i-1].X {
			t.Fatalf("data not sorted by x at index %d", i)
		}
	}
}

func TestRunInvalidCropFailsFast(t *testing.T) {
	img, opts := scatterFixture()
	opts.Crop = &chart.CropBox{X1: 50, Y1: 50, X2: 40, Y2: 200}
	p := New(DefaultConfig(), nil)

	_, err := p.Run(context.Background(), img, opts)
	var invalid *chart.InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("got %v, want *InvalidInputError", err)
	}
}

func TestRunAxisOutOfBounds(t *testing.T) {
	img, opts := scatterFixture()
	bad := 500
	opts.XAxisPos = &bad
	p := New(DefaultConfig(), nil)

	_, err := p.Run(context.Background(), img, opts)
	var invalid *chart.InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("got %v, want *InvalidInputError", err)
	}
}

func TestRunLogScaleRequiresCalibration(t *testing.T) {
	img, opts := scatterFixture()
	opts.Calibration = nil
	opts.YScale = chart.Log
	p := New(DefaultConfig(), nil)

	_, err := p.Run(context.Background(), img, opts)
	var invalid *chart.InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("got %v, want *InvalidInputError", err)
	}
}

func TestRunUnknownChartType(t *testing.T) {
	img, opts := scatterFixture()
	opts.ChartType = "pie"
	p := New(DefaultConfig(), nil)

	_, err := p.Run(context.Background(), img, opts)
	var invalid *chart.InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("got %v, want *InvalidInputError", err)
	}
}

func TestRunNoTicksHardStop(t *testing.T) {
	img, opts := scatterFixture()
	opts.Calibration = nil
	opts.Reader = nil
	p := New(DefaultConfig(), nil)

	_, err := p.Run(context.Background(), img, opts)
	var insufficient *chart.InsufficientTicksError
	if !errors.As(err, &insufficient) {
		t.Fatalf("got %v, want *InsufficientTicksError", err)
	}
}

func TestRunLowResolutionWarning(t *testing.T) {
	img := createTestImage(200, 150, color.White)
	drawDisc(img, 60, 60, 4, color.RGBA{220, 30, 30, 255})
	drawDisc(img, 120, 90, 4, color.RGBA{220, 30, 30, 255})

	xAxis := 140
	yAxis := 10
	opts := Options{
		ChartType: chart.Scatter,
		Crop:      &chart.CropBox{X1: 0, Y1: 0, X2: 200, Y2: 150},
		XAxisPos:  &xAxis,
		YAxisPos:  &yAxis,
		Calibration: &chart.Calibration{
			X: [2]Tick{{Pixel: 10, Value: 0}, {Pixel: 190, Value: 1}},
			Y: [2]Tick{{Pixel: 140, Value: 0}, {Pixel: 10, Value: 1}},
		},
	}
	p := New(DefaultConfig(), nil)

	res, err := p.Run(context.Background(), img, opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Warnings) == 0 || res.Warnings[0].Code != chart.WarnLowResolution {
		t.Errorf("warnings %v, want LOW_RESOLUTION first", res.Warnings)
	}
}

func TestRunBarChart(t *testing.T) {
	img := createTestImage(300, 300, color.White)
	blue := color.RGBA{40, 90, 200, 255}
	// Baseline at y=280; bar heights encode values under the calibration
	// y: pixel 280 -> 0, pixel 80 -> 100.
	for i, top := range []int{180, 130, 80} {
		x1 := 60 + i*70
		for y := top; y < 280; y++ {
			for x := x1; x < x1+30; x++ {
				img.Set(x, y, blue)
			}
		}
	}

	xAxis := 280
	yAxis := 30
	opts := Options{
		ChartType: chart.Bar,
		Crop:      &chart.CropBox{X1: 0, Y1: 0, X2: 300, Y2: 300},
		XAxisPos:  &xAxis,
		YAxisPos:  &yAxis,
		Calibration: &chart.Calibration{
			X: [2]Tick{{Pixel: 0, Value: 0}, {Pixel: 300, Value: 30}},
			Y: [2]Tick{{Pixel: 280, Value: 0}, {Pixel: 80, Value: 100}},
		},
	}
	p := New(DefaultConfig(), nil)

	res, err := p.Run(context.Background(), img, opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.ChartType != chart.Bar {
		t.Fatalf("chart type %s", res.ChartType)
	}
	if len(res.Data) != 3 {
		t.Fatalf("got %d bars, want 3", len(res.Data))
	}

	// Calibration ticks sit far from the bar centers, so categories fall
	// back to bar indices.
	wantValues := []float64{50, 75, 100}
	for i, p := range res.Data {
		if p.X != float64(i) {
			t.Errorf("bar %d category %g, want index %d", i, p.X, i)
		}
		if math.Abs(p.Y-wantValues[i]) > 3 {
			t.Errorf("bar %d value %g, want ~%g", i, p.Y, wantValues[i])
		}
	}
}

func TestRunDetailedArtifacts(t *testing.T) {
	img, opts := scatterFixture()
	p := New(DefaultConfig(), nil)

	res, art, err := p.RunDetailed(context.Background(), img, opts)
	if err != nil {
		t.Fatalf("RunDetailed failed: %v", err)
	}
	if art == nil || art.Image == nil {
		t.Fatal("missing artifacts")
	}
	if len(art.Marks) != res.PointCount {
		t.Errorf("got %d marks, want %d", len(art.Marks), res.PointCount)
	}
	if art.Crop != *opts.Crop {
		t.Errorf("artifact crop %+v, want %+v", art.Crop, *opts.Crop)
	}
	if art.XAxis.Pixel != 280 || art.YAxis.Pixel != 20 {
		t.Errorf("artifact axes (%d, %d)", art.XAxis.Pixel, art.YAxis.Pixel)
	}
}

func TestRunOverridesSkipResize(t *testing.T) {
	// Oversized input with pixel overrides: coordinates must stay valid, so
	// no downscale happens and the calibrated values come out right.
	img := createTestImage(1600, 1600, color.White)
	red := color.RGBA{220, 30, 30, 255}
	for i := 0; i < 6; i++ {
		drawDisc(img, 200+i*200, 800, 6, red)
	}

	xAxis := 1500
	yAxis := 100
	opts := Options{
		ChartType: chart.Scatter,
		Crop:      &chart.CropBox{X1: 0, Y1: 0, X2: 1600, Y2: 1600},
		XAxisPos:  &xAxis,
		YAxisPos:  &yAxis,
		Calibration: &chart.Calibration{
			X: [2]Tick{{Pixel: 0, Value: 0}, {Pixel: 1600, Value: 16}},
			Y: [2]Tick{{Pixel: 1600, Value: 0}, {Pixel: 0, Value: 16}},
		},
	}
	p := New(DefaultConfig(), nil)

	res, art, err := p.RunDetailed(context.Background(), img, opts)
	if err != nil {
		t.Fatalf("RunDetailed failed: %v", err)
	}
	b := art.Image.Bounds()
	if b.Dx() != 1600 || b.Dy() != 1600 {
		t.Errorf("working image %dx%d, want unresized 1600x1600", b.Dx(), b.Dy())
	}
	if len(res.Data) != 6 {
		t.Fatalf("got %d points, want 6", len(res.Data))
	}
	for i, p := range res.Data {
		want := float64(2 + i*2)
		if math.Abs(p.X-want) > 0.2 {
			t.Errorf("point %d x = %g, want ~%g", i, p.X, want)
		}
		if math.Abs(p.Y-8) > 0.2 {
			t.Errorf("point %d y = %g, want ~8", i, p.Y)
		}
	}
}
