package detection

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/chartsnap/chart2csv/internal/chart"
	"github.com/chartsnap/chart2csv/internal/imaging"
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

// createFramedChart draws a rectangular plot frame in black.
func createFramedChart(width, height, left, top, right, bottom int) *image.RGBA {
	img := createTestImage(width, height, color.White)
	for x := left; x <= right; x++ {
		img.Set(x, top, color.Black)
		img.Set(x, bottom, color.Black)
	}
	for y := top; y <= bottom; y++ {
		img.Set(left, y, color.Black)
		img.Set(right, y, color.Black)
	}
	return img
}

func TestDetectSegmentsHorizontal(t *testing.T) {
	edges := imaging.NewMask(100, 100)
	for x := 10; x <= 90; x++ {
		edges[50][x] = true
	}

	segments := DetectSegments(edges, 40, 10)
	if len(segments) == 0 {
		t.Fatal("no segments detected")
	}

	s := segments[0]
	if !s.IsHorizontal(10) {
		t.Errorf("segment angle %g, want near horizontal", s.AngleDegrees)
	}
	if s.MidY() < 48 || s.MidY() > 52 {
		t.Errorf("segment MidY %d, want ~50", s.MidY())
	}
	if s.Length < 60 {
		t.Errorf("segment length %g, want most of the drawn line", s.Length)
	}
}

func TestDetectSegmentsVertical(t *testing.T) {
	edges := imaging.NewMask(100, 100)
	for y := 5; y <= 95; y++ {
		edges[y][30] = true
	}

	segments := DetectSegments(edges, 40, 10)
	if len(segments) == 0 {
		t.Fatal("no segments detected")
	}
	s := segments[0]
	if !s.IsVertical(10) {
		t.Errorf("segment angle %g, want near vertical", s.AngleDegrees)
	}
	if s.MidX() < 28 || s.MidX() > 32 {
		t.Errorf("segment MidX %d, want ~30", s.MidX())
	}
}

func TestDetectSegmentsEmptyMask(t *testing.T) {
	if got := DetectSegments(imaging.NewMask(50, 50), 20, 10); len(got) != 0 {
		t.Errorf("empty mask produced %d segments", len(got))
	}
}

func TestFindBlobsDisc(t *testing.T) {
	mask := imaging.NewMask(60, 60)
	r := 5
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			if x*x+y*y <= r*r {
				mask[30+y][20+x] = true
			}
		}
	}

	blobs := FindBlobs(mask, 10)
	if len(blobs) != 1 {
		t.Fatalf("got %d blobs, want 1", len(blobs))
	}
	b := blobs[0]
	if math.Abs(b.CentroidX-20) > 1 || math.Abs(b.CentroidY-30) > 1 {
		t.Errorf("centroid (%g, %g), want (20, 30)", b.CentroidX, b.CentroidY)
	}
	if b.Area < 60 || b.Area > 100 {
		t.Errorf("area %d, want ~81 for radius 5", b.Area)
	}
	if b.Circularity < 0.5 {
		t.Errorf("disc circularity %g, want high", b.Circularity)
	}
	if b.Width() != 2*r+1 || b.Height() != 2*r+1 {
		t.Errorf("bounding box %dx%d, want %dx%d", b.Width(), b.Height(), 2*r+1, 2*r+1)
	}
}

func TestFindBlobsMinAreaFilter(t *testing.T) {
	mask := imaging.NewMask(40, 40)
	mask[10][10] = true // single-pixel speck
	for y := 20; y < 25; y++ {
		for x := 20; x < 25; x++ {
			mask[y][x] = true
		}
	}

	blobs := FindBlobs(mask, 10)
	if len(blobs) != 1 {
		t.Fatalf("got %d blobs, want 1 (speck filtered)", len(blobs))
	}
	if blobs[0].Area != 25 {
		t.Errorf("area %d, want 25", blobs[0].Area)
	}
	if got := blobs[0].FillRatio(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("square FillRatio %g, want 1.0", got)
	}
}

func TestFindBlobsEightConnectivity(t *testing.T) {
	mask := imaging.NewMask(20, 20)
	// Two 2x2 squares touching only diagonally
	for y := 5; y < 7; y++ {
		for x := 5; x < 7; x++ {
			mask[y][x] = true
		}
	}
	for y := 7; y < 9; y++ {
		for x := 7; x < 9; x++ {
			mask[y][x] = true
		}
	}
	blobs := FindBlobs(mask, 1)
	if len(blobs) != 1 {
		t.Errorf("diagonal components: got %d blobs, want 1", len(blobs))
	}
}

func TestDetectPlotAreaFrame(t *testing.T) {
	img := createFramedChart(400, 400, 50, 50, 350, 350)

	box, conf := DetectPlotArea(img)
	if conf < 0.8 {
		t.Errorf("confidence %g, want >= 0.8 for a clean frame", conf)
	}
	if box.X1 < 45 || box.X1 > 70 || box.Y1 < 45 || box.Y1 > 70 {
		t.Errorf("top-left (%d, %d), want near (55, 55)", box.X1, box.Y1)
	}
	if box.X2 < 330 || box.X2 > 355 || box.Y2 < 330 || box.Y2 > 355 {
		t.Errorf("bottom-right (%d, %d), want near (345, 345)", box.X2, box.Y2)
	}
}

func TestDetectPlotAreaFallback(t *testing.T) {
	img := createTestImage(200, 200, color.RGBA{180, 180, 180, 255})

	box, conf := DetectPlotArea(img)
	if err := box.Validate(200, 200); err != nil {
		t.Errorf("fallback box invalid: %v", err)
	}
	if conf > 0.75 {
		t.Errorf("confidence %g for a featureless image, want a degraded score", conf)
	}
}

func TestDetectAxes(t *testing.T) {
	img := createTestImage(400, 400, color.White)
	// L-shaped axes: x axis at row 350, y axis at column 50
	for x := 50; x <= 350; x++ {
		img.Set(x, 350, color.Black)
	}
	for y := 50; y <= 350; y++ {
		img.Set(50, y, color.Black)
	}

	crop := chart.CropBox{X1: 0, Y1: 0, X2: 400, Y2: 400}
	res := DetectAxes(img, crop)

	if res.Skewed {
		t.Error("perpendicular axes reported as skewed")
	}
	if res.X.Kind != chart.AxisX || res.Y.Kind != chart.AxisY {
		t.Errorf("axis kinds: %s, %s", res.X.Kind, res.Y.Kind)
	}
	if res.X.Pixel < 345 || res.X.Pixel > 355 {
		t.Errorf("x-axis row %d, want ~350", res.X.Pixel)
	}
	if res.Y.Pixel < 45 || res.Y.Pixel > 55 {
		t.Errorf("y-axis column %d, want ~50", res.Y.Pixel)
	}
	if res.Confidence < 0.5 {
		t.Errorf("confidence %g, want >= 0.5", res.Confidence)
	}
}

func TestDetectAxesProjectionFallback(t *testing.T) {
	// Too-short strokes for the Hough pass, but a dark bottom row and left
	// column for the projection fallback.
	img := createTestImage(200, 200, color.White)
	for x := 80; x < 125; x++ {
		img.Set(x, 180, color.Black)
	}
	for y := 80; y < 125; y++ {
		img.Set(20, y, color.Black)
	}

	crop := chart.CropBox{X1: 0, Y1: 0, X2: 200, Y2: 200}
	res := DetectAxes(img, crop)

	if res.X.Pixel < 150 {
		t.Errorf("x-axis row %d, want in the bottom band", res.X.Pixel)
	}
	if res.Y.Pixel > 60 {
		t.Errorf("y-axis column %d, want in the left band", res.Y.Pixel)
	}
	if res.Confidence > 0.6 {
		t.Errorf("fallback confidence %g, want degraded", res.Confidence)
	}
}

func TestDetectAxesSkewed(t *testing.T) {
	img := createTestImage(300, 300, color.White)
	// X axis tilted about 9 degrees, y axis leaning the opposite way at
	// about 82: the pair is 73 degrees apart.
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

	crop := chart.CropBox{X1: 0, Y1: 0, X2: 300, Y2: 300}
	res := DetectAxes(img, crop)

	if !res.Skewed {
		t.Fatal("off-perpendicular axis pair not flagged as skewed")
	}
	if res.Confidence >= 0.9 {
		t.Errorf("confidence %g for skewed axes, want degraded", res.Confidence)
	}
}
