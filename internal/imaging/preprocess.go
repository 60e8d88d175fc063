package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/anthonynsimon/bild/transform"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Normalize runs the deterministic preprocessing stage: optional downscale
// of oversized inputs, mild contrast enhancement and edge-preserving
// denoising. maxSide <= 0 disables resizing; callers also disable it when
// manual pixel-space overrides are in play, since those are expressed in
// source coordinates and are never rescaled.
func Normalize(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if maxSide > 0 && (w > maxSide || h > maxSide) {
		scale := float64(maxSide) / float64(max(w, h))
		img = transform.Resize(img, int(float64(w)*scale), int(float64(h)*scale), transform.Lanczos)
	}

	enhanced := adjust.Contrast(img, 0.1)
	// Radius 1 gives a 3x3 median window: enough to kill speckle noise
	// without eating small data marks.
	return effect.Median(enhanced, 1)
}

// ToGray converts an image to 8-bit grayscale using luminance weighting.
func ToGray(img image.Image) *image.Gray {
	rgba := effect.Grayscale(img)
	b := rgba.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, _, _, _ := rgba.At(x+b.Min.X, y+b.Min.Y).RGBA()
			g.Pix[y*g.Stride+x] = uint8(r >> 8)
		}
	}
	return g
}

// MeanBrightness returns the average gray level of an image, 0-255.
func MeanBrightness(g *image.Gray) float64 {
	b := g.Bounds()
	total := 0
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			total += int(g.GrayAt(x, y).Y)
		}
	}
	return float64(total) / float64(n)
}

// OtsuLevel computes the Otsu threshold of a grayscale image: the gray level
// that maximizes between-class variance of the bimodal histogram.
func OtsuLevel(g *image.Gray) uint8 {
	var hist [256]int
	b := g.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 128
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[g.GrayAt(x, y).Y]++
		}
	}

	var sum float64
	for i, c := range hist {
		sum += float64(i) * float64(c)
	}

	var sumB, wB float64
	bestLevel, bestVar := 127, 0.0
	for i := 0; i < 256; i++ {
		wB += float64(hist[i])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(i) * float64(hist[i])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > bestVar {
			bestVar = between
			bestLevel = i
		}
	}
	// bestLevel is the last bin of the background class; the threshold sits
	// one above it so a >= comparison keeps only the foreground.
	if bestLevel >= 255 {
		return 255
	}
	return uint8(bestLevel + 1)
}

// ForegroundMask extracts dark chart marks from a light background (or the
// reverse) as a binary mask: grayscale, invert when the background is
// bright, then Otsu threshold.
func ForegroundMask(img image.Image) Mask {
	gray := ToGray(img)
	if MeanBrightness(gray) > 127 {
		gray = ToGray(effect.Invert(gray))
	}
	level := OtsuLevel(gray)
	// segment.Threshold marks >= level white; with the invert above,
	// foreground marks are now the bright side.
	return MaskFromGray(segment.Threshold(gray, level), 255)
}

// SaturationMask marks pixels whose HSV saturation and value both exceed the
// given thresholds (0-1 scales). Colored data marks survive; the gray or
// black grid, axes and text do not, which is what makes color-first scatter
// detection resistant to grid false-positives.
func SaturationMask(img image.Image, minSaturation, minValue float64) Mask {
	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c, ok := colorful.MakeColor(img.At(x+b.Min.X, y+b.Min.Y))
			if !ok {
				continue
			}
			_, s, v := c.Hsv()
			if s >= minSaturation && v >= minValue {
				m[y][x] = true
			}
		}
	}
	return m
}

// BackgroundBrightness estimates the background gray level as the most
// frequent quantized brightness in the image. Charts are dominated by their
// background, so the histogram peak is a robust estimate even with dense
// data.
func BackgroundBrightness(img image.Image) uint8 {
	g := ToGray(img)
	var hist [16]int
	b := g.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[g.GrayAt(x, y).Y/16]++
		}
	}
	best := 0
	for i, c := range hist {
		if c > hist[best] {
			best = i
		}
	}
	return uint8(best*16 + 8)
}
