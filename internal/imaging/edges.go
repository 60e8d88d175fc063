package imaging

import (
	"image"
	"math"
)

// GradientEdges performs simple gradient-based edge detection: a pixel is an
// edge when the grayscale difference to its right or lower neighbor exceeds
// the threshold. Cheap, and sufficient for the blob machinery; axis work
// uses CannyEdges instead.
func GradientEdges(img image.Image, threshold float64) Mask {
	g := ToGray(img)
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	edges := NewMask(w, h)

	for y := 0; y < h-1; y++ {
		for x := 0; x < w-1; x++ {
			c := float64(g.GrayAt(x+b.Min.X, y+b.Min.Y).Y)
			cx := float64(g.GrayAt(x+1+b.Min.X, y+b.Min.Y).Y)
			cy := float64(g.GrayAt(x+b.Min.X, y+1+b.Min.Y).Y)
			if math.Abs(c-cx) > threshold || math.Abs(c-cy) > threshold {
				edges[y][x] = true
			}
		}
	}
	return edges
}

// CannyEdges runs Canny edge detection and returns the edge mask. The
// implementation follows the standard chain: Gaussian blur, Sobel gradients,
// non-maximum suppression, and double-threshold hysteresis. Thresholds are
// 0-255 gradient magnitudes; 50/150 works well for clean chart renders.
func CannyEdges(img image.Image, thresholdLow, thresholdHigh int) Mask {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	gray := make([][]float64, height)
	g := ToGray(img)
	for y := 0; y < height; y++ {
		gray[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			gray[y][x] = float64(g.GrayAt(x, y).Y) / 255.0
		}
	}

	blurred := gaussianBlur(gray, width, height)

	// Sobel gradients
	magnitude := make([][]float64, height)
	direction := make([][]float64, height)

	sobelX := [][]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [][]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	for y := 0; y < height; y++ {
		magnitude[y] = make([]float64, width)
		direction[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					py := clamp(y+ky, 0, height-1)
					px := clamp(x+kx, 0, width-1)
					gx += blurred[py][px] * sobelX[ky+1][kx+1]
					gy += blurred[py][px] * sobelY[ky+1][kx+1]
				}
			}
			magnitude[y][x] = math.Sqrt(gx*gx + gy*gy)
			direction[y][x] = math.Atan2(gy, gx)
		}
	}

	// Non-maximum suppression
	suppressed := make([][]float64, height)
	for y := 0; y < height; y++ {
		suppressed[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			if y == 0 || y == height-1 || x == 0 || x == width-1 {
				continue
			}

			angle := direction[y][x]
			mag := magnitude[y][x]

			var n1, n2 float64
			if (angle >= -math.Pi/8 && angle < math.Pi/8) || (angle >= 7*math.Pi/8 || angle < -7*math.Pi/8) {
				n1 = magnitude[y][x-1]
				n2 = magnitude[y][x+1]
			} else if (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8) {
				n1 = magnitude[y-1][x+1]
				n2 = magnitude[y+1][x-1]
			} else if (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8) {
				n1 = magnitude[y-1][x]
				n2 = magnitude[y+1][x]
			} else {
				n1 = magnitude[y-1][x-1]
				n2 = magnitude[y+1][x+1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[y][x] = mag
			}
		}
	}

	// Double threshold with hysteresis
	edges := NewMask(width, height)
	lowThresh := float64(thresholdLow) / 255.0
	highThresh := float64(thresholdHigh) / 255.0

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			val := suppressed[y][x]
			if val >= highThresh {
				edges[y][x] = true
			} else if val >= lowThresh {
				for ky := -1; ky <= 1 && !edges[y][x]; ky++ {
					for kx := -1; kx <= 1 && !edges[y][x]; kx++ {
						py := clamp(y+ky, 0, height-1)
						px := clamp(x+kx, 0, width-1)
						if suppressed[py][px] >= highThresh {
							edges[y][x] = true
						}
					}
				}
			}
		}
	}

	return edges
}

// gaussianBlur applies a 5x5 Gaussian kernel (sigma ~1.4) to reduce noise
// before gradient computation. Border pixels use clamped edge values.
func gaussianBlur(img [][]float64, width, height int) [][]float64 {
	kernel := [][]float64{
		{1, 4, 7, 4, 1},
		{4, 16, 26, 16, 4},
		{7, 26, 41, 26, 7},
		{4, 16, 26, 16, 4},
		{1, 4, 7, 4, 1},
	}
	kernelSum := 273.0

	result := make([][]float64, height)
	for y := 0; y < height; y++ {
		result[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			var sum float64
			for ky := -2; ky <= 2; ky++ {
				for kx := -2; kx <= 2; kx++ {
					py := clamp(y+ky, 0, height-1)
					px := clamp(x+kx, 0, width-1)
					sum += img[py][px] * kernel[ky+2][kx+2]
				}
			}
			result[y][x] = sum / kernelSum
		}
	}
	return result
}

func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
