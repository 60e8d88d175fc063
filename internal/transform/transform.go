// Package transform fits and applies the pixel-to-value mapping for each
// axis from calibrated tick marks.
package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/chartsnap/chart2csv/internal/chart"
)

// AxisTransform maps a pixel coordinate on one axis to a data value.
// For a linear axis, value = A*pixel + B. For a log axis the fit is done in
// log10 space and Apply returns 10^(A*pixel + B).
type AxisTransform struct {
	A     float64
	B     float64
	Scale chart.Scale
}

// Apply converts a pixel coordinate to a value.
func (t AxisTransform) Apply(pixel float64) float64 {
	v := t.A*pixel + t.B
	if t.Scale == chart.Log {
		return math.Pow(10, v)
	}
	return v
}

// Transform holds both axis mappings for one chart.
type Transform struct {
	X AxisTransform
	Y AxisTransform
}

// Apply converts a pixel point to a value point.
func (t Transform) Apply(px, py float64) chart.Point {
	return chart.Point{X: t.X.Apply(px), Y: t.Y.Apply(py)}
}

// BuildAxisTransform fits the pixel-to-value mapping for one axis.
//
// Fewer than two ticks is the pipeline's only hard stop and returns
// *chart.InsufficientTicksError. Exactly two ticks are solved directly; three
// or more are fit by least squares so that one misread label cannot hijack
// the mapping, and the worst relative residual over the ticks is returned so
// the caller can flag a probable log axis.
//
// For a log axis every tick value must be positive; the fit runs against
// log10 of the values.
func BuildAxisTransform(axis chart.AxisKind, ticks []chart.Tick, scale chart.Scale) (AxisTransform, float64, error) {
	if len(ticks) < 2 {
		return AxisTransform{}, 0, &chart.InsufficientTicksError{Axis: axis, Got: len(ticks)}
	}

	pixels := make([]float64, len(ticks))
	targets := make([]float64, len(ticks))
	for i, tk := range ticks {
		pixels[i] = float64(tk.Pixel)
		v := tk.Value
		if scale == chart.Log {
			if v <= 0 {
				return AxisTransform{}, 0, &chart.InvalidInputError{
					Field:  "calibration." + string(axis),
					Reason: fmt.Sprintf("log scale requires positive tick values, got %g", v),
				}
			}
			v = math.Log10(v)
		}
		targets[i] = v
	}

	var a, b float64
	if len(ticks) == 2 {
		a = (targets[1] - targets[0]) / (pixels[1] - pixels[0])
		b = targets[0] - a*pixels[0]
	} else {
		b, a = stat.LinearRegression(pixels, targets, nil, false)
	}

	if a == 0 || math.IsNaN(a) || math.IsInf(a, 0) {
		return AxisTransform{}, 0, &chart.InvalidInputError{
			Field:  "calibration." + string(axis),
			Reason: "ticks produce a degenerate mapping (zero slope)",
		}
	}

	t := AxisTransform{A: a, B: b, Scale: scale}

	var worst float64
	for i := range pixels {
		predicted := a*pixels[i] + b
		denom := math.Abs(targets[i])
		if denom < 1e-12 {
			continue
		}
		rel := math.Abs(predicted-targets[i]) / denom
		if rel > worst {
			worst = rel
		}
	}
	return t, worst, nil
}
