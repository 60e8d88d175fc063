package chart

import (
	"fmt"
	"math"
)

// ChartType identifies the kind of chart an image contains.
type ChartType string

const (
	Scatter ChartType = "scatter"
	Line    ChartType = "line"
	Bar     ChartType = "bar"
)

// Scale is the value-space scale of one axis. Log is only honored when the
// caller supplies calibration for that axis; it is never inferred.
type Scale string

const (
	Linear Scale = "linear"
	Log    Scale = "log"
)

// AxisKind distinguishes the two axes of a 2D chart.
type AxisKind string

const (
	AxisX AxisKind = "x"
	AxisY AxisKind = "y"
)

// Origin records whether a stage's parameters came from automatic detection
// or a user-supplied override. Mixed covers the axes stage when one axis was
// supplied and the other detected.
type Origin string

const (
	OriginAuto   Origin = "auto"
	OriginManual Origin = "manual"
	OriginMixed  Origin = "mixed"
)

// CropBox is the rectangular pixel region isolating the plotted data area.
//
// Coordinates follow the standard image convention: (X1, Y1) is the top-left
// corner (inclusive), (X2, Y2) is the bottom-right corner (exclusive), with
// the origin at the image's top-left. A valid box has X1 < X2 and Y1 < Y2 and
// lies inside the source image.
type CropBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Width returns the horizontal extent in pixels.
func (b CropBox) Width() int { return b.X2 - b.X1 }

// Height returns the vertical extent in pixels.
func (b CropBox) Height() int { return b.Y2 - b.Y1 }

// Validate checks the box invariants against an image of the given size.
// It returns an *InvalidInputError describing the first violation found.
func (b CropBox) Validate(imageWidth, imageHeight int) error {
	if b.X1 >= b.X2 || b.Y1 >= b.Y2 {
		return &InvalidInputError{
			Field:  "crop",
			Reason: fmt.Sprintf("degenerate box (%d,%d)-(%d,%d): x1 must be < x2 and y1 < y2", b.X1, b.Y1, b.X2, b.Y2),
		}
	}
	if b.X1 < 0 || b.Y1 < 0 || b.X2 > imageWidth || b.Y2 > imageHeight {
		return &InvalidInputError{
			Field: "crop",
			Reason: fmt.Sprintf("box (%d,%d)-(%d,%d) outside image bounds %dx%d",
				b.X1, b.Y1, b.X2, b.Y2, imageWidth, imageHeight),
		}
	}
	return nil
}

// AxisLine is one detected (or user-supplied) axis: the row holding the
// x-axis or the column holding the y-axis, in full-image coordinates.
type AxisLine struct {
	Kind       AxisKind `json:"kind"`
	Pixel      int      `json:"pixel"`
	Confidence float64  `json:"confidence"`
}

// Tick pairs a pixel position on one axis with its parsed numeric value.
// Ticks come from the label reader or directly from manual calibration.
type Tick struct {
	Pixel int     `json:"pixel"`
	Value float64 `json:"value"`
}

// Calibration is the two-points-per-axis manual bypass of the label reader.
type Calibration struct {
	X [2]Tick `json:"x"`
	Y [2]Tick `json:"y"`
}

// Validate rejects calibrations that cannot produce a transform: coincident
// pixel positions, negative pixels, or equal values on an axis.
func (c Calibration) Validate() error {
	axes := []struct {
		kind  AxisKind
		ticks [2]Tick
	}{
		{AxisX, c.X},
		{AxisY, c.Y},
	}
	for _, a := range axes {
		p1, p2 := a.ticks[0], a.ticks[1]
		if p1.Pixel < 0 || p2.Pixel < 0 {
			return &InvalidInputError{
				Field:  "calibration." + string(a.kind),
				Reason: "pixel coordinates must be non-negative",
			}
		}
		if p1.Pixel == p2.Pixel {
			return &InvalidInputError{
				Field:  "calibration." + string(a.kind),
				Reason: fmt.Sprintf("both points at pixel %d: calibration points must be separated", p1.Pixel),
			}
		}
		if p1.Value == p2.Value {
			return &InvalidInputError{
				Field:  "calibration." + string(a.kind),
				Reason: fmt.Sprintf("both points have value %g: values must differ", p1.Value),
			}
		}
	}
	return nil
}

// Fixed component weights for the overall confidence score. They sum to 1.0.
const (
	WeightCrop       = 0.30
	WeightAxis       = 0.25
	WeightOCR        = 0.30
	WeightExtraction = 0.15
)

// Advisory zone boundaries for Confidence.Zone.
const (
	zoneHighMin   = 0.7
	zoneMediumMin = 0.4
)

// Confidence holds the four independent component scores, each in [0, 1].
// The overall score is always derived on read via Overall and never stored,
// so the weighted-sum invariant cannot drift.
type Confidence struct {
	Crop       float64 `json:"crop"`
	Axis       float64 `json:"axis"`
	OCR        float64 `json:"ocr"`
	Extraction float64 `json:"extraction"`
}

// Overall returns the fixed weighted combination of the four components.
func (c Confidence) Overall() float64 {
	return WeightCrop*c.Crop + WeightAxis*c.Axis + WeightOCR*c.OCR + WeightExtraction*c.Extraction
}

// Zone classifies Overall into the advisory zones: "high" (>=0.7),
// "medium" ([0.4, 0.7)) or "low" (<0.4). The zone is advice attached to the
// result; it never changes the data itself.
func (c Confidence) Zone() string {
	o := c.Overall()
	switch {
	case o >= zoneHighMin:
		return "high"
	case o >= zoneMediumMin:
		return "medium"
	default:
		return "low"
	}
}

// Point is one extracted data point in value space. For scatter and line
// charts both fields are axis values; for bar charts X is the category
// position (tick value or bar index) and Y is the bar's value.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AxisRange summarizes the value extent of one axis in the extracted data.
type AxisRange struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Scale Scale   `json:"scale"`
}

// RangeOf computes the min/max over one coordinate of the extracted points.
func RangeOf(points []Point, axis AxisKind, scale Scale) AxisRange {
	r := AxisRange{Min: math.Inf(1), Max: math.Inf(-1), Scale: scale}
	for _, p := range points {
		v := p.X
		if axis == AxisY {
			v = p.Y
		}
		if v < r.Min {
			r.Min = v
		}
		if v > r.Max {
			r.Max = v
		}
	}
	if len(points) == 0 {
		r.Min, r.Max = 0, 0
	}
	return r
}

// StageOrigins records, per overridable stage, whether the run used automatic
// detection or manual parameters.
type StageOrigins struct {
	Crop      Origin `json:"crop"`
	Axes      Origin `json:"axes"`
	Labels    Origin `json:"labels"`
	ChartType Origin `json:"chart_type"`
}

// ChartResult is the terminal aggregate of one extraction run. It is built
// once, returned to the caller, and never mutated afterwards.
type ChartResult struct {
	RunID      string       `json:"run_id"`
	ChartType  ChartType    `json:"chart_type"`
	Data       []Point      `json:"data"`
	XRange     AxisRange    `json:"x_range"`
	YRange     AxisRange    `json:"y_range"`
	Confidence Confidence   `json:"confidence"`
	Overall    float64      `json:"overall_confidence"`
	Zone       string       `json:"confidence_zone"`
	Warnings   []Warning    `json:"warnings"`
	PointCount int          `json:"point_count"`
	RuntimeMS  int64        `json:"runtime_ms"`
	Origins    StageOrigins `json:"origins"`
	CropBox    CropBox      `json:"crop_box"`
}
