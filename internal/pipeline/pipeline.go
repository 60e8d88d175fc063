// Package pipeline orchestrates one extraction run: preprocessing, plot-area
// and axis detection, label reading, transform fitting, data extraction and
// result assembly, with manual overrides short-circuiting any stage.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/chartsnap/chart2csv/internal/chart"
	"github.com/chartsnap/chart2csv/internal/detection"
	"github.com/chartsnap/chart2csv/internal/extract"
	"github.com/chartsnap/chart2csv/internal/imaging"
	"github.com/chartsnap/chart2csv/internal/ocr"
	"github.com/chartsnap/chart2csv/internal/transform"
)

// Options are the per-run inputs beyond the image itself. Zero values mean
// automatic behavior; any non-nil override replaces the corresponding
// detection stage entirely and pins that stage's confidence to 1.0.
type Options struct {
	// ChartType forces the extractor; empty means classify automatically.
	ChartType chart.ChartType

	// Crop bypasses plot-area detection. Full-image pixel coordinates.
	Crop *chart.CropBox

	// XAxisPos / YAxisPos bypass axis detection: the pixel row of the X
	// axis and the pixel column of the Y axis.
	XAxisPos *int
	YAxisPos *int

	// Calibration bypasses label reading with two known points per axis.
	Calibration *chart.Calibration

	// XScale / YScale select the value-space scale per axis. Log is only
	// accepted together with Calibration. Empty means linear.
	XScale chart.Scale
	YScale chart.Scale

	// Reader reads tick labels when no calibration is given.
	Reader ocr.LabelReader
}

// hasPixelOverride reports whether any override is expressed in source pixel
// coordinates; such runs skip the downscale so the coordinates stay valid.
func (o Options) hasPixelOverride() bool {
	return o.Crop != nil || o.XAxisPos != nil || o.YAxisPos != nil || o.Calibration != nil
}

// Pipeline runs chart extractions with a fixed configuration. Safe for
// concurrent use; each Run keeps all per-run state on its own stack.
type Pipeline struct {
	cfg    Config
	logger *log.Logger
}

// New returns a Pipeline with the given configuration. logger may be nil to
// disable progress logging.
func New(cfg Config, logger *log.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, logger: logger}
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}

// Artifacts are the pixel-space intermediates of a run, kept so callers can
// render a verification overlay. Coordinates refer to Image, the
// preprocessed working image.
type Artifacts struct {
	Image image.Image
	Crop  chart.CropBox
	XAxis chart.AxisLine
	YAxis chart.AxisLine
	Marks []extract.PixelPoint
}

// Run executes one extraction. Malformed overrides fail immediately with
// *chart.InvalidInputError; fewer than two usable ticks on an axis without
// calibration fails with *chart.InsufficientTicksError. Everything else
// degrades into confidence and warnings on the returned result.
func (p *Pipeline) Run(ctx context.Context, img image.Image, opts Options) (*chart.ChartResult, error) {
	res, _, err := p.RunDetailed(ctx, img, opts)
	return res, err
}

// RunDetailed is Run plus the pixel-space artifacts of the completed run.
func (p *Pipeline) RunDetailed(ctx context.Context, img image.Image, opts Options) (*chart.ChartResult, *Artifacts, error) {
	start := time.Now()
	runID := uuid.NewString()
	warn := &chart.Collector{}

	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	if err := validateOptions(opts, srcW, srcH); err != nil {
		return nil, nil, err
	}

	if min(srcW, srcH) < p.cfg.LowResolutionMinSide {
		warn.Add(chart.WarnLowResolution, "image is %dx%d, detection is unreliable below %dpx",
			srcW, srcH, p.cfg.LowResolutionMinSide)
	}

	maxSide := p.cfg.MaxSide
	if opts.hasPixelOverride() {
		maxSide = 0
	}
	work := imaging.Normalize(img, maxSide)
	p.logf("run %s: preprocessed %dx%d -> %dx%d", runID, srcW, srcH, work.Bounds().Dx(), work.Bounds().Dy())

	var conf chart.Confidence
	origins := chart.StageOrigins{
		Crop: chart.OriginAuto, Axes: chart.OriginAuto,
		Labels: chart.OriginAuto, ChartType: chart.OriginAuto,
	}

	// Plot area
	var crop chart.CropBox
	if opts.Crop != nil {
		crop = *opts.Crop
		conf.Crop = 1.0
		origins.Crop = chart.OriginManual
	} else {
		var cropConf float64
		crop, cropConf = detection.DetectPlotArea(work)
		conf.Crop = cropConf
		if cropConf <= p.cfg.CropUncertainMax {
			warn.Add(chart.WarnCropUncertain, "plot area fell back to a low-confidence guess (%.2f)", cropConf)
		}
	}
	p.logf("run %s: crop (%d,%d)-(%d,%d) conf %.2f", runID, crop.X1, crop.Y1, crop.X2, crop.Y2, conf.Crop)

	// Axes
	var xAxis, yAxis chart.AxisLine
	if opts.XAxisPos != nil && opts.YAxisPos != nil {
		xAxis = chart.AxisLine{Kind: chart.AxisX, Pixel: *opts.XAxisPos, Confidence: 1.0}
		yAxis = chart.AxisLine{Kind: chart.AxisY, Pixel: *opts.YAxisPos, Confidence: 1.0}
		conf.Axis = 1.0
		origins.Axes = chart.OriginManual
	} else {
		axes := detection.DetectAxes(work, crop)
		xAxis, yAxis = axes.X, axes.Y
		if opts.XAxisPos != nil {
			xAxis = chart.AxisLine{Kind: chart.AxisX, Pixel: *opts.XAxisPos, Confidence: 1.0}
		}
		if opts.YAxisPos != nil {
			yAxis = chart.AxisLine{Kind: chart.AxisY, Pixel: *opts.YAxisPos, Confidence: 1.0}
		}
		if opts.XAxisPos != nil || opts.YAxisPos != nil {
			origins.Axes = chart.OriginMixed
		}
		conf.Axis = min(xAxis.Confidence, yAxis.Confidence)
		if axes.Skewed {
			warn.Add(chart.WarnSkewDetected, "axes deviate from perpendicular, the image may be rotated")
		}
		if conf.Axis <= p.cfg.AxesUncertainMax {
			warn.Add(chart.WarnAxesUncertain, "axis positions fell back to crop edges (%.2f)", conf.Axis)
		}
	}
	p.logf("run %s: x-axis row %d, y-axis col %d, conf %.2f", runID, xAxis.Pixel, yAxis.Pixel, conf.Axis)

	// Tick labels
	var xTicks, yTicks []chart.Tick
	if opts.Calibration != nil {
		xTicks = opts.Calibration.X[:]
		yTicks = opts.Calibration.Y[:]
		conf.OCR = 1.0
		origins.Labels = chart.OriginManual
	} else if opts.Reader != nil {
		ticks := ocr.ReadTicks(ctx, opts.Reader, work, crop, xAxis, yAxis)
		xTicks, yTicks = ticks.XTicks, ticks.YTicks
		tier, code := ocr.TierConfidence(ticks.ParsedFraction())
		conf.OCR = tier
		if code != "" {
			warn.Add(code, "parsed %d of %d tick labels", ticks.Parsed, ticks.Attempted)
		}
		p.logf("run %s: %d/%d labels parsed, %d x-ticks, %d y-ticks",
			runID, ticks.Parsed, ticks.Attempted, len(xTicks), len(yTicks))
	} else {
		conf.OCR = 0.2
		warn.Add(chart.WarnOCRFailed, "no label reader configured")
	}

	// Transforms
	xScale := scaleOrLinear(opts.XScale)
	yScale := scaleOrLinear(opts.YScale)

	xt, xResidual, err := transform.BuildAxisTransform(chart.AxisX, xTicks, xScale)
	if err != nil {
		return nil, nil, err
	}
	yt, yResidual, err := transform.BuildAxisTransform(chart.AxisY, yTicks, yScale)
	if err != nil {
		return nil, nil, err
	}
	if xScale == chart.Linear && xResidual > p.cfg.LogResidualThreshold {
		warn.Add(chart.WarnPossibleLogScale, "x-axis tick spacing is nonlinear (residual %.0f%%)", xResidual*100)
	}
	if yScale == chart.Linear && yResidual > p.cfg.LogResidualThreshold {
		warn.Add(chart.WarnPossibleLogScale, "y-axis tick spacing is nonlinear (residual %.0f%%)", yResidual*100)
	}
	tf := transform.Transform{X: xt, Y: yt}

	// Chart type
	chartType := opts.ChartType
	if chartType != "" {
		origins.ChartType = chart.OriginManual
	} else {
		chartType = extract.Classify(work, crop, p.cfg.Extract)
	}
	p.logf("run %s: extracting as %s", runID, chartType)

	// Extraction
	var data []chart.Point
	var marks []extract.PixelPoint
	switch chartType {
	case chart.Bar:
		res := extract.Bars(work, crop, p.cfg.Extract, warn)
		conf.Extraction = res.Confidence
		data = p.barPoints(res, crop, tf, xTicks, yTicks)
		for _, b := range res.Bars {
			if res.Horizontal {
				marks = append(marks, extract.PixelPoint{X: b.Value, Y: b.Center})
			} else {
				marks = append(marks, extract.PixelPoint{X: b.Center, Y: b.Value})
			}
		}
	case chart.Line:
		marks, conf.Extraction = extract.LinePoints(work, crop, p.cfg.Extract, warn)
		data = applyTransform(marks, tf)
	default:
		marks, conf.Extraction = extract.Scatter(work, crop, p.cfg.Extract, warn)
		data = applyTransform(marks, tf)
	}

	sort.Slice(data, func(i, j int) bool {
		if data[i].X != data[j].X {
			return data[i].X < data[j].X
		}
		return data[i].Y < data[j].Y
	})

	result := &chart.ChartResult{
		RunID:      runID,
		ChartType:  chartType,
		Data:       data,
		XRange:     chart.RangeOf(data, chart.AxisX, xScale),
		YRange:     chart.RangeOf(data, chart.AxisY, yScale),
		Confidence: conf,
		Overall:    conf.Overall(),
		Zone:       conf.Zone(),
		Warnings:   warn.Warnings(),
		PointCount: len(data),
		RuntimeMS:  time.Since(start).Milliseconds(),
		Origins:    origins,
		CropBox:    crop,
	}
	p.logf("run %s: %d points, overall confidence %.2f (%s), %d warnings in %dms",
		runID, result.PointCount, result.Overall, result.Zone, len(result.Warnings), result.RuntimeMS)

	artifacts := &Artifacts{
		Image: work,
		Crop:  crop,
		XAxis: xAxis,
		YAxis: yAxis,
		Marks: marks,
	}
	return result, artifacts, nil
}

// barPoints maps extracted bars to value-space points. The category
// coordinate snaps to the nearest tick on the category axis when one is
// close enough; otherwise bars are numbered left to right (or top to bottom
// for horizontal charts) starting at zero.
func (p *Pipeline) barPoints(res extract.BarResult, crop chart.CropBox, tf transform.Transform, xTicks, yTicks []chart.Tick) []chart.Point {
	bars := res.Bars
	sort.Slice(bars, func(i, j int) bool { return bars[i].Center < bars[j].Center })

	catTicks := xTicks
	span := crop.Width()
	if res.Horizontal {
		catTicks = yTicks
		span = crop.Height()
	}
	tolerance := float64(span) / float64(2*max(len(bars), 1))

	points := make([]chart.Point, 0, len(bars))
	for i, b := range bars {
		category, ok := extract.NearestTick(b.Center, catTicks, tolerance)
		if !ok {
			category = float64(i)
		}
		var value float64
		if res.Horizontal {
			value = tf.X.Apply(b.Value)
		} else {
			value = tf.Y.Apply(b.Value)
		}
		points = append(points, chart.Point{X: category, Y: value})
	}
	return points
}

func applyTransform(pixels []extract.PixelPoint, tf transform.Transform) []chart.Point {
	points := make([]chart.Point, 0, len(pixels))
	for _, px := range pixels {
		points = append(points, tf.Apply(px.X, px.Y))
	}
	return points
}

func scaleOrLinear(s chart.Scale) chart.Scale {
	if s == "" {
		return chart.Linear
	}
	return s
}

// validateOptions rejects malformed overrides before any stage runs.
func validateOptions(opts Options, imgW, imgH int) error {
	if opts.Crop != nil {
		if err := opts.Crop.Validate(imgW, imgH); err != nil {
			return err
		}
	}
	if opts.XAxisPos != nil && (*opts.XAxisPos < 0 || *opts.XAxisPos >= imgH) {
		return &chart.InvalidInputError{
			Field:  "x_axis",
			Reason: fmt.Sprintf("row %d outside image height %d", *opts.XAxisPos, imgH),
		}
	}
	if opts.YAxisPos != nil && (*opts.YAxisPos < 0 || *opts.YAxisPos >= imgW) {
		return &chart.InvalidInputError{
			Field:  "y_axis",
			Reason: fmt.Sprintf("column %d outside image width %d", *opts.YAxisPos, imgW),
		}
	}
	if opts.Calibration != nil {
		if err := opts.Calibration.Validate(); err != nil {
			return err
		}
	}
	if (opts.XScale == chart.Log || opts.YScale == chart.Log) && opts.Calibration == nil {
		return &chart.InvalidInputError{
			Field:  "scale",
			Reason: "log scale requires calibration; it is never inferred from labels",
		}
	}
	switch opts.ChartType {
	case "", chart.Scatter, chart.Line, chart.Bar:
	default:
		return &chart.InvalidInputError{
			Field:  "chart_type",
			Reason: fmt.Sprintf("unknown chart type %q", opts.ChartType),
		}
	}
	return nil
}
