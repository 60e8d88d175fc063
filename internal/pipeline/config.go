package pipeline

import "github.com/chartsnap/chart2csv/internal/extract"

// Config holds the pipeline's tunable thresholds. DefaultConfig returns
// values tuned for typical chart renders; callers adjust fields before
// constructing the Pipeline.
type Config struct {
	// MaxSide is the preprocessing downscale cap in pixels. Inputs whose
	// longer side exceeds it are resized down unless pixel-space overrides
	// are supplied.
	MaxSide int

	// LowResolutionMinSide is the shorter-side floor below which the input
	// gets a low resolution warning.
	LowResolutionMinSide int

	// CropUncertainMax is the crop confidence at or below which the crop
	// warning is raised.
	CropUncertainMax float64

	// AxesUncertainMax is the axis confidence at or below which the axes
	// warning is raised.
	AxesUncertainMax float64

	// LogResidualThreshold is the worst relative fit residual above which
	// a linear axis is flagged as possibly logarithmic.
	LogResidualThreshold float64

	// Extract carries the extractor thresholds.
	Extract extract.Params
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		MaxSide:              1200,
		LowResolutionMinSide: 300,
		CropUncertainMax:     0.4,
		AxesUncertainMax:     0.2,
		LogResidualThreshold: 0.10,
		Extract: extract.Params{
			MinSaturation:          0.16,
			MinValue:               0.2,
			MinBlobArea:            10,
			MaxBlobArea:            5000,
			MinCircularity:         0.3,
			FallbackMinArea:        15,
			FallbackMaxArea:        2000,
			FallbackMinCircularity: 0.5,
			FewPointsMin:           5,
			NoiseMax:               500,
			LineStep:               2,
			LineGapRun:             20,
			BarMinFill:             0.6,
		},
	}
}
