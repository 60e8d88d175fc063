package chart

import "fmt"

// WarningCode is a stable identifier for a diagnostic condition. The set is
// closed: downstream consumers may switch on these values.
type WarningCode string

const (
	WarnLowResolution       WarningCode = "LOW_RESOLUTION"
	WarnCropUncertain       WarningCode = "CROP_UNCERTAIN"
	WarnAxesUncertain       WarningCode = "AXES_UNCERTAIN"
	WarnSkewDetected        WarningCode = "SKEW_DETECTED"
	WarnOCRFailed           WarningCode = "OCR_FAILED"
	WarnOCRPartial          WarningCode = "OCR_PARTIAL"
	WarnPossibleLogScale    WarningCode = "POSSIBLE_LOG_SCALE"
	WarnMultiSeriesDetected WarningCode = "MULTI_SERIES_DETECTED"
	WarnLegendDetected      WarningCode = "LEGEND_DETECTED"
	WarnNoiseDetected       WarningCode = "NOISE_DETECTED"
	WarnLineGaps            WarningCode = "LINE_GAPS"
	WarnFewPoints           WarningCode = "FEW_POINTS"
)

// Warning is a categorical diagnostic with free-text context. Warnings and
// confidence are independent: a warning is never suppressed because some
// component score is high, and data is never withheld because of warnings.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("[%s] %s", w.Code, w.Message)
}

// Collector accumulates warnings across pipeline stages in the order they
// were raised. Entries are never deduplicated or dropped. A Collector is
// owned by a single run and is not safe for concurrent use.
type Collector struct {
	warnings []Warning
}

// Add appends a warning with a formatted message.
func (c *Collector) Add(code WarningCode, format string, args ...any) {
	c.warnings = append(c.warnings, Warning{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	})
}

// Has reports whether at least one warning with the given code was raised.
func (c *Collector) Has(code WarningCode) bool {
	for _, w := range c.warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// Warnings returns the accumulated list in insertion order. The result is
// never nil, so callers can attach it to a ChartResult directly.
func (c *Collector) Warnings() []Warning {
	if c.warnings == nil {
		return []Warning{}
	}
	return c.warnings
}
