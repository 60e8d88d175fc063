package chart

import "fmt"

// InvalidInputError reports a malformed manual override (crop box, axis
// position or calibration). It is raised before any pipeline stage runs;
// invalid overrides are rejected, never silently clamped.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Field, e.Reason)
}

// InsufficientTicksError is the one hard-stop condition of a run: fewer than
// two usable ticks on an axis and no calibration supplied, so no transform
// can be built at all. Every other detection shortfall degrades confidence
// and raises warnings instead of failing.
type InsufficientTicksError struct {
	Axis AxisKind
	Got  int
}

func (e *InsufficientTicksError) Error() string {
	return fmt.Sprintf("insufficient ticks on %s-axis: need at least 2, got %d (supply calibration to bypass label reading)", e.Axis, e.Got)
}
