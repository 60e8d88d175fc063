// Package extract pulls data marks out of the cropped plot area, one
// strategy per chart type: colored blob detection for scatter, per-column
// stroke tracing for line charts, and rectangle detection for bars.
//
// Extractors work in pixel space; the caller applies the axis transforms to
// the returned positions. Each extractor reports a confidence in [0, 1] and
// appends warnings to the supplied collector instead of failing.
//
// All returned pixel coordinates are full-image coordinates.
package extract
