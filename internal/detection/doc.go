// Package detection locates the geometric structure of a chart image: the
// plot area rectangle, the axis lines, straight line segments, and connected
// foreground components (blobs).
//
// Detection is best-effort and never fails hard. Every detector returns a
// usable answer together with a confidence score in [0, 1]; when the primary
// strategy finds nothing, documented fallbacks produce a degraded answer
// with a correspondingly low confidence, and the pipeline's warning engine
// decides what to surface.
//
// All coordinates are full-image pixel coordinates with the origin at the
// top-left, X increasing rightward and Y increasing downward, matching the
// conventions of the imaging package.
package detection
