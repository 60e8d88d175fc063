// Package ocr reads numeric tick labels from the axis regions of a chart
// image and converts them into pixel-anchored tick marks.
//
// The reading backend is pluggable through the LabelReader interface. The
// default backend shells into Tesseract via gosseract with a numeric
// character whitelist; an alternative backend sends the axis strip to an
// OpenAI-compatible vision model. Both return text candidates anchored in
// full-image pixel coordinates, so the rest of the pipeline does not care
// which backend produced them.
//
// Label reading never fails the run. Unparseable labels lower the OCR
// confidence tier instead; calibration against too few ticks is the caller's
// concern.
package ocr
