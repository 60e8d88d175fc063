package ocr

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// Characters that can appear in a numeric tick label. Restricting the
// engine to these avoids misreads like "O" for "0" and "l" for "1".
const numericWhitelist = "0123456789.eE+-"

// TesseractReader reads labels with the Tesseract engine via gosseract.
// A new client is created per call; gosseract clients are not safe for
// concurrent use.
type TesseractReader struct {
	// Language is the Tesseract language code, "eng" by default.
	Language string
}

// NewTesseractReader returns a reader configured for English numeric labels.
func NewTesseractReader() *TesseractReader {
	return &TesseractReader{Language: "eng"}
}

// ReadRegion crops the region, hands it to Tesseract through a temporary PNG
// (the engine wants a file path), and returns word-level candidates with
// bounds shifted back into full-image coordinates.
func (r *TesseractReader) ReadRegion(ctx context.Context, img image.Image, region image.Rectangle) ([]TextCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cropped := imaging.Crop(img, region)

	tmpFile, err := os.CreateTemp("", "ticks-*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if err := png.Encode(tmpFile, cropped); err != nil {
		tmpFile.Close()
		return nil, fmt.Errorf("failed to encode temp image: %w", err)
	}
	tmpFile.Close()

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(r.Language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetWhitelist(numericWhitelist); err != nil {
		return nil, fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := client.SetImage(tmpPath); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	candidates := make([]TextCandidate, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		candidates = append(candidates, TextCandidate{
			Text:   box.Word,
			Bounds: box.Box.Add(region.Min),
		})
	}
	return candidates, nil
}
