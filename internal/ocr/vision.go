package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// visionPrompt asks the model for exactly the JSON shape parseCandidates
// expects. pos is the pixel offset of the label center along the strip's
// long dimension.
const visionPrompt = `This image is a strip of axis tick labels from a chart.
List every numeric label you can read. Respond with only a JSON array, no
prose, in the form: [{"text": "12.5", "pos": 140}] where pos is the pixel
position of the label's center measured along the longer side of the image
(left edge = 0 for a horizontal strip, top edge = 0 for a vertical strip).`

// VisionReader reads labels by sending the axis strip to an OpenAI-compatible
// vision model over the chat completions API.
type VisionReader struct {
	Endpoint string
	APIKey   string
	Model    string

	client *http.Client
}

// NewVisionReader returns a reader for the given chat completions endpoint,
// e.g. "https://api.openai.com/v1/chat/completions".
func NewVisionReader(endpoint, apiKey, model string) *VisionReader {
	return &VisionReader{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Model:    model,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

type visionRequest struct {
	Model    string          `json:"model"`
	Messages []visionMessage `json:"messages"`
}

type visionMessage struct {
	Role    string          `json:"role"`
	Content []visionContent `json:"content"`
}

type visionContent struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *visionImageURL `json:"image_url,omitempty"`
}

type visionImageURL struct {
	URL string `json:"url"`
}

type visionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type visionCandidate struct {
	Text string `json:"text"`
	Pos  int    `json:"pos"`
}

// ReadRegion crops the region, sends it to the model as a base64 PNG data
// URL, and maps the returned positions back into full-image coordinates.
func (r *VisionReader) ReadRegion(ctx context.Context, img image.Image, region image.Rectangle) ([]TextCandidate, error) {
	cropped := imaging.Crop(img, region)

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, fmt.Errorf("failed to encode region: %w", err)
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	reqBody := visionRequest{
		Model: r.Model,
		Messages: []visionMessage{
			{
				Role: "user",
				Content: []visionContent{
					{Type: "text", Text: visionPrompt},
					{Type: "image_url", ImageURL: &visionImageURL{URL: dataURL}},
				},
			},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.APIKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed visionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("vision API error: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vision API returned status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("vision API returned no choices")
	}

	return parseCandidates(parsed.Choices[0].Message.Content, region)
}

// parseCandidates decodes the model's JSON array and anchors each label. For
// a horizontal strip pos runs along X, for a vertical strip along Y; the
// candidate bounds are a thin rectangle at that offset so downstream anchor
// math works the same as for Tesseract word boxes.
func parseCandidates(content string, region image.Rectangle) ([]TextCandidate, error) {
	content = stripCodeFence(content)

	var raw []visionCandidate
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse vision output: %w", err)
	}

	horizontal := region.Dx() >= region.Dy()
	candidates := make([]TextCandidate, 0, len(raw))
	for _, c := range raw {
		if c.Text == "" {
			continue
		}
		var bounds image.Rectangle
		if horizontal {
			x := region.Min.X + c.Pos
			bounds = image.Rect(x-1, region.Min.Y, x+1, region.Max.Y)
		} else {
			y := region.Min.Y + c.Pos
			bounds = image.Rect(region.Min.X, y-1, region.Max.X, y+1)
		}
		candidates = append(candidates, TextCandidate{Text: c.Text, Bounds: bounds})
	}
	return candidates, nil
}

// stripCodeFence removes a surrounding markdown code fence if the model
// wrapped its JSON in one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
