// Package ollama implements the attribute extraction stage against an Ollama
// vision model. The model's reply is decoded strictly against the attribute
// schema at this boundary; anything that doesn't validate is a
// MalformedExtraction, never a best-effort parse.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/pillscan/backend/internal/domain"
)

// extractionPrompt constrains the model to observable evidence. Confidence
// banding is deliberately conservative: the top band is reserved for crops
// where imprint, shape and color are all clearly legible.
const extractionPrompt = `You are a pharmaceutical pill attribute reader. You will be shown one photograph of a single pill.

Return JSON only, with exactly these fields:
{
  "shape": "string",
  "color": "string",
  "sizeMm": 0.0,
  "thicknessMm": 0.0,
  "frontImprint": "string",
  "backImprint": "string",
  "scoring": "string",
  "coating": "string",
  "notes": "string",
  "confidence": 0.0
}

HARD RULES
- Report only what is visible in the image. If a field cannot be read, use "unclear" (for numbers use 0).
- NEVER invent imprint text. Transcribe exactly what you can read; if characters are partially legible, report only the legible ones.
- NEVER claim to have looked the pill up in any database or to know its identity. You read attributes, nothing more.
- scoring describes score lines on the pill face: "no score", "1 score" or "2 scores".
- sizeMm is the longest dimension in millimetres; 0 means not estimated.
- confidence is in [0,1]: 0.9-1.0 only when imprint, shape and color are all clearly legible and consistent; 0.0-0.1 when there is no reliable signal.
- JSON only. No markdown, no code fences, no comments, no extra fields.`

// Client wraps the Ollama API client for attribute extraction.
type Client struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

// NewClient creates a new vision extraction client against the given Ollama
// base URL.
func NewClient(baseURL, model string, timeout time.Duration) (*Client, error) {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	base := &url.URL{Scheme: parsedURL.Scheme, Host: parsedURL.Host}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &Client{
		client:  api.NewClient(base, http.DefaultClient),
		model:   model,
		timeout: timeout,
	}, nil
}

// ExtractAttributes sends one cropped pill image to the vision model and
// returns the validated attribute set. The hint, when present, is passed as
// advisory secondary context only.
func (c *Client) ExtractAttributes(ctx context.Context, crop *domain.CroppedImage, hint string) (*domain.ExtractedAttributes, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	prompt := extractionPrompt
	if hint != "" {
		prompt += fmt.Sprintf("\n\nAdvisory context (may be wrong, trust the image over it): a local color sampler suggests the dominant color is %q.", hint)
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: prompt,
				Images:  []api.ImageData{api.ImageData(crop.Data)},
			},
		},
		Stream: &streamFalse,
		Format: json.RawMessage(`"json"`),
		Options: map[string]any{
			"temperature": 0.0,
		},
	}

	var responseContent string
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent = resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: vision chat: %v", domain.ErrCapabilityUnavailable, err)
	}

	if responseContent == "" {
		return nil, fmt.Errorf("%w: empty vision response", domain.ErrMalformedExtraction)
	}

	return decodeAttributes(responseContent)
}

// wireAttributes uses pointers so a missing field is distinguishable from a
// zero value; the extraction contract requires the exact field set.
type wireAttributes struct {
	Shape        *string  `json:"shape"`
	Color        *string  `json:"color"`
	SizeMm       *float64 `json:"sizeMm"`
	ThicknessMm  *float64 `json:"thicknessMm"`
	FrontImprint *string  `json:"frontImprint"`
	BackImprint  *string  `json:"backImprint"`
	Scoring      *string  `json:"scoring"`
	Coating      *string  `json:"coating"`
	Notes        *string  `json:"notes"`
	Confidence   *float64 `json:"confidence"`
}

// decodeAttributes validates the model reply against the attribute schema.
// Code fences are stripped (transport noise), then the JSON must decode with
// no unknown fields, no missing fields, and sane numeric ranges.
func decodeAttributes(raw string) (*domain.ExtractedAttributes, error) {
	raw = stripFences(raw)

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()

	var wire wireAttributes
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedExtraction, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after attribute object", domain.ErrMalformedExtraction)
	}

	missing := []string{}
	for name, present := range map[string]bool{
		"shape":        wire.Shape != nil,
		"color":        wire.Color != nil,
		"sizeMm":       wire.SizeMm != nil,
		"thicknessMm":  wire.ThicknessMm != nil,
		"frontImprint": wire.FrontImprint != nil,
		"backImprint":  wire.BackImprint != nil,
		"scoring":      wire.Scoring != nil,
		"coating":      wire.Coating != nil,
		"notes":        wire.Notes != nil,
		"confidence":   wire.Confidence != nil,
	} {
		if !present {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing fields %v", domain.ErrMalformedExtraction, missing)
	}

	if *wire.Confidence < 0 || *wire.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v outside [0,1]", domain.ErrMalformedExtraction, *wire.Confidence)
	}
	if *wire.SizeMm < 0 || *wire.ThicknessMm < 0 {
		return nil, fmt.Errorf("%w: negative measurement", domain.ErrMalformedExtraction)
	}

	// A reported 0 means "not estimated"; the domain type treats 0 as unset.
	return &domain.ExtractedAttributes{
		Shape:        strings.TrimSpace(*wire.Shape),
		Color:        strings.TrimSpace(*wire.Color),
		SizeMm:       *wire.SizeMm,
		ThicknessMm:  *wire.ThicknessMm,
		FrontImprint: strings.TrimSpace(*wire.FrontImprint),
		BackImprint:  strings.TrimSpace(*wire.BackImprint),
		Scoring:      strings.TrimSpace(*wire.Scoring),
		Coating:      strings.TrimSpace(*wire.Coating),
		Notes:        strings.TrimSpace(*wire.Notes),
		Confidence:   *wire.Confidence,
	}, nil
}

// stripFences removes triple-backtick fences some models wrap JSON in.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	return strings.TrimSpace(raw)
}
