// Package roboflow implements the detection stage against a Roboflow-style
// hosted inference endpoint. The detector returns center-point boxes; this
// client converts them to clamped top-left boxes and applies the confidence
// filter, so the rest of the pipeline only ever sees canonical regions.
package roboflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/pillscan/backend/internal/domain"
	"github.com/pillscan/backend/internal/logger"
)

// Client handles communication with the hosted detection API
type Client struct {
	httpClient          *http.Client
	apiKey              string
	baseURL             string
	modelID             string
	confidenceThreshold float64
	rateLimiter         *rate.Limiter
	debug               bool
}

// detectResponse mirrors the wire shape of the hosted inference API.
// Predictions use the center-box convention.
type detectResponse struct {
	Time  float64 `json:"time"`
	Image struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"image"`
	Predictions []prediction `json:"predictions"`
}

type prediction struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Confidence  float64 `json:"confidence"`
	Class       string  `json:"class,omitempty"`
	DetectionID string  `json:"detection_id,omitempty"`
}

// NewClient creates a new detection client. Hosted inference allows a few
// requests per second per key; the limiter keeps bursts under that.
func NewClient(apiKey, baseURL, modelID string, confidenceThreshold float64) *Client {
	if confidenceThreshold <= 0 {
		confidenceThreshold = 0.60
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiKey:              apiKey,
		baseURL:             baseURL,
		modelID:             modelID,
		confidenceThreshold: confidenceThreshold,
		rateLimiter:         rate.NewLimiter(rate.Limit(2), 5),
	}
}

// SetDebug enables per-prediction debug logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// Detect sends the full image to the detector and returns the regions that
// pass the confidence threshold, converted to clamped top-left boxes.
// Returns ErrNoDetection when nothing usable comes back and
// ErrCapabilityUnavailable for transport-level failures.
func (c *Client) Detect(ctx context.Context, imageData []byte, mimeType string) (*domain.DetectionResult, error) {
	if len(imageData) == 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrValidation)
	}

	reqURL := fmt.Sprintf("%s/%s?api_key=%s", c.baseURL, c.modelID, c.apiKey)

	// Retry transient failures; the pipeline itself never retries.
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, reqURL, imageData)
		if err != nil {
			lastErr = err
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(exponentialBackoff(attempt)):
			}
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("%w: detector status %d", domain.ErrCapabilityUnavailable, resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				// Auth/model errors won't heal on retry
				return nil, lastErr
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(exponentialBackoff(attempt)):
			}
			continue
		}

		var detectResp detectResponse
		if err := json.Unmarshal(body, &detectResp); err != nil {
			return nil, fmt.Errorf("%w: decode detector response: %v", domain.ErrCapabilityUnavailable, err)
		}

		return c.toResult(&detectResp)
	}

	return nil, lastErr
}

// doRequest posts the image as a multipart form to the inference endpoint
func (c *Client) doRequest(ctx context.Context, reqURL string, imageData []byte) (*http.Response, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "image")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(imageData)); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("User-Agent", "PillScan/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCapabilityUnavailable, err)
	}
	return resp, nil
}

// toResult converts raw predictions to canonical regions: center->top-left
// (round then clamp), confidence filter, stable ids.
func (c *Client) toResult(resp *detectResponse) (*domain.DetectionResult, error) {
	imgW, imgH := resp.Image.Width, resp.Image.Height
	if imgW < 1 || imgH < 1 {
		return nil, fmt.Errorf("%w: detector reported %dx%d image", domain.ErrCapabilityUnavailable, imgW, imgH)
	}

	regions := make([]domain.DetectionRegion, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		if c.debug {
			logger.WithFields(map[string]interface{}{
				"class":      p.Class,
				"confidence": p.Confidence,
			}).Debug("detector prediction")
		}

		if p.Confidence < c.confidenceThreshold {
			continue
		}

		id := p.DetectionID
		if id == "" {
			id = uuid.NewString()
		}

		regions = append(regions, domain.DetectionRegion{
			ID:         id,
			Confidence: p.Confidence,
			ClassLabel: p.Class,
			Box:        domain.BoxFromCenter(p.X, p.Y, p.Width, p.Height, imgW, imgH),
		})
	}

	if len(regions) == 0 {
		return nil, fmt.Errorf("%w (>= %.2f)", domain.ErrNoDetection, c.confidenceThreshold)
	}

	return &domain.DetectionResult{
		ImageWidth:  imgW,
		ImageHeight: imgH,
		Regions:     regions,
	}, nil
}

// exponentialBackoff returns the wait before the next retry attempt
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<(attempt-1)) * 500 * time.Millisecond
}
