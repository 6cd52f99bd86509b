package roboflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pillscan/backend/internal/domain"
)

func TestNewClient(t *testing.T) {
	client := NewClient("test-api-key", "https://detect.example.com", "pills/2", 0.6)

	assert.NotNil(t, client)
	assert.Equal(t, "test-api-key", client.apiKey)
	assert.Equal(t, 0.6, client.confidenceThreshold)
	assert.NotNil(t, client.rateLimiter)
}

func TestNewClient_DefaultThreshold(t *testing.T) {
	client := NewClient("k", "u", "m", 0)
	assert.Equal(t, 0.60, client.confidenceThreshold)
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1000 * time.Millisecond},
		{3, 2000 * time.Millisecond},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
	}
}

func detectPayload(w, h int, preds []prediction) detectResponse {
	var resp detectResponse
	resp.Image.Width = w
	resp.Image.Height = h
	resp.Predictions = preds
	return resp
}

func TestDetect_ConvertsAndFilters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))

		resp := detectPayload(200, 200, []prediction{
			{X: 100, Y: 100, Width: 50, Height: 50, Confidence: 0.95, Class: "pill", DetectionID: "det-1"},
			{X: 10, Y: 10, Width: 50, Height: 50, Confidence: 0.80, Class: "pill"},
			{X: 150, Y: 150, Width: 20, Height: 20, Confidence: 0.40, Class: "pill"},
		})
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, "pills/2", 0.60)
	result, err := client.Detect(context.Background(), []byte("fake-image"), "image/jpeg")

	require.NoError(t, err)
	assert.Equal(t, 200, result.ImageWidth)
	assert.Equal(t, 200, result.ImageHeight)

	// Low-confidence prediction filtered out
	require.Len(t, result.Regions, 2)

	first := result.Regions[0]
	assert.Equal(t, "det-1", first.ID)
	assert.Equal(t, domain.Box{X: 75, Y: 75, Width: 50, Height: 50}, first.Box)

	// Edge box clipped to origin, id generated when detector omits one
	second := result.Regions[1]
	assert.NotEmpty(t, second.ID)
	assert.Equal(t, domain.Box{X: 0, Y: 0, Width: 35, Height: 35}, second.Box)
}

func TestDetect_NoDetection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := detectPayload(100, 100, []prediction{
			{X: 50, Y: 50, Width: 10, Height: 10, Confidence: 0.30},
		})
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient("k", server.URL, "pills/2", 0.60)
	_, err := client.Detect(context.Background(), []byte("img"), "image/jpeg")

	assert.ErrorIs(t, err, domain.ErrNoDetection)
}

func TestDetect_AuthErrorNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient("bad-key", server.URL, "pills/2", 0.60)
	_, err := client.Detect(context.Background(), []byte("img"), "image/jpeg")

	assert.ErrorIs(t, err, domain.ErrCapabilityUnavailable)
	assert.Equal(t, 1, calls)
}

func TestDetect_RetriesServerErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		resp := detectPayload(100, 100, []prediction{
			{X: 50, Y: 50, Width: 20, Height: 20, Confidence: 0.90, DetectionID: "d"},
		})
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient("k", server.URL, "pills/2", 0.60)
	result, err := client.Detect(context.Background(), []byte("img"), "image/jpeg")

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	require.Len(t, result.Regions, 1)
}

func TestDetect_EmptyImage(t *testing.T) {
	client := NewClient("k", "http://localhost:0", "pills/2", 0.60)
	_, err := client.Detect(context.Background(), nil, "image/jpeg")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
