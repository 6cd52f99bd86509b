package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pillscan/backend/config"
	"github.com/pillscan/backend/internal/domain"
)

type stubIdentifier struct {
	report *domain.AggregateReport
	err    error
}

func (s *stubIdentifier) Identify(ctx context.Context, imageData []byte, mimeType string) (*domain.AggregateReport, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

type stubSearcher struct {
	matches []domain.RankedMatch
	err     error
}

func (s *stubSearcher) Search(ctx context.Context, attrs *domain.ExtractedAttributes) ([]domain.RankedMatch, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.matches, nil
}

func (s *stubSearcher) Rerank(matches []domain.RankedMatch, hints *domain.SecondaryHints) []domain.RankedMatch {
	return matches
}

func testRouter(identifier Identifier, searcher Searcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.Server.Environment = "test"
	return SetupRouter(cfg, NewHandler(identifier, searcher))
}

func multipartImage(t *testing.T, field string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, "pill.jpg")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	router := testRouter(&stubIdentifier{}, &stubSearcher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestIdentifyPills_Success(t *testing.T) {
	report := &domain.AggregateReport{
		RunID:        "run-1",
		TotalCount:   2,
		SuccessCount: 2,
		Regions: []domain.PipelineUnitResult{
			{RegionID: "r0", State: domain.UnitSuccess},
			{RegionID: "r1", State: domain.UnitSuccess},
		},
	}
	router := testRouter(&stubIdentifier{report: report}, &stubSearcher{})

	body, contentType := multipartImage(t, "image", []byte("jpeg-bytes"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/pills/identify", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Report  domain.AggregateReport `json:"report"`
		Summary string                 `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.Report.RunID)
	assert.Equal(t, "Detected 2 pills: 2 identified, 0 low confidence, 0 failed.", resp.Summary)
}

func TestIdentifyPills_MissingFile(t *testing.T) {
	router := testRouter(&stubIdentifier{}, &stubSearcher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/pills/identify", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIdentifyPills_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"no detection", domain.ErrNoDetection, http.StatusUnprocessableEntity},
		{"validation", fmt.Errorf("%w: bad image", domain.ErrValidation), http.StatusBadRequest},
		{"capability unavailable", domain.ErrCapabilityUnavailable, http.StatusBadGateway},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := testRouter(&stubIdentifier{err: tt.err}, &stubSearcher{})

			body, contentType := multipartImage(t, "image", []byte("jpeg-bytes"))
			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/v1/pills/identify", body)
			req.Header.Set("Content-Type", contentType)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestSearchPills_Success(t *testing.T) {
	matches := []domain.RankedMatch{
		{Record: domain.PillRecord{ID: "p1", Name: "Acetaminophen 500mg"}, Confidence: 0.77},
	}
	router := testRouter(&stubIdentifier{}, &stubSearcher{matches: matches})

	payload := `{"attributes":{"shape":"Capsule/Oblong","color":"White","confidence":0.9}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/pills/search", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Acetaminophen")
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestSearchPills_InvalidBody(t *testing.T) {
	router := testRouter(&stubIdentifier{}, &stubSearcher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/pills/search", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchPills_ValidationError(t *testing.T) {
	router := testRouter(&stubIdentifier{}, &stubSearcher{err: fmt.Errorf("%w: no usable search criteria", domain.ErrValidation)})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/pills/search", bytes.NewBufferString(`{"attributes":{}}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no usable search criteria")
}

func TestRerankPills_Success(t *testing.T) {
	router := testRouter(&stubIdentifier{}, &stubSearcher{})

	payload := `{"matches":[{"record":{"id":"p1","name":"Lisinopril 10mg"},"confidence":0.6}],"hints":{"suspectedName":"lisinopril"}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/pills/rerank", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Lisinopril")
}

func TestRerankPills_InvalidBody(t *testing.T) {
	router := testRouter(&stubIdentifier{}, &stubSearcher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/pills/rerank", bytes.NewBufferString("[]"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
