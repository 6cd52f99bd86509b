package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pillscan/backend/internal/domain"
	"github.com/pillscan/backend/internal/logger"
)

// maxUploadBytes bounds the accepted image upload size.
const maxUploadBytes = 10 << 20 // 10 MiB

// Identifier runs the identification pipeline over one uploaded image.
type Identifier interface {
	Identify(ctx context.Context, imageData []byte, mimeType string) (*domain.AggregateReport, error)
}

// Searcher matches confirmed attributes against the reference store and
// reranks with secondary hints.
type Searcher interface {
	Search(ctx context.Context, attrs *domain.ExtractedAttributes) ([]domain.RankedMatch, error)
	Rerank(matches []domain.RankedMatch, hints *domain.SecondaryHints) []domain.RankedMatch
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	identifier Identifier
	searcher   Searcher
}

// NewHandler creates a new HTTP handler
func NewHandler(identifier Identifier, searcher Searcher) *Handler {
	return &Handler{
		identifier: identifier,
		searcher:   searcher,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pillscan-backend",
		"version": "1.0.0",
	})
}

// IdentifyPills accepts a multipart image upload and returns the aggregate
// identification report.
func (h *Handler) IdentifyPills(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing image file (field 'image')"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds 10 MiB limit"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable image file"})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read image file"})
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	report, err := h.identifier.Identify(c.Request.Context(), imageData, mimeType)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"report":  report,
		"summary": report.Summary(),
	})
}

// searchRequest is the body of a search call: the user-confirmed attributes.
type searchRequest struct {
	Attributes domain.ExtractedAttributes `json:"attributes"`
}

// SearchPills matches confirmed attributes against the reference store.
func (h *Handler) SearchPills(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	matches, err := h.searcher.Search(c.Request.Context(), &req.Attributes)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"matches": matches,
		"count":   len(matches),
	})
}

// rerankRequest carries an already ranked result set plus secondary hints.
type rerankRequest struct {
	Matches []domain.RankedMatch  `json:"matches"`
	Hints   domain.SecondaryHints `json:"hints"`
}

// RerankPills applies secondary-hint boosts to a previously returned result
// set. Hints only ever promote candidates.
func (h *Handler) RerankPills(c *gin.Context) {
	var req rerankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	matches := h.searcher.Rerank(req.Matches, &req.Hints)

	c.JSON(http.StatusOK, gin.H{
		"matches": matches,
		"count":   len(matches),
	})
}

// respondError maps domain errors onto HTTP statuses.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNoDetection):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no pills detected with sufficient confidence"})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrCapabilityUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream capability unavailable"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "processing timed out"})
	default:
		logger.WithError(err).Error("Unhandled request error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
