package domain

import (
	"context"
	"time"
)

// Detector locates candidate pill regions in a full image. Implementations
// make exactly one outbound call per Detect; retry policy belongs to the
// client, not the pipeline.
type Detector interface {
	Detect(ctx context.Context, imageData []byte, mimeType string) (*DetectionResult, error)
}

// VisionExtractor reads visual attributes from a single cropped pill image.
// The optional hint carries locally computed secondary context (for example a
// dominant-color estimate); implementations must not let it override what is
// visible in the crop.
type VisionExtractor interface {
	ExtractAttributes(ctx context.Context, crop *CroppedImage, hint string) (*ExtractedAttributes, error)
}

// PillRepository is the read-only query contract against the reference store.
// Records come back in store order; ranking is the search stage's job.
type PillRepository interface {
	Query(ctx context.Context, query *SearchQuery) ([]PillRecord, error)
}

// CacheRepository defines the interface for caching operations.
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// AnalyticsSink receives completed search events. Implementations must be
// safe to call concurrently; callers ignore persistence failures.
type AnalyticsSink interface {
	Record(ctx context.Context, event *SearchEvent) error
}
