package domain

import "errors"

var (
	// ErrNoDetection is returned when no region passes the detection
	// confidence threshold. Fatal to the whole run.
	ErrNoDetection = errors.New("no pills detected above confidence threshold")

	// ErrCropOutOfBounds is returned when a region's crop rectangle has no
	// overlap with the image. Recoverable as that region's failure only.
	ErrCropOutOfBounds = errors.New("crop rectangle out of image bounds")

	// ErrMalformedExtraction is returned when the vision capability's
	// response violates the expected attribute schema.
	ErrMalformedExtraction = errors.New("vision response violates extraction schema")

	// ErrCapabilityUnavailable is returned for network/timeout/auth/quota
	// failures from either external capability.
	ErrCapabilityUnavailable = errors.New("external capability unavailable")

	// ErrValidation is returned when caller-supplied attributes fail the
	// canonical-vocabulary check before a search query is built.
	ErrValidation = errors.New("attributes failed validation")

	// ErrCacheMiss is returned when data is not found in cache.
	ErrCacheMiss = errors.New("cache miss")
)
