package usecase

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pillscan/backend/internal/domain"
	"github.com/pillscan/backend/internal/infrastructure/imageops"
	"github.com/pillscan/backend/internal/logger"
)

// PipelineOptions tunes the identification pipeline. Zero values fall back to
// the documented defaults in NewPipelineService.
type PipelineOptions struct {
	Concurrency            int
	PaddingPct             float64
	UnitTimeout            time.Duration
	LowConfidenceThreshold float64
	JPEGQuality            int
	EnableDebugLogging     bool
}

// PipelineService orchestrates one identification run: detect regions in the
// uploaded image, crop each region with padding, extract attributes per crop
// and merge the per-unit outcomes into an aggregate report.
//
// Per-unit failures are isolated: one bad crop or extraction never aborts the
// other units or the run. Only run-level failures (detection, undecodable
// upload) surface as errors.
type PipelineService struct {
	detector  domain.Detector
	extractor domain.VisionExtractor
	opts      PipelineOptions
}

// NewPipelineService creates a pipeline service. Defaults: concurrency 3,
// padding 6%, unit timeout 60s, low-confidence threshold 0.70, JPEG quality 90.
func NewPipelineService(detector domain.Detector, extractor domain.VisionExtractor, opts PipelineOptions) *PipelineService {
	if opts.Concurrency < 1 {
		opts.Concurrency = 3
	}
	if opts.PaddingPct <= 0 {
		opts.PaddingPct = 0.06
	}
	if opts.UnitTimeout <= 0 {
		opts.UnitTimeout = 60 * time.Second
	}
	if opts.LowConfidenceThreshold <= 0 {
		opts.LowConfidenceThreshold = 0.70
	}
	if opts.JPEGQuality < 1 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = 90
	}

	return &PipelineService{
		detector:  detector,
		extractor: extractor,
		opts:      opts,
	}
}

// Identify runs the full pipeline over one uploaded image and returns the
// aggregate report. Regions appear in the report in detection order regardless
// of completion order.
func (s *PipelineService) Identify(ctx context.Context, imageData []byte, mimeType string) (*domain.AggregateReport, error) {
	if len(imageData) == 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrValidation)
	}

	start := time.Now()
	runID := uuid.NewString()

	detection, err := s.detector.Detect(ctx, imageData, mimeType)
	if err != nil {
		return nil, err
	}

	img, err := imageops.Decode(imageData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	results := make([]domain.PipelineUnitResult, len(detection.Regions))
	for i, region := range detection.Regions {
		results[i] = domain.PipelineUnitResult{
			RegionID: region.ID,
			Region:   region,
			State:    domain.UnitPending,
		}
	}
	semaphore := make(chan struct{}, s.opts.Concurrency)

	var wg sync.WaitGroup
	for i, region := range detection.Regions {
		wg.Add(1)
		go func(slot int, region domain.DetectionRegion) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				results[slot] = failedUnit(region, ctx.Err())
				return
			}

			unitCtx, cancel := context.WithTimeout(ctx, s.opts.UnitTimeout)
			defer cancel()

			results[slot] = s.processUnit(unitCtx, img, detection, region)
		}(i, region)
	}
	wg.Wait()

	report := &domain.AggregateReport{
		RunID:            runID,
		ImageWidth:       detection.ImageWidth,
		ImageHeight:      detection.ImageHeight,
		Regions:          results,
		TotalCount:       len(results),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
	for _, unit := range results {
		switch unit.State {
		case domain.UnitSuccess:
			report.SuccessCount++
			if unit.LowConfidence {
				report.LowConfidenceCount++
			}
		case domain.UnitFailed:
			report.FailedCount++
		}
	}

	if s.opts.EnableDebugLogging {
		logger.WithFields(logrus.Fields{
			"run_id":         report.RunID,
			"total":          report.TotalCount,
			"success":        report.SuccessCount,
			"failed":         report.FailedCount,
			"low_confidence": report.LowConfidenceCount,
			"elapsed_ms":     report.ProcessingTimeMs,
		}).Debug("Pipeline run complete")
	}

	return report, nil
}

// processUnit takes one detected region to a terminal state: pad, crop,
// extract, normalize.
func (s *PipelineService) processUnit(ctx context.Context, img image.Image, detection *domain.DetectionResult, region domain.DetectionRegion) domain.PipelineUnitResult {
	box := region.Box.Pad(s.opts.PaddingPct).Clamp(detection.ImageWidth, detection.ImageHeight)

	cropImg, err := imageops.Crop(img, box)
	if err != nil {
		return failedUnit(region, err)
	}

	hint := imageops.DominantColorHint(cropImg)

	data, width, height, err := imageops.EncodeJPEG(cropImg, s.opts.JPEGQuality)
	if err != nil {
		return failedUnit(region, err)
	}

	crop := &domain.CroppedImage{
		RegionID: region.ID,
		Data:     data,
		MimeType: "image/jpeg",
		Width:    width,
		Height:   height,
	}

	attrs, err := s.extractor.ExtractAttributes(ctx, crop, hint)
	if err != nil {
		return failedUnit(region, err)
	}

	NormalizeAttributes(attrs)

	return domain.PipelineUnitResult{
		RegionID:      region.ID,
		Region:        region,
		State:         domain.UnitSuccess,
		Attributes:    attrs,
		Crop:          crop,
		LowConfidence: attrs.Confidence < s.opts.LowConfidenceThreshold,
	}
}

func failedUnit(region domain.DetectionRegion, err error) domain.PipelineUnitResult {
	return domain.PipelineUnitResult{
		RegionID:      region.ID,
		Region:        region,
		State:         domain.UnitFailed,
		FailureReason: err.Error(),
	}
}
