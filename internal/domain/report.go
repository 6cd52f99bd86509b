package domain

import "fmt"

// UnitState is the lifecycle state of one per-region work unit.
// Transitions are monotonic: a unit never re-enters Pending after reaching a
// terminal state within one run.
type UnitState string

const (
	UnitPending UnitState = "pending"
	UnitSuccess UnitState = "success"
	UnitFailed  UnitState = "failed"
)

// PipelineUnitResult is the terminal outcome for one detected region.
type PipelineUnitResult struct {
	RegionID      string               `json:"regionId"`
	Region        DetectionRegion      `json:"region"`
	State         UnitState            `json:"state"`
	Attributes    *ExtractedAttributes `json:"attributes,omitempty"`
	Crop          *CroppedImage        `json:"crop,omitempty"`
	LowConfidence bool                 `json:"lowConfidence,omitempty"`
	FailureReason string               `json:"failureReason,omitempty"`
}

// AggregateReport merges per-unit outcomes for one pipeline run. It is built
// once all units reach a terminal state and never mutated afterwards; a new
// run produces a new report. Regions are listed in detection order.
type AggregateReport struct {
	RunID              string               `json:"runId"`
	ImageWidth         int                  `json:"imageWidth"`
	ImageHeight        int                  `json:"imageHeight"`
	Regions            []PipelineUnitResult `json:"regions"`
	TotalCount         int                  `json:"totalCount"`
	SuccessCount       int                  `json:"successCount"`
	FailedCount        int                  `json:"failedCount"`
	LowConfidenceCount int                  `json:"lowConfidenceCount"`
	ProcessingTimeMs   int64                `json:"processingTimeMs"`
}

// Summary returns a one-line human readable description of the run.
func (r *AggregateReport) Summary() string {
	return fmt.Sprintf("Detected %d pills: %d identified, %d low confidence, %d failed.",
		r.TotalCount, r.SuccessCount, r.LowConfidenceCount, r.FailedCount)
}
