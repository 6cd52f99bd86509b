package domain

// Box is a rectangle in top-left/width/height form, in pixels.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DetectionRegion is one candidate pill found by the detector.
// The ID is assigned at detection time and is stable for the rest of the run.
// Box is always top-left form, clamped to image bounds.
type DetectionRegion struct {
	ID         string  `json:"id"`
	Confidence float64 `json:"confidence"`
	ClassLabel string  `json:"classLabel,omitempty"`
	Box        Box     `json:"box"`
}

// DetectionResult is the output of the detection stage.
type DetectionResult struct {
	ImageWidth  int               `json:"imageWidth"`
	ImageHeight int               `json:"imageHeight"`
	Regions     []DetectionRegion `json:"regions"`
}

// CroppedImage is the encoded sub-image extracted for one region.
type CroppedImage struct {
	RegionID string `json:"regionId"`
	Data     []byte `json:"-"`
	MimeType string `json:"mimeType"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}
