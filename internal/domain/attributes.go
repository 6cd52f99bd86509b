package domain

// ExtractedAttributes is the structured output of the vision extraction stage
// for a single crop. Free-text fields are normalized into the canonical
// vocabularies before being used as search criteria. A field the model could
// not read is empty, never a guessed value. SizeMm/ThicknessMm of 0 mean
// "not estimated", not a real measurement.
type ExtractedAttributes struct {
	Shape        string  `json:"shape,omitempty"`
	Color        string  `json:"color,omitempty"`
	SizeMm       float64 `json:"sizeMm,omitempty"`
	ThicknessMm  float64 `json:"thicknessMm,omitempty"`
	FrontImprint string  `json:"frontImprint,omitempty"`
	BackImprint  string  `json:"backImprint,omitempty"`
	Scoring      string  `json:"scoring,omitempty"`
	Coating      string  `json:"coating,omitempty"`
	Notes        string  `json:"notes,omitempty"`
	Confidence   float64 `json:"confidence"`
}

// SearchQuery is a sanitized projection of confirmed attributes. Unset fields
// are omitted from matching; sentinel values are stripped before the query is
// built.
type SearchQuery struct {
	Shape        string  `json:"shape,omitempty"`
	Color        string  `json:"color,omitempty"`
	FrontImprint string  `json:"frontImprint,omitempty"`
	BackImprint  string  `json:"backImprint,omitempty"`
	SizeMm       float64 `json:"sizeMm,omitempty"`
	Scoring      string  `json:"scoring,omitempty"`
}

// IsEmpty reports whether the query carries no usable criteria.
func (q *SearchQuery) IsEmpty() bool {
	return q.Shape == "" && q.Color == "" && q.FrontImprint == "" &&
		q.BackImprint == "" && q.SizeMm <= 0 && q.Scoring == ""
}

// SecondaryHints are optional auxiliary signals used only by the rerank pass.
type SecondaryHints struct {
	SuspectedName string `json:"suspectedName,omitempty"`
	Manufacturer  string `json:"manufacturer,omitempty"`
	Strength      string `json:"strength,omitempty"`
}

// PillRecord is one row of the reference store.
type PillRecord struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Manufacturer string  `json:"manufacturer,omitempty"`
	Strength     string  `json:"strength,omitempty"`
	Shape        string  `json:"shape,omitempty"`
	Color        string  `json:"color,omitempty"`
	FrontImprint string  `json:"frontImprint,omitempty"`
	BackImprint  string  `json:"backImprint,omitempty"`
	SizeMm       float64 `json:"sizeMm,omitempty"`
	Scoring      string  `json:"scoring,omitempty"`
	ImageURL     string  `json:"imageUrl,omitempty"`
}

// RankedMatch is a reference record plus its derived match confidence.
// Ordering is total: confidence descending, then similarity descending,
// further ties preserve store return order.
type RankedMatch struct {
	Record       PillRecord `json:"record"`
	Confidence   float64    `json:"confidence"`
	Similarity   float64    `json:"similarity"`
	BoostApplied bool       `json:"boostApplied,omitempty"`
}

// SearchEvent is the payload handed to the analytics sink after a search.
// Persisting it is best-effort; failures never fail the user-facing search.
type SearchEvent struct {
	SessionID           string               `json:"sessionId"`
	DetectedAttributes  *ExtractedAttributes `json:"detectedAttributes,omitempty"`
	ConfirmedAttributes *ExtractedAttributes `json:"confirmedAttributes,omitempty"`
	MatchedIDs          []string             `json:"matchedIds"`
	Confidence          float64              `json:"confidence"`
}
