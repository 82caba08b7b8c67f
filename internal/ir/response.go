package ir

import "time"

// ResponseDataType says how a response was submitted.
type ResponseDataType string

const (
	ResponseString ResponseDataType = "STRING"
	ResponseFile   ResponseDataType = "FILE"
)

// ResponseData is one raw submitted response: either a list of strings or
// an uploaded file.
type ResponseData struct {
	Type    ResponseDataType `json:"type"`
	Strings []string         `json:"strings,omitempty"`
	File    *FileSubmission  `json:"file,omitempty"`
}

// StringResponse builds string response data.
func StringResponse(values ...string) ResponseData {
	return ResponseData{Type: ResponseString, Strings: values}
}

// FileSubmission is an uploaded file referenced by a response.
type FileSubmission struct {
	ID          string `json:"id"`
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
}

// ResponseLegality is the per-identifier outcome of binding and validation.
type ResponseLegality string

const (
	LegalityValid   ResponseLegality = "VALID"
	LegalityInvalid ResponseLegality = "INVALID"
	LegalityBad     ResponseLegality = "BAD"
)

// CandidateResponse records one submitted response identifier of an
// attempt event. Never mutated after it is stored.
type CandidateResponse struct {
	ID         int64            `json:"id"`
	EventID    EventID          `json:"event_id"`
	Identifier string           `json:"identifier"`
	DataType   ResponseDataType `json:"data_type"`
	Strings    []string         `json:"strings,omitempty"`
	File       *FileSubmission  `json:"file,omitempty"`
	Legality   ResponseLegality `json:"legality"`
}

// AssessmentResult is the computed result of a session at some event.
// Item sessions have a single ItemResults entry keyed by the item
// identifier; test sessions have one per item ref key.
type AssessmentResult struct {
	SessionID   SessionID           `json:"session_id"`
	EventID     EventID             `json:"event_id"`
	ComputedAt  time.Time           `json:"computed_at"`
	ItemResults map[string]IRObject `json:"item_results"`
	Outcomes    IRObject            `json:"outcomes"`
}
