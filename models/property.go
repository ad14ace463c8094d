package models

import "time"

// PropertyRecord is the flat extraction result built up across the strategy
// cascade. Numeric fields hold coerced numbers, never formatted strings;
// zero means "unknown".
type PropertyRecord struct {
	Address      string    `json:"address"`
	AddressLine1 string    `json:"addressLine1"`
	City         string    `json:"city"`
	Region       string    `json:"region"`
	PostalCode   string    `json:"postalCode"`
	Price        float64   `json:"price"`
	Bedrooms     float64   `json:"bedrooms"`
	Bathrooms    float64   `json:"bathrooms"`
	SquareFeet   float64   `json:"squareFeet"`
	LotSize      string    `json:"lotSize,omitempty"`
	YearBuilt    int       `json:"yearBuilt,omitempty"`
	Description  string    `json:"description"`
	Images       []string  `json:"images"`
	MLSNumber    string    `json:"mlsNumber,omitempty"`
	Source       string    `json:"source"`
	URL          string    `json:"url"`
	Timestamp    time.Time `json:"timestamp"`
}

// DefaultRequiredFields is the primary required-field policy. The set is
// configurable (description can be dropped via config).
var DefaultRequiredFields = []string{"address", "price", "bedrooms", "bathrooms", "description"}

// FieldFilled reports whether the named required field is non-falsy.
// "address" is satisfied by either the full address or its components.
func (r *PropertyRecord) FieldFilled(name string) bool {
	switch name {
	case "address":
		return r.Address != "" || r.AddressLine1 != ""
	case "price":
		return r.Price > 0
	case "bedrooms":
		return r.Bedrooms > 0
	case "bathrooms":
		return r.Bathrooms > 0
	case "description":
		return r.Description != ""
	case "city":
		return r.City != ""
	case "postalCode":
		return r.PostalCode != ""
	default:
		return false
	}
}

// Missing returns exactly the required fields still falsy on the record,
// in the order given.
func (r *PropertyRecord) Missing(required []string) []string {
	missing := []string{}
	for _, f := range required {
		if !r.FieldFilled(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// ExtractionRequest is one inbound scrape instruction. The "text" field name
// is a legacy artifact of the original import endpoint; it carries the URL.
type ExtractionRequest struct {
	Text      string `json:"text"`
	URL       string `json:"url,omitempty"`
	UserID    string `json:"userId,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// TargetURL resolves the URL from either field, preferring the modern one.
func (req *ExtractionRequest) TargetURL() string {
	if req.URL != "" {
		return req.URL
	}
	return req.Text
}

// ExtractionResponse is the terminal response shape. Scrape-path failures are
// carried in Source/Error with HTTP 200; the transport layer never sees them.
type ExtractionResponse struct {
	PropertyRecord
	Success bool     `json:"success"`
	Partial bool     `json:"partial"`
	Missing []string `json:"missing"`
	Error   string   `json:"error,omitempty"`
}

// Error source tags, one per failing stage of the request state machine.
const (
	SourceValidationError = "validation-error"
	SourceLaunchError     = "launch-error"
	SourceNavigationError = "navigation-error"
	SourceEvaluateError   = "evaluate-error"
	SourceUnhandled       = "unhandled"
)

// ErrorResponse builds the uniform failure shape for a given stage.
func ErrorResponse(url, source, errMsg string, required []string) *ExtractionResponse {
	rec := PropertyRecord{
		Source:    source,
		URL:       url,
		Timestamp: time.Now().UTC(),
	}
	return &ExtractionResponse{
		PropertyRecord: rec,
		Success:        false,
		Partial:        false,
		Missing:        rec.Missing(required),
		Error:          errMsg,
	}
}
