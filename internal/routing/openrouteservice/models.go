package openrouteservice

import (
	"encoding/json"
)

// orsErrorResponse is the error body returned by ORS. The error member is an
// object on most endpoints and a bare string on a few gateway errors.
type orsErrorResponse struct {
	Error json.RawMessage `json:"error"`
}

type orsErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// message returns the provider's human-readable message, if any.
func (r orsErrorResponse) message() string {
	if len(r.Error) == 0 {
		return ""
	}

	var detail orsErrorDetail
	if err := json.Unmarshal(r.Error, &detail); err == nil {
		return detail.Message
	}

	var text string
	if err := json.Unmarshal(r.Error, &text); err == nil {
		return text
	}
	return ""
}

// routeSummary is the summary member of a route feature's properties.
type routeSummary struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}
