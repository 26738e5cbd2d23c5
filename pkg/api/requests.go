package api

// SubmitAnalysisOptions carries the optional submission knobs nested
// under "options" in the POST /api/v1/analyze body.
type SubmitAnalysisOptions struct {
	Mode string `json:"mode,omitempty"`
}

// SubmitAnalysisRequest is the HTTP request body for POST /api/v1/analyze.
type SubmitAnalysisRequest struct {
	Query   string                 `json:"query" binding:"required"`
	Options *SubmitAnalysisOptions `json:"options,omitempty"`
}

// mode returns the requested mode string, or "" if options were omitted.
func (r SubmitAnalysisRequest) mode() string {
	if r.Options == nil {
		return ""
	}
	return r.Options.Mode
}
