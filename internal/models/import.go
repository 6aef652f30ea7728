package models

// ImportRowError describes one failed row in a bulk student import.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult reports the partial-success outcome of a bulk import.
// Errors are capped by the import service; ErrorsOmitted counts the rest.
type ImportResult struct {
	Created       int              `json:"created"`
	Failed        int              `json:"failed"`
	Errors        []ImportRowError `json:"errors,omitempty"`
	ErrorsOmitted int              `json:"errors_omitted,omitempty"`
}
