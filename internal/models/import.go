package models

// ImportRowError describes one rejected row from a CSV import.
type ImportRowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportSummary reports the outcome of a CSV import run. Rows that fail
// validation are skipped and reported; they never abort the run.
type ImportSummary struct {
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
	Errors   []ImportRowError `json:"errors,omitempty"`
}
