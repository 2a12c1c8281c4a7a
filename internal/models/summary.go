package models

import "time"

// SourceStats is the per-source outcome of one ingestion run.
type SourceStats struct {
	Source        string `json:"source"`
	URLs          int    `json:"urls"`
	FetchFailures int    `json:"fetch_failures"`
	ParseFailures int    `json:"parse_failures"`
	Candidates    int    `json:"candidates"`
	Accepted      int    `json:"accepted"`
	Skipped       int    `json:"skipped"`
}

// RunSummary is the operator-visible result of one ingestion run.
type RunSummary struct {
	RunID      string        `json:"run_id"`
	Started    time.Time     `json:"started"`
	Finished   time.Time     `json:"finished"`
	Sources    []SourceStats `json:"sources"`
	Added      int           `json:"added"`
	Duplicates int           `json:"duplicates"`
	Skipped    int           `json:"skipped"`
	Pruned     int           `json:"pruned"`
	Hinted     int           `json:"hinted"`
	Total      int           `json:"total"`
	Cancelled  bool          `json:"cancelled"`
}

// Candidates is the number of candidates parsed across all sources.
func (s RunSummary) Candidates() int {
	n := 0
	for _, src := range s.Sources {
		n += src.Candidates
	}
	return n
}
