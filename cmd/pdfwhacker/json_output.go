package main

import (
	"encoding/json"
	"io"
	"time"

	"pdfwhacker/internal/history"
)

// runJSON is the stable JSON shape of a history row. history.Run stays free
// of encoding tags so the store can change without breaking scripts.
type runJSON struct {
	ID              int64     `json:"id"`
	JobID           string    `json:"job_id"`
	Pipeline        string    `json:"pipeline"`
	Outcome         string    `json:"outcome"`
	Inputs          []string  `json:"inputs"`
	Output          string    `json:"output,omitempty"`
	OriginalBytes   int64     `json:"original_bytes,omitempty"`
	ResultBytes     int64     `json:"result_bytes,omitempty"`
	RatioPercent    float64   `json:"ratio_percent,omitempty"`
	Message         string    `json:"message,omitempty"`
	DurationSeconds float64   `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}

func toRunJSON(run history.Run) runJSON {
	inputs := run.Inputs
	if inputs == nil {
		inputs = []string{}
	}
	return runJSON{
		ID:              run.ID,
		JobID:           run.JobID,
		Pipeline:        run.Pipeline,
		Outcome:         string(run.Outcome),
		Inputs:          inputs,
		Output:          run.OutputPath,
		OriginalBytes:   run.OriginalBytes,
		ResultBytes:     run.ResultBytes,
		RatioPercent:    run.RatioPercent,
		Message:         run.Message,
		DurationSeconds: run.Duration.Seconds(),
		CreatedAt:       run.CreatedAt.UTC(),
	}
}

// writeRunsJSON encodes runs as an indented JSON array; an empty ledger is
// "[]", never null.
func writeRunsJSON(w io.Writer, runs []history.Run) error {
	out := make([]runJSON, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunJSON(run))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
