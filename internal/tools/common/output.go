package common

import (
	"encoding/json"
	"io"
	"time"
)

// Report is the machine-readable outcome of one tool command.
type Report struct {
	Tool       string   `json:"tool"`
	Command    string   `json:"command"`
	OK         bool     `json:"ok"`
	Details    []string `json:"details,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

func newReport(tool, command string, details []string, elapsed time.Duration, err error) Report {
	r := Report{
		Tool:       tool,
		Command:    command,
		OK:         err == nil,
		Details:    details,
		DurationMS: elapsed.Milliseconds(),
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

func (r Report) Status() string {
	if r.OK {
		return "success"
	}
	return "failure"
}

func WriteReport(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
