// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Report aggregates per-file results for one batch run.
type Report struct {
	Converted int      `json:"converted" yaml:"converted"`
	Skipped   int      `json:"skipped" yaml:"skipped"`
	Failed    int      `json:"failed" yaml:"failed"`
	Results   []Result `json:"results" yaml:"results"`
}

// Add appends r and bumps the matching counter.
func (b *Report) Add(r Result) {
	b.Results = append(b.Results, r)
	switch r.Status {
	case StatusConverted:
		b.Converted++
	case StatusSkipped:
		b.Skipped++
	case StatusFailed:
		b.Failed++
	}
}

// Total returns the total number of tasks processed.
func (b *Report) Total() int {
	return b.Converted + b.Skipped + b.Failed
}

// HasFailures reports whether any document failed.
func (b *Report) HasFailures() bool {
	return b.Failed > 0
}

// Failures returns the failed results in summary order.
func (b *Report) Failures() []Result {
	var failed []Result
	for _, r := range b.Results {
		if r.Status == StatusFailed {
			failed = append(failed, r)
		}
	}
	return failed
}
