package indexer

import (
	"time"

	"github.com/hashicorp/go-multierror"
)

// BatchResult is the outcome of indexing one batch file. A batch with a
// non-nil Err added no documents.
type BatchResult struct {
	Name     string
	Added    int
	Postings int
	Err      error
}

// Result summarizes one Build.
type Result struct {
	Added   int
	Words   int
	Elapsed time.Duration
	Batches []BatchResult
}

// Success reports whether the run added at least one document. A false
// value tells the caller there is nothing to merge.
func (r *Result) Success() bool {
	return r.Added > 0
}

// Failures aggregates the errors of every failed batch, or returns nil.
func (r *Result) Failures() error {
	var merr *multierror.Error
	for _, br := range r.failed() {
		merr = multierror.Append(merr, br.Err)
	}
	return merr.ErrorOrNil()
}

func (r *Result) failed() []BatchResult {
	var out []BatchResult
	for _, br := range r.Batches {
		if br.Err != nil {
			out = append(out, br)
		}
	}
	return out
}
