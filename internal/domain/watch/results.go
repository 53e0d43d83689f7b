package watch

import "time"

type FileStatus string

const (
	FileSucceeded FileStatus = "succeeded"
	FileFailed    FileStatus = "failed"
)

// FileResult is the tagged outcome of ingesting one source file.
type FileResult struct {
	FileID    string     `json:"fileId"`
	Status    FileStatus `json:"status"`
	Attempts  int        `json:"attempts"`  // attempts made, the last one being the deciding one
	Lines     int        `json:"lines"`     // non-empty lines read in the deciding attempt
	Records   int        `json:"records"`   // records folded into the aggregation map
	Viewers   int        `json:"viewers"`   // viewer entries folded into the aggregation map
	Malformed int        `json:"malformed"` // lines skipped as malformed in the deciding attempt
	Error     string     `json:"error,omitempty"`
}

// Retried reports whether the file needed more than one attempt.
func (r FileResult) Retried() bool { return r.Attempts > 1 }

type CustomerOutcome string

const (
	CustomerNew     CustomerOutcome = "new"
	CustomerUpdated CustomerOutcome = "updated"
	CustomerFailed  CustomerOutcome = "failed"
)

// CustomerResult is the tagged outcome of merging & persisting one customer.
type CustomerResult struct {
	CustomerID string          `json:"customerId"`
	Outcome    CustomerOutcome `json:"outcome"`
	Movies     int             `json:"movies"` // distinct movies persisted
	Error      string          `json:"error,omitempty"`
}

// MAX_REPORTED_FAILURES caps the failure details a summary keeps. Counts are never capped.
const MAX_REPORTED_FAILURES = 100

// MergeSummary reports the merge stage of one batch.
// Only failed customers are kept in detail, at most MAX_REPORTED_FAILURES of them.
type MergeSummary struct {
	New      int              `json:"new"`
	Updated  int              `json:"updated"`
	Failed   int              `json:"failed"`
	Failures []CustomerResult `json:"failures,omitempty"`
}

// Add records a customer result in the summary.
func (s *MergeSummary) Add(r CustomerResult) {
	switch r.Outcome {
	case CustomerNew:
		s.New++
	case CustomerUpdated:
		s.Updated++
	default:
		s.Failed++
		if len(s.Failures) < MAX_REPORTED_FAILURES {
			s.Failures = append(s.Failures, r)
		}
	}
}

// BatchSummary reports one scheduled batch.
type BatchSummary struct {
	Index    int           `json:"index"`
	Files    []FileResult  `json:"files"`
	Merge    MergeSummary  `json:"merge"`
	Duration time.Duration `json:"duration"`
}

// RunSummary is the aggregate report of a run. Its size doesn't grow with the
// number of files or customers, failure details are capped.
type RunSummary struct {
	RunID            string           `json:"runId"`
	StartedAt        time.Time        `json:"startedAt"`
	Duration         time.Duration    `json:"duration"`
	Batches          int              `json:"batches"`
	Files            int              `json:"files"`
	FilesSucceeded   int              `json:"filesSucceeded"`
	FilesFailed      int              `json:"filesFailed"`
	FilesRetried     int              `json:"filesRetried"`
	MalformedRecords int              `json:"malformedRecords"`
	CustomersNew     int              `json:"customersNew"`
	CustomersUpdated int              `json:"customersUpdated"`
	CustomersFailed  int              `json:"customersFailed"`
	FailedFiles      []string         `json:"failedFiles,omitempty"`     // first MAX_REPORTED_FAILURES failed files
	FailedCustomers  []CustomerResult `json:"failedCustomers,omitempty"` // first MAX_REPORTED_FAILURES failed customers
	Cancelled        bool             `json:"cancelled"`
}

// AddBatch folds a completed batch into the run totals. The batch itself isn't retained.
func (s *RunSummary) AddBatch(b BatchSummary) {
	s.Batches++
	for _, f := range b.Files {
		s.Files++
		s.MalformedRecords += f.Malformed
		if f.Retried() {
			s.FilesRetried++
		}
		if f.Status == FileSucceeded {
			s.FilesSucceeded++
			continue
		}
		s.FilesFailed++
		if len(s.FailedFiles) < MAX_REPORTED_FAILURES {
			s.FailedFiles = append(s.FailedFiles, f.FileID)
		}
	}
	s.CustomersNew += b.Merge.New
	s.CustomersUpdated += b.Merge.Updated
	s.CustomersFailed += b.Merge.Failed
	for _, r := range b.Merge.Failures {
		if len(s.FailedCustomers) >= MAX_REPORTED_FAILURES {
			break
		}
		s.FailedCustomers = append(s.FailedCustomers, r)
	}
}
