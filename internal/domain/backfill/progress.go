package backfill

// Failure records one candidate that could not be embedded.
type Failure struct {
	JobID  string `json:"job_id"`
	Reason string `json:"reason"`
}

// Progress is the outcome of a single backfill run. It lives only for the run
// and is handed back to the caller; nothing persists it.
type Progress struct {
	RunID           string
	TotalCandidates int
	Processed       int
	Failures        []Failure
	// NextCursor is the sequence number to resume after; pass it to the next run.
	NextCursor int64
	// Exhausted is true when the page was shorter than requested.
	Exhausted bool
	// Err is a run-level failure (candidate query failed, run canceled).
	Err error
}

// New starts progress for a run.
func New(runID string, cursor int64) *Progress {
	return &Progress{RunID: runID, NextCursor: cursor}
}

// Succeeded records a candidate whose embedding was written.
func (p *Progress) Succeeded(seq int64) {
	p.Processed++
	p.advance(seq)
}

// Failed records a candidate that could not be embedded or written.
func (p *Progress) Failed(jobID string, seq int64, err error) {
	p.Failures = append(p.Failures, Failure{JobID: jobID, Reason: err.Error()})
	p.advance(seq)
}

// Attempted returns how many candidates were handled, successfully or not.
func (p *Progress) Attempted() int { return p.Processed + len(p.Failures) }

func (p *Progress) advance(seq int64) {
	if seq > p.NextCursor {
		p.NextCursor = seq
	}
}
