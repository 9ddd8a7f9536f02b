package workflow

import "time"

// ItemResult records what happened to one ROM in one stage.
type ItemResult struct {
	Index    int
	File     string
	Label    string
	Stage    Stage
	Status   Status
	Err      error
	Duration time.Duration
}

// Report summarizes a run. It is returned even when the run fails, covering
// the work done up to the failure.
type Report struct {
	RunID         string
	StartedAt     time.Time
	FinishedAt    time.Time
	Items         []ItemResult
	Candidates    int
	Generated     int
	Failed        int
	ImagesWritten int
	ImageFailures int
	// DocumentPath is empty unless the document was written.
	DocumentPath string
	FinalState   State
}

func (r *Report) add(result ItemResult) {
	r.Items = append(r.Items, result)
	switch {
	case result.Stage == StageText && result.Status == StatusOK:
		r.Generated++
	case result.Stage == StageText && result.Status == StatusFailed:
		r.Failed++
	case result.Stage == StageImage && result.Status == StatusOK:
		r.ImagesWritten++
	case result.Stage == StageImage && result.Status == StatusFailed:
		r.ImageFailures++
	}
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failures returns the failed item results in order.
func (r *Report) Failures() []ItemResult {
	var out []ItemResult
	for _, item := range r.Items {
		if item.Status == StatusFailed {
			out = append(out, item)
		}
	}
	return out
}
