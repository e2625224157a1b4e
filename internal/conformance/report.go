package conformance

import (
	"encoding/json"
	"time"
)

// Status is the result of one step.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// StepResult records one step of a suite run.
type StepResult struct {
	Name    string        `json:"name"`
	Status  Status        `json:"status"`
	Elapsed time.Duration `json:"elapsed"`
	Error   string        `json:"error,omitempty"`
}

// Report collects the steps of one suite run. Each run owns its Report.
type Report struct {
	Identity  string        `json:"identity"`
	StartedAt time.Time     `json:"startedAt"`
	Elapsed   time.Duration `json:"elapsed"`
	Steps     []StepResult  `json:"steps"`
}

func (r *Report) add(name string, status Status, elapsed time.Duration, err error) {
	step := StepResult{Name: name, Status: status, Elapsed: elapsed}
	if err != nil {
		step.Error = err.Error()
	}
	r.Steps = append(r.Steps, step)
}

func (r *Report) count(status Status) int {
	n := 0
	for _, step := range r.Steps {
		if step.Status == status {
			n++
		}
	}
	return n
}

// Passed returns the number of passed steps.
func (r *Report) Passed() int { return r.count(StatusPassed) }

// Failed returns the number of failed steps.
func (r *Report) Failed() int { return r.count(StatusFailed) }

// Skipped returns the number of steps skipped because a dependency failed.
func (r *Report) Skipped() int { return r.count(StatusSkipped) }

// OK reports whether every step passed.
func (r *Report) OK() bool {
	return len(r.Steps) > 0 && r.Passed() == len(r.Steps)
}

// Step returns the named step, if it ran.
func (r *Report) Step(name string) (StepResult, bool) {
	for _, step := range r.Steps {
		if step.Name == name {
			return step, true
		}
	}
	return StepResult{}, false
}

// MarshalJSON adds the totals to the encoded report.
func (r *Report) MarshalJSON() ([]byte, error) {
	type plain Report
	return json.Marshal(struct {
		*plain
		Passed  int `json:"passed"`
		Failed  int `json:"failed"`
		Skipped int `json:"skipped"`
	}{(*plain)(r), r.Passed(), r.Failed(), r.Skipped()})
}
