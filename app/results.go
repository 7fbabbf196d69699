package app

import "errors"

// Results collects the outcome of a run.
type Results struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Findings  []Finding        `json:"findings"`
}

// Finding describes a failed scenario.
type Finding struct {
	Scenario  string `json:"scenario"`
	Step      int    `json:"step"`
	StepName  string `json:"stepName"`
	URL       string `json:"url"`
	Error     string `json:"error"`
	Diff      string `json:"diff,omitempty"`
	Hint      string `json:"hint,omitempty"`
	Reproduce string `json:"reproduce,omitempty"`
}

// OK reports whether no scenario failed.
func (r *Results) OK() bool {
	return len(r.Findings) == 0
}

// Count returns how many scenarios ended with status.
func (r *Results) Count(status Status) int {
	count := 0
	for _, scenario := range r.Scenarios {
		if scenario.Status == status {
			count++
		}
	}

	return count
}

func (r *Results) add(result ScenarioResult, reproduce string) {
	r.Scenarios = append(r.Scenarios, result)
	if result.Failure == nil {
		return
	}

	f := result.Failure
	finding := Finding{
		Scenario:  f.Scenario,
		Step:      f.Step,
		StepName:  f.StepName,
		URL:       f.URL,
		Error:     f.Err.Error(),
		Hint:      f.Hint(),
		Reproduce: reproduce,
	}

	var assertErr *AssertionError
	if errors.As(f.Err, &assertErr) {
		finding.Error = assertErr.Check + ": expected " + assertErr.Expected + ", got " + assertErr.Actual
		finding.Diff = assertErr.Diff
	}

	r.Findings = append(r.Findings, finding)
}
