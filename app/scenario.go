package app

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrIdempotentNeedsGet = errors.New("idempotence can only be checked for GET steps")

// Step pairs one request with the expectation its response must meet.
type Step struct {
	Name       string       `json:"name" koanf:"name"`
	Request    ProbeRequest `json:"request" koanf:"request"`
	Expect     Expectation  `json:"expect" koanf:"expect"`
	Idempotent bool         `json:"idempotent,omitempty" koanf:"idempotent"`
}

// Label names the step for reports, falling back to method and URL.
func (s Step) Label() string {
	if s.Name != "" {
		return s.Name
	}

	return s.Request.Method + " " + s.Request.URL
}

// Scenario is an ordered list of steps. The first failing step ends it.
type Scenario struct {
	Name        string `json:"name" koanf:"name"`
	Description string `json:"description,omitempty" koanf:"description"`
	Steps       []Step `json:"steps" koanf:"steps"`
}

// Status is the outcome of a scenario.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// ScenarioResult records how a scenario ended.
type ScenarioResult struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Probes   int           `json:"probes"`
	Duration time.Duration `json:"duration"`
	Failure  *StepFailure  `json:"-"`
	Reason   string        `json:"reason,omitempty"`
}

// StepFailure locates the step that terminated a scenario.
type StepFailure struct {
	Scenario string
	Step     int
	StepName string
	Method   string
	URL      string
	Err      error
}

func (f *StepFailure) Error() string {
	return fmt.Sprintf("[%s] step %d (%s) %s %s: %s",
		f.Scenario, f.Step, f.StepName, f.Method, f.URL, f.Err)
}

func (f *StepFailure) Unwrap() error {
	return f.Err
}

// Hint returns the operator advice of the underlying error, if it has one.
func (f *StepFailure) Hint() string {
	var connErr *ConnectionError
	if errors.As(f.Err, &connErr) {
		return connErr.Hint()
	}

	return ""
}

func (s Step) validate() error {
	if err := s.Request.Validate(); err != nil {
		return err
	}
	if s.Idempotent && s.Request.Method != http.MethodGet {
		return fmt.Errorf("%s: %w", s.Label(), ErrIdempotentNeedsGet)
	}
	if err := s.Expect.Validate(); err != nil {
		return fmt.Errorf("%s: %w", s.Label(), err)
	}

	return nil
}
