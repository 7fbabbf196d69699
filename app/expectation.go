package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/itchyny/gojq"
	jd "github.com/josephburnett/jd/lib"
)

var (
	ErrEmptyExpectation = errors.New("expectation defines no checks")
	ErrInvalidJQCheck   = errors.New("invalid jq check")
	ErrInvalidJSON      = errors.New("invalid expected JSON")
)

const maxReportedBody = 512

// Expectation lists the checks a ProbeResult must satisfy. Every populated
// check has to pass.
type Expectation struct {
	Status   *int      `json:"status,omitempty" koanf:"status"`
	Contains *string   `json:"contains,omitempty" koanf:"contains"`
	JSON     *string   `json:"json,omitempty" koanf:"json"`
	JQ       []JQCheck `json:"jq,omitempty" koanf:"jq"`
}

// JQCheck requires the first output of Query, run over the JSON body, to be
// JSON-equal to Equals.
type JQCheck struct {
	Query  string `json:"query" koanf:"query"`
	Equals string `json:"equals" koanf:"equals"`
}

// AssertionError reports a response that did not match its expectation.
type AssertionError struct {
	Check    string
	Expected string
	Actual   string
	Diff     string
}

func (e *AssertionError) Error() string {
	msg := fmt.Sprintf("%s: expected %s, got %s", e.Check, e.Expected, e.Actual)
	if e.Diff != "" {
		msg += "\n" + e.Diff
	}

	return msg
}

// Validate makes sure at least one check is defined and that jq queries and
// JSON documents parse.
func (e Expectation) Validate() error {
	if e.Status == nil && e.Contains == nil && e.JSON == nil && len(e.JQ) == 0 {
		return ErrEmptyExpectation
	}

	if e.JSON != nil {
		if _, err := jd.ReadJsonString(*e.JSON); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidJSON, err)
		}
	}

	for _, check := range e.JQ {
		if _, err := gojq.Parse(check.Query); err != nil {
			return fmt.Errorf("%w: %q: %s", ErrInvalidJQCheck, check.Query, err)
		}
		if _, err := jd.ReadJsonString(check.Equals); err != nil {
			return fmt.Errorf("%w: %q: equals: %s", ErrInvalidJQCheck, check.Query, err)
		}
	}

	return nil
}

// Check evaluates res and returns the first failing check as *AssertionError.
func (e Expectation) Check(res ProbeResult) error {
	if e.Status != nil && res.StatusCode != *e.Status {
		return &AssertionError{
			Check:    "status code",
			Expected: strconv.Itoa(*e.Status),
			Actual:   strconv.Itoa(res.StatusCode),
		}
	}

	if e.Contains != nil && !strings.Contains(res.Body, *e.Contains) {
		return &AssertionError{
			Check:    "body",
			Expected: fmt.Sprintf("to contain %q", *e.Contains),
			Actual:   fmt.Sprintf("%q", truncate(res.Body)),
		}
	}

	if e.JSON != nil {
		if err := checkJSONEqual(*e.JSON, res.Body); err != nil {
			return err
		}
	}

	for _, check := range e.JQ {
		if err := check.evaluate(res.Body); err != nil {
			return err
		}
	}

	return nil
}

func checkJSONEqual(expected, body string) error {
	want, err := jd.ReadJsonString(expected)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidJSON, err)
	}

	got, err := jd.ReadJsonString(body)
	if err != nil {
		return &AssertionError{
			Check:    "JSON body",
			Expected: "a JSON document",
			Actual:   fmt.Sprintf("%q", truncate(body)),
		}
	}

	diff := want.Diff(got).Render()
	if diff != "" {
		return &AssertionError{
			Check:    "JSON body",
			Expected: "documents to match",
			Actual:   "differences",
			Diff:     diff,
		}
	}

	return nil
}

func (c JQCheck) evaluate(body string) error {
	query, err := gojq.Parse(c.Query)
	if err != nil {
		return fmt.Errorf("%w: %q: %s", ErrInvalidJQCheck, c.Query, err)
	}

	var input any
	if err := json.Unmarshal([]byte(body), &input); err != nil {
		return &AssertionError{
			Check:    "jq " + c.Query,
			Expected: "a JSON body",
			Actual:   fmt.Sprintf("%q", truncate(body)),
		}
	}

	iter := query.Run(input)
	value, ok := iter.Next()
	if !ok {
		return &AssertionError{Check: "jq " + c.Query, Expected: c.Equals, Actual: "no output"}
	}
	if err, isErr := value.(error); isErr {
		return &AssertionError{Check: "jq " + c.Query, Expected: c.Equals, Actual: err.Error()}
	}

	actual, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("jq %s: could not encode result: %w", c.Query, err)
	}

	want, err := jd.ReadJsonString(c.Equals)
	if err != nil {
		return fmt.Errorf("%w: %q: equals: %s", ErrInvalidJQCheck, c.Query, err)
	}
	got, err := jd.ReadJsonString(string(actual))
	if err != nil {
		return fmt.Errorf("jq %s: %w", c.Query, err)
	}

	if diff := want.Diff(got).Render(); diff != "" {
		return &AssertionError{
			Check:    "jq " + c.Query,
			Expected: c.Equals,
			Actual:   string(actual),
		}
	}

	return nil
}

func truncate(body string) string {
	if len(body) <= maxReportedBody {
		return body
	}

	cut := maxReportedBody
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}

	return body[:cut] + "..."
}
