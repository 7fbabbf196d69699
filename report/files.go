package report

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/phux/apiverify/app"
)

// RunReport is the JSON document written after a run.
type RunReport struct {
	RunID     string               `json:"run_id"`
	Suite     string               `json:"suite"`
	CreatedAt time.Time            `json:"created_at"`
	Summary   Summary              `json:"summary"`
	Scenarios []app.ScenarioResult `json:"scenarios"`
	Findings  []app.Finding        `json:"findings"`
}

// Summary contains totals per scenario status.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Writer persists run results under Dir, one file per format and run.
type Writer struct {
	Dir   string
	RunID string
	now   func() time.Time
}

// NewWriter returns a Writer for dir. Each Writer gets its own run ID.
func NewWriter(dir string) *Writer {
	return &Writer{
		Dir:   dir,
		RunID: uuid.New().String(),
		now:   time.Now,
	}
}

// WriteJSON writes the results as apiverify-<run id>.json and returns the path.
func (w *Writer) WriteJSON(suite string, results *app.Results) (string, error) {
	rep := RunReport{
		RunID:     w.RunID,
		Suite:     suite,
		CreatedAt: w.now().UTC(),
		Summary:   summarize(results),
		Scenarios: results.Scenarios,
		Findings:  results.Findings,
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	return w.write(fmt.Sprintf("apiverify-%s.json", w.RunID), data)
}

// WriteJUnit writes the results as junit-<run id>.xml and returns the path.
func (w *Writer) WriteJUnit(suite string, results *app.Results) (string, error) {
	data, err := xml.MarshalIndent(toJUnit(suite, results), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal JUnit XML: %w", err)
	}

	return w.write(fmt.Sprintf("junit-%s.xml", w.RunID), append([]byte(xml.Header), data...))
}

func (w *Writer) write(name string, data []byte) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	path := filepath.Join(w.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report file: %w", err)
	}

	return path, nil
}

func summarize(results *app.Results) Summary {
	return Summary{
		Total:   len(results.Scenarios),
		Passed:  results.Count(app.StatusPassed),
		Failed:  results.Count(app.StatusFailed),
		Skipped: results.Count(app.StatusSkipped),
	}
}

type junitSuites struct {
	XMLName  xml.Name     `xml:"testsuites"`
	Name     string       `xml:"name,attr"`
	Tests    int          `xml:"tests,attr"`
	Failures int          `xml:"failures,attr"`
	Time     float64      `xml:"time,attr"`
	Suites   []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	Name     string      `xml:"name,attr"`
	Tests    int         `xml:"tests,attr"`
	Failures int         `xml:"failures,attr"`
	Skipped  int         `xml:"skipped,attr"`
	Time     float64     `xml:"time,attr"`
	Cases    []junitCase `xml:"testcase"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	Skipped   *junitSkipped `xml:"skipped,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Content string `xml:",chardata"`
}

type junitSkipped struct {
	Message string `xml:"message,attr"`
}

func toJUnit(suite string, results *app.Results) junitSuites {
	findings := make(map[string]app.Finding, len(results.Findings))
	for _, f := range results.Findings {
		findings[f.Scenario] = f
	}

	s := junitSuite{Name: suite, Cases: []junitCase{}}
	for _, scenario := range results.Scenarios {
		c := junitCase{
			Name:      scenario.Name,
			ClassName: suite,
			Time:      scenario.Duration.Seconds(),
		}

		switch scenario.Status {
		case app.StatusFailed:
			f := findings[scenario.Name]
			c.Failure = &junitFailure{
				Message: f.Error,
				Type:    "AssertionFailure",
				Content: failureDetails(f),
			}
			if f.Hint != "" {
				c.Failure.Type = "ConnectionFailure"
			}
			s.Failures++
		case app.StatusSkipped:
			c.Skipped = &junitSkipped{Message: scenario.Reason}
			s.Skipped++
		}

		s.Cases = append(s.Cases, c)
		s.Tests++
		s.Time += c.Time
	}

	return junitSuites{
		Name:     "apiverify",
		Tests:    s.Tests,
		Failures: s.Failures,
		Time:     s.Time,
		Suites:   []junitSuite{s},
	}
}

func failureDetails(f app.Finding) string {
	details := fmt.Sprintf("step %d (%s) %s\n%s\n", f.Step, f.StepName, f.URL, f.Error)
	if f.Diff != "" {
		details += f.Diff
	}
	if f.Hint != "" {
		details += "hint: " + f.Hint + "\n"
	}
	if f.Reproduce != "" {
		details += "reproduce: " + f.Reproduce + "\n"
	}

	return details
}
