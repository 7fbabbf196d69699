package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/phux/apiverify/app"
)

// Console prints scenario progress for a human reader.
type Console struct {
	out     io.Writer
	verbose bool

	pass *color.Color
	fail *color.Color
	skip *color.Color
	hint *color.Color
}

// NewConsole returns a Console writing to out, or stdout when out is nil.
// With verbose set, every passing step is listed as well.
func NewConsole(out io.Writer, verbose bool) *Console {
	if out == nil {
		out = os.Stdout
	}

	return &Console{
		out:     out,
		verbose: verbose,
		pass:    color.New(color.FgGreen),
		fail:    color.New(color.FgRed, color.Bold),
		skip:    color.New(color.FgYellow),
		hint:    color.New(color.FgCyan),
	}
}

func (c *Console) ScenarioStarted(name string) {
	fmt.Fprintf(c.out, "[%s]\n", name)
}

func (c *Console) StepPassed(_ string, step app.Step, res app.ProbeResult) {
	if !c.verbose {
		return
	}
	fmt.Fprintf(c.out, "  %s %s (status %d)\n", c.pass.Sprint("ok"), step.Label(), res.StatusCode)
}

func (c *Console) ScenarioSkipped(name, reason string) {
	if reason == "" {
		fmt.Fprintf(c.out, "  %s: %s\n", c.skip.Sprint("SKIPPED"), name)

		return
	}
	fmt.Fprintf(c.out, "  %s: %s (%s)\n", c.skip.Sprint("SKIPPED"), name, reason)
}

func (c *Console) ScenarioFinished(result app.ScenarioResult) {
	if result.Failure == nil {
		fmt.Fprintf(c.out, "  %s (%d probes, %s)\n", c.pass.Sprint("PASSED"), result.Probes, result.Duration.Round(time.Millisecond))

		return
	}

	f := result.Failure
	fmt.Fprintf(c.out, "  %s: step %d %s %s\n", c.fail.Sprint("FAILED"), f.Step, f.Method, f.URL)

	var assertErr *app.AssertionError
	if errors.As(f.Err, &assertErr) {
		fmt.Fprintf(c.out, "    check:    %s\n", assertErr.Check)
		fmt.Fprintf(c.out, "    expected: %s\n", assertErr.Expected)
		fmt.Fprintf(c.out, "    actual:   %s\n", assertErr.Actual)
		for _, line := range strings.Split(strings.TrimRight(assertErr.Diff, "\n"), "\n") {
			if line != "" {
				fmt.Fprintf(c.out, "    %s\n", line)
			}
		}
	} else {
		for _, line := range strings.Split(f.Err.Error(), "\n") {
			fmt.Fprintf(c.out, "    %s\n", line)
		}
	}

	if hint := f.Hint(); hint != "" {
		fmt.Fprintf(c.out, "    %s %s\n", c.hint.Sprint("hint:"), hint)
	}
}

// Summary prints the totals and, for each failed scenario, a command that
// reproduces the failing request.
func (c *Console) Summary(results *app.Results) {
	fmt.Fprintf(c.out, "\n%d passed, %d failed, %d skipped\n",
		results.Count(app.StatusPassed),
		results.Count(app.StatusFailed),
		results.Count(app.StatusSkipped),
	)

	for _, finding := range results.Findings {
		fmt.Fprintf(c.out, "  %s %s: %s\n", c.fail.Sprint("FAILED"), finding.Scenario, finding.Error)
		if finding.Reproduce != "" {
			fmt.Fprintf(c.out, "    reproduce: %s\n", finding.Reproduce)
		}
	}
}
