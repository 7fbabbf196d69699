package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	jd "github.com/josephburnett/jd/lib"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	OutcomeOK              = "ok"
	OutcomeConnectionError = "connection_error"
	OutcomeAssertionFailed = "assertion_failed"
)

type prober interface {
	Probe(context.Context, ProbeRequest) (ProbeResult, error)
	Headers() HeaderKV
}

type limiter interface {
	Wait(context.Context) error
}

// Reporter is notified while scenarios run.
type Reporter interface {
	ScenarioStarted(name string)
	StepPassed(scenario string, step Step, res ProbeResult)
	ScenarioSkipped(name, reason string)
	ScenarioFinished(result ScenarioResult)
}

// Recorder receives probe and scenario measurements.
type Recorder interface {
	ObserveProbe(method, outcome string, duration time.Duration)
	ObserveScenario(status Status)
}

type App struct {
	Suite    *Suite
	Results  *Results
	Filter   Filter
	Reporter Reporter
	Recorder Recorder
	prober   prober
	expander PathExpander
	limiter  limiter
	logger   *zap.Logger
}

func NewApp(
	suite *Suite,
	prober prober,
	expander PathExpander,
	rateLimit float64,
	logger *zap.Logger,
) *App {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &App{
		Suite:    suite,
		Reporter: nullReporter{},
		Recorder: nullRecorder{},
		prober:   prober,
		expander: expander,
		limiter:  rate.NewLimiter(rate.Limit(rateLimit), 1),
		logger:   logger,
		Results: &Results{
			Scenarios: []ScenarioResult{},
			Findings:  []Finding{},
		},
	}
}

// Run executes every selected scenario in suite order. A failing scenario
// never stops the others; inspect Results for the outcome. Run itself only
// fails when the suite is unusable.
func (a *App) Run(ctx context.Context) error {
	if a.Suite == nil || len(a.Suite.Scenarios) == 0 {
		return ErrNoScenariosDefined
	}

	if err := a.Suite.Validate(a.expander); err != nil {
		return err
	}

	for _, scenario := range a.Suite.Scenarios {
		if a.Filter != nil && !a.Filter(scenario.Name) {
			reason := "excluded by filter parameters"
			a.Reporter.ScenarioSkipped(scenario.Name, reason)
			a.Recorder.ObserveScenario(StatusSkipped)
			a.Results.add(ScenarioResult{Name: scenario.Name, Status: StatusSkipped, Reason: reason}, "")

			continue
		}

		result, failed := a.runScenario(ctx, scenario)
		reproduce := ""
		if failed != nil {
			reproduce = CurlCommand(*failed, a.prober.Headers())
		}
		a.Results.add(result, reproduce)
	}

	a.logger.Info("run finished",
		zap.Int("passed", a.Results.Count(StatusPassed)),
		zap.Int("failed", a.Results.Count(StatusFailed)),
		zap.Int("skipped", a.Results.Count(StatusSkipped)),
	)

	return nil
}

// RunScenario executes one scenario, stopping at the first failure.
func (a *App) RunScenario(ctx context.Context, scenario Scenario) ScenarioResult {
	result, _ := a.runScenario(ctx, scenario)

	return result
}

// runScenario also returns the request of the failing probe, if any.
func (a *App) runScenario(ctx context.Context, scenario Scenario) (ScenarioResult, *ProbeRequest) {
	a.Reporter.ScenarioStarted(scenario.Name)
	a.logger.Info("scenario started", zap.String("scenario", scenario.Name))

	start := time.Now()
	result := ScenarioResult{Name: scenario.Name, Status: StatusPassed}
	finish := func(failure *StepFailure) ScenarioResult {
		result.Duration = time.Since(start)
		if failure != nil {
			result.Status = StatusFailed
			result.Failure = failure
		}
		a.Recorder.ObserveScenario(result.Status)
		a.Reporter.ScenarioFinished(result)
		a.logger.Info("scenario finished",
			zap.String("scenario", scenario.Name),
			zap.String("status", string(result.Status)),
			zap.Int("probes", result.Probes),
			zap.Duration("duration", result.Duration),
		)

		return result
	}

	for i, step := range scenario.Steps {
		fail := func(r ProbeRequest, err error) *StepFailure {
			return &StepFailure{
				Scenario: scenario.Name,
				Step:     i + 1,
				StepName: step.Label(),
				Method:   r.Method,
				URL:      r.URL,
				Err:      err,
			}
		}

		resolved, err := a.resolve(step)
		if err != nil {
			return finish(fail(step.Request, err)), &step.Request
		}

		for _, s := range resolved {
			if err := a.limiter.Wait(ctx); err != nil {
				return finish(fail(s.Request, fmt.Errorf("error while rate limiting: %w", err))), &s.Request
			}

			res, err := a.checkStep(ctx, s, &result)
			if err != nil {
				return finish(fail(s.Request, err)), &s.Request
			}

			a.Reporter.StepPassed(scenario.Name, s, res)
		}
	}

	return finish(nil), nil
}

func (a *App) resolve(step Step) ([]Step, error) {
	if a.Suite == nil {
		return []Step{step}, nil
	}

	return a.Suite.Resolve(step, a.expander)
}

// checkStep probes once (twice for idempotent steps) and applies the expectation.
func (a *App) checkStep(ctx context.Context, s Step, result *ScenarioResult) (ProbeResult, error) {
	res, elapsed, err := a.probe(ctx, s, result)
	if err != nil {
		return ProbeResult{}, err
	}

	if err := s.Expect.Check(res); err != nil {
		a.Recorder.ObserveProbe(s.Request.Method, OutcomeAssertionFailed, elapsed)

		return res, err
	}
	a.Recorder.ObserveProbe(s.Request.Method, OutcomeOK, elapsed)

	if !s.Idempotent {
		return res, nil
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return ProbeResult{}, fmt.Errorf("error while rate limiting: %w", err)
	}
	again, elapsed, err := a.probe(ctx, s, result)
	if err != nil {
		return ProbeResult{}, err
	}
	if again != res {
		a.Recorder.ObserveProbe(s.Request.Method, OutcomeAssertionFailed, elapsed)

		return again, idempotenceError(res, again)
	}
	a.Recorder.ObserveProbe(s.Request.Method, OutcomeOK, elapsed)

	return res, nil
}

func (a *App) probe(ctx context.Context, s Step, result *ScenarioResult) (ProbeResult, time.Duration, error) {
	start := time.Now()
	res, err := a.prober.Probe(ctx, s.Request)
	elapsed := time.Since(start)
	result.Probes++

	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		a.Recorder.ObserveProbe(s.Request.Method, OutcomeConnectionError, elapsed)
		a.logger.Error("error connecting",
			zap.String("url", connErr.URL),
			zap.String("hint", connErr.Hint()),
			zap.Error(connErr.Err),
		)
	}

	return res, elapsed, err
}

func idempotenceError(first, second ProbeResult) error {
	err := &AssertionError{
		Check:    "idempotence",
		Expected: "identical responses",
		Actual:   "status " + strconv.Itoa(first.StatusCode) + " then " + strconv.Itoa(second.StatusCode),
	}

	if first.StatusCode == second.StatusCode {
		err.Actual = "different bodies"
	}

	firstJSON, errFirst := jd.ReadJsonString(first.Body)
	secondJSON, errSecond := jd.ReadJsonString(second.Body)
	if errFirst == nil && errSecond == nil {
		err.Diff = firstJSON.Diff(secondJSON).Render()
	} else if first.Body != second.Body {
		err.Diff = "- " + truncate(first.Body) + "\n+ " + truncate(second.Body) + "\n"
	}

	return err
}

type nullReporter struct{}

func (nullReporter) ScenarioStarted(string)              {}
func (nullReporter) StepPassed(string, Step, ProbeResult) {}
func (nullReporter) ScenarioSkipped(string, string)      {}
func (nullReporter) ScenarioFinished(ScenarioResult)     {}

type nullRecorder struct{}

func (nullRecorder) ObserveProbe(string, string, time.Duration) {}
func (nullRecorder) ObserveScenario(Status)                    {}
