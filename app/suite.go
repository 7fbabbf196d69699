package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrNoScenariosDefined  = errors.New("no scenarios defined")
	ErrNoStepsDefined      = errors.New("scenario has no steps")
	ErrUnnamedScenario     = errors.New("scenario has no name")
	ErrDuplicateScenario   = errors.New("duplicate scenario name")
	ErrUnsupportedFileType = errors.New("unsupported suite file type")
)

// Suite is the content of a suite file.
type Suite struct {
	BaseURL   string     `json:"baseURL" koanf:"baseURL"`
	Headers   HeaderKV   `json:"headers" koanf:"headers"`
	Scenarios []Scenario `json:"scenarios" koanf:"scenarios"`

	// dir is where relative body files are looked up.
	dir string
}

// NewSuite builds a suite in memory. Relative body files resolve against dir.
func NewSuite(baseURL, dir string, scenarios ...Scenario) *Suite {
	return &Suite{
		BaseURL:   baseURL,
		Headers:   HeaderKV{},
		Scenarios: scenarios,
		dir:       dir,
	}
}

// LoadSuiteFromFile reads a YAML or JSON suite file.
func LoadSuiteFromFile(path string) (*Suite, error) {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFileType)
	}

	// Header names may contain dots, so keys are never split on them.
	k := koanf.New("::")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("cannot load %s file: %w", path, err)
	}

	var suite Suite
	if err := k.Unmarshal("", &suite); err != nil {
		return nil, fmt.Errorf("cannot unmarshal %s file: %w", path, err)
	}
	suite.dir = filepath.Dir(path)

	return &suite, nil
}

// Validate checks scenario names and every step once its URL is resolved.
func (s *Suite) Validate(expander PathExpander) error {
	if len(s.Scenarios) == 0 {
		return ErrNoScenariosDefined
	}

	seen := map[string]bool{}
	for _, scenario := range s.Scenarios {
		if scenario.Name == "" {
			return ErrUnnamedScenario
		}
		if seen[scenario.Name] {
			return fmt.Errorf("%q: %w", scenario.Name, ErrDuplicateScenario)
		}
		seen[scenario.Name] = true

		if len(scenario.Steps) == 0 {
			return fmt.Errorf("%q: %w", scenario.Name, ErrNoStepsDefined)
		}

		for _, step := range scenario.Steps {
			steps, err := s.Resolve(step, expander)
			if err != nil {
				return fmt.Errorf("%q: %w", scenario.Name, err)
			}
			for _, resolved := range steps {
				if err := resolved.validate(); err != nil {
					return fmt.Errorf("%q: %w", scenario.Name, err)
				}
			}
		}
	}

	return nil
}

// Resolve turns a step into the concrete steps to probe: the URL is joined to
// the base URL and expanded, the body file is located relative to the suite
// and the suite headers are merged under the step's own.
func (s *Suite) Resolve(step Step, expander PathExpander) ([]Step, error) {
	urls, err := expander.Expand(s.absoluteURL(step.Request.URL))
	if err != nil {
		return nil, fmt.Errorf("%s: could not expand URL: %w", step.Label(), err)
	}

	bodyFile := step.Request.BodyFile
	if bodyFile != "" && !filepath.IsAbs(bodyFile) {
		bodyFile = filepath.Join(s.dir, bodyFile)
	}

	resolved := make([]Step, 0, len(urls))
	for _, url := range urls {
		r := step
		r.Request.URL = url
		r.Request.BodyFile = bodyFile
		r.Request.Headers = s.Headers.Merge(step.Request.Headers)
		resolved = append(resolved, r)
	}

	return resolved, nil
}

// ScenarioNames lists the scenarios in file order.
func (s *Suite) ScenarioNames() []string {
	names := make([]string, 0, len(s.Scenarios))
	for _, scenario := range s.Scenarios {
		names = append(names, scenario.Name)
	}

	return names
}

func (s *Suite) absoluteURL(url string) string {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") || s.BaseURL == "" {
		return url
	}

	return strings.TrimSuffix(s.BaseURL, "/") + "/" + strings.TrimPrefix(url, "/")
}
