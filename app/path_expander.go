package app

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	valid "github.com/asaskevich/govalidator"
)

var (
	errInvalidRangeBounds = errors.New("invalid number range")
	errInvalidRangeType   = errors.New("not a valid number range")
	errEmptyDelimiters    = errors.New("pattern delimiters cannot be empty")
)

// PathExpander turns a URL containing value lists or numeric ranges into the
// concrete URLs it stands for: "/customers/{1,3-4}" expands to "/customers/1",
// "/customers/3" and "/customers/4". Several patterns produce their cartesian
// product in left-to-right order.
type PathExpander struct {
	Open  string
	Close string
}

// NewPathExpander returns an expander using curly braces as delimiters.
func NewPathExpander() PathExpander {
	return PathExpander{Open: "{", Close: "}"}
}

// Expand returns every concrete URL for raw. A URL without patterns is
// returned as the only element.
func (p PathExpander) Expand(raw string) ([]string, error) {
	if p.Open == "" || p.Close == "" {
		return []string{}, fmt.Errorf("Expand: %+v: %w", p, errEmptyDelimiters)
	}

	pattern := regexp.MustCompile(
		regexp.QuoteMeta(p.Open) + "([a-zA-Z0-9,.-]+)" + regexp.QuoteMeta(p.Close),
	)
	match := pattern.FindStringSubmatch(raw)
	if match == nil {
		return []string{raw}, nil
	}

	values, err := p.values(match[1])
	if err != nil {
		return []string{}, err
	}

	expanded := []string{}
	for _, value := range values {
		rest, err := p.Expand(strings.Replace(raw, match[0], value, 1))
		if err != nil {
			return []string{}, err
		}
		expanded = append(expanded, rest...)
	}

	return expanded, nil
}

// values resolves one comma separated pattern body into its elements.
func (p PathExpander) values(body string) ([]string, error) {
	values := []string{}
	for _, part := range strings.Split(body, ",") {
		if !strings.Contains(part, "-") {
			values = append(values, part)

			continue
		}

		first, last, err := p.bounds(part)
		if err != nil {
			return nil, err
		}
		for i := first; i <= last; i++ {
			values = append(values, strconv.FormatInt(i, 10))
		}
	}

	return values, nil
}

// bounds parses "a-b" where either number may be negative ("-2--1").
func (PathExpander) bounds(part string) (int64, int64, error) {
	pieces := strings.Split(part, "-")
	if len(pieces) > 2 && pieces[0] == "" {
		pieces = append([]string{"-" + pieces[1]}, pieces[2:]...)
	}
	if len(pieces) > 2 && pieces[1] == "" {
		pieces = []string{pieces[0], "-" + pieces[2]}
	}

	if len(pieces) != 2 {
		return 0, 0, fmt.Errorf("%q: number of elements != 2, is %d: %w", part, len(pieces), errInvalidRangeBounds)
	}
	if !valid.IsInt(pieces[0]) {
		return 0, 0, fmt.Errorf("%q: first number: %w", part, errInvalidRangeType)
	}
	if !valid.IsInt(pieces[1]) {
		return 0, 0, fmt.Errorf("%q: second number: %w", part, errInvalidRangeType)
	}

	first, _ := strconv.ParseInt(pieces[0], 10, 64)
	last, _ := strconv.ParseInt(pieces[1], 10, 64)
	if last < first {
		return 0, 0, fmt.Errorf("%q: first number cannot be bigger than second number: %w", part, errInvalidRangeType)
	}

	return first, last, nil
}
