package app

import (
	"fmt"
	"regexp"
	"strings"
)

// Filter decides whether a scenario runs.
type Filter func(name string) bool

// RegexFilters selects scenarios by name: a scenario runs if it matches any
// MustMatch pattern (or none are defined) and no MustNotMatch pattern.
type RegexFilters struct {
	MustMatch    RegexList
	MustNotMatch RegexList
}

func (r RegexFilters) AsFilter(name string) bool {
	return (!r.MustMatch.IsDefined() || r.MustMatch.AnyMatch(name)) &&
		!r.MustNotMatch.AnyMatch(name)
}

// Describe explains the active filters, or returns "" when every scenario runs.
func (r RegexFilters) Describe() string {
	var lines []string
	if r.MustMatch.IsDefined() {
		lines = append(lines, fmt.Sprintf("skip any not matching %s", r.MustMatch))
	}
	if r.MustNotMatch.IsDefined() {
		lines = append(lines, fmt.Sprintf("skip any matching %s", r.MustNotMatch))
	}

	return strings.Join(lines, "\n")
}

// RegexList is a repeatable command line flag of regular expressions.
type RegexList struct {
	patterns []*regexp.Regexp
}

func (r RegexList) String() string {
	var ss []string
	for _, p := range r.patterns {
		ss = append(ss, `"`+p.String()+`"`)
	}

	return strings.Join(ss, " or ")
}

// Set is called by the command line parser.
func (r *RegexList) Set(value string) error {
	rx, err := regexp.Compile(value)
	if err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	r.patterns = append(r.patterns, rx)

	return nil
}

func (RegexList) Type() string {
	return "regex"
}

func (r RegexList) IsDefined() bool {
	return len(r.patterns) != 0
}

func (r RegexList) AnyMatch(s string) bool {
	for _, p := range r.patterns {
		if p.MatchString(s) {
			return true
		}
	}

	return false
}
