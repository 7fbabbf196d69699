package app_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/phux/apiverify/app"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPointer(i int) *int {
	return &i
}

func TestExpectation_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		expect  app.Expectation
		wantErr error
	}{
		{
			name:    "no checks",
			expect:  app.Expectation{},
			wantErr: app.ErrEmptyExpectation,
		},
		{
			name:   "status only",
			expect: app.Expectation{Status: intPointer(200)},
		},
		{
			name:   "empty substring still counts as a check",
			expect: app.Expectation{Contains: stringPointer("")},
		},
		{
			name:    "invalid JSON document",
			expect:  app.Expectation{JSON: stringPointer(`{"name":`)},
			wantErr: app.ErrInvalidJSON,
		},
		{
			name:    "invalid jq query",
			expect:  app.Expectation{JQ: []app.JQCheck{{Query: ".Customer[", Equals: `"Jack"`}}},
			wantErr: app.ErrInvalidJQCheck,
		},
		{
			name:    "invalid jq literal",
			expect:  app.Expectation{JQ: []app.JQCheck{{Query: ".Customer.name", Equals: `Jack`}}},
			wantErr: app.ErrInvalidJQCheck,
		},
		{
			name:   "valid jq check",
			expect: app.Expectation{JQ: []app.JQCheck{{Query: ".Customer.name", Equals: `"Jack"`}}},
		},
	}

	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.expect.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestExpectation_Check(t *testing.T) {
	t.Parallel()
	customer := `{"Customer":{"id":123,"name":"Jack","orders":[{"id":223}]}}`
	tests := []struct {
		name      string
		expect    app.Expectation
		result    app.ProbeResult
		wantCheck string
		wantDiff  string
	}{
		{
			name:   "status matches exactly",
			expect: app.Expectation{Status: intPointer(200)},
			result: app.ProbeResult{StatusCode: 200},
		},
		{
			name:      "status 201 is not 200",
			expect:    app.Expectation{Status: intPointer(200)},
			result:    app.ProbeResult{StatusCode: 201},
			wantCheck: "status code",
		},
		{
			name:   "body contains substring",
			expect: app.Expectation{Contains: stringPointer("123")},
			result: app.ProbeResult{StatusCode: 200, Body: customer},
		},
		{
			name:      "substring match is case sensitive",
			expect:    app.Expectation{Contains: stringPointer("jack")},
			result:    app.ProbeResult{StatusCode: 200, Body: customer},
			wantCheck: "body",
		},
		{
			name:      "both checks must pass",
			expect:    app.Expectation{Status: intPointer(200), Contains: stringPointer("Jack")},
			result:    app.ProbeResult{StatusCode: 500, Body: customer},
			wantCheck: "status code",
		},
		{
			name:   "JSON equal ignores formatting",
			expect: app.Expectation{JSON: stringPointer(`{"Customer": {"name": "Jack", "id": 123, "orders": [{"id": 223}]}}`)},
			result: app.ProbeResult{StatusCode: 200, Body: customer},
		},
		{
			name:      "JSON mismatch carries a diff",
			expect:    app.Expectation{JSON: stringPointer(`{"Customer":{"id":123,"name":"John","orders":[{"id":223}]}}`)},
			result:    app.ProbeResult{StatusCode: 200, Body: customer},
			wantCheck: "JSON body",
			wantDiff:  "@ [\"Customer\",\"name\"]\n- \"John\"\n+ \"Jack\"\n",
		},
		{
			name:      "JSON expected but body is XML",
			expect:    app.Expectation{JSON: stringPointer(`{}`)},
			result:    app.ProbeResult{StatusCode: 200, Body: "<Customer/>"},
			wantCheck: "JSON body",
		},
		{
			name:   "jq query matches",
			expect: app.Expectation{JQ: []app.JQCheck{{Query: ".Customer.orders | length", Equals: "1"}}},
			result: app.ProbeResult{StatusCode: 200, Body: customer},
		},
		{
			name:      "jq query mismatch",
			expect:    app.Expectation{JQ: []app.JQCheck{{Query: ".Customer.name", Equals: `"John"`}}},
			result:    app.ProbeResult{StatusCode: 200, Body: customer},
			wantCheck: "jq .Customer.name",
		},
		{
			name:      "jq query without output",
			expect:    app.Expectation{JQ: []app.JQCheck{{Query: "empty", Equals: "null"}}},
			result:    app.ProbeResult{StatusCode: 200, Body: customer},
			wantCheck: "jq empty",
		},
	}

	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.expect.Check(tt.result)
			if tt.wantCheck == "" {
				assert.NoError(t, err)

				return
			}

			var assertErr *app.AssertionError
			require.ErrorAs(t, err, &assertErr)
			assert.Equal(t, tt.wantCheck, assertErr.Check)
			if tt.wantDiff != "" {
				assert.Equal(t, tt.wantDiff, assertErr.Diff)
			}
		})
	}
}

func TestExpectation_Check_TruncatesOnRuneBoundary(t *testing.T) {
	prefix := strings.Repeat("a", 511)
	body := prefix + "é" + strings.Repeat("b", 100)

	err := app.Expectation{Contains: stringPointer("Jack")}.Check(app.ProbeResult{StatusCode: 200, Body: body})

	var assertErr *app.AssertionError
	require.ErrorAs(t, err, &assertErr)
	assert.Equal(t, fmt.Sprintf("%q", prefix+"..."), assertErr.Actual)
	assert.NotContains(t, assertErr.Actual, `\x`)
}

func TestAssertionError_Error(t *testing.T) {
	err := app.Expectation{Status: intPointer(200)}.Check(app.ProbeResult{StatusCode: 404})

	assert.EqualError(t, err, "status code: expected 200, got 404")
}

func stringPointer(str string) *string {
	return &str
}
