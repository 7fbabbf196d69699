package app_test

import (
	"testing"

	"github.com/phux/apiverify/app"
	"github.com/stretchr/testify/assert"
)

func TestPathExpander_Expand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		expander    app.PathExpander
		rawPath     string
		want        []string
		errorString string
	}{
		{
			name:     "No pattern found",
			expander: app.NewPathExpander(),
			rawPath:  "http://localhost:9003/customers/123",
			want:     []string{"http://localhost:9003/customers/123"},
		},
		{
			name:     "2 standalone comma-separated values",
			expander: app.NewPathExpander(),
			rawPath:  "{1,2}",
			want:     []string{"1", "2"},
		},
		{
			name:     "Custom delimiters",
			expander: app.PathExpander{Open: "%", Close: "%"},
			rawPath:  "/customers/%1,2%",
			want:     []string{"/customers/1", "/customers/2"},
		},
		{
			name:        "Empty delimiters",
			expander:    app.PathExpander{},
			rawPath:     "1,2",
			want:        []string{},
			errorString: "Expand: {Open: Close:}: pattern delimiters cannot be empty",
		},
		{
			name:     "2 patterns produce their product",
			expander: app.NewPathExpander(),
			rawPath:  "/customers/{1,2}/{orders,profile}",
			want: []string{
				"/customers/1/orders",
				"/customers/1/profile",
				"/customers/2/orders",
				"/customers/2/profile",
			},
		},
		{
			name:     "Range",
			expander: app.NewPathExpander(),
			rawPath:  "/customers/{121-125}/orders",
			want: []string{
				"/customers/121/orders",
				"/customers/122/orders",
				"/customers/123/orders",
				"/customers/124/orders",
				"/customers/125/orders",
			},
		},
		{
			name:     "Mixed ranges and single values keep their order",
			expander: app.NewPathExpander(),
			rawPath:  "/foo/{7-8,0,1-2}/bar",
			want: []string{
				"/foo/7/bar",
				"/foo/8/bar",
				"/foo/0/bar",
				"/foo/1/bar",
				"/foo/2/bar",
			},
		},
		{
			name:        "Range first part is not numerical",
			expander:    app.NewPathExpander(),
			rawPath:     "/foo/{a-2}/bar",
			want:        []string{},
			errorString: "\"a-2\": first number: not a valid number range",
		},
		{
			name:        "Range second part is not numerical",
			expander:    app.NewPathExpander(),
			rawPath:     "/foo/{1-b}/bar",
			want:        []string{},
			errorString: "\"1-b\": second number: not a valid number range",
		},
		{
			name:        "Range first part is bigger than second part",
			expander:    app.NewPathExpander(),
			rawPath:     "/foo/{2-1}/bar",
			want:        []string{},
			errorString: "\"2-1\": first number cannot be bigger than second number: not a valid number range",
		},
		{
			name:        "Too many range bounds",
			expander:    app.NewPathExpander(),
			rawPath:     "/foo/{1-2-5}/bar",
			want:        []string{},
			errorString: "\"1-2-5\": number of elements != 2, is 3: invalid number range",
		},
		{
			name:     "Negative bounds",
			expander: app.NewPathExpander(),
			rawPath:  "/foo/{-2--1}/bar",
			want:     []string{"/foo/-2/bar", "/foo/-1/bar"},
		},
	}

	for i := range tests {
		tt := tests[i]

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.expander.Expand(tt.rawPath)

			assert.Equal(t, tt.want, got)
			if tt.errorString != "" {
				assert.EqualError(t, err, tt.errorString)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
