package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/phux/apiverify/app"
	"github.com/spf13/pflag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/h2non/gock.v1"
)

// resetFlags restores every flag to its default so that tests do not see
// values set by an earlier Execute.
func resetFlags(t *testing.T) {
	t.Helper()
	filters = app.RegexFilters{}

	reset := func(f *pflag.Flag) {
		if f.Value.Type() != "regex" {
			require.NoError(t, f.Value.Set(f.DefValue))
		}
		f.Changed = false
	}
	rootCmd.Flags().VisitAll(reset)
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, sub := range rootCmd.Commands() {
		sub.Flags().VisitAll(reset)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(t)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	return out.String(), err
}

func TestListCommand(t *testing.T) {
	out, err := execute(t, "list", "--suite", "../examples/crm/suite.yaml", "--skip", "XML", "--skip", "^get customer$")

	require.NoError(t, err)
	assert.Equal(t, "get index page (1 steps)\n"+
		"get customer orders (1 steps)\n"+
		"add customer as JSON (1 steps)\n"+
		"update customer (1 steps)\n", out)
}

func TestRootCommand_FailingScenarioReturnsError(t *testing.T) {
	defer gock.Off()
	gock.New("http://crm.test").
		Get("/customers/123").
		Reply(200).
		BodyString(`{"Customer":{"id":123,"name":"John"}}`)
	gock.New("http://crm.test").
		Get("/customers/999").
		Reply(404)

	dir := t.TempDir()
	suite := filepath.Join(dir, "crm.yaml")
	require.NoError(t, os.WriteFile(suite, []byte(`
baseURL: http://localhost:9003
scenarios:
  - name: get customer
    steps:
      - request: {method: GET, url: /customers/123}
        expect: {contains: "123"}
  - name: get missing customer
    steps:
      - request: {method: GET, url: /customers/999}
        expect: {status: 200}
`), 0o600))
	reports := filepath.Join(dir, "reports")

	out, err := execute(t,
		"--suite", suite,
		"--baseURL", "http://crm.test",
		"--rateLimit", "100",
		"--noColor",
		"--json",
		"--reportDir", reports,
		"--metricsFile", filepath.Join(dir, "apiverify.prom"),
	)

	require.ErrorIs(t, err, ErrScenariosFailed)
	assert.Contains(t, out, "1 passed, 1 failed, 0 skipped")
	assert.Contains(t, out, "status code: expected 200, got 404")
	assert.Contains(t, out, "reproduce: curl -i -X GET http://crm.test/customers/999")

	written, err := filepath.Glob(filepath.Join(reports, "apiverify-*.json"))
	require.NoError(t, err)
	assert.Len(t, written, 1)
	assert.FileExists(t, filepath.Join(dir, "apiverify.prom"))
	assert.True(t, gock.IsDone())
}

func TestRootCommand_HeaderFileIsSentAndReproduced(t *testing.T) {
	defer gock.Off()
	gock.New("http://crm.test").
		Get("/customers/123").
		MatchHeader("Authorization", "Bearer secret").
		Reply(500)

	dir := t.TempDir()
	suite := filepath.Join(dir, "crm.yaml")
	require.NoError(t, os.WriteFile(suite, []byte(`
baseURL: http://crm.test
scenarios:
  - name: get customer
    steps:
      - request: {method: GET, url: /customers/123}
        expect: {status: 200}
`), 0o600))
	headers := filepath.Join(dir, "headers.json")
	require.NoError(t, os.WriteFile(headers, []byte(`{"Authorization": "Bearer secret"}`), 0o600))

	out, err := execute(t, "--suite", suite, "--headerFile", headers, "--rateLimit", "100", "--noColor")

	require.ErrorIs(t, err, ErrScenariosFailed)
	assert.Contains(t, out, "reproduce: curl -i -X GET -H 'Authorization: Bearer secret' http://crm.test/customers/123")
	assert.True(t, gock.IsDone())
}

func TestExecute_FlagsDoNotLeakBetweenRuns(t *testing.T) {
	_, err := execute(t, "list", "--suite", "../examples/crm/suite.yaml", "--baseURL", "http://crm.test")
	require.NoError(t, err)

	resetFlags(t)

	assert.Empty(t, baseURL)
	assert.False(t, rootCmd.PersistentFlags().Changed("baseURL"))
	assert.InDelta(t, 1, rateLimit, 0.0001)
}
