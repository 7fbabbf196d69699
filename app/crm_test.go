package app_test

import (
	"context"
	"os"
	"testing"

	"github.com/phux/apiverify/app"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/h2non/gock.v1"
)

const crmSuite = "../examples/crm/suite.yaml"

type crmReplies struct {
	putStatus int
}

// mockCRM registers the quickstart responses in the order the suite probes them.
func mockCRM(replies crmReplies) {
	gock.New(crmBase).
		Get("/customers/123").
		Times(2).
		Reply(200).
		JSON(map[string]interface{}{"Customer": map[string]interface{}{"id": 123, "name": "John"}})

	gock.New(crmBase).
		Get("/public/index.html").
		Reply(200).
		SetHeader("Content-Type", "text/html; charset=ISO-8859-1").
		BodyString("<html><head><title>Camel Netty HTTP Example</title></head></html>")

	gock.New(crmBase).
		Get("/customers/123/orders").
		Reply(200).
		JSON(map[string]interface{}{"Order": map[string]interface{}{"id": 223, "product": map[string]interface{}{"description": "product 323"}}})

	gock.New(crmBase).
		Post("/customers").
		MatchHeader("Content-Type", "application/json; charset=ISO-8859-1").
		MatchHeader("Accept", "application/json").
		Reply(200).
		JSON(map[string]interface{}{"Customer": map[string]interface{}{"id": 124, "name": "Jack"}})

	gock.New(crmBase).
		Post("/customers").
		MatchHeader("Content-Type", "application/xml; charset=ISO-8859-1").
		MatchHeader("Accept", "application/xml").
		Reply(200).
		SetHeader("Content-Type", "application/xml").
		BodyString("<Customer><id>125</id><name>Jack</name></Customer>")

	gock.New(crmBase).
		Put("/customers").
		MatchHeader("Content-Type", "application/xml; charset=ISO-8859-1").
		Reply(replies.putStatus)
}

func newCRMApp(t *testing.T) *app.App {
	t.Helper()

	suite, err := app.LoadSuiteFromFile(crmSuite)
	require.NoError(t, err)

	return app.NewApp(suite, app.NewProber(nil, nil, nil), app.NewPathExpander(), 1000, nil)
}

func TestCRMSuite_Passes(t *testing.T) {
	defer gock.Off()
	mockCRM(crmReplies{putStatus: 200})

	a := newCRMApp(t)
	err := a.Run(context.Background())

	require.NoError(t, err)
	assert.Empty(t, a.Results.Findings)
	assert.True(t, a.Results.OK())
	assert.Equal(t, 6, a.Results.Count(app.StatusPassed))
	assert.Equal(t, 2, a.Results.Scenarios[0].Probes, "customer lookup is probed twice for idempotence")
	assert.True(t, gock.IsDone())
}

func TestCRMSuite_PutMustReturnExactly200(t *testing.T) {
	defer gock.Off()
	mockCRM(crmReplies{putStatus: 204})

	a := newCRMApp(t)
	err := a.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 5, a.Results.Count(app.StatusPassed))
	require.Len(t, a.Results.Findings, 1)
	finding := a.Results.Findings[0]
	assert.Equal(t, "update customer", finding.Scenario)
	assert.Equal(t, "status code: expected 200, got 204", finding.Error)
	assert.Contains(t, finding.Reproduce, "--data-binary @../examples/crm/fixtures/update_customer.xml")
}

// TestCRMSuite_Live runs the suite against a deployed quickstart.
func TestCRMSuite_Live(t *testing.T) {
	if os.Getenv("APIVERIFY_INTEGRATION") == "" {
		t.Skip("set APIVERIFY_INTEGRATION=1 to run against a deployed CRM quickstart")
	}
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	a := newCRMApp(t)
	err := a.Run(context.Background())

	require.NoError(t, err)
	for _, finding := range a.Results.Findings {
		t.Errorf("%s: step %d %s: %s (%s)", finding.Scenario, finding.Step, finding.URL, finding.Error, finding.Hint)
	}
}
