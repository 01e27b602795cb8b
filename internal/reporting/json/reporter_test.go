package json_test

import (
	"bytes"
	"context"
	stdjson "encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractcheck/contractcheck/internal/core/domain"
	"github.com/contractcheck/contractcheck/internal/log"
	jsonreport "github.com/contractcheck/contractcheck/internal/reporting/json"
)

func TestReporter(t *testing.T) {
	summary := domain.ExecutionSummary{
		Pacts: []domain.PactVerificationResult{
			{
				Consumer: "Consumer",
				Provider: "Provider",
				Results: []domain.InteractionResult{
					{Description: "a passing request", Status: domain.StatusPassed},
					{
						Description: "a failing request",
						Status:      domain.StatusFailed,
						Mismatches: []domain.Mismatch{{
							Type:        domain.MismatchBody,
							Path:        "$.a",
							Description: "Expected '1' to be equal to '2'",
						}},
					},
				},
			},
		},
	}

	var buf bytes.Buffer
	reporter, err := jsonreport.NewReporter(jsonreport.Config{}, log.Noop(), jsonreport.WithWriter(&buf))
	require.NoError(t, err)
	require.NoError(t, reporter.Report(context.Background(), summary))

	var report map[string]any
	require.NoError(t, stdjson.Unmarshal(buf.Bytes(), &report))

	reportSummary, ok := report["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), reportSummary["pacts"])
	assert.Equal(t, float64(2), reportSummary["interactions"])
	assert.Equal(t, float64(1), reportSummary["passed"])
	assert.Equal(t, float64(1), reportSummary["failed"])
	assert.Equal(t, false, reportSummary["success"])

	pacts, ok := report["pacts"].([]any)
	require.True(t, ok)
	require.Len(t, pacts, 1)
	interactions := pacts[0].(map[string]any)["interactions"].([]any)
	require.Len(t, interactions, 2)
	failing := interactions[1].(map[string]any)
	mismatches := failing["mismatches"].([]any)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "Expected '1' to be equal to '2'",
		mismatches[0].(map[string]any)["mismatch"])
}
