package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleReport() Report {
	return Report{
		Command: "many-jobs",
		RunID:   "run-1",
		Workers: 2,
		Elapsed: "1ms",
		Rows: []Row{
			{Index: 0, Input: "a=0.37 b=0.95", Value: "0.37", Status: "completed"},
			{Index: 1, Input: "a=0.10 b=0.00", Status: "failed", Error: "b must be positive"},
		},
		Metrics: []MetricSample{{Name: "lambdapool_pool_jobs_completed_total", Value: 1}},
	}
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "json", sampleReport()))

	var got Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sampleReport(), got)
}

func TestRender_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "yaml", sampleReport()))

	var got Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sampleReport(), got)
	assert.Contains(t, buf.String(), "run_id: run-1")
}

func TestRender_Table(t *testing.T) {
	var buf bytes.Buffer
	r := sampleReport()
	r.Notes = []string{"note for the reader"}
	require.NoError(t, Render(&buf, "table", r))

	out := buf.String()
	for _, want := range []string{
		"many-jobs (2 workers, 1ms)",
		"a=0.37 b=0.95",
		"completed",
		"b must be positive",
		"note for the reader",
		"lambdapool_pool_jobs_completed_total",
	} {
		assert.Contains(t, out, want)
	}
}

func TestRender_UnknownFormat(t *testing.T) {
	err := Render(&bytes.Buffer{}, "xml", sampleReport())
	assert.ErrorContains(t, err, "unknown output format")
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "20", formatFloat(20))
	assert.Equal(t, "0.1250", formatFloat(0.125))
}
