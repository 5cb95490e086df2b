package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func runJSON(t *testing.T, args ...string) Report {
	t.Helper()
	out, errOut, err := runCLI(t, append(args, "--output", "json")...)
	require.NoError(t, err, "stderr: %s", errOut)

	var r Report
	require.NoError(t, json.Unmarshal([]byte(out), &r), "stdout: %s", out)
	return r
}

func TestCommand_ManyJobs(t *testing.T) {
	r := runJSON(t, "many-jobs", "--jobs", "5", "--workers", "2")

	assert.Equal(t, "many-jobs", r.Command)
	assert.Equal(t, 2, r.Workers)
	assert.NotEmpty(t, r.RunID)
	require.Len(t, r.Rows, 5)
	for i, row := range r.Rows {
		assert.Equal(t, i, row.Index)
		assert.Equal(t, "completed", row.Status)
	}

	closures := runJSON(t, "many-jobs", "--jobs", "5", "--workers", "2", "--closures")
	assert.Equal(t, r.Rows, closures.Rows)
}

func TestCommand_ManyJobsTable(t *testing.T) {
	out, _, err := runCLI(t, "many-jobs", "-n", "3", "-w", "1")
	require.NoError(t, err)

	assert.Contains(t, out, "Available cores:")
	assert.Contains(t, out, "many-jobs (1 workers")
	assert.Contains(t, out, "completed")
}

func TestCommand_ManyJobsMetrics(t *testing.T) {
	r := runJSON(t, "many-jobs", "--jobs", "4", "--workers", "2", "--metrics")

	values := map[string]float64{}
	for _, m := range r.Metrics {
		values[m.Name] = m.Value
	}
	assert.Equal(t, 4.0, values["lambdapool_pool_jobs_completed_total"])
	assert.Equal(t, 0.0, values["lambdapool_pool_queue_depth"])
}

func TestCommand_Callable(t *testing.T) {
	r := runJSON(t, "callable", "--work", "10ms")

	require.Len(t, r.Rows, 1)
	assert.Equal(t, "completed", r.Rows[0].Status)
	assert.NotEmpty(t, r.Rows[0].Value)
	assert.Equal(t, 1, r.Workers)
}

func TestCommand_Runnable(t *testing.T) {
	out, _, err := runCLI(t, "runnable", "--work", "10ms", "-o", "yaml")
	require.NoError(t, err)

	var r Report
	require.NoError(t, yaml.Unmarshal([]byte(out), &r))
	require.Len(t, r.Rows, 1)
	assert.Equal(t, "completed", r.Rows[0].Status)
	assert.Empty(t, r.Rows[0].Error)
}

func TestCommand_MapReduce(t *testing.T) {
	r := runJSON(t, "mapreduce")

	require.GreaterOrEqual(t, len(r.Rows), 2)
	assert.Equal(t, "0", r.Rows[0].Value)
	assert.Equal(t, "WhollyFluffySheepWithDarkNose", r.Rows[1].Value)

	r = runJSON(t, "mapreduce", "--upto", "6", "--sentence", "an eel")
	assert.Equal(t, "0", r.Rows[0].Value)
	assert.Equal(t, "Empty", r.Rows[1].Value)
}

func TestCommand_WordCount(t *testing.T) {
	r := runJSON(t, "wordcount", "--workers", "2", "--chunk-size", "1", "fox", "Fox", "grapes")

	require.Len(t, r.Rows, 2)
	assert.Equal(t, "fox", r.Rows[0].Input)
	assert.Equal(t, "2", r.Rows[0].Value)
	assert.Equal(t, "grapes", r.Rows[1].Input)
}

func TestCommand_WordCountFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("one two\ntwo three three three\n"), 0o600))

	r := runJSON(t, "wordcount", "--file", path)
	require.Len(t, r.Rows, 3)
	assert.Equal(t, Row{Index: 0, Input: "three", Value: "3", Status: "completed"}, r.Rows[0])
}

func TestCommand_ConfigFile(t *testing.T) {
	path := writeConfigFile(t, "workers: 3\noutput: json\n")

	out, _, err := runCLI(t, "many-jobs", "--jobs", "2", "--config", path)
	require.NoError(t, err)

	var r Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, 3, r.Workers)
}

func TestCommand_InvalidConfig(t *testing.T) {
	_, _, err := runCLI(t, "many-jobs", "--output", "xml")
	assert.ErrorContains(t, err, "output must be one of")
}

func TestCommand_LogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")

	_, errOut, err := runCLI(t, "many-jobs", "--jobs", "2", "-o", "json", "--log-level", "info", "--log-file", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pool started")
	assert.NotContains(t, errOut, "pool started")
}
