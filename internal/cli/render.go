package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

var (
	bold   = color.New(color.Bold)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
)

// Row is one job outcome of a report.
type Row struct {
	Index  int    `json:"index" yaml:"index"`
	Input  string `json:"input,omitempty" yaml:"input,omitempty"`
	Value  string `json:"value,omitempty" yaml:"value,omitempty"`
	Status string `json:"status" yaml:"status"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report is what every command prints, in the format chosen with --output.
type Report struct {
	Command string         `json:"command" yaml:"command"`
	RunID   string         `json:"run_id" yaml:"run_id"`
	Workers int            `json:"workers" yaml:"workers"`
	Elapsed string         `json:"elapsed" yaml:"elapsed"`
	Rows    []Row          `json:"results" yaml:"results"`
	Notes   []string       `json:"notes,omitempty" yaml:"notes,omitempty"`
	Metrics []MetricSample `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// Render writes r to w as a table, JSON or YAML.
func Render(w io.Writer, format string, r Report) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize to JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err

	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to serialize to YAML: %w", err)
		}
		return enc.Close()

	case "table", "":
		return renderTable(w, r)

	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func renderTable(w io.Writer, r Report) error {
	printSectionHeader(w, fmt.Sprintf("%s (%d workers, %s)", r.Command, r.Workers, r.Elapsed))

	if len(r.Rows) > 0 {
		table := tablewriter.NewWriter(w)
		table.Header("#", "Input", "Value", "Status")
		for _, row := range r.Rows {
			_ = table.Append(fmt.Sprint(row.Index), row.Input, row.Value, statusText(row))
		}
		if err := table.Render(); err != nil {
			return fmt.Errorf("rendering results table: %w", err)
		}
	}

	for _, note := range r.Notes {
		_, _ = fmt.Fprintln(w, note)
	}

	if len(r.Metrics) > 0 {
		_, _ = fmt.Fprintln(w)
		_, _ = bold.Fprintln(w, "Metrics")
		table := tablewriter.NewWriter(w)
		table.Header("Metric", "Value")
		for _, m := range r.Metrics {
			_ = table.Append(m.Name, formatFloat(m.Value))
		}
		if err := table.Render(); err != nil {
			return fmt.Errorf("rendering metrics table: %w", err)
		}
	}
	return nil
}

func statusText(row Row) string {
	switch row.Status {
	case "completed":
		return green.Sprint(row.Status)
	case "failed":
		return red.Sprintf("%s: %s", row.Status, row.Error)
	default:
		return yellow.Sprint(row.Status)
	}
}

func printSectionHeader(w io.Writer, title string) {
	_, _ = fmt.Fprintln(w)
	_, _ = bold.Fprintln(w, "═══════════════════════════════════════════════════════════")
	_, _ = bold.Fprintln(w, title)
	_, _ = bold.Fprintln(w, "═══════════════════════════════════════════════════════════")
}

func formatFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.4f", v)
}

// syncWriter serializes writes coming from job goroutines and the command itself.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
