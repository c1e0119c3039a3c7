package output

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deploymetrics/harness-export/pkg/extract"
)

func sampleRecord(pipeline string) extract.Record {
	return extract.Record{
		Pipeline:        pipeline,
		ProjectID:       "proj1",
		ExecutionURL:    "https://app.example.io/ng/#/account/a/cd/orgs/o/projects/p/pipelines/x/executions/e/pipeline",
		ServiceName:     "api",
		EndTime:         "2025-01-01 00:02:05",
		StartTime:       "2025-01-01 00:00:00",
		EnvironmentName: "prod",
		Status:          "Success",
		Duration:        "00:02:05",
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	return rows
}

func TestCSVWriter_HeaderOnceAcrossAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w := NewCSVWriter(path, URLStyleLink)

	if err := w.Write([]extract.Record{sampleRecord("first")}); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := w.Write([]extract.Record{sampleRecord("second"), sampleRecord("third")}); err != nil {
		t.Fatalf("second write: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4 (header + 3 records)", len(rows))
	}

	for i, col := range Columns {
		if rows[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], col)
		}
	}

	if rows[1][0] != "first" || rows[2][0] != "second" || rows[3][0] != "third" {
		t.Errorf("record order wrong: %v", rows[1:])
	}

	// The header appears exactly once.
	for _, row := range rows[1:] {
		if row[0] == "Pipeline" {
			t.Error("header repeated in appended batch")
		}
	}
}

func TestCSVWriter_EmptyBatchNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w := NewCSVWriter(path, URLStyleLink)

	if err := w.Write(nil); err != nil {
		t.Fatalf("Write(nil): %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("empty batch must not create the output file")
	}
}

func TestCSVWriter_PlainURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w := NewCSVWriter(path, URLStyleLink)

	rec := sampleRecord("p")
	if err := w.Write([]extract.Record{rec}); err != nil {
		t.Fatalf("write: %v", err)
	}

	rows := readCSV(t, path)
	if rows[1][2] != rec.ExecutionURL {
		t.Errorf("URL column = %q, want plain URL", rows[1][2])
	}
}

func TestCSVWriter_FormulaURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w := NewCSVWriter(path, URLStyleFormula)

	rec := sampleRecord("deploy-api")
	if err := w.Write([]extract.Record{rec}); err != nil {
		t.Fatalf("write: %v", err)
	}

	rows := readCSV(t, path)
	got := rows[1][2]
	want := `=HYPERLINK("` + rec.ExecutionURL + `","deploy-api")`
	if got != want {
		t.Errorf("URL column = %q, want %q", got, want)
	}
}

func TestFormulaQuote_DoublesEmbeddedQuotes(t *testing.T) {
	got := formulaQuote(`say "hi"`)
	want := `"say ""hi"""`
	if got != want {
		t.Errorf("formulaQuote = %q, want %q", got, want)
	}
}

func TestTableWriter_Render(t *testing.T) {
	w := NewTableWriter()

	if err := w.Write([]extract.Record{sampleRecord("deploy-api")}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Write([]extract.Record{sampleRecord("deploy-web")}); err != nil {
		t.Fatalf("write: %v", err)
	}

	if w.Len() != 2 {
		t.Errorf("Len = %d, want 2", w.Len())
	}

	var buf bytes.Buffer
	w.Render(&buf)
	out := buf.String()

	for _, want := range []string{"PIPELINE", "deploy-api", "deploy-web", "prod"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}
