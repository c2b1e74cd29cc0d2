package importing

import (
	"bytes"
	"context"
	"encoding/csv"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/planventa/planventa/pkg/excel"
)

type Summary struct {
	Total            int   `json:"total"`
	Success          int   `json:"success"`
	Errors           int   `json:"error"`
	Warnings         int   `json:"warning"`
	Skipped          int   `json:"skipped"`
	ProcessingTimeMS int64 `json:"processing_time_ms"`
}

// Issue is one reported finding. Row 0 marks file-level findings.
type Issue struct {
	Row    int               `json:"row"`
	Field  string            `json:"field,omitempty"`
	Value  string            `json:"value,omitempty"`
	Code   string            `json:"error_code"`
	Params map[string]string `json:"error_params,omitempty"`
}

// RowOutcome is the settled fate of one row, the reporter's input. Async
// runs reconstruct these from persisted job items; sync runs hand them over
// in memory. Both paths produce identical results.
type RowOutcome struct {
	Row      int
	Status   string
	Created  bool
	Outcomes []FieldOutcome
}

const (
	RowStatusSuccess = "success"
	RowStatusError   = "error"
	RowStatusSkipped = "skipped"
)

// Result is the full import outcome: counters plus per-row findings as
// stable codes and parameters. No prose.
type Result struct {
	JobID      uuid.UUID      `json:"job_id"`
	EntityType EntityType     `json:"entity_type"`
	Status     string         `json:"status"`
	Summary    Summary        `json:"summary"`
	Created    map[string]int `json:"created"`
	Errors     []Issue        `json:"errors"`
	Warnings   []Issue        `json:"warnings"`
}

// BuildResult assembles the result payload. Summary counts rows (a row with
// three bad fields is one error row); the issue lists carry every finding.
func BuildResult(
	jobID uuid.UUID,
	entityType EntityType,
	status string,
	total int,
	processingMS int64,
	fileWarnings []FieldOutcome,
	rows []RowOutcome,
) *Result {
	result := &Result{
		JobID:      jobID,
		EntityType: entityType,
		Status:     status,
		Summary:    Summary{Total: total, ProcessingTimeMS: processingMS},
		Created:    map[string]int{},
		Errors:     []Issue{},
		Warnings:   []Issue{},
	}

	for _, w := range fileWarnings {
		result.Warnings = append(result.Warnings, issueFrom(0, w))
	}

	sorted := make([]RowOutcome, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Row < sorted[j].Row })

	for _, row := range sorted {
		switch row.Status {
		case RowStatusSuccess:
			result.Summary.Success++
			if row.Created {
				result.Created[string(entityType)]++
			}
		case RowStatusError:
			result.Summary.Errors++
		case RowStatusSkipped:
			result.Summary.Skipped++
		}
		if HasWarning(row.Outcomes) {
			result.Summary.Warnings++
		}
		for _, o := range row.Outcomes {
			if o.Severity == SeverityError {
				result.Errors = append(result.Errors, issueFrom(row.Row, o))
			} else {
				result.Warnings = append(result.Warnings, issueFrom(row.Row, o))
			}
		}
	}
	return result
}

func issueFrom(row int, o FieldOutcome) Issue {
	return Issue{
		Row:    row,
		Field:  o.Field,
		Value:  o.Value,
		Code:   o.Code,
		Params: o.Params,
	}
}

var reportHeaders = []string{"row", "severity", "field", "value", "code", "params"}

// ReportCSV renders the error/warning rows of a result as CSV.
func ReportCSV(result *Result) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(reportHeaders); err != nil {
		return nil, err
	}
	for _, line := range reportLines(result) {
		if err := w.Write(line); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReportExcel renders the same report as a workbook.
func ReportExcel(ctx context.Context, result *Result) ([]byte, error) {
	lines := reportLines(result)
	rows := make([][]any, len(lines))
	for i, line := range lines {
		row := make([]any, len(line))
		for j, cell := range line {
			row[j] = cell
		}
		rows[i] = row
	}
	ds := excel.NewSliceDataSource("Import Report", reportHeaders, rows)
	exporter := excel.NewExcelExporter(excel.DefaultExportOptions(), excel.DefaultStyleOptions())
	return exporter.Export(ctx, ds)
}

func reportLines(result *Result) [][]string {
	lines := make([][]string, 0, len(result.Errors)+len(result.Warnings))
	for _, issue := range result.Errors {
		lines = append(lines, reportLine(issue, "error"))
	}
	for _, issue := range result.Warnings {
		lines = append(lines, reportLine(issue, "warning"))
	}
	sort.SliceStable(lines, func(i, j int) bool {
		ri, _ := strconv.Atoi(lines[i][0])
		rj, _ := strconv.Atoi(lines[j][0])
		return ri < rj
	})
	return lines
}

func reportLine(issue Issue, severity string) []string {
	return []string{
		strconv.Itoa(issue.Row),
		severity,
		issue.Field,
		issue.Value,
		issue.Code,
		flattenParams(issue.Params),
	}
}

func flattenParams(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, ";")
}
