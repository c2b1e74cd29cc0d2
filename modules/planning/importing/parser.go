package importing

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Row is one data row with raw cell strings keyed by canonical field name.
// Number is 1-based in source order, counting data rows only.
type Row struct {
	Number int
	Cells  map[string]string
}

// RowReader yields rows lazily in source order. Next returns io.EOF after
// the last row. Close must be called regardless of how iteration ends.
type RowReader interface {
	Next() (Row, error)
	Close() error
}

// Open sniffs the format, selects the right sheet, validates the header set
// against the schema and returns a lazy reader positioned at the first data
// row. The header check runs before any row is yielded, so a missing
// required column aborts with zero partial state. The second return value
// carries file-level warnings (unknown columns, row 0).
func Open(data []byte, entityType EntityType) (RowReader, []FieldOutcome, error) {
	schema := SchemaFor(entityType)
	if schema == nil {
		return nil, nil, NewCriticalError(CodeUnknownEntityType, map[string]string{"value": string(entityType)})
	}

	detected := mimetype.Detect(data)
	switch {
	case detected.Is(xlsxMIME):
		return openXLSX(data, schema)
	case isTextual(detected):
		if !utf8.Valid(data) {
			return nil, nil, NewCriticalError(CodeInvalidEncoding, nil)
		}
		return openCSV(data, schema)
	default:
		return nil, nil, NewCriticalError(CodeUnsupportedFormat, map[string]string{"detected": detected.String()})
	}
}

func isTextual(m *mimetype.MIME) bool {
	for cur := m; cur != nil; cur = cur.Parent() {
		if cur.Is("text/plain") {
			return true
		}
	}
	return false
}

// CheckEncoding rejects textual payloads that are not valid UTF-8. Binary
// formats pass through untouched.
func CheckEncoding(data []byte) error {
	if isTextual(mimetype.Detect(data)) && !utf8.Valid(data) {
		return NewCriticalError(CodeInvalidEncoding, nil)
	}
	return nil
}

// columnPlan maps cell positions to canonical field names; "" drops the column.
type columnPlan []string

func buildPlan(header []string, schema *Schema) (columnPlan, []FieldOutcome, error) {
	plan := make(columnPlan, len(header))
	warnings := []FieldOutcome(nil)
	present := map[string]bool{}
	for i, cell := range header {
		if strings.TrimSpace(cell) == "" {
			continue
		}
		spec, ok := schema.MatchColumn(cell)
		if !ok {
			warnings = append(warnings, WarningOutcome(cell, "", CodeUnknownColumn, nil))
			continue
		}
		plan[i] = spec.Name
		present[spec.Name] = true
	}

	missing := []string(nil)
	for _, required := range schema.RequiredColumns() {
		if !present[required] {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, nil, NewCriticalError(CodeMissingHeader, map[string]string{
			"columns": strings.Join(missing, ","),
		})
	}
	return plan, warnings, nil
}

func (p columnPlan) mapCells(cells []string) (map[string]string, bool) {
	out := make(map[string]string, len(p))
	empty := true
	for i, name := range p {
		if name == "" || i >= len(cells) {
			continue
		}
		value := cells[i]
		if strings.TrimSpace(value) != "" {
			empty = false
		}
		out[name] = value
	}
	if empty {
		return nil, false
	}
	return out, true
}

type csvRowReader struct {
	r      *csv.Reader
	plan   columnPlan
	number int
	peeked *Row
}

func openCSV(data []byte, schema *Schema) (RowReader, []FieldOutcome, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, NewCriticalError(CodeEmptyFile, nil)
		}
		return nil, nil, NewCriticalError(CodeUnsupportedFormat, map[string]string{"detected": "text/csv"})
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	plan, warnings, err := buildPlan(header, schema)
	if err != nil {
		return nil, nil, err
	}

	reader := &csvRowReader{r: r, plan: plan}
	first, err := reader.advance()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, NewCriticalError(CodeEmptyFile, nil)
		}
		return nil, nil, err
	}
	reader.peeked = &first
	return reader, warnings, nil
}

func (c *csvRowReader) advance() (Row, error) {
	for {
		cells, err := c.r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Row{}, io.EOF
			}
			return Row{}, NewCriticalError(CodeUnsupportedFormat, map[string]string{"detected": "text/csv"})
		}
		mapped, ok := c.plan.mapCells(cells)
		if !ok {
			continue
		}
		c.number++
		return Row{Number: c.number, Cells: mapped}, nil
	}
}

func (c *csvRowReader) Next() (Row, error) {
	if c.peeked != nil {
		row := *c.peeked
		c.peeked = nil
		return row, nil
	}
	return c.advance()
}

func (c *csvRowReader) Close() error { return nil }

type xlsxRowReader struct {
	file   *excelize.File
	rows   *excelize.Rows
	plan   columnPlan
	number int
	peeked *Row
}

func openXLSX(data []byte, schema *Schema) (RowReader, []FieldOutcome, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, NewCriticalError(CodeUnsupportedFormat, map[string]string{"detected": xlsxMIME})
	}

	sheet, err := selectSheet(f, schema.Entity)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		_ = f.Close()
		return nil, nil, NewCriticalError(CodeUnsupportedFormat, map[string]string{"detected": xlsxMIME})
	}
	if !rows.Next() {
		_ = rows.Close()
		_ = f.Close()
		return nil, nil, NewCriticalError(CodeEmptyFile, nil)
	}
	header, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		_ = f.Close()
		return nil, nil, NewCriticalError(CodeUnsupportedFormat, map[string]string{"detected": xlsxMIME})
	}

	plan, warnings, err := buildPlan(header, schema)
	if err != nil {
		_ = rows.Close()
		_ = f.Close()
		return nil, nil, err
	}

	reader := &xlsxRowReader{file: f, rows: rows, plan: plan}
	first, err := reader.advance()
	if err != nil {
		_ = reader.Close()
		if errors.Is(err, io.EOF) {
			return nil, nil, NewCriticalError(CodeEmptyFile, nil)
		}
		return nil, nil, err
	}
	reader.peeked = &first
	return reader, warnings, nil
}

// selectSheet picks the sheet whose normalized name matches the declared
// entity type. A single-sheet workbook is accepted regardless of its name.
func selectSheet(f *excelize.File, entityType EntityType) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", NewCriticalError(CodeEmptyFile, nil)
	}
	if len(sheets) == 1 {
		return sheets[0], nil
	}
	for _, sheet := range sheets {
		if mapped, ok := ParseEntityType(NormalizeHeader(sheet)); ok && mapped == entityType {
			return sheet, nil
		}
	}
	return "", NewCriticalError(CodeMissingSheet, map[string]string{"entity_type": string(entityType)})
}

func (x *xlsxRowReader) advance() (Row, error) {
	for x.rows.Next() {
		cells, err := x.rows.Columns()
		if err != nil {
			return Row{}, NewCriticalError(CodeUnsupportedFormat, map[string]string{"detected": xlsxMIME})
		}
		mapped, ok := x.plan.mapCells(cells)
		if !ok {
			continue
		}
		x.number++
		return Row{Number: x.number, Cells: mapped}, nil
	}
	if err := x.rows.Error(); err != nil {
		return Row{}, NewCriticalError(CodeUnsupportedFormat, map[string]string{"detected": xlsxMIME})
	}
	return Row{}, io.EOF
}

func (x *xlsxRowReader) Next() (Row, error) {
	if x.peeked != nil {
		row := *x.peeked
		x.peeked = nil
		return row, nil
	}
	return x.advance()
}

func (x *xlsxRowReader) Close() error {
	rowsErr := x.rows.Close()
	fileErr := x.file.Close()
	if rowsErr != nil {
		return rowsErr
	}
	return fileErr
}

// Drain reads every remaining row, up to max. The bool reports overflow:
// true means at least one more row existed beyond max.
func Drain(reader RowReader, max int) ([]Row, bool, error) {
	rows := make([]Row, 0, 64)
	for {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return rows, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		if max > 0 && len(rows) >= max {
			return rows, true, nil
		}
		rows = append(rows, row)
	}
}

// CountDataRows is the cheap pre-pass used to enforce the row-count limit
// before any job state exists. It counts non-empty data rows without
// validating headers; ok is false when the format cannot be counted here,
// in which case the full parse decides.
func CountDataRows(data []byte, entityType EntityType) (int, bool) {
	detected := mimetype.Detect(data)
	switch {
	case detected.Is(xlsxMIME):
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return 0, false
		}
		defer func() { _ = f.Close() }()
		sheet, err := selectSheet(f, entityType)
		if err != nil {
			return 0, false
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return 0, false
		}
		count := 0
		for i, row := range rows {
			if i == 0 {
				continue
			}
			for _, cell := range row {
				if strings.TrimSpace(cell) != "" {
					count++
					break
				}
			}
		}
		return count, true
	case isTextual(detected):
		if !utf8.Valid(data) {
			return 0, false
		}
		r := csv.NewReader(bytes.NewReader(data))
		r.FieldsPerRecord = -1
		count := -1
		for {
			cells, err := r.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return 0, false
			}
			empty := true
			for _, cell := range cells {
				if strings.TrimSpace(cell) != "" {
					empty = false
					break
				}
			}
			if !empty {
				count++
			}
		}
		if count < 0 {
			count = 0
		}
		return count, true
	default:
		return 0, false
	}
}
