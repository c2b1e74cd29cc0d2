// Package excel renders tabular data sources into XLSX workbooks.
package excel

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// DataSource feeds rows to the exporter. Next returns nil when exhausted.
type DataSource interface {
	SheetName() string
	Headers() []string
	Next(ctx context.Context) ([]any, error)
}

// SliceDataSource serves rows from memory.
type SliceDataSource struct {
	sheet   string
	headers []string
	rows    [][]any
	idx     int
}

func NewSliceDataSource(sheetName string, headers []string, rows [][]any) *SliceDataSource {
	return &SliceDataSource{sheet: sheetName, headers: headers, rows: rows}
}

func (s *SliceDataSource) WithSheetName(name string) *SliceDataSource {
	s.sheet = name
	return s
}

func (s *SliceDataSource) SheetName() string { return s.sheet }
func (s *SliceDataSource) Headers() []string { return s.headers }

func (s *SliceDataSource) Next(_ context.Context) ([]any, error) {
	if s.idx >= len(s.rows) {
		return nil, nil
	}
	row := s.rows[s.idx]
	s.idx++
	return row, nil
}

type ExportOptions struct {
	IncludeHeaders bool
	FreezeHeader   bool
	AutoFilter     bool
}

type StyleOptions struct {
	HeaderBold       bool
	HeaderBackground string
}

func DefaultExportOptions() ExportOptions {
	return ExportOptions{IncludeHeaders: true, FreezeHeader: true}
}

func DefaultStyleOptions() StyleOptions {
	return StyleOptions{HeaderBold: true}
}

// Exporter writes a DataSource into a single-sheet workbook.
type Exporter struct {
	opts  ExportOptions
	style StyleOptions
}

func NewExcelExporter(opts ExportOptions, style StyleOptions) *Exporter {
	return &Exporter{opts: opts, style: style}
}

const cancelCheckRows = 500

// Export streams the data source into an XLSX file and returns its bytes.
func (e *Exporter) Export(ctx context.Context, ds DataSource) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := ds.SheetName()
	if sheet == "" {
		sheet = "Sheet1"
	}
	if len(sheet) > 31 { // Excel sheet name limit
		sheet = sheet[:31]
	}
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return nil, fmt.Errorf("create stream writer: %w", err)
	}

	headers := ds.Headers()
	if e.opts.FreezeHeader && e.opts.IncludeHeaders && len(headers) > 0 {
		if err := sw.SetPanes(&excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return nil, fmt.Errorf("freeze header: %w", err)
		}
	}

	rowIdx := 1
	if e.opts.IncludeHeaders && len(headers) > 0 {
		styleID, err := e.headerStyle(f)
		if err != nil {
			return nil, err
		}
		cells := make([]any, len(headers))
		for i, h := range headers {
			if styleID != 0 {
				cells[i] = excelize.Cell{StyleID: styleID, Value: h}
			} else {
				cells[i] = h
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
		if err := sw.SetRow(cell, cells); err != nil {
			return nil, fmt.Errorf("write header row: %w", err)
		}
		rowIdx++
	}

	for n := 0; ; n++ {
		if n%cancelCheckRows == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		row, err := ds.Next(ctx)
		if err != nil {
			return nil, err
		}
		if row == nil {
			break
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
		if err := sw.SetRow(cell, row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", rowIdx, err)
		}
		rowIdx++
	}

	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush sheet: %w", err)
	}

	if e.opts.AutoFilter && e.opts.IncludeHeaders && len(headers) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		if err := f.AutoFilter(sheet, "A1:"+last, nil); err != nil {
			return nil, fmt.Errorf("set auto filter: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *Exporter) headerStyle(f *excelize.File) (int, error) {
	if !e.style.HeaderBold && e.style.HeaderBackground == "" {
		return 0, nil
	}
	style := &excelize.Style{}
	if e.style.HeaderBold {
		style.Font = &excelize.Font{Bold: true}
	}
	if e.style.HeaderBackground != "" {
		style.Fill = excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{e.style.HeaderBackground},
		}
	}
	id, err := f.NewStyle(style)
	if err != nil {
		return 0, fmt.Errorf("create header style: %w", err)
	}
	return id, nil
}
