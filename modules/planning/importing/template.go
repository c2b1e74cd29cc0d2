package importing

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/planventa/planventa/pkg/excel"
)

const (
	FormatCSV   = "csv"
	FormatExcel = "excel"
)

// TemplateHeaders returns the column set for a blank import file, required
// columns first.
func TemplateHeaders(t EntityType) ([]string, bool) {
	schema := SchemaFor(t)
	if schema == nil {
		return nil, false
	}
	return append(schema.RequiredColumns(), schema.OptionalColumns()...), true
}

// Template renders a blank import file with the entity's headers.
func Template(ctx context.Context, t EntityType, format string) ([]byte, error) {
	headers, ok := TemplateHeaders(t)
	if !ok {
		return nil, NewCriticalError(CodeUnknownEntityType, map[string]string{"value": string(t)})
	}
	switch format {
	case FormatCSV:
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.Write(headers); err != nil {
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatExcel:
		ds := excel.NewSliceDataSource(TemplateSheetName(t), headers, nil)
		exporter := excel.NewExcelExporter(excel.DefaultExportOptions(), excel.DefaultStyleOptions())
		return exporter.Export(ctx, ds)
	default:
		return nil, fmt.Errorf("unknown template format %q", format)
	}
}

// TemplateSheetName is the sheet label the parser's sheet matching accepts.
func TemplateSheetName(t EntityType) string {
	return string(t)
}

// TemplateFileName builds the download name for a blank template.
func TemplateFileName(t EntityType, format string) string {
	ext := "csv"
	if format == FormatExcel {
		ext = "xlsx"
	}
	return fmt.Sprintf("%s_import_template.%s", t, ext)
}

// ContentTypeFor maps a template/report format to its MIME type.
func ContentTypeFor(format string) string {
	if format == FormatExcel {
		return xlsxMIME
	}
	return "text/csv"
}
