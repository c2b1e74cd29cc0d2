package excel_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/planventa/planventa/pkg/excel"
)

func TestExporter_Export(t *testing.T) {
	ds := excel.NewSliceDataSource("Objectives", []string{"title", "status", "progress"}, [][]any{
		{"Grow revenue", "active", 40},
		{"Reduce churn", "draft", 0},
	})
	exporter := excel.NewExcelExporter(excel.DefaultExportOptions(), excel.DefaultStyleOptions())

	data, err := exporter.Export(context.Background(), ds)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Objectives"}, f.GetSheetList())

	rows, err := f.GetRows("Objectives")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"title", "status", "progress"}, rows[0])
	assert.Equal(t, []string{"Grow revenue", "active", "40"}, rows[1])
	assert.Equal(t, []string{"Reduce churn", "draft", "0"}, rows[2])
}

func TestExporter_ExportWithoutHeaders(t *testing.T) {
	ds := excel.NewSliceDataSource("", []string{"a"}, [][]any{{"only"}})
	exporter := excel.NewExcelExporter(excel.ExportOptions{IncludeHeaders: false}, excel.StyleOptions{})

	data, err := exporter.Export(context.Background(), ds)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"only"}, rows[0])
}

func TestExporter_ExportCancelledContext(t *testing.T) {
	ds := excel.NewSliceDataSource("Sheet1", []string{"a"}, nil)
	exporter := excel.NewExcelExporter(excel.DefaultExportOptions(), excel.StyleOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exporter.Export(ctx, ds)
	assert.ErrorIs(t, err, context.Canceled)
}
