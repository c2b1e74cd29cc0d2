package importing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/planventa/planventa/pkg/excel"
)

func TestOpen_CSVMapsAliasesAndSkipsBlankRows(t *testing.T) {
	data := []byte("\uFEFFE-Mail,Full Name,Team\n" +
		"a@b.com,Jane Doe,Growth\n" +
		",,\n" +
		"c@d.com,Joe Bloggs,\n")

	reader, warnings, err := Open(data, EntityUserProfile)
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	require.Len(t, warnings, 1)
	assert.Equal(t, CodeUnknownColumn, warnings[0].Code)
	assert.Equal(t, "Team", warnings[0].Field)
	assert.Equal(t, SeverityWarning, warnings[0].Severity)

	rows, overflow, err := Drain(reader, 0)
	require.NoError(t, err)
	assert.False(t, overflow)
	require.Len(t, rows, 2)

	assert.Equal(t, 1, rows[0].Number)
	assert.Equal(t, "a@b.com", rows[0].Cells["email"])
	assert.Equal(t, "Jane Doe", rows[0].Cells["full_name"])
	assert.NotContains(t, rows[0].Cells, "Team")
	assert.Equal(t, 2, rows[1].Number)
	assert.Equal(t, "c@d.com", rows[1].Cells["email"])
}

func TestOpen_MissingRequiredHeader(t *testing.T) {
	data := []byte("full_name\nJane Doe\n")

	_, _, err := Open(data, EntityUserProfile)
	require.Error(t, err)
	ce, ok := AsCritical(err)
	require.True(t, ok)
	assert.Equal(t, CodeMissingHeader, ce.Code)
	assert.Equal(t, "email", ce.Params["columns"])
}

func TestOpen_HeaderOnlyIsEmpty(t *testing.T) {
	_, _, err := Open([]byte("email,full_name\n"), EntityUserProfile)
	require.Error(t, err)
	ce, ok := AsCritical(err)
	require.True(t, ok)
	assert.Equal(t, CodeEmptyFile, ce.Code)
}

func TestOpen_RejectsInvalidEncoding(t *testing.T) {
	// 0xE9 is valid Latin-1 text but not valid UTF-8.
	data := []byte("email,full_name\ncaf\xe9@b.com,Jane\n")

	_, _, err := Open(data, EntityUserProfile)
	require.Error(t, err)
	ce, ok := AsCritical(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidEncoding, ce.Code)
}

func TestOpen_UnknownEntityType(t *testing.T) {
	_, _, err := Open([]byte("a,b\n1,2\n"), EntityType("widgets"))
	require.Error(t, err)
	ce, ok := AsCritical(err)
	require.True(t, ok)
	assert.Equal(t, CodeUnknownEntityType, ce.Code)
}

func usersWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	ds := excel.NewSliceDataSource("users", []string{"email", "full_name"}, rows)
	exporter := excel.NewExcelExporter(excel.DefaultExportOptions(), excel.DefaultStyleOptions())
	payload, err := exporter.Export(context.Background(), ds)
	require.NoError(t, err)
	return payload
}

func TestOpen_XLSXRoundTrip(t *testing.T) {
	payload := usersWorkbook(t, [][]any{
		{"a@b.com", "Jane Doe"},
		{"c@d.com", "Joe Bloggs"},
	})

	reader, warnings, err := Open(payload, EntityUserProfile)
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()
	assert.Empty(t, warnings)

	rows, overflow, err := Drain(reader, 0)
	require.NoError(t, err)
	assert.False(t, overflow)
	require.Len(t, rows, 2)
	assert.Equal(t, "a@b.com", rows[0].Cells["email"])
	assert.Equal(t, "Joe Bloggs", rows[1].Cells["full_name"])
}

func TestOpen_XLSXSelectsMatchingSheet(t *testing.T) {
	f := excelize.NewFile()
	_, err := f.NewSheet("Users")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Users", "A1", &[]any{"email", "full_name"}))
	require.NoError(t, f.SetSheetRow("Users", "A2", &[]any{"a@b.com", "Jane Doe"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"notes"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reader, _, err := Open(buf.Bytes(), EntityUserProfile)
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	rows, _, err := Drain(reader, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a@b.com", rows[0].Cells["email"])
}

func TestOpen_XLSXMissingSheet(t *testing.T) {
	f := excelize.NewFile()
	_, err := f.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"email"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, _, err = Open(buf.Bytes(), EntityUserProfile)
	require.Error(t, err)
	ce, ok := AsCritical(err)
	require.True(t, ok)
	assert.Equal(t, CodeMissingSheet, ce.Code)
}

func TestDrain_ReportsOverflow(t *testing.T) {
	data := []byte("email,full_name\na@b.com,A\nb@b.com,B\nc@b.com,C\n")

	reader, _, err := Open(data, EntityUserProfile)
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	rows, overflow, err := Drain(reader, 2)
	require.NoError(t, err)
	assert.True(t, overflow)
	assert.Len(t, rows, 2)
}

func TestCountDataRows(t *testing.T) {
	count, ok := CountDataRows([]byte("email,full_name\n\na@b.com,A\n ,\nb@b.com,B\n"), EntityUserProfile)
	require.True(t, ok)
	assert.Equal(t, 2, count)

	count, ok = CountDataRows(usersWorkbook(t, [][]any{{"a@b.com", "A"}}), EntityUserProfile)
	require.True(t, ok)
	assert.Equal(t, 1, count)

	_, ok = CountDataRows([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, EntityUserProfile)
	assert.False(t, ok)
}
