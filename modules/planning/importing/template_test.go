package importing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestTemplateHeaders_RequiredFirst(t *testing.T) {
	headers, ok := TemplateHeaders(EntityUserProfile)
	require.True(t, ok)
	assert.Equal(t, []string{"email", "full_name", "role", "department"}, headers)

	headers, ok = TemplateHeaders(EntityActivity)
	require.True(t, ok)
	assert.Equal(t, []string{"title", "initiative"}, headers[:2])

	_, ok = TemplateHeaders(EntityType("widgets"))
	assert.False(t, ok)
}

func TestTemplate_CSV(t *testing.T) {
	payload, err := Template(context.Background(), EntityUserProfile, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "email,full_name,role,department\n", string(payload))
}

func TestTemplate_ExcelSheetMatchesParser(t *testing.T) {
	payload, err := Template(context.Background(), EntityObjective, FormatExcel)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(payload))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(TemplateSheetName(EntityObjective))
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, "title", rows[0][0])

	// a blank template fed straight back into the parser is an empty file
	_, _, err = Open(payload, EntityObjective)
	require.Error(t, err)
	ce, ok := AsCritical(err)
	require.True(t, ok)
	assert.Equal(t, CodeEmptyFile, ce.Code)
}

func TestTemplate_UnknownFormat(t *testing.T) {
	_, err := Template(context.Background(), EntityUserProfile, "pdf")
	require.Error(t, err)
}

func TestTemplateFileName(t *testing.T) {
	assert.Equal(t, "users_import_template.csv", TemplateFileName(EntityUserProfile, FormatCSV))
	assert.Equal(t, "links_import_template.xlsx", TemplateFileName(EntityLink, FormatExcel))
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "text/csv", ContentTypeFor(FormatCSV))
	assert.Equal(t, xlsxMIME, ContentTypeFor(FormatExcel))
}
