package importing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validatorNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func outcomeCodes(outcomes []FieldOutcome) []string {
	codes := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		codes = append(codes, o.Code)
	}
	return codes
}

func TestValidate_UsersHappyPath(t *testing.T) {
	schema := SchemaFor(EntityUserProfile)
	row := Row{Number: 1, Cells: map[string]string{
		"email":      "Jane.Doe@Example.com",
		"full_name":  "Jane Doe",
		"role":       "Admin",
		"department": "Sales",
	}}

	rec, outcomes := Validate(row, schema, validatorNow)
	require.Empty(t, outcomes)
	assert.Equal(t, "jane.doe@example.com", rec.Key)
	assert.Equal(t, "jane.doe@example.com", rec.Text("email"))
	assert.Equal(t, "admin", rec.Fields["role"])
	assert.Equal(t, 1, rec.RowNumber)
}

func TestValidate_RequiredFieldMissing(t *testing.T) {
	schema := SchemaFor(EntityUserProfile)
	row := Row{Number: 3, Cells: map[string]string{"full_name": "Jane Doe"}}

	rec, outcomes := Validate(row, schema, validatorNow)
	require.True(t, HasError(outcomes))
	assert.Contains(t, outcomeCodes(outcomes), CodeRequiredField)
	assert.Empty(t, rec.Key)
}

func TestValidate_RefsStayRaw(t *testing.T) {
	schema := SchemaFor(EntityObjective)
	row := Row{Number: 1, Cells: map[string]string{
		"title": "Grow revenue",
		"area":  "Growth ",
		"owner": "jane@example.com",
	}}

	rec, outcomes := Validate(row, schema, validatorNow)
	require.False(t, HasError(outcomes))
	assert.Equal(t, "Growth", rec.Refs["area"])
	assert.Equal(t, "jane@example.com", rec.Refs["owner"])
	assert.NotContains(t, rec.Fields, "area")
	assert.Empty(t, rec.ResolvedRefs)
}

func TestValidate_ProgressOutOfRange(t *testing.T) {
	schema := SchemaFor(EntityObjective)
	row := Row{Number: 2, Cells: map[string]string{
		"title":    "Grow revenue",
		"progress": "140",
	}}

	rec, outcomes := Validate(row, schema, validatorNow)
	require.True(t, HasError(outcomes))
	assert.Contains(t, outcomeCodes(outcomes), CodeProgressOutOfRange)
	// the rejected value must not survive into the record
	assert.NotContains(t, rec.Fields, "progress")
}

func TestValidate_NegativeAmount(t *testing.T) {
	schema := SchemaFor(EntityInitiative)
	row := Row{Number: 2, Cells: map[string]string{
		"title":  "Launch campaign",
		"budget": "(2,500)",
	}}

	rec, outcomes := Validate(row, schema, validatorNow)
	require.True(t, HasError(outcomes))
	assert.Contains(t, outcomeCodes(outcomes), CodeNegativeAmount)
	assert.NotContains(t, rec.Fields, "budget")
}

func TestValidate_DateRangeInvalid(t *testing.T) {
	schema := SchemaFor(EntityObjective)
	row := Row{Number: 4, Cells: map[string]string{
		"title":       "Grow revenue",
		"start_date":  "2025-09-01",
		"target_date": "2025-08-01",
	}}

	_, outcomes := Validate(row, schema, validatorNow)
	require.True(t, HasError(outcomes))
	var found bool
	for _, o := range outcomes {
		if o.Code == CodeDateRangeInvalid {
			found = true
			assert.Equal(t, "target_date", o.Field)
			assert.Equal(t, "2025-09-01", o.Params["start"])
			assert.Equal(t, "2025-08-01", o.Params["end"])
		}
	}
	assert.True(t, found)
}

func TestValidate_PastDueIsWarningOnly(t *testing.T) {
	schema := SchemaFor(EntityObjective)
	row := Row{Number: 5, Cells: map[string]string{
		"title":       "Grow revenue",
		"target_date": "2025-01-31",
	}}

	rec, outcomes := Validate(row, schema, validatorNow)
	assert.False(t, HasError(outcomes))
	require.True(t, HasWarning(outcomes))
	assert.Contains(t, outcomeCodes(outcomes), CodePastDueDate)
	assert.Equal(t, "Grow revenue", rec.Key)
}

func TestValidate_BadCellsCollectPerField(t *testing.T) {
	schema := SchemaFor(EntityActivity)
	row := Row{Number: 6, Cells: map[string]string{
		"title":        "Write copy",
		"initiative":   "Launch campaign",
		"status":       "unknown",
		"progress":     "many",
		"is_completed": "maybe",
	}}

	_, outcomes := Validate(row, schema, validatorNow)
	codes := outcomeCodes(outcomes)
	assert.Contains(t, codes, CodeInvalidEnum)
	assert.Contains(t, codes, CodeInvalidNumber)
	assert.Contains(t, codes, CodeInvalidBool)
}
