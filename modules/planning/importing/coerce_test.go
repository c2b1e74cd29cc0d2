package importing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceField_Email(t *testing.T) {
	spec := FieldSpec{Name: "email", Kind: KindEmail}

	value, outcome := CoerceField(spec, "Jane.Doe@Example.COM")
	require.Nil(t, outcome)
	assert.Equal(t, "jane.doe@example.com", value)

	_, outcome = CoerceField(spec, "not-an-email")
	require.NotNil(t, outcome)
	assert.Equal(t, CodeInvalidEmail, outcome.Code)
	assert.Equal(t, SeverityError, outcome.Severity)
}

func TestCoerceField_Date(t *testing.T) {
	spec := FieldSpec{Name: "target_date", Kind: KindDate}

	cases := map[string]time.Time{
		"2025-03-31": time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		"31.12.2025": time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		"12/31/2025": time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		"2025/06/01": time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	for raw, want := range cases {
		value, outcome := CoerceField(spec, raw)
		require.Nil(t, outcome, "input %q", raw)
		assert.True(t, want.Equal(value.(time.Time)), "input %q", raw)
	}

	_, outcome := CoerceField(spec, "31/45/2025")
	require.NotNil(t, outcome)
	assert.Equal(t, CodeInvalidDate, outcome.Code)
}

func TestCoerceField_Int(t *testing.T) {
	spec := FieldSpec{Name: "progress", Kind: KindInt}

	value, outcome := CoerceField(spec, "85%")
	require.Nil(t, outcome)
	assert.Equal(t, 85, value)

	_, outcome = CoerceField(spec, "many")
	require.NotNil(t, outcome)
	assert.Equal(t, CodeInvalidNumber, outcome.Code)
}

func TestCoerceField_Decimal(t *testing.T) {
	spec := FieldSpec{Name: "budget", Kind: KindDecimal}

	value, outcome := CoerceField(spec, "$1,234.56")
	require.Nil(t, outcome)
	assert.True(t, decimal.RequireFromString("1234.56").Equal(value.(decimal.Decimal)))

	value, outcome = CoerceField(spec, "(1,000)")
	require.Nil(t, outcome)
	assert.True(t, decimal.RequireFromString("-1000").Equal(value.(decimal.Decimal)))

	_, outcome = CoerceField(spec, "lots")
	require.NotNil(t, outcome)
	assert.Equal(t, CodeInvalidNumber, outcome.Code)
}

func TestCoerceField_Bool(t *testing.T) {
	spec := FieldSpec{Name: "is_completed", Kind: KindBool}

	for raw, want := range map[string]bool{"Yes": true, "y": true, "1": true, "No": false, "0": false} {
		value, outcome := CoerceField(spec, raw)
		require.Nil(t, outcome, "input %q", raw)
		assert.Equal(t, want, value, "input %q", raw)
	}

	_, outcome := CoerceField(spec, "maybe")
	require.NotNil(t, outcome)
	assert.Equal(t, CodeInvalidBool, outcome.Code)
}

func TestCoerceField_Enum(t *testing.T) {
	spec := FieldSpec{Name: "status", Kind: KindEnum, Enum: []string{"draft", "active", "on_hold"}}

	value, outcome := CoerceField(spec, "On Hold")
	require.Nil(t, outcome)
	assert.Equal(t, "on_hold", value)

	_, outcome = CoerceField(spec, "bogus")
	require.NotNil(t, outcome)
	assert.Equal(t, CodeInvalidEnum, outcome.Code)
	assert.Equal(t, "draft,active,on_hold", outcome.Params["allowed"])
}

func TestCoerceField_TextTrims(t *testing.T) {
	value, outcome := CoerceField(FieldSpec{Name: "title", Kind: KindText}, "  Growth  ")
	require.Nil(t, outcome)
	assert.Equal(t, "Growth", value)
}
