package importing

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Validate coerces and validates one row against a schema. It is pure: both
// execution modes run exactly this, so sync and async results only differ in
// timing. The returned record is usable only when no outcome carries
// SeverityError; callers must check HasError.
func Validate(row Row, schema *Schema, now time.Time) (*Record, []FieldOutcome) {
	rec := NewRecord(schema.Entity, row.Number)
	outcomes := []FieldOutcome(nil)

	for _, spec := range schema.Fields {
		raw, present := row.Cells[spec.Name]
		trimmed := strings.TrimSpace(raw)
		if !present || trimmed == "" {
			if spec.Required {
				outcomes = append(outcomes, ErrorOutcome(spec.Name, "", CodeRequiredField, nil))
			}
			continue
		}

		if spec.Kind == KindRef {
			rec.Refs[spec.Name] = trimmed
			continue
		}

		value, outcome := CoerceField(spec, trimmed)
		if outcome != nil {
			outcomes = append(outcomes, *outcome)
			continue
		}
		rec.Fields[spec.Name] = value

		switch spec.Kind {
		case KindInt:
			n := value.(int)
			if n < spec.Min || n > spec.Max {
				outcomes = append(outcomes, ErrorOutcome(spec.Name, trimmed, CodeProgressOutOfRange, map[string]string{
					"value": trimmed,
					"min":   strconv.Itoa(spec.Min),
					"max":   strconv.Itoa(spec.Max),
				}))
				delete(rec.Fields, spec.Name)
			}
		case KindDecimal:
			d := value.(decimal.Decimal)
			if d.IsNegative() {
				outcomes = append(outcomes, ErrorOutcome(spec.Name, trimmed, CodeNegativeAmount, map[string]string{
					"value": trimmed,
				}))
				delete(rec.Fields, spec.Name)
			}
		}
	}

	if schema.KeyField != "" {
		rec.Key = rec.Text(schema.KeyField)
	}

	outcomes = append(outcomes, checkDateOrder(rec, schema)...)
	outcomes = append(outcomes, checkPastDue(rec, schema, now)...)
	return rec, outcomes
}

func checkDateOrder(rec *Record, schema *Schema) []FieldOutcome {
	if schema.StartField == "" || schema.EndField == "" {
		return nil
	}
	start, okStart := rec.Fields[schema.StartField].(time.Time)
	end, okEnd := rec.Fields[schema.EndField].(time.Time)
	if !okStart || !okEnd {
		return nil
	}
	if start.After(end) {
		return []FieldOutcome{ErrorOutcome(schema.EndField, end.Format("2006-01-02"), CodeDateRangeInvalid, map[string]string{
			"start": start.Format("2006-01-02"),
			"end":   end.Format("2006-01-02"),
		})}
	}
	return nil
}

func checkPastDue(rec *Record, schema *Schema, now time.Time) []FieldOutcome {
	if len(schema.PastDue) == 0 {
		return nil
	}
	today := now.UTC().Truncate(24 * time.Hour)
	out := []FieldOutcome(nil)
	for _, field := range schema.PastDue {
		t, ok := rec.Fields[field].(time.Time)
		if !ok {
			continue
		}
		if t.Before(today) {
			out = append(out, WarningOutcome(field, t.Format("2006-01-02"), CodePastDueDate, map[string]string{
				"value": t.Format("2006-01-02"),
			}))
		}
	}
	return out
}
