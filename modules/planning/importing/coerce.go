package importing

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Cell values never cross the parser boundary raw: every cell passes through
// CoerceField, which yields a typed value or a blocking outcome.

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// dateLayouts is ordered: ISO first, then common sheet formats. Two-digit
// years follow the time package pivot (69-99 -> 19xx, 00-68 -> 20xx).
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02.01.2006",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
}

func CoerceField(spec FieldSpec, raw string) (any, *FieldOutcome) {
	trimmed := strings.TrimSpace(raw)
	switch spec.Kind {
	case KindText, KindRef:
		return trimmed, nil
	case KindEmail:
		return coerceEmail(spec.Name, trimmed)
	case KindDate:
		return coerceDate(spec.Name, trimmed)
	case KindInt:
		return coerceInt(spec.Name, trimmed)
	case KindDecimal:
		return coerceDecimal(spec.Name, trimmed)
	case KindBool:
		return coerceBool(spec.Name, trimmed)
	case KindEnum:
		return coerceEnum(spec, trimmed)
	default:
		return trimmed, nil
	}
}

func coerceEmail(field, raw string) (any, *FieldOutcome) {
	lowered := strings.ToLower(raw)
	if !emailPattern.MatchString(lowered) {
		o := ErrorOutcome(field, raw, CodeInvalidEmail, nil)
		return nil, &o
	}
	return lowered, nil
}

func coerceDate(field, raw string) (any, *FieldOutcome) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	o := ErrorOutcome(field, raw, CodeInvalidDate, nil)
	return nil, &o
}

func coerceInt(field, raw string) (any, *FieldOutcome) {
	cleaned := strings.TrimSuffix(strings.TrimSpace(raw), "%")
	n, err := strconv.Atoi(strings.TrimSpace(cleaned))
	if err != nil {
		o := ErrorOutcome(field, raw, CodeInvalidNumber, nil)
		return nil, &o
	}
	return n, nil
}

// coerceDecimal tolerates currency prefixes, thousands separators and
// accounting negatives like (1,234.56).
func coerceDecimal(field, raw string) (any, *FieldOutcome) {
	cleaned := strings.TrimSpace(raw)
	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}
	cleaned = strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+':
			return r
		default:
			return -1
		}
	}, cleaned)
	if cleaned == "" {
		o := ErrorOutcome(field, raw, CodeInvalidNumber, nil)
		return nil, &o
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		o := ErrorOutcome(field, raw, CodeInvalidNumber, nil)
		return nil, &o
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

func coerceBool(field, raw string) (any, *FieldOutcome) {
	switch strings.ToLower(raw) {
	case "true", "yes", "y", "1":
		return true, nil
	case "false", "no", "n", "0":
		return false, nil
	default:
		o := ErrorOutcome(field, raw, CodeInvalidBool, nil)
		return nil, &o
	}
}

func coerceEnum(spec FieldSpec, raw string) (any, *FieldOutcome) {
	normalized := NormalizeHeader(raw)
	for _, allowed := range spec.Enum {
		if normalized == allowed {
			return allowed, nil
		}
	}
	o := ErrorOutcome(spec.Name, raw, CodeInvalidEnum, map[string]string{
		"value":   raw,
		"allowed": strings.Join(spec.Enum, ","),
	})
	return nil, &o
}
