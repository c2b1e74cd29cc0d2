package importing

// Stable outcome codes. The pipeline emits codes plus parameters, never
// rendered text; callers localize.
const (
	CodeUnsupportedFormat  = "import.errors.unsupported_format"
	CodeInvalidEncoding    = "import.errors.invalid_encoding"
	CodeMissingSheet       = "import.errors.missing_sheet"
	CodeMissingHeader      = "import.errors.missing_required_header"
	CodeEmptyFile          = "import.errors.empty_file"
	CodeFileTooLarge       = "import.errors.file_too_large"
	CodeRowLimitExceeded   = "import.errors.row_limit_exceeded"
	CodeMissingTenant      = "import.errors.missing_tenant"
	CodeStorageFailure     = "import.errors.storage_failure"
	CodeUnknownEntityType  = "import.errors.unknown_entity_type"
	CodeJobNotFound        = "import.errors.job_not_found"
	CodeRequiredField      = "import.errors.required_field_missing"
	CodeInvalidEmail       = "import.errors.invalid_email"
	CodeInvalidDate        = "import.errors.invalid_date"
	CodeDateRangeInvalid   = "import.errors.date_range_invalid"
	CodeProgressOutOfRange = "import.errors.progress_out_of_range"
	CodeNegativeAmount     = "import.errors.negative_amount"
	CodeInvalidEnum        = "import.errors.invalid_enum"
	CodeInvalidNumber      = "import.errors.invalid_number"
	CodeInvalidBool        = "import.errors.invalid_bool"
	CodeForeignKeyNotFound = "import.errors.foreign_key_not_found"

	CodeUnknownColumn    = "import.warnings.unknown_column"
	CodePastDueDate      = "import.warnings.past_due_date"
	CodeDuplicateSkipped = "import.warnings.duplicate_skipped"
	CodeDuplicateUpdated = "import.warnings.duplicate_updated"
	CodeJobCancelled     = "import.warnings.job_cancelled"
)

type Severity int

const (
	// SeverityWarning flags a row that is still processed.
	SeverityWarning Severity = iota
	// SeverityError blocks the row; the job continues.
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// FieldOutcome is one validation or resolution finding for one field of one
// row. Row 0 marks file-level findings (unknown columns).
type FieldOutcome struct {
	Field    string            `json:"field,omitempty"`
	Value    string            `json:"value,omitempty"`
	Code     string            `json:"code"`
	Params   map[string]string `json:"params,omitempty"`
	Severity Severity          `json:"severity"`
}

func ErrorOutcome(field, value, code string, params map[string]string) FieldOutcome {
	return FieldOutcome{Field: field, Value: value, Code: code, Params: params, Severity: SeverityError}
}

func WarningOutcome(field, value, code string, params map[string]string) FieldOutcome {
	return FieldOutcome{Field: field, Value: value, Code: code, Params: params, Severity: SeverityWarning}
}

// HasError reports whether any outcome blocks the row.
func HasError(outcomes []FieldOutcome) bool {
	for _, o := range outcomes {
		if o.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarning reports whether any outcome is a warning.
func HasWarning(outcomes []FieldOutcome) bool {
	for _, o := range outcomes {
		if o.Severity == SeverityWarning {
			return true
		}
	}
	return false
}
