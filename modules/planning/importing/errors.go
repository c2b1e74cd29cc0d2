package importing

import (
	"errors"
	"fmt"
)

// CriticalError aborts an entire job before any write: malformed file,
// missing required header, absent tenant context, unrecoverable storage
// failure. Row-level findings never become CriticalErrors.
type CriticalError struct {
	Code   string
	Params map[string]string
}

func (e *CriticalError) Error() string {
	if len(e.Params) == 0 {
		return e.Code
	}
	return fmt.Sprintf("%s %v", e.Code, e.Params)
}

func NewCriticalError(code string, params map[string]string) *CriticalError {
	return &CriticalError{Code: code, Params: params}
}

// AsCritical unwraps err to a CriticalError if one is in the chain.
func AsCritical(err error) (*CriticalError, bool) {
	var ce *CriticalError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
