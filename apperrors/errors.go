// Package apperrors defines the error taxonomy shared across the signal
// engine so callers can branch on error class with errors.Is/errors.As
// instead of parsing messages.
package apperrors

import "fmt"

// Class identifies which bucket of the taxonomy an error belongs to.
type Class string

const (
	ClassConfig     Class = "config"      // invalid/missing configuration at startup, fatal
	ClassUpstream   Class = "upstream"     // market-data provider failure after retries
	ClassRateLimit  Class = "rate_limit"   // expected, absorbed by the rate limiter's backoff
	ClassNoData     Class = "no_data"      // symbol returned no bars
	ClassValidation Class = "validation"   // quality validator rejected a symbol
	ClassStore      Class = "store"        // persistence failure
	ClassCancelled  Class = "cancelled"    // caller-initiated cancellation, not a retry condition
	ClassTimeout    Class = "timeout"      // a per-call deadline was exceeded
)

// Error is a classified, wrapped error. It satisfies errors.Unwrap so
// %w-chains and errors.Is/As keep working through it.
type Error struct {
	Class   Class
	Symbol  string // optional: the symbol this error concerns, if any
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Symbol != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s[%s]: %s: %v", e.Class, e.Symbol, e.Message, e.Cause)
		}
		return fmt.Sprintf("%s[%s]: %s", e.Class, e.Symbol, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Class, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Class, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, apperrors.New(ClassX, "", nil)) match on class alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message == "" && t.Symbol == "" {
		return e.Class == t.Class
	}
	return e.Class == t.Class && e.Symbol == t.Symbol
}

func New(class Class, message string, cause error) *Error {
	return &Error{Class: class, Message: message, Cause: cause}
}

func NewForSymbol(class Class, symbol, message string, cause error) *Error {
	return &Error{Class: class, Symbol: symbol, Message: message, Cause: cause}
}

// Sentinels for errors.Is(err, apperrors.NoData) style class checks.
var (
	Config     = New(ClassConfig, "", nil)
	Upstream   = New(ClassUpstream, "", nil)
	RateLimit  = New(ClassRateLimit, "", nil)
	NoData     = New(ClassNoData, "", nil)
	Validation = New(ClassValidation, "", nil)
	Store      = New(ClassStore, "", nil)
	Cancelled  = New(ClassCancelled, "", nil)
	Timeout    = New(ClassTimeout, "", nil)
)
