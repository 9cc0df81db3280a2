package models

import (
	"errors"
	"fmt"
)

var (
	// Statement-level (fatal) errors
	ErrEmptyStatement     = errors.New("statement is empty")
	ErrNoStatementContent = errors.New("no statement lines recognized")

	// Line and block errors
	ErrUnrecognizedLine = errors.New("unrecognized statement line")
	ErrMalformedTrade   = errors.New("trade line without readable quantity")
	ErrOrphanTax        = errors.New("tax or fee without matching dividend")
	ErrBlockPanic       = errors.New("internal error while processing statement block")

	// Value errors
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrCurrencyMismatch = errors.New("currency mismatch")
)

// ExtractError is a non-fatal problem tied to a position in the statement.
// Line is 1-based; 0 means the error concerns the statement as a whole.
type ExtractError struct {
	Line int    `json:"line,omitempty"`
	Text string `json:"text,omitempty"`
	Err  error  `json:"-"`
}

func (e *ExtractError) Error() string {
	if e.Line == 0 {
		return e.Err.Error()
	}
	if e.Text == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// NewExtractError wraps err with the position it was found at.
func NewExtractError(line int, text string, err error) *ExtractError {
	return &ExtractError{Line: line, Text: text, Err: err}
}
