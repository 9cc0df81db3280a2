package extract

import (
	"errors"

	"github.com/insightdelivered/statement-importer/internal/models"
	"github.com/insightdelivered/statement-importer/internal/security"
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{models.ErrEmptyStatement, "empty_statement"},
	{models.ErrNoStatementContent, "no_content"},
	{models.ErrUnrecognizedLine, "unrecognized_line"},
	{models.ErrMalformedTrade, "malformed_trade"},
	{models.ErrOrphanTax, "orphan_tax"},
	{models.ErrBlockPanic, "block_panic"},
	{models.ErrInvalidAmount, "invalid_amount"},
	{models.ErrCurrencyMismatch, "currency_mismatch"},
	{security.ErrNotFound, "catalog"},
}

// ErrorKind returns a stable label for an extraction error, for metrics and
// API responses.
func ErrorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "other"
}

// Fatal reports whether errs describe a statement rejected as a whole.
func Fatal(errs []*models.ExtractError) bool {
	return len(errs) == 1 && errs[0].Line == 0 &&
		(errors.Is(errs[0], models.ErrEmptyStatement) || errors.Is(errs[0], models.ErrNoStatementContent))
}
