package writer

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/insightdelivered/statement-importer/internal/extract"
	"github.com/insightdelivered/statement-importer/internal/models"
)

// Document is the JSON shape of one extracted statement.
type Document struct {
	RunID           string             `json:"runId"`
	Source          string             `json:"source"`
	Layout          string             `json:"layout,omitempty"`
	Locale          string             `json:"locale,omitempty"`
	AccountCurrency string             `json:"accountCurrency,omitempty"`
	Items           []ItemView         `json:"items"`
	Errors          []ErrorView        `json:"errors"`
	Trace           []models.LineTrace `json:"trace,omitempty"`
}

// ItemView tags an item with its kind. Exactly one payload field is set.
type ItemView struct {
	Kind        models.ItemKind            `json:"kind"`
	Security    *models.Security           `json:"security,omitempty"`
	Transaction *models.AccountTransaction `json:"transaction,omitempty"`
	Entry       *models.BuySellEntry       `json:"entry,omitempty"`
}

// ErrorView is an extraction error with a stable kind label.
type ErrorView struct {
	Line    int    `json:"line,omitempty"`
	Text    string `json:"text,omitempty"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NewDocument converts a statement for JSON output. Trace is only kept when
// withTrace is set.
func NewDocument(st *models.Statement, withTrace bool) Document {
	doc := Document{
		RunID:           st.RunID,
		Source:          st.Source,
		Layout:          st.Layout,
		Locale:          st.Locale,
		AccountCurrency: st.AccountCurrency,
		Items:           make([]ItemView, 0, len(st.Items)),
		Errors:          make([]ErrorView, 0, len(st.Errors)),
	}
	if withTrace {
		doc.Trace = st.Trace
	}
	for _, it := range st.Items {
		doc.Items = append(doc.Items, NewItemView(it))
	}
	for _, e := range st.Errors {
		doc.Errors = append(doc.Errors, ErrorView{
			Line:    e.Line,
			Text:    e.Text,
			Kind:    extract.ErrorKind(e),
			Message: e.Err.Error(),
		})
	}
	return doc
}

// NewItemView wraps an item with its kind.
func NewItemView(it models.Item) ItemView {
	v := ItemView{Kind: it.Kind()}
	switch item := it.(type) {
	case models.SecurityItem:
		v.Security = &item.Security
	case models.TransactionItem:
		v.Transaction = &item.Transaction
	case models.BuySellEntryItem:
		v.Entry = &item.Entry
	}
	return v
}

// JSONWriter writes statements as JSON documents.
type JSONWriter struct {
	Indent bool
	Trace  bool
}

// Write encodes the statements as a JSON array.
func (w *JSONWriter) Write(out io.Writer, statements ...*models.Statement) error {
	docs := make([]Document, 0, len(statements))
	for _, st := range statements {
		docs = append(docs, NewDocument(st, w.Trace))
	}
	enc := json.NewEncoder(out)
	if w.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(docs); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
