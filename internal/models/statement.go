package models

// LineTrace records what the matcher did with one statement line.
type LineTrace struct {
	LineNum int    `json:"lineNum"`
	Text    string `json:"text"`
	Result  string `json:"result"` // matched, ignored or error
	Rule    string `json:"rule,omitempty"`
}

// Statement is the full outcome of extracting one statement.
type Statement struct {
	RunID           string          `json:"runId"`
	Source          string          `json:"source"`
	Layout          string          `json:"layout"`
	Locale          string          `json:"locale"`
	AccountCurrency string          `json:"accountCurrency"`
	Items           []Item          `json:"-"`
	Errors          []*ExtractError `json:"-"`
	Trace           []LineTrace     `json:"trace,omitempty"`
}
