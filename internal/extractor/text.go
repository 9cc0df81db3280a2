package extractor

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var pdfMagic = []byte("%PDF-")

// ReadStatement reads a statement file, PDF or plain text, and returns its
// text with one statement line per text line.
func ReadStatement(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Decode(data)
}

// Decode returns the text of an in-memory statement. PDFs are recognized by
// their header; everything else is decoded as text.
func Decode(data []byte) (string, error) {
	if bytes.HasPrefix(data, pdfMagic) {
		pages, err := ExtractTextFromBytes(data)
		if err != nil {
			return "", err
		}
		return strings.Join(pages, "\n"), nil
	}
	return decodeText(data)
}

// decodeText honors a UTF-8 or UTF-16 byte order mark. Without one, invalid
// UTF-8 is read as Windows-1252, the encoding spreadsheet exports use.
func decodeText(data []byte) (string, error) {
	fallback := encoding.Nop.NewDecoder()
	if !utf8.Valid(data) {
		fallback = charmap.Windows1252.NewDecoder()
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(fallback), data)
	if err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	return strings.ReplaceAll(string(out), "\r\n", "\n"), nil
}
