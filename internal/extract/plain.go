package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain returns the content as-is, repairing invalid UTF-8 with the
// replacement character so downstream chunking never sees broken runes.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "�"), nil
	}
	return string(content), nil
}
