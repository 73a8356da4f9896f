// Package paperid derives stable paper identifiers. IDs embed into record
// IDs ("{paper_id}_chunk_{n}") and URL paths, so they are restricted to
// lowercase alphanumerics and hyphens.
package paperid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"unicode"
)

// hashLen is the number of hex digits appended to disambiguate papers whose
// filenames slugify identically.
const hashLen = 8

// FromPath returns a deterministic paper ID for a source file: the slugified
// file stem plus a short hash of the cleaned path. The same path always
// yields the same ID, so re-ingesting a file replaces its records.
func FromPath(path string) string {
	cleaned := filepath.Clean(path)
	base := filepath.Base(cleaned)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	sum := sha256.Sum256([]byte(cleaned))
	suffix := hex.EncodeToString(sum[:])[:hashLen]
	slug := Slug(stem)
	if slug == "" {
		return suffix
	}
	return slug + "-" + suffix
}

// Slug lowercases s and maps every run of non-alphanumeric characters to a
// single hyphen. Underscores are dropped with the rest so chunk record IDs
// ("_chunk_") stay parseable.
func Slug(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) && r < 128 || unicode.IsDigit(r) && r < 128 {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// Valid reports whether id is usable as a paper ID.
func Valid(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' {
			continue
		}
		return false
	}
	return true
}
