package ingest

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var labelCaser = cases.Title(language.Spanish)

// NormalizeLabel canonicalizes a species or breed name so that snapshot and
// event submissions land on the same dimension key ("canino" and "Canino"
// must not produce two rows). Test codes are left alone, they are already
// uppercase identifiers.
func NormalizeLabel(name string) string {
	trimmed := strings.Join(strings.Fields(name), " ")
	if trimmed == "" {
		return trimmed
	}
	return labelCaser.String(trimmed)
}
