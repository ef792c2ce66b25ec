// Package names converts attribute identifiers between the wire naming
// convention (camelCase) and the local naming convention (snake_case).
package names

import (
	"strings"
	"unicode"
)

// ToWire converts a snake_case identifier to its camelCase wire form.
// Every underscore is dropped and the character following it upper-cased,
// so names without underscores pass through unchanged.
func ToWire(name string) string {
	if !strings.ContainsRune(name, '_') {
		return name
	}

	var result strings.Builder
	result.Grow(len(name))

	upperNext := false

	for _, r := range name {
		if r == '_' {
			upperNext = true
			continue
		}

		if upperNext {
			result.WriteRune(unicode.ToUpper(r))
			upperNext = false
		} else {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// ToLocal converts a camelCase identifier to its snake_case local form.
// Each internal upper-case rune becomes an underscore followed by its
// lower-case counterpart. The leading rune keeps its case, so ToLocal is
// the inverse of ToWire for identifiers built from lower-case letters,
// digits and underscores.
func ToLocal(name string) string {
	var result strings.Builder
	result.Grow(len(name) + 4)

	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) {
			result.WriteRune('_')
			result.WriteRune(unicode.ToLower(r))
		} else {
			result.WriteRune(r)
		}
	}

	return result.String()
}
