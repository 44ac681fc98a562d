// Package normalize builds comparison keys from free text in Bangla or English.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Digits maps Bangla digits (U+09E6..U+09EF) to ASCII digits and leaves every
// other rune untouched.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '০' && r <= '৯' {
			return '0' + (r - '০')
		}
		return r
	}, s)
}

// Fold lowercases s and composes it to NFC.
// A Caser is stateful, so one is built per call.
func Fold(s string) string {
	return norm.NFC.String(cases.Lower(language.Und).String(s))
}

// Title returns the canonical form of a title: ASCII digits, single spaces,
// lowercase, NFC. It is idempotent.
//
// NFC is stricter than case folding alone. Bangla nukta letters that are
// composition exclusions, such as U+09DC (ড়), come back decomposed as base
// letter plus U+09BC, so precomposed and decomposed spellings compare equal.
func Title(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(Fold(Digits(s))), " ")
}
