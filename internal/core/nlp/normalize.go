package nlp

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Arabic letters that NFD does not decompose into a base letter.
var letterFolds = strings.NewReplacer(
	"ٱ", "ا",
	"ة", "ه",
	"ى", "ي",
	"ـ", "",
)

// Normalize folds text into the comparison form used by every matcher:
// diacritics and hamza seats are stripped (أ إ آ become ا), ة becomes ه,
// ى becomes ي, tatweel is dropped, Arabic-Indic digits become ASCII and
// the result is case folded with collapsed whitespace.
func Normalize(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	// transformers and casers carry state, so they are built per call.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	out = letterFolds.Replace(out)
	out = strings.Map(foldDigit, out)
	out = cases.Fold().String(out)
	return strings.Join(strings.Fields(out), " ")
}

func foldDigit(r rune) rune {
	switch {
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	case r == '٬':
		return ','
	case r == '٫':
		return '.'
	default:
		return r
	}
}

// Tokens normalizes s and splits it into letter/digit runs.
func Tokens(s string) []string {
	return splitTokens(Normalize(s))
}

func splitTokens(normalized string) []string {
	if normalized == "" {
		return nil
	}
	return strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func toTokenSet(tokens []string) map[string]struct{} {
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

func isNumeric(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
