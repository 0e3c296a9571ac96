package nlp

import (
	"strconv"
	"strings"
)

// Bare numbers below this are treated as years or model numbers, not prices.
const minBareAmount = 10000

// QueryFeatures are the structured preferences read from a query.
// Empty strings and a zero ceiling mean "not requested".
type QueryFeatures struct {
	Fuel         string
	Transmission string
	Body         string
	PriceCeiling float64
}

func (f QueryFeatures) Empty() bool {
	return f.Fuel == "" && f.Transmission == "" && f.Body == "" && f.PriceCeiling <= 0
}

// ExtractFeatures reads fuel, transmission, body and price ceiling from query.
func (l *Lexicon) ExtractFeatures(query string) QueryFeatures {
	normalized := Normalize(query)
	tokens := splitTokens(normalized)

	var out QueryFeatures
	for _, feature := range l.features {
		if !containsAny(feature.queryTerms, tokens) {
			continue
		}
		switch feature.kind {
		case FeatureFuel:
			if out.Fuel == "" {
				out.Fuel = feature.value
			}
		case FeatureTransmission:
			if out.Transmission == "" {
				out.Transmission = feature.value
			}
		case FeatureBody:
			if out.Body == "" {
				out.Body = feature.value
			}
		}
	}
	out.PriceCeiling = l.PriceCeiling(normalized)
	return out
}

// PriceCeiling returns the largest money amount expressed in text, e.g.
// "300 الف" is 300000 and "1.5 مليون" is 1500000. Zero means none.
func (l *Lexicon) PriceCeiling(text string) float64 {
	normalized := Normalize(text)
	if normalized == "" || l.amountPattern == nil {
		return 0
	}

	var ceiling float64
	for _, m := range l.amountPattern.FindAllStringSubmatch(normalized, -1) {
		value, ok := parseAmount(m[1])
		if !ok {
			continue
		}
		word := m[2]
		factor, multiplied := l.multipliers[word]
		switch {
		case multiplied:
			value *= factor
		case l.isCurrency(word):
		case l.isUnit(word), value < minBareAmount:
			continue
		}
		if value > ceiling {
			ceiling = value
		}
	}
	return ceiling
}

func (l *Lexicon) isCurrency(word string) bool {
	_, ok := l.currencies[word]
	return ok
}

// isUnit reports measurement words such as km or cc that turn a number into
// something other than money.
func (l *Lexicon) isUnit(word string) bool {
	_, ok := l.units[word]
	return ok
}

// CandidatePrice extracts the first currency-tagged amount from a snippet,
// such as "1,250,000 EGP".
func (l *Lexicon) CandidatePrice(text string) (float64, bool) {
	normalized := Normalize(text)
	for _, pattern := range l.candidatePrice {
		m := pattern.FindStringSubmatch(normalized)
		if m == nil {
			continue
		}
		if value, ok := parseAmount(m[1]); ok {
			return value, true
		}
	}
	return 0, false
}

func parseAmount(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(raw, ",", "")
	if cleaned == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}

// documentHasFeature reports whether snippet tokens mention a canonical
// feature value through any of its document terms.
func (l *Lexicon) documentHasFeature(kind FeatureKind, value string, tokens []string) bool {
	for _, feature := range l.features {
		if feature.kind != kind || feature.value != value {
			continue
		}
		if containsAny(feature.documentTerms, tokens) {
			return true
		}
	}
	return false
}
