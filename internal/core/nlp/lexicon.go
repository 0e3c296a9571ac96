package nlp

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// phrase is a normalized token sequence matched contiguously.
type phrase []string

func (p phrase) indexIn(tokens []string) int {
	if len(p) == 0 {
		return -1
	}
	for i := 0; i+len(p) <= len(tokens); i++ {
		if p.matchesAt(tokens, i) {
			return i
		}
	}
	return -1
}

func (p phrase) String() string {
	return strings.Join(p, " ")
}

func compilePhrases(raw []string) []phrase {
	seen := make(map[string]struct{}, len(raw))
	out := make([]phrase, 0, len(raw))
	for _, item := range raw {
		p := phrase(Tokens(item))
		if len(p) == 0 {
			continue
		}
		key := p.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	// Longer phrases first so "بي ام دبليو" wins over "بي ام".
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

func containsAny(phrases []phrase, tokens []string) bool {
	for _, p := range phrases {
		if p.indexIn(tokens) >= 0 {
			return true
		}
	}
	return false
}

type compiledBrand struct {
	canonical string
	aliases   []phrase
}

type compiledFeature struct {
	kind          FeatureKind
	value         string
	queryTerms    []phrase
	documentTerms []phrase
}

// BrandMatch is one brand occurrence inside a token sequence.
type BrandMatch struct {
	Canonical string
	Start     int
	End       int
}

// Lexicon is the compiled, normalized form of a Profile. It is read-only
// after Compile and safe for concurrent use.
type Lexicon struct {
	brands          []compiledBrand
	brandIndex      map[string]int
	greetingTokens  map[string]struct{}
	stopwords       map[string]struct{}
	ignored         map[string]struct{}
	brandTokens     map[string]struct{}
	show            []phrase
	priceTerms      []phrase
	questionMarkers []phrase
	features        []compiledFeature
	multipliers     map[string]float64
	currencies      map[string]struct{}
	units           map[string]struct{}
	amountPattern   *regexp.Regexp
	candidatePrice  []*regexp.Regexp
	historyLookback int
	windowTokens    int
	prompt          PromptTemplates
}

func Compile(profile Profile) (*Lexicon, error) {
	if len(profile.Brands) == 0 {
		return nil, fmt.Errorf("compile profile: brand gazetteer is empty")
	}

	lex := &Lexicon{
		brandIndex:      make(map[string]int, len(profile.Brands)),
		greetingTokens:  make(map[string]struct{}),
		stopwords:       make(map[string]struct{}),
		ignored:         make(map[string]struct{}),
		brandTokens:     make(map[string]struct{}),
		show:            compilePhrases(profile.ShowTerms),
		priceTerms:      compilePhrases(profile.PriceTerms),
		questionMarkers: compilePhrases(profile.QuestionMarkers),
		multipliers:     make(map[string]float64, len(profile.Multipliers)),
		currencies:      make(map[string]struct{}, len(profile.CurrencyMarkers)),
		units:           make(map[string]struct{}, len(profile.UnitWords)),
		historyLookback: profile.HistoryLookback,
		windowTokens:    profile.BrandWindowTokens,
		prompt:          profile.Prompt,
	}
	if lex.historyLookback <= 0 {
		lex.historyLookback = 6
	}
	if lex.windowTokens < 0 {
		lex.windowTokens = 0
	}

	for _, entry := range profile.Brands {
		canonical := Normalize(entry.Canonical)
		if canonical == "" {
			return nil, fmt.Errorf("compile profile: brand without canonical name")
		}
		aliases := compilePhrases(append([]string{entry.Canonical}, entry.Aliases...))
		lex.brandIndex[canonical] = len(lex.brands)
		lex.brands = append(lex.brands, compiledBrand{canonical: canonical, aliases: aliases})
		for _, alias := range aliases {
			for _, token := range alias {
				lex.brandTokens[token] = struct{}{}
			}
		}
	}

	for _, p := range compilePhrases(profile.Greetings) {
		for _, token := range p {
			lex.greetingTokens[token] = struct{}{}
		}
	}
	for _, word := range profile.Stopwords {
		for _, token := range Tokens(word) {
			lex.stopwords[token] = struct{}{}
		}
	}
	for _, word := range profile.IgnoredTokens {
		for _, token := range Tokens(word) {
			lex.ignored[token] = struct{}{}
		}
	}

	for _, entry := range profile.Features {
		feature := compiledFeature{
			kind:          entry.Kind,
			value:         Normalize(entry.Value),
			queryTerms:    compilePhrases(entry.QueryTerms),
			documentTerms: compilePhrases(append([]string{entry.Value}, entry.DocumentTerms...)),
		}
		if feature.value == "" || len(feature.queryTerms) == 0 {
			return nil, fmt.Errorf("compile profile: feature %q has no query terms", entry.Value)
		}
		lex.features = append(lex.features, feature)
	}

	for word, factor := range profile.Multipliers {
		key := Normalize(word)
		if key == "" || factor <= 0 {
			continue
		}
		lex.multipliers[key] = factor
	}
	for _, word := range profile.UnitWords {
		if key := Normalize(word); key != "" {
			lex.units[key] = struct{}{}
		}
	}
	lex.amountPattern = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*(\pL+)?`)

	currencies := make([]string, 0, len(profile.CurrencyMarkers))
	for _, marker := range profile.CurrencyMarkers {
		if m := Normalize(marker); m != "" {
			lex.currencies[m] = struct{}{}
			currencies = append(currencies, regexp.QuoteMeta(m))
		}
	}
	if len(currencies) > 0 {
		alt := strings.Join(currencies, "|")
		lex.candidatePrice = []*regexp.Regexp{
			regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*(?:` + alt + `)(?:[^\pL]|$)`),
			regexp.MustCompile(`(?:^|[^\pL])(?:` + alt + `)\s*(\d[\d,]*(?:\.\d+)?)`),
		}
	}

	return lex, nil
}

// MustCompile is Compile for profiles known to be valid, such as DefaultProfile.
func MustCompile(profile Profile) *Lexicon {
	lex, err := Compile(profile)
	if err != nil {
		panic(err)
	}
	return lex
}

func (l *Lexicon) Prompt() PromptTemplates {
	return l.prompt
}

// FindBrands returns every non-overlapping brand occurrence ordered by position.
func (l *Lexicon) FindBrands(tokens []string) []BrandMatch {
	var out []BrandMatch
	taken := make([]bool, len(tokens))
	for i := range tokens {
		if taken[i] {
			continue
		}
		best := BrandMatch{Start: -1}
		for _, brand := range l.brands {
			for _, alias := range brand.aliases {
				if !alias.matchesAt(tokens, i) {
					continue
				}
				if best.Start < 0 || i+len(alias) > best.End {
					best = BrandMatch{Canonical: brand.canonical, Start: i, End: i + len(alias)}
				}
			}
		}
		if best.Start < 0 {
			continue
		}
		for j := best.Start; j < best.End; j++ {
			taken[j] = true
		}
		out = append(out, best)
	}
	return out
}

func (p phrase) matchesAt(tokens []string, at int) bool {
	if at+len(p) > len(tokens) {
		return false
	}
	for j := range p {
		if tokens[at+j] != p[j] {
			return false
		}
	}
	return true
}

// FirstBrand returns the earliest brand occurrence in tokens.
func (l *Lexicon) FirstBrand(tokens []string) (BrandMatch, bool) {
	matches := l.FindBrands(tokens)
	if len(matches) == 0 {
		return BrandMatch{}, false
	}
	return matches[0], true
}

// BrandAliases returns the normalized aliases for a canonical brand. An
// unknown brand is treated as its own single alias.
func (l *Lexicon) BrandAliases(canonical string) [][]string {
	key := Normalize(canonical)
	if key == "" {
		return nil
	}
	idx, ok := l.brandIndex[key]
	if !ok {
		return [][]string{splitTokens(key)}
	}
	aliases := l.brands[idx].aliases
	out := make([][]string, 0, len(aliases))
	for _, alias := range aliases {
		out = append(out, []string(alias))
	}
	return out
}

func (l *Lexicon) isGreeting(tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	for _, token := range tokens {
		if _, ok := l.greetingTokens[token]; !ok {
			return false
		}
	}
	return true
}

func (l *Lexicon) hasShowTerm(tokens []string) bool {
	return containsAny(l.show, tokens)
}

func (l *Lexicon) hasQuestionMarker(tokens []string) bool {
	return containsAny(l.questionMarkers, tokens)
}

// hasPriceTerm reports budget markers: currency/magnitude words or a
// thousands group written out in digits.
func (l *Lexicon) hasPriceTerm(tokens []string) bool {
	if containsAny(l.priceTerms, tokens) {
		return true
	}
	for i, token := range tokens {
		if !strings.Contains(token, "000") {
			continue
		}
		// 50000 km is a mileage, not a budget.
		if l.isUnit(strings.TrimLeft(token, "0123456789.")) {
			continue
		}
		if i+1 < len(tokens) && l.isUnit(tokens[i+1]) {
			continue
		}
		return true
	}
	return false
}

func (l *Lexicon) hasPriceExpression(normalized string, tokens []string) bool {
	return l.hasPriceTerm(tokens) || l.PriceCeiling(normalized) > 0
}

func (l *Lexicon) hasFeatureTerm(tokens []string, kinds ...FeatureKind) bool {
	for _, feature := range l.features {
		if !kindIn(feature.kind, kinds) {
			continue
		}
		if containsAny(feature.queryTerms, tokens) {
			return true
		}
	}
	return false
}

func kindIn(kind FeatureKind, kinds []FeatureKind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// isSpecificToken reports tokens that narrow a search beyond the brand.
func (l *Lexicon) isSpecificToken(token string) bool {
	if isNumeric(token) || len([]rune(token)) < 2 {
		return false
	}
	if _, ok := l.brandTokens[token]; ok {
		return false
	}
	if _, ok := l.ignored[token]; ok {
		return false
	}
	if _, ok := l.stopwords[token]; ok {
		return false
	}
	if _, ok := l.greetingTokens[token]; ok {
		return false
	}
	if _, ok := l.multipliers[token]; ok {
		return false
	}
	if containsAny(l.priceTerms, []string{token}) {
		return false
	}
	return true
}
