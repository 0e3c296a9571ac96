package nlp

import (
	"strings"

	"github.com/kirillkom/dalylak/internal/core/domain"
)

const (
	narrowTopK = 3
	broadTopK  = 10
)

// Plan is the effective retrieval request for one turn.
type Plan struct {
	Query     string
	TopK      int
	Brand     string
	Narrow    bool
	Recovered bool
}

// Planner turns a message plus recent history into a retrieval query.
type Planner struct {
	lex *Lexicon
}

func NewPlanner(lex *Lexicon) *Planner {
	return &Planner{lex: lex}
}

func (p *Planner) Plan(message string, history []domain.ChatTurn, requestedTopK int) Plan {
	normalized := Normalize(message)
	tokens := splitTokens(normalized)

	_, hasBrand := p.lex.FirstBrand(tokens)
	hasPrice := p.lex.hasPriceTerm(tokens)

	specific := 0
	for _, token := range tokens {
		if p.lex.isSpecificToken(token) {
			specific++
		}
	}

	plan := Plan{Query: message, Narrow: hasBrand && specific > 0}
	plan.TopK = broadTopK
	if plan.Narrow {
		plan.TopK = narrowTopK
	}
	if requestedTopK > plan.TopK {
		plan.TopK = requestedTopK
	}

	vague := !hasBrand && !hasPrice && specific == 0
	if vague || p.lex.hasShowTerm(tokens) {
		if query, ok := p.recoverFromHistory(message, history); ok {
			plan.Query = query
			plan.Recovered = true
		}
	}

	if brand, ok := p.lex.FirstBrand(Tokens(plan.Query)); ok {
		plan.Brand = brand.Canonical
	}
	return plan
}

// recoverFromHistory walks the most recent turns newest first. An assistant
// turn naming a brand yields the brand plus a short window of the words
// after it; a user turn naming a brand or budget is prepended to message.
func (p *Planner) recoverFromHistory(message string, history []domain.ChatTurn) (string, bool) {
	start := len(history) - p.lex.historyLookback
	if start < 0 {
		start = 0
	}
	for i := len(history) - 1; i >= start; i-- {
		turn := history[i]
		tokens := Tokens(turn.Text)
		switch turn.Role {
		case domain.RoleAssistant:
			brand, ok := p.lex.FirstBrand(tokens)
			if !ok {
				continue
			}
			return strings.Join(p.brandWindow(tokens, brand), " "), true
		case domain.RoleUser:
			_, hasBrand := p.lex.FirstBrand(tokens)
			if hasBrand || p.lex.hasPriceTerm(tokens) {
				return strings.TrimSpace(turn.Text) + " " + strings.TrimSpace(message), true
			}
		}
	}
	return "", false
}

// brandWindow keeps the brand, the next word and a trailing number if any,
// e.g. "mg zs 2024".
func (p *Planner) brandWindow(tokens []string, brand BrandMatch) []string {
	window := append([]string(nil), tokens[brand.Start:brand.End]...)
	next := brand.End
	for n := 0; n < p.lex.windowTokens && next < len(tokens); n++ {
		token := tokens[next]
		if n > 0 && !isNumeric(token) {
			break
		}
		window = append(window, token)
		next++
	}
	return window
}
