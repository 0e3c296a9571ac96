package nlp

import "github.com/kirillkom/dalylak/internal/core/domain"

type GateReason string

const (
	GateGreeting         GateReason = "greeting"
	GateShortFollowUp    GateReason = "short_follow_up"
	GateCriteria         GateReason = "criteria"
	GateLongConversation GateReason = "long_conversation"
	GateNoCriteria       GateReason = "no_criteria"
)

type GateDecision struct {
	Search bool
	Reason GateReason
}

const (
	greetingHistoryLimit    = 2
	shortMessageTokens      = 2
	longConversationHistory = 4
)

// Gate decides whether a turn warrants retrieval.
type Gate struct {
	lex *Lexicon
}

func NewGate(lex *Lexicon) *Gate {
	return &Gate{lex: lex}
}

func (g *Gate) ShouldSearch(message string, history []domain.ChatTurn) bool {
	return g.Decide(message, history).Search
}

// Decide applies the rules in order:
//  1. a pure greeting early in the conversation never searches
//  2. a very short follow-up does not search unless it carries criteria
//  3. brand, price, price/spec question or fuel/body terms search
//  4. a long conversation searches even without criteria
func (g *Gate) Decide(message string, history []domain.ChatTurn) GateDecision {
	normalized := Normalize(message)
	tokens := splitTokens(normalized)
	criteria := g.hasCriteria(normalized, tokens)

	if g.lex.isGreeting(tokens) && len(history) < greetingHistoryLimit {
		return GateDecision{Search: false, Reason: GateGreeting}
	}
	if len(tokens) <= shortMessageTokens && len(history) > 0 && !criteria {
		return GateDecision{Search: false, Reason: GateShortFollowUp}
	}
	if criteria {
		return GateDecision{Search: true, Reason: GateCriteria}
	}
	if len(history) >= longConversationHistory {
		return GateDecision{Search: true, Reason: GateLongConversation}
	}
	return GateDecision{Search: false, Reason: GateNoCriteria}
}

func (g *Gate) hasCriteria(normalized string, tokens []string) bool {
	if _, ok := g.lex.FirstBrand(tokens); ok {
		return true
	}
	return g.lex.hasPriceExpression(normalized, tokens) ||
		g.lex.hasQuestionMarker(tokens) ||
		g.lex.hasFeatureTerm(tokens, FeatureFuel, FeatureBody)
}
