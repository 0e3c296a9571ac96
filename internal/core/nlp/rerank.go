package nlp

import (
	"sort"

	"github.com/kirillkom/dalylak/internal/core/domain"
)

// RerankWeights blend the three signals and weigh the individual features.
type RerankWeights struct {
	Vector       float64
	Keyword      float64
	Feature      float64
	Fuel         float64
	Transmission float64
	Body         float64
	Price        float64
	PriceSlope   float64
}

func DefaultRerankWeights() RerankWeights {
	return RerankWeights{
		Vector:       0.5,
		Keyword:      0.1,
		Feature:      0.4,
		Fuel:         2,
		Transmission: 1,
		Body:         1,
		Price:        3,
		PriceSlope:   0.3,
	}
}

// Reranker rescales vector candidates with keyword overlap and feature fit.
type Reranker struct {
	lex     *Lexicon
	weights RerankWeights
}

func NewReranker(lex *Lexicon, weights RerankWeights) *Reranker {
	return &Reranker{lex: lex, weights: weights}
}

// Rerank returns at most topK candidates ordered by combined score; a
// non-positive topK yields nothing. Score is
// overwritten with the combined value; Similarity is left untouched and is
// what the vector term reads, so reranking reranked output is stable.
func (r *Reranker) Rerank(query string, candidates []domain.RetrievedDocument, topK int) []domain.RetrievedDocument {
	if len(candidates) == 0 || topK <= 0 {
		return []domain.RetrievedDocument{}
	}
	if topK > len(candidates) {
		topK = len(candidates)
	}

	queryTokens := r.keywordTokens(Tokens(query))
	features := r.lex.ExtractFeatures(query)

	out := make([]domain.RetrievedDocument, len(candidates))
	copy(out, candidates)
	for i := range out {
		docTokens := Tokens(out[i].Text)
		keyword := tokenOverlap(queryTokens, toTokenSet(docTokens))
		feature := r.featureScore(features, out[i].Text, docTokens)
		out[i].Score = r.weights.Vector*out[i].Similarity +
			r.weights.Keyword*keyword +
			r.weights.Feature*feature
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out[:topK]
}

func (r *Reranker) keywordTokens(tokens []string) map[string]struct{} {
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		if _, stop := r.lex.stopwords[token]; stop {
			continue
		}
		out[token] = struct{}{}
	}
	return out
}

// featureScore is the weighted share of requested features the snippet
// satisfies, in [0,1]. The price feature only pays out when the snippet's
// price is within the ceiling, with cheaper candidates earning more.
func (r *Reranker) featureScore(features QueryFeatures, text string, tokens []string) float64 {
	if features.Empty() {
		return 0
	}

	var total, score float64
	check := func(kind FeatureKind, value string, weight float64) {
		if value == "" {
			return
		}
		total += weight
		if r.lex.documentHasFeature(kind, value, tokens) {
			score += weight
		}
	}
	check(FeatureFuel, features.Fuel, r.weights.Fuel)
	check(FeatureTransmission, features.Transmission, r.weights.Transmission)
	check(FeatureBody, features.Body, r.weights.Body)

	if features.PriceCeiling > 0 {
		total += r.weights.Price
		if price, ok := r.lex.CandidatePrice(text); ok && price <= features.PriceCeiling {
			ratio := price / features.PriceCeiling
			score += r.weights.Price * (1 - ratio*r.weights.PriceSlope)
		}
	}

	if total <= 0 {
		return 0
	}
	return score / total
}

func tokenOverlap(query, doc map[string]struct{}) float64 {
	if len(query) == 0 || len(doc) == 0 {
		return 0
	}
	matches := 0
	for token := range query {
		if _, ok := doc[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}
