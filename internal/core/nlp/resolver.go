package nlp

import (
	"strings"

	"github.com/kirillkom/dalylak/internal/core/domain"
)

const (
	scorePrefix        = 100
	scoreContainment   = 90
	scoreOverlapBase   = 50
	scoreOverlapCap    = 89
	acceptThreshold    = 60
	groundingPrefixLen = 64
)

// Resolver binds retrieved snippets back to structured catalog records.
type Resolver struct {
	lex *Lexicon
}

func NewResolver(lex *Lexicon) *Resolver {
	return &Resolver{lex: lex}
}

type normalizedRecord struct {
	record domain.CatalogRecord
	name   string
	prefix string
}

// Resolve returns catalog records for docs in first-seen order. Each record
// is bound at most once. When brand is set, records whose name carries none
// of that brand's aliases are never bound.
func (r *Resolver) Resolve(docs []domain.RetrievedDocument, catalog []domain.CatalogRecord, brand string) []domain.CatalogRecord {
	if len(docs) == 0 || len(catalog) == 0 {
		return []domain.CatalogRecord{}
	}

	aliases := r.lex.BrandAliases(brand)
	candidates := make([]normalizedRecord, 0, len(catalog))
	for _, record := range catalog {
		name := Normalize(record.Name)
		if len(aliases) > 0 && !nameHasAlias(splitTokens(name), aliases) {
			continue
		}
		candidates = append(candidates, normalizedRecord{
			record: record,
			name:   name,
			prefix: runePrefix(Normalize(record.GroundingText), groundingPrefixLen),
		})
	}

	used := make([]bool, len(candidates))
	out := make([]domain.CatalogRecord, 0, len(docs))
	for _, doc := range docs {
		snippet := Normalize(doc.Text)
		if snippet == "" {
			continue
		}
		best, bestScore := -1, 0
		for i := range candidates {
			if used[i] {
				continue
			}
			score := matchScore(snippet, candidates[i])
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 || bestScore <= acceptThreshold {
			continue
		}
		used[best] = true
		out = append(out, candidates[best].record)
	}
	return out
}

func matchScore(snippet string, candidate normalizedRecord) int {
	if candidate.prefix != "" && strings.HasPrefix(snippet, candidate.prefix) {
		return scorePrefix
	}
	if candidate.name == "" {
		return 0
	}
	if strings.Contains(snippet, candidate.name) {
		return scoreContainment
	}
	score := scoreOverlapBase + longestCommonSubstring(snippet, candidate.name)
	if score > scoreOverlapCap {
		score = scoreOverlapCap
	}
	return score
}

func nameHasAlias(nameTokens []string, aliases [][]string) bool {
	for _, alias := range aliases {
		if phrase(alias).indexIn(nameTokens) >= 0 {
			return true
		}
	}
	return false
}

func runePrefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}

// longestCommonSubstring returns the length in runes of the longest run
// shared by a and b.
func longestCommonSubstring(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	best := 0
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > best {
					best = curr[j]
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return best
}
