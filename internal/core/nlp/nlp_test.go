package nlp

import (
	"math"
	"slices"

	"github.com/kirillkom/dalylak/internal/core/domain"
)

var testLex = MustCompile(DefaultProfile())

func makeHistory(n int) []domain.ChatTurn {
	out := make([]domain.ChatTurn, 0, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			out = append(out, domain.ChatTurn{Role: domain.RoleUser, Text: "تمام"})
			continue
		}
		out = append(out, domain.ChatTurn{Role: domain.RoleAssistant, Text: "تحب تعرف ايه كمان؟"})
	}
	return out
}

func near(got, want float64) bool {
	return math.Abs(got-want) <= 1e-9
}

func sameStrings(got, want []string) bool {
	return slices.Equal(got, want)
}
