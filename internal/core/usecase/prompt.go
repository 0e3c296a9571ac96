package usecase

import (
	"strconv"
	"strings"

	"github.com/kirillkom/dalylak/internal/core/domain"
	"github.com/kirillkom/dalylak/internal/core/nlp"
)

// buildPrompt assembles the generation prompt and the chat history handed to
// the model. The system prompt travels as the first history turn; the prompt
// itself carries search results, the question and the footer.
func buildPrompt(
	templates nlp.PromptTemplates,
	message string,
	docs []domain.RetrievedDocument,
	history []domain.ChatTurn,
) (string, []domain.ChatTurn) {
	sections := make([]string, 0, 3)
	sections = append(sections, resultsSection(templates, docs))
	sections = append(sections, "\n\n"+templates.QuestionHeader+"\n"+message+"\n")

	footer := templates.Footer
	if len(docs) > 0 {
		if templates.ShowResultsDirective != "" {
			footer += "\n\n" + templates.ShowResultsDirective
		}
		if templates.FocusDirective != "" {
			footer += "\n" + templates.FocusDirective
		}
	}
	sections = append(sections, footer)

	chat := make([]domain.ChatTurn, 0, len(history)+1)
	chat = append(chat, domain.ChatTurn{Role: domain.RoleSystem, Text: templates.System})
	for _, turn := range history {
		if turn.Role == domain.RoleUser || turn.Role == domain.RoleAssistant {
			chat = append(chat, turn)
		}
	}
	return strings.Join(sections, "\n"), chat
}

func resultsSection(templates nlp.PromptTemplates, docs []domain.RetrievedDocument) string {
	if len(docs) == 0 {
		return ""
	}
	snippets := make([]string, 0, len(docs))
	for i, doc := range docs {
		snippet := strings.ReplaceAll(templates.Snippet, "{n}", strconv.Itoa(i+1))
		snippet = strings.ReplaceAll(snippet, "{text}", doc.Text)
		snippets = append(snippets, snippet)
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(templates.ResultsHeader)
	b.WriteString("\n")
	b.WriteString(strings.Join(snippets, "\n"))
	if templates.ResultsNote != "" {
		b.WriteString("\n\n")
		b.WriteString(templates.ResultsNote)
	}
	b.WriteString("\n")
	return b.String()
}
