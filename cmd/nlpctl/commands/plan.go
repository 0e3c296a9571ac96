package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/dalylak/internal/bootstrap"
	"github.com/kirillkom/dalylak/internal/config"
	"github.com/kirillkom/dalylak/internal/core/domain"
	"github.com/kirillkom/dalylak/internal/core/nlp"
)

var planHistory []string

// planCmd shows what the gate and planner make of a message without
// touching any backend.
var planCmd = &cobra.Command{
	Use:   "plan [message]",
	Short: "Show the search decision and retrieval plan for a message",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		newLogger(cmd)
		lex, err := bootstrap.LoadLexicon(config.Load().NLPProfilePath)
		if err != nil {
			return err
		}

		message := strings.Join(args, " ")
		history := historyFromFlags(planHistory)
		decision := nlp.NewGate(lex).Decide(message, history)
		plan := nlp.NewPlanner(lex).Plan(message, history, queryTopK)

		return printJSON(cmd.OutOrStdout(), map[string]any{
			"normalized": nlp.Normalize(message),
			"search":     decision.Search,
			"reason":     decision.Reason,
			"features":   lex.ExtractFeatures(message),
			"plan":       plan,
		})
	},
}

// historyFromFlags alternates user and assistant turns, starting with user.
func historyFromFlags(lines []string) []domain.ChatTurn {
	turns := make([]domain.ChatTurn, 0, len(lines))
	for i, line := range lines {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		turns = append(turns, domain.ChatTurn{Role: role, Text: line})
	}
	return turns
}

func init() {
	planCmd.Flags().StringArrayVar(&planHistory, "history", nil, "prior turns, alternating user and assistant")
	planCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "requested top k")
	rootCmd.AddCommand(planCmd)
}
