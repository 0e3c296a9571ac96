package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/dalylak/internal/bootstrap"
	"github.com/kirillkom/dalylak/internal/core/domain"
)

var (
	queryTopK    int
	askSessionID string
	askVerbose   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [message]",
	Short: "Retrieve and rerank chunks for a message",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireProject(); err != nil {
			return err
		}
		app, err := openApp(cmd.Context(), cmd, bootstrap.Options{})
		if err != nil {
			return err
		}
		defer app.Close()

		docs, err := app.SearchUC.Search(cmd.Context(), domain.SearchRequest{
			ProjectID: projectID,
			Message:   strings.Join(args, " "),
			TopK:      queryTopK,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), docs)
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Answer one message, or read messages from stdin when none is given",
	Long: `ask runs the full conversational turn. Without arguments it reads one
message per line from stdin and keeps the session across lines.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireProject(); err != nil {
			return err
		}
		app, err := openApp(cmd.Context(), cmd, bootstrap.Options{})
		if err != nil {
			return err
		}
		defer app.Close()

		answer := func(message string) error {
			result, err := app.TurnUC.AnswerTurn(cmd.Context(), domain.TurnRequest{
				ProjectID: projectID,
				SessionID: askSessionID,
				Message:   message,
				TopK:      queryTopK,
			})
			if askVerbose && result != nil {
				if perr := printJSON(cmd.ErrOrStderr(), result); perr != nil {
					return perr
				}
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Answer)
			return nil
		}

		if len(args) > 0 {
			return answer(strings.Join(args, " "))
		}

		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if err := answer(line); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			}
		}
		return scanner.Err()
	},
}

func init() {
	searchCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of chunks to return")
	askCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of chunks to ground on")
	askCmd.Flags().StringVarP(&askSessionID, "session", "s", "", "session id (defaults to the project id)")
	askCmd.Flags().BoolVarP(&askVerbose, "verbose", "v", false, "print the full turn result to stderr")
	rootCmd.AddCommand(searchCmd, askCmd)
}
