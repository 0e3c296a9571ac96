package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/dalylak/internal/bootstrap"
	"github.com/kirillkom/dalylak/internal/core/domain"
)

var (
	indexReset bool
	indexQueue bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage a project's vector collection",
}

var indexPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Embed the project's chunks and upsert them into its collection",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireProject(); err != nil {
			return err
		}
		ctx := cmd.Context()
		app, err := openApp(ctx, cmd, bootstrap.Options{Queue: indexQueue, Chunks: !indexQueue})
		if err != nil {
			return err
		}
		defer app.Close()

		if indexQueue {
			req := domain.IndexRequest{ProjectID: projectID, Reset: indexReset}
			if err := app.Queue.PublishIndexRequest(ctx, req); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"signal": "index_queued", "request": req})
		}
		report, err := app.IndexerUC.IndexProject(ctx, projectID, indexReset)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	},
}

var indexInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the project's collection info",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireProject(); err != nil {
			return err
		}
		app, err := openApp(cmd.Context(), cmd, bootstrap.Options{Chunks: true})
		if err != nil {
			return err
		}
		defer app.Close()

		info, err := app.IndexerUC.CollectionInfo(cmd.Context(), projectID)
		if err != nil {
			return err
		}
		if info == nil {
			return fmt.Errorf("collection %s not found", domain.CollectionName(projectID))
		}
		return printJSON(cmd.OutOrStdout(), info)
	},
}

var indexDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Drop the project's collection",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireProject(); err != nil {
			return err
		}
		app, err := openApp(cmd.Context(), cmd, bootstrap.Options{Chunks: true})
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.IndexerUC.DeleteProjectIndex(cmd.Context(), projectID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", domain.CollectionName(projectID))
		return nil
	},
}

func init() {
	indexPushCmd.Flags().BoolVar(&indexReset, "reset", false, "recreate the collection before upserting")
	indexPushCmd.Flags().BoolVar(&indexQueue, "queue", false, "publish the job to the worker queue instead of running it here")
	indexCmd.AddCommand(indexPushCmd, indexInfoCmd, indexDeleteCmd)
	rootCmd.AddCommand(indexCmd)
}
