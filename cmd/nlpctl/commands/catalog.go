package commands

import (
	"github.com/spf13/cobra"

	"github.com/kirillkom/dalylak/internal/bootstrap"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the car catalog",
}

var catalogRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Import the catalog sheet into the serving store and drop the cached snapshot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := openApp(cmd.Context(), cmd, bootstrap.Options{})
		if err != nil {
			return err
		}
		defer app.Close()

		report, err := app.CatalogUC.RefreshCatalog(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	},
}

func init() {
	catalogCmd.AddCommand(catalogRefreshCmd)
	rootCmd.AddCommand(catalogCmd)
}
