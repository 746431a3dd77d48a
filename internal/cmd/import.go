package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rand/adapt/internal/learning"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import module models from an export file",
	Long: `Restore learned rules from a previously exported snapshot. Modules in
the snapshot that are not currently registered are skipped; an incompatible
snapshot version rejects that module's import whole.`,
	Example: `
# Restore from a backup
adapt import models.json
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read export: %w", err)
		}

		export, err := learning.UnmarshalFullExport(data)
		if err != nil {
			return fmt.Errorf("parse export: %w", err)
		}

		app, err := setupApp(currentConfig())
		if err != nil {
			return err
		}
		defer app.Shutdown()

		if err := app.Registry.ImportAll(cmd.Context(), export); err != nil {
			return err
		}
		fmt.Printf("Imported models from %s (exported %s)\n",
			args[0], formatTime(export.ExportedAt))
		return nil
	},
}
