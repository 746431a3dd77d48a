package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	exportCmd.Flags().StringP("output", "o", "", "Write the export to a file instead of stdout")
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all module models",
	Long: `Snapshot every registered module's learned rules into one versioned
JSON document, suitable for backup or migration to another device.`,
	Example: `
# Export to stdout
adapt export

# Export to a backup file
adapt export -o models.json
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		app, err := setupApp(currentConfig())
		if err != nil {
			return err
		}
		defer app.Shutdown()

		export := app.Registry.ExportAll(cmd.Context())
		data, err := export.Marshal()
		if err != nil {
			return fmt.Errorf("marshal export: %w", err)
		}

		if output == "" {
			_, err = os.Stdout.Write(append(data, '\n'))
			return err
		}

		if err := os.WriteFile(output, data, 0o600); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Printf("Exported %d module(s) to %s\n", len(export.Modules), output)
		return nil
	},
}
