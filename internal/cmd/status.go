package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	statusCmd.Flags().BoolP("json", "j", false, "Output as JSON")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show learning module status",
	Long:  "Display the learning stage, pending samples, and last training time of every registered module",
	Example: `
# Show module status
adapt status

# Show status as JSON
adapt status --json
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		app, err := setupApp(currentConfig())
		if err != nil {
			return err
		}
		defer app.Shutdown()

		statuses := app.Registry.AllStatus(cmd.Context())

		if asJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(statuses)
		}

		fmt.Println("Learning Modules")
		fmt.Println("================")
		fmt.Println()

		for _, id := range app.Registry.ModuleIDs() {
			st, ok := statuses[id]
			if !ok {
				fmt.Printf("  %s: status unavailable\n", id)
				continue
			}
			fmt.Printf("  %s\n", id)
			fmt.Printf("    Stage:            %s\n", st.Stage)
			fmt.Printf("    Pending Samples:  %d\n", st.PendingSamples)
			fmt.Printf("    Last Training:    %s\n", formatTime(st.LastTrainingTime))

			if next, err := app.Registry.Scheduler().NextTrainingTime(id); err == nil {
				fmt.Printf("    Next Check:       %s\n", formatTime(next))
			}
			fmt.Println()
		}

		return nil
	},
}
