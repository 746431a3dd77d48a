package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	trainCmd.Flags().Bool("full", false, "Force a full (non-incremental) retrain")
}

var trainCmd = &cobra.Command{
	Use:   "train [module...]",
	Short: "Train learning modules now",
	Long: `Run a training pass immediately, bypassing the scheduler's interval
check. Without arguments every registered module trains; otherwise only the
named modules do.`,
	Example: `
# Incrementally train all modules
adapt train

# Fully retrain the intent module from scratch
adapt train --full intent_disambiguation
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		full, _ := cmd.Flags().GetBool("full")

		app, err := setupApp(currentConfig())
		if err != nil {
			return err
		}
		defer app.Shutdown()

		ctx := cmd.Context()

		if full {
			ids := args
			if len(ids) == 0 {
				ids = app.Registry.ModuleIDs()
			}
			var firstErr error
			for _, id := range ids {
				result, err := app.Registry.Scheduler().TriggerImmediateTraining(ctx, id)
				if err != nil {
					fmt.Printf("  %s: failed: %v\n", id, err)
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				fmt.Printf("  %s: %d samples, %d rules, %s\n",
					id, result.SamplesUsed, result.RulesGenerated, result.TrainingTime)
			}
			return firstErr
		}

		if len(args) > 0 {
			var firstErr error
			for _, id := range args {
				m, ok := app.Registry.Module(id)
				if !ok {
					fmt.Printf("  %s: not registered\n", id)
					continue
				}
				result, err := m.Train(ctx, true)
				if err != nil {
					fmt.Printf("  %s: failed: %v\n", id, err)
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				fmt.Printf("  %s: %d samples, %d rules, %s\n",
					id, result.SamplesUsed, result.RulesGenerated, result.TrainingTime)
			}
			return firstErr
		}

		results := app.Registry.TrainAll(ctx)
		for _, id := range app.Registry.ModuleIDs() {
			result := results[id]
			if !result.Success {
				fmt.Printf("  %s: failed: %s\n", id, result.ErrorMessage)
				continue
			}
			fmt.Printf("  %s: %d samples, %d rules, %s\n",
				id, result.SamplesUsed, result.RulesGenerated, result.TrainingTime)
		}
		return nil
	},
}
