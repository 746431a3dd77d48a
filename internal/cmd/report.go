package cmd

import (
	"fmt"
	"sort"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/rand/adapt/internal/learning"
)

var (
	reportTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	reportModuleStyle = lipgloss.NewStyle().Bold(true)
	reportLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	reportWarnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show a learning effect report",
	Long:  "Aggregate per-module accuracy, rule counts, and sample counts into one report",
	Example: `
# Show the learning report
adapt report
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(currentConfig())
		if err != nil {
			return err
		}
		defer app.Shutdown()

		report := app.Registry.OverallReport(cmd.Context())
		fmt.Println(renderReport(report))
		return nil
	},
}

func renderReport(report learning.Report) string {
	var b strings.Builder

	b.WriteString(reportTitleStyle.Render("Learning Report"))
	b.WriteString("\n")
	b.WriteString(reportLabelStyle.Render("Generated: " + formatTime(report.GeneratedAt)))
	b.WriteString("\n\n")

	ids := make([]string, 0, len(report.ModuleMetrics))
	for id := range report.ModuleMetrics {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		m := report.ModuleMetrics[id]
		b.WriteString(reportModuleStyle.Render(id))
		b.WriteString("\n")
		fmt.Fprintf(&b, "  %s %.1f%%\n", reportLabelStyle.Render("Accuracy:  "), m.Accuracy*100)
		fmt.Fprintf(&b, "  %s %.1f%%\n", reportLabelStyle.Render("Precision: "), m.Precision*100)
		fmt.Fprintf(&b, "  %s %.1f%%\n", reportLabelStyle.Render("Recall:    "), m.Recall*100)
		fmt.Fprintf(&b, "  %s %.2f\n", reportLabelStyle.Render("F1:        "), m.F1)
		fmt.Fprintf(&b, "  %s %d rules, %d samples\n",
			reportLabelStyle.Render("Learned:   "), m.TotalRules, m.TotalSamples)
		if m.AvgResponseTime > 0 {
			fmt.Fprintf(&b, "  %s %s\n", reportLabelStyle.Render("Avg Reply: "), m.AvgResponseTime)
		}
		b.WriteString("\n")
	}

	if len(ids) == 0 {
		b.WriteString(reportWarnStyle.Render("No module metrics available"))
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "%s %.1f%% overall accuracy, %d rules, %d samples",
		reportTitleStyle.Render("Total:"),
		report.OverallAccuracy*100, report.TotalRules, report.TotalSamples)

	return b.String()
}
