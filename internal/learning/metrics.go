package learning

import (
	"time"
)

// Metrics captures a module's learning effectiveness. Produced fresh on
// every Metrics call; the framework never persists them.
type Metrics struct {
	// ModuleID identifies the module the metrics belong to.
	ModuleID string `json:"module_id"`

	// MeasuredAt is when the metrics were computed.
	MeasuredAt time.Time `json:"measured_at"`

	// TotalSamples is the number of retained samples.
	TotalSamples int `json:"total_samples"`

	// TotalRules is the number of learned rules.
	TotalRules int `json:"total_rules"`

	// Accuracy is the fraction of evaluated predictions that were correct.
	Accuracy float64 `json:"accuracy"`

	// Precision is the fraction of matched predictions that were correct.
	Precision float64 `json:"precision"`

	// Recall is the fraction of evaluable inputs that produced a match.
	Recall float64 `json:"recall"`

	// F1 is the harmonic mean of precision and recall.
	F1 float64 `json:"f1"`

	// AvgResponseTime is the mean prediction latency.
	AvgResponseTime time.Duration `json:"avg_response_time"`

	// Custom holds module-specific metrics.
	Custom map[string]any `json:"custom,omitempty"`
}

// F1Score computes the harmonic mean of precision and recall.
func F1Score(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

// Report aggregates metrics across every registered module.
type Report struct {
	// GeneratedAt is when the report was assembled.
	GeneratedAt time.Time `json:"generated_at"`

	// ModuleMetrics maps module id to that module's metrics.
	ModuleMetrics map[string]Metrics `json:"module_metrics"`

	// OverallAccuracy is the unweighted mean of per-module accuracies.
	// Zero when no modules are registered.
	OverallAccuracy float64 `json:"overall_accuracy"`

	// TotalRules sums learned rules across modules.
	TotalRules int `json:"total_rules"`

	// TotalSamples sums retained samples across modules.
	TotalSamples int `json:"total_samples"`
}
