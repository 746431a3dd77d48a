package learning

import (
	"time"
)

// TrainingResult reports the outcome of one training pass.
type TrainingResult struct {
	// Success reports whether the pass completed.
	Success bool `json:"success"`

	// SamplesUsed is the number of samples the pass consumed.
	SamplesUsed int `json:"samples_used"`

	// RulesGenerated is the number of rules the pass produced.
	RulesGenerated int `json:"rules_generated"`

	// TrainingTime is how long the pass took.
	TrainingTime time.Duration `json:"training_time"`

	// NewMetrics are the metrics measured right after the pass, if any.
	NewMetrics *Metrics `json:"new_metrics,omitempty"`

	// ErrorMessage describes the failure when Success is false.
	ErrorMessage string `json:"error_message,omitempty"`
}

// FailedTraining builds the TrainingResult the orchestrator records when a
// module's train call propagates an error.
func FailedTraining(err error) TrainingResult {
	msg := "training failed"
	if err != nil {
		msg = err.Error()
	}
	return TrainingResult{Success: false, ErrorMessage: msg}
}

// PredictionSource identifies what produced a prediction.
type PredictionSource string

const (
	// PredictLearnedRule means a learned rule matched.
	PredictLearnedRule PredictionSource = "learned_rule"

	// PredictDefaultRule means a system default rule matched.
	PredictDefaultRule PredictionSource = "default_rule"

	// PredictModelInference means a statistical model produced the result.
	PredictModelInference PredictionSource = "model_inference"

	// PredictFallback means nothing matched.
	PredictFallback PredictionSource = "fallback"
)

// Prediction is the result of a predict call. Absence of a match is a
// normal result, never an error.
type Prediction struct {
	// Matched reports whether any rule or model produced a result.
	Matched bool `json:"matched"`

	// MatchedRule is the rule that matched, when one did.
	MatchedRule *Rule `json:"matched_rule,omitempty"`

	// Result is the predicted output.
	Result any `json:"result,omitempty"`

	// Confidence is the prediction confidence in [0,1]. Zero on fallback.
	Confidence float64 `json:"confidence"`

	// Source indicates what produced the prediction.
	Source PredictionSource `json:"source"`
}

// NoMatch is the prediction returned when nothing applies to an input.
func NoMatch() Prediction {
	return Prediction{Matched: false, Confidence: 0, Source: PredictFallback}
}
