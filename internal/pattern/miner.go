package pattern

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rand/adapt/internal/learning"
)

// MinerConfig configures rule mining.
type MinerConfig struct {
	// MinGroupSize is the smallest outcome group that can produce rules.
	// Default: 3.
	MinGroupSize int

	// FrequencyRatio is the fraction of a group a candidate must appear in
	// (threshold = ceil(ratio * groupSize)). Default: 0.3.
	FrequencyRatio float64

	// MaxCandidates caps candidates kept per group. Default: 5.
	MaxCandidates int

	// MinSuccessRate is the empirical success rate, measured over the
	// whole sample population, a candidate needs to become a rule.
	// Default: 0.6.
	MinSuccessRate float64

	// MinTokenLen drops shorter single tokens. Default: 2.
	MinTokenLen int
}

// Miner extracts trigger-pattern rules from groups of resolved samples.
// Each mining pass is a from-scratch rebuild: the returned rules are meant
// to replace the module's entire rule set, never to be merged in.
type Miner struct {
	cfg MinerConfig
}

// NewMiner creates a miner, applying defaults for zero config values.
func NewMiner(cfg MinerConfig) *Miner {
	if cfg.MinGroupSize == 0 {
		cfg.MinGroupSize = 3
	}
	if cfg.FrequencyRatio == 0 {
		cfg.FrequencyRatio = 0.3
	}
	if cfg.MaxCandidates == 0 {
		cfg.MaxCandidates = 5
	}
	if cfg.MinSuccessRate == 0 {
		cfg.MinSuccessRate = 0.6
	}
	if cfg.MinTokenLen == 0 {
		cfg.MinTokenLen = 2
	}
	return &Miner{cfg: cfg}
}

// Candidate is a trigger pattern observed frequently within one group.
type Candidate struct {
	Pattern   string
	Frequency int
}

// Mine builds rules for moduleID from the labeled samples. Samples without
// text or label are ignored. Every returned rule satisfies the mining
// invariants: its originating group had at least MinGroupSize samples and
// its empirical success rate over the full population is at least
// MinSuccessRate.
func (m *Miner) Mine(moduleID string, samples []learning.Sample) []learning.Rule {
	groups := make(map[string][]string)
	type labeled struct {
		text  string
		label string
	}
	var population []labeled

	for _, s := range samples {
		text := strings.ToLower(strings.TrimSpace(s.Text()))
		if text == "" || s.Label == "" {
			continue
		}
		groups[s.Label] = append(groups[s.Label], text)
		population = append(population, labeled{text: text, label: s.Label})
	}

	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var rules []learning.Rule
	now := time.Now()

	for _, label := range labels {
		group := groups[label]
		if len(group) < m.cfg.MinGroupSize {
			continue
		}

		for _, cand := range m.ExtractCandidates(group) {
			matches, hits := 0, 0
			for _, p := range population {
				if strings.Contains(p.text, cand.Pattern) {
					matches++
					if p.label == label {
						hits++
					}
				}
			}
			if matches == 0 {
				continue
			}
			successRate := float64(hits) / float64(matches)
			if successRate < m.cfg.MinSuccessRate {
				continue
			}

			rules = append(rules, learning.Rule{
				ID:           uuid.New().String(),
				ModuleID:     moduleID,
				Patterns:     []string{cand.Pattern},
				Result:       label,
				Priority:     100,
				Confidence:   successRate,
				SuccessCount: hits,
				TotalCount:   matches,
				Source:       learning.RuleSourceUserLearned,
				CreatedAt:    now,
			})
		}
	}

	return rules
}

// ExtractCandidates tokenizes each text on whitespace (case-folded),
// retains single tokens of MinTokenLen or longer plus all adjacent token
// bigrams, and keeps the MaxCandidates highest-frequency patterns whose
// frequency reaches ceil(FrequencyRatio * groupSize). Frequency counts the
// texts a pattern occurs in, not repeated occurrences within one text.
func (m *Miner) ExtractCandidates(group []string) []Candidate {
	freq := make(map[string]int)

	for _, text := range group {
		tokens := strings.Fields(strings.ToLower(text))
		seen := make(map[string]struct{})

		for i, tok := range tokens {
			if len([]rune(tok)) >= m.cfg.MinTokenLen {
				seen[tok] = struct{}{}
			}
			if i+1 < len(tokens) {
				seen[tok+" "+tokens[i+1]] = struct{}{}
			}
		}
		for p := range seen {
			freq[p]++
		}
	}

	threshold := int(math.Ceil(m.cfg.FrequencyRatio * float64(len(group))))
	candidates := make([]Candidate, 0, len(freq))
	for p, f := range freq {
		if f >= threshold {
			candidates = append(candidates, Candidate{Pattern: p, Frequency: f})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Frequency != candidates[j].Frequency {
			return candidates[i].Frequency > candidates[j].Frequency
		}
		return candidates[i].Pattern < candidates[j].Pattern
	})

	if len(candidates) > m.cfg.MaxCandidates {
		candidates = candidates[:m.cfg.MaxCandidates]
	}
	return candidates
}
