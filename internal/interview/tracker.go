package interview

import (
	"strings"
	"sync"

	"github.com/antzucaro/matchr"
)

// defaultCoverageThreshold is the minimum Jaro-Winkler similarity between an
// agent utterance window and a planned question for the question to count as
// asked. Interviewers rephrase, so exact matching is useless; 0.78 accepts
// light rewording while rejecting unrelated questions.
const defaultCoverageThreshold = 0.78

// TrackerOption is a functional option for configuring a [CoverageTracker].
type TrackerOption func(*CoverageTracker)

// WithCoverageThreshold overrides the similarity threshold. Range (0.0, 1.0].
func WithCoverageThreshold(threshold float64) TrackerOption {
	return func(t *CoverageTracker) {
		t.threshold = threshold
	}
}

// CoverageTracker matches agent utterances against the planned question list
// to track which questions have been asked. Safe for concurrent use.
type CoverageTracker struct {
	threshold float64

	mu        sync.Mutex
	questions []Question
	covered   map[string]bool // question ID → asked
}

// NewTracker returns a tracker over the given questions.
func NewTracker(questions []Question, opts ...TrackerOption) *CoverageTracker {
	t := &CoverageTracker{
		threshold: defaultCoverageThreshold,
		questions: append([]Question(nil), questions...),
		covered:   make(map[string]bool, len(questions)),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Observe scores an agent utterance against every not-yet-covered question
// and returns the questions it newly covers. Observing the same question
// twice has no further effect.
func (t *CoverageTracker) Observe(agentText string) []Question {
	utterance := strings.ToLower(strings.TrimSpace(agentText))
	if utterance == "" {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var newly []Question
	for _, q := range t.questions {
		if t.covered[q.ID] {
			continue
		}
		if coverageScore(utterance, strings.ToLower(q.Text)) >= t.threshold {
			t.covered[q.ID] = true
			newly = append(newly, q)
		}
	}
	return newly
}

// Covered returns the questions asked so far, in plan order.
func (t *CoverageTracker) Covered() []Question {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Question
	for _, q := range t.questions {
		if t.covered[q.ID] {
			out = append(out, q)
		}
	}
	return out
}

// Remaining returns the questions not yet asked, in plan order.
func (t *CoverageTracker) Remaining() []Question {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Question
	for _, q := range t.questions {
		if !t.covered[q.ID] {
			out = append(out, q)
		}
	}
	return out
}

// Complete reports whether every planned question has been asked.
func (t *CoverageTracker) Complete() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.covered) == len(t.questions)
}

// coverageScore computes the best Jaro-Winkler similarity between the
// question and the utterance using two strategies:
//
//  1. Full-string comparison, for short utterances that are mostly the
//     question itself.
//  2. Sliding token window of the question's length over the utterance, so a
//     question embedded in a longer turn still scores high.
//
// Verbatim containment short-circuits to a perfect score.
func coverageScore(utterance, question string) float64 {
	if strings.Contains(utterance, question) {
		return 1
	}

	score := matchr.JaroWinkler(utterance, question, false)

	qTokens := strings.Fields(question)
	uTokens := strings.Fields(utterance)
	n := len(qTokens)
	for i := 0; i+n <= len(uTokens); i++ {
		window := strings.Join(uTokens[i:i+n], " ")
		if s := matchr.JaroWinkler(window, question, false); s > score {
			score = s
		}
	}
	return score
}
