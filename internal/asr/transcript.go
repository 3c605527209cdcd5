package asr

import "strings"

// Accumulator assembles the transcript from a stream of result messages.
// Partial results are hypotheses that may be revised, so each partial
// replaces the previous one; a final result commits its text permanently.
// Word groups arrive in utterance order and within each group the best
// scoring candidate is kept.
type Accumulator struct {
	committed strings.Builder
	volatile  string
}

// NewAccumulator creates an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Apply folds one recognition result into the transcript. A nil result
// is ignored.
func (a *Accumulator) Apply(result *RecognitionResult, final bool) {
	if result == nil {
		return
	}

	var sb strings.Builder
	for _, group := range result.WS {
		sb.WriteString(group.Best().W)
	}

	if final {
		a.committed.WriteString(sb.String())
		a.volatile = ""
		return
	}
	a.volatile = sb.String()
}

// Text returns the current transcript, committed text followed by the
// latest uncommitted hypothesis
func (a *Accumulator) Text() string {
	return a.committed.String() + a.volatile
}
