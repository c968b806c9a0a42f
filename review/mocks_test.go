package review

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sweetpotato0/bookaudit/config"
)

// scriptInvoker replays a fixed sequence of responses and errors. The last
// response repeats once the script runs out.
type scriptInvoker struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
}

func (s *scriptInvoker) Invoke(ctx context.Context, inv Invocation) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++

	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if len(s.responses) == 0 {
		return "", nil
	}
	if i >= len(s.responses) {
		return s.responses[len(s.responses)-1], nil
	}
	return s.responses[i], nil
}

func (s *scriptInvoker) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubPrompts struct {
	err error
}

func (p stubPrompts) Judge(agentName string, chunk Chunk) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return "review prompt for " + agentName, nil
}

func noSleep(context.Context, time.Duration) {}

func testConfig() config.Review {
	cfg := config.DefaultReview()
	cfg.RetryDelay = 0
	cfg.EvalDelay = 0
	return cfg
}

// fixedEvaluator always returns the given score.
func fixedEvaluator(score int) (*Evaluator, *scriptInvoker) {
	inv := &scriptInvoker{responses: []string{fmt.Sprintf(`{"confidence": %d}`, score)}}
	return NewEvaluator(inv, testConfig(), WithEvalSleep(noSleep)), inv
}

// scriptedEvaluator returns the given scores in order.
func scriptedEvaluator(scores ...int) (*Evaluator, *scriptInvoker) {
	responses := make([]string, len(scores))
	for i, s := range scores {
		responses[i] = fmt.Sprintf(`{"confidence": %d}`, s)
	}
	inv := &scriptInvoker{responses: responses}
	return NewEvaluator(inv, testConfig(), WithEvalSleep(noSleep)), inv
}

const cleanVerdict = `{"chunk_flagged": "false", "observation": "No issues found.", "spans": [], "recommendation": "fact-check", "confidence": 90}`

const flaggedVerdict = `{"chunk_flagged": "true", "observation": "Contradicts the official account.", "spans": [{"quote": "the operation failed"}], "recommendation": "rephrase", "confidence": 85}`

const humanVerdict = `{"chunk_flagged": "human", "observation": "Ambiguous phrasing, cannot decide.", "spans": [], "recommendation": "fact-check", "confidence": 40}`
