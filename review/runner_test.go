package review

import (
	"context"
	"errors"
	"testing"

	"github.com/sweetpotato0/bookaudit/policy"
	"github.com/sweetpotato0/bookaudit/verdict"
)

func testAgent() policy.Agent {
	return policy.Agent{Name: "National Security", Threshold: 80}.Resolve()
}

func newTestRunner(judge Invoker, evaluator *Evaluator) *AgentRunner {
	return NewAgentRunner(testAgent(), stubPrompts{}, judge, evaluator, testConfig(), WithRunnerSleep(noSleep))
}

func TestRunnerAcceptsCleanVerdict(t *testing.T) {
	judge := &scriptInvoker{responses: []string{cleanVerdict}}
	evaluator, evalInv := fixedEvaluator(92)
	runner := newTestRunner(judge, evaluator)

	res := runner.Run(context.Background(), Chunk{ID: "c1", Text: "some text"})

	if res.HumanReview {
		t.Errorf("Expected no human review")
	}
	if res.Retries != 0 {
		t.Errorf("Expected 0 retries, got %d", res.Retries)
	}
	if res.Confidence != 92 {
		t.Errorf("Expected confidence 92, got %d", res.Confidence)
	}
	if res.Verdict.Flag != verdict.FlagFalse {
		t.Errorf("Expected flag false, got %s", res.Verdict.Flag)
	}
	if judge.callCount() != 1 {
		t.Errorf("Expected 1 judge call, got %d", judge.callCount())
	}
	if evalInv.callCount() != 1 {
		t.Errorf("Expected 1 evaluator call, got %d", evalInv.callCount())
	}
}

func TestRunnerEscalatesAfterUnparsableOutput(t *testing.T) {
	judge := &scriptInvoker{responses: []string{"I think this chunk is fine, thanks for asking!"}}
	evaluator, evalInv := fixedEvaluator(99)
	runner := newTestRunner(judge, evaluator)

	res := runner.Run(context.Background(), Chunk{ID: "c2", Text: "t"})

	if !res.HumanReview {
		t.Errorf("Expected human review after repeated parse failures")
	}
	if res.Retries != 3 {
		t.Errorf("Expected 3 retries, got %d", res.Retries)
	}
	// Retry budget of 3 means at most 4 judge calls.
	if judge.callCount() != 4 {
		t.Errorf("Expected 4 judge calls, got %d", judge.callCount())
	}
	if evalInv.callCount() != 0 {
		t.Errorf("Evaluator must be skipped on parse failure, got %d calls", evalInv.callCount())
	}
	if res.Verdict.Flag != verdict.FlagHuman {
		t.Errorf("Expected default human flag, got %s", res.Verdict.Flag)
	}
	if res.Verdict.Observation != verdict.DefaultObservation {
		t.Errorf("Expected default observation, got %q", res.Verdict.Observation)
	}
	if res.Confidence != 0 {
		t.Errorf("Expected confidence 0 on defaulted verdict, got %d", res.Confidence)
	}
}

func TestRunnerRetriesOnLowConfidenceThenAccepts(t *testing.T) {
	judge := &scriptInvoker{responses: []string{flaggedVerdict}}
	evaluator, _ := scriptedEvaluator(60, 70, 90)
	runner := newTestRunner(judge, evaluator)

	res := runner.Run(context.Background(), Chunk{ID: "c3", Text: "t"})

	if res.HumanReview {
		t.Errorf("Expected acceptance once confidence clears the threshold")
	}
	if res.Retries != 2 {
		t.Errorf("Expected 2 retries, got %d", res.Retries)
	}
	if res.Confidence != 90 {
		t.Errorf("Expected final confidence 90, got %d", res.Confidence)
	}
	if judge.callCount() != 3 {
		t.Errorf("Expected 3 judge calls, got %d", judge.callCount())
	}
}

func TestRunnerEscalatesOnPersistentLowConfidence(t *testing.T) {
	judge := &scriptInvoker{responses: []string{flaggedVerdict}}
	evaluator, _ := fixedEvaluator(50)
	runner := newTestRunner(judge, evaluator)

	res := runner.Run(context.Background(), Chunk{ID: "c4", Text: "t"})

	if !res.HumanReview {
		t.Errorf("Expected human review after persistent low confidence")
	}
	if res.Retries != 3 {
		t.Errorf("Expected 3 retries, got %d", res.Retries)
	}
	if judge.callCount() != 4 {
		t.Errorf("Expected 4 judge calls, got %d", judge.callCount())
	}
}

func TestRunnerEscalatesImmediatelyOnHumanFlag(t *testing.T) {
	judge := &scriptInvoker{responses: []string{humanVerdict}}
	evaluator, evalInv := fixedEvaluator(95)
	runner := newTestRunner(judge, evaluator)

	res := runner.Run(context.Background(), Chunk{ID: "c5", Text: "t"})

	if !res.HumanReview {
		t.Errorf("Expected human review on judge-emitted human flag")
	}
	if res.Retries != 0 {
		t.Errorf("Expected 0 retries, got %d", res.Retries)
	}
	if judge.callCount() != 1 {
		t.Errorf("Expected 1 judge call, got %d", judge.callCount())
	}
	// The verdict parsed fine, so it was still evaluated before routing.
	if evalInv.callCount() != 1 {
		t.Errorf("Expected 1 evaluator call, got %d", evalInv.callCount())
	}
}

func TestRunnerTransportErrorsConsumeRetries(t *testing.T) {
	judge := &scriptInvoker{
		errs: []error{
			errors.New("connection refused"),
			errors.New("connection refused"),
		},
		responses: []string{"", "", cleanVerdict},
	}
	evaluator, _ := fixedEvaluator(91)
	runner := newTestRunner(judge, evaluator)

	res := runner.Run(context.Background(), Chunk{ID: "c6", Text: "t"})

	if res.HumanReview {
		t.Errorf("Expected recovery after transient transport errors")
	}
	if res.Retries != 2 {
		t.Errorf("Expected 2 retries, got %d", res.Retries)
	}
	if res.Verdict.Flag != verdict.FlagFalse {
		t.Errorf("Expected flag false after recovery, got %s", res.Verdict.Flag)
	}
}

func TestRunnerPromptFailureEscalates(t *testing.T) {
	judge := &scriptInvoker{responses: []string{cleanVerdict}}
	evaluator, _ := fixedEvaluator(95)
	runner := NewAgentRunner(testAgent(), stubPrompts{err: errors.New("unknown agent")}, judge, evaluator, testConfig(), WithRunnerSleep(noSleep))

	res := runner.Run(context.Background(), Chunk{ID: "c7", Text: "t"})

	if !res.HumanReview {
		t.Errorf("Expected human review when the prompt cannot be built")
	}
	if judge.callCount() != 0 {
		t.Errorf("Expected no judge calls, got %d", judge.callCount())
	}
}

func TestRunnerCancelledContextEscalates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	judge := &scriptInvoker{responses: []string{cleanVerdict}}
	evaluator, _ := fixedEvaluator(95)
	runner := newTestRunner(judge, evaluator)

	res := runner.Run(ctx, Chunk{ID: "c8", Text: "t"})
	if !res.HumanReview {
		t.Errorf("Expected human review on cancelled context")
	}
}
