package review

import (
	"github.com/sweetpotato0/bookaudit/verdict"
)

// State of one (chunk, agent) run.
type State string

const (
	StateRunning            State = "running"
	StateAwaitingEvaluation State = "awaiting_evaluation"
	StateAccepted           State = "accepted"
	StateHumanReview        State = "human_review"
)

// Terminal reports whether the state ends the run.
func (s State) Terminal() bool {
	return s == StateAccepted || s == StateHumanReview
}

// Decision is the router's routing outcome for one attempt.
type Decision int

const (
	DecisionRetry Decision = iota
	DecisionAccept
	DecisionEscalate
)

func (d Decision) String() string {
	switch d {
	case DecisionRetry:
		return "retry"
	case DecisionAccept:
		return "accept"
	case DecisionEscalate:
		return "escalate"
	}
	return "unknown"
}

// Attempt is the material the router decides on: the (possibly defaulted)
// verdict of one judge call, whether the call failed outright, and the
// evaluator's confidence score for it.
type Attempt struct {
	Verdict     verdict.Verdict
	ParseFailed bool
	CallErr     error
	Confidence  int
}

// Recoverable reports whether the attempt failed in a way that the retry
// budget covers: a transport error or output no parser could recover.
func (a Attempt) Recoverable() bool {
	return a.CallErr != nil || a.ParseFailed
}

// Router decides, after each judge attempt, whether to retry, accept, or
// escalate to human review. It is pure: the same attempt and retry count
// always produce the same decision.
//
// Rules, in order:
//
//  1. A verdict the judge itself flagged "human" escalates immediately,
//     regardless of retries remaining.
//  2. A failed attempt (transport error or unparsable output) or a
//     confidence below the threshold retries while budget remains, and
//     escalates once it is spent.
//  3. Confidence at or above the threshold accepts.
type Router struct {
	Threshold  int
	MaxRetries int
}

// Route returns the decision for an attempt given the retries already
// consumed.
func (r Router) Route(a Attempt, retries int) Decision {
	if a.Verdict.Flag == verdict.FlagHuman && !a.Recoverable() {
		return DecisionEscalate
	}
	if a.Recoverable() || a.Confidence < r.Threshold {
		if retries < r.MaxRetries {
			return DecisionRetry
		}
		return DecisionEscalate
	}
	return DecisionAccept
}
