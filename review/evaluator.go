package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/sweetpotato0/bookaudit/config"
	"github.com/sweetpotato0/bookaudit/pkg/logging"
)

const evalPromptTemplate = `You are an impartial evaluator. Another model reviewed a passage of text against a review policy and produced a verdict. Score how confident you are that the verdict is correct and well supported.

Scoring rubric:
- 90-100: verdict clearly follows from the passage, evidence quotes are verbatim and decisive.
- 70-89: verdict is plausible and mostly supported, minor gaps in evidence.
- 40-69: verdict is questionable, evidence is weak, partial, or tangential.
- 0-39: verdict contradicts the passage or cites no real evidence.

--- REVIEW POLICY PROMPT ---
%s

--- MODEL VERDICT ---
%s

Respond with only a JSON object of the form {"confidence": <integer 0-100>} and nothing else.`

var confidencePattern = regexp.MustCompile(`"?confidence"?\s*:\s*(-?\d+(?:\.\d+)?)`)

// Evaluator scores a judge verdict with a second LLM call. It never fails:
// every failure path degrades to the configured fallback score so the run can
// always proceed to routing.
type Evaluator struct {
	invoker  Invoker
	attempts int
	delay    time.Duration
	fallback int
	logger   *slog.Logger
	sleep    func(context.Context, time.Duration)
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithEvalSleep replaces the delay between evaluator attempts, for tests.
func WithEvalSleep(sleep func(context.Context, time.Duration)) EvaluatorOption {
	return func(e *Evaluator) {
		e.sleep = sleep
	}
}

// NewEvaluator creates an Evaluator with the given attempt budget.
func NewEvaluator(invoker Invoker, cfg config.Review, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		invoker:  invoker,
		attempts: cfg.EvalAttempts,
		delay:    cfg.EvalDelay,
		fallback: cfg.FallbackConfidence,
		logger:   logging.WithComponent("evaluator"),
		sleep:    sleepContext,
	}
	if e.attempts < 1 {
		e.attempts = 1
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fallback returns the score substituted when no usable score can be
// extracted.
func (e *Evaluator) Fallback() int {
	return e.fallback
}

// Score evaluates one judge verdict. judgePrompt is the full prompt the judge
// saw and judgeOutput its raw response. Extraction order per attempt: parse
// the response as JSON and read the confidence key; if the JSON parses but
// carries no confidence key, give up immediately and use the fallback; if
// nothing parses, scan for a confidence pattern with a regexp; only when all
// of that fails is the attempt retried.
func (e *Evaluator) Score(ctx context.Context, agent, chunkID, judgePrompt, judgeOutput string) int {
	prompt := fmt.Sprintf(evalPromptTemplate, judgePrompt, judgeOutput)
	inv := Invocation{Agent: agent, ChunkID: chunkID, Prompt: prompt}

	for attempt := 1; attempt <= e.attempts; attempt++ {
		if attempt > 1 {
			e.sleep(ctx, e.delay)
		}

		raw, err := e.invoker.Invoke(ctx, inv)
		if err != nil {
			e.logger.Warn("evaluator call failed",
				"agent", agent, "chunk_id", chunkID, "attempt", attempt, "error", err)
			continue
		}

		score, outcome := extractConfidence(raw)
		switch outcome {
		case confFound:
			return clampScore(score)
		case confMissingKey:
			e.logger.Warn("evaluator returned JSON without confidence key, using fallback",
				"agent", agent, "chunk_id", chunkID)
			return e.fallback
		}

		e.logger.Warn("no confidence score in evaluator output",
			"agent", agent, "chunk_id", chunkID, "attempt", attempt)
	}

	e.logger.Warn("evaluator attempts exhausted, using fallback",
		"agent", agent, "chunk_id", chunkID, "fallback", e.fallback)
	return e.fallback
}

type confOutcome int

const (
	confFound confOutcome = iota
	confMissingKey
	confNotFound
)

// extractConfidence pulls a confidence score out of raw evaluator output.
func extractConfidence(raw string) (float64, confOutcome) {
	for _, candidate := range jsonCandidates(raw) {
		var obj map[string]any
		if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
			continue
		}
		val, present := obj["confidence"]
		if !present {
			return 0, confMissingKey
		}
		switch t := val.(type) {
		case float64:
			return t, confFound
		case string:
			var f float64
			if _, err := fmt.Sscanf(strings.TrimSpace(t), "%g", &f); err == nil {
				return f, confFound
			}
		}
		return 0, confMissingKey
	}

	if m := confidencePattern.FindStringSubmatch(raw); m != nil {
		var f float64
		if _, err := fmt.Sscanf(m[1], "%g", &f); err == nil {
			return f, confFound
		}
	}
	return 0, confNotFound
}

var evalFencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

func jsonCandidates(raw string) []string {
	var out []string
	if m := evalFencedJSON.FindStringSubmatch(raw); m != nil {
		out = append(out, m[1])
	}
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		out = append(out, trimmed)
	}
	return out
}

func clampScore(f float64) int {
	n := int(math.Round(f))
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// sleepContext waits for the duration or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
