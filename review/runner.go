package review

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sweetpotato0/bookaudit/config"
	"github.com/sweetpotato0/bookaudit/pkg/logging"
	"github.com/sweetpotato0/bookaudit/pkg/telemetry"
	"github.com/sweetpotato0/bookaudit/policy"
	"github.com/sweetpotato0/bookaudit/verdict"
)

// AgentRunner drives the review of one chunk by one agent to a terminal
// state. Each cycle calls the judge, parses the output, scores it with the
// evaluator and routes the attempt; routing either accepts, escalates to
// human review, or consumes one retry and loops. The retry budget bounds the
// loop: with the default budget of three retries the judge is called at most
// four times per run.
//
// A runner holds no per-run state and is safe for concurrent use.
type AgentRunner struct {
	agent      policy.Agent
	prompts    PromptBuilder
	judge      Invoker
	evaluator  *Evaluator
	parser     *verdict.Parser
	router     Router
	retryDelay time.Duration
	logger     *slog.Logger
	sleep      func(context.Context, time.Duration)
}

// RunnerOption configures an AgentRunner.
type RunnerOption func(*AgentRunner)

// WithRunnerSleep replaces the delay between judge retries, for tests.
func WithRunnerSleep(sleep func(context.Context, time.Duration)) RunnerOption {
	return func(r *AgentRunner) {
		r.sleep = sleep
	}
}

// NewAgentRunner creates a runner for one agent.
func NewAgentRunner(agent policy.Agent, prompts PromptBuilder, judge Invoker, evaluator *Evaluator, cfg config.Review, opts ...RunnerOption) *AgentRunner {
	r := &AgentRunner{
		agent:     agent,
		prompts:   prompts,
		judge:     judge,
		evaluator: evaluator,
		parser:    verdict.NewParser(nil),
		router: Router{
			Threshold:  agent.Threshold,
			MaxRetries: cfg.MaxRetries,
		},
		retryDelay: cfg.RetryDelay,
		logger:     logging.WithComponent("runner").With("agent", agent.Name),
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Agent returns the persona this runner reviews for.
func (r *AgentRunner) Agent() policy.Agent {
	return r.agent
}

// Run reviews one chunk and always returns a terminal result. Errors along
// the way (transport failures, unparsable output) are folded into the retry
// machinery rather than surfaced; only a prompt that cannot be built at all
// short-circuits straight to human review.
func (r *AgentRunner) Run(ctx context.Context, chunk Chunk) RunResult {
	tracer := otel.Tracer("bookaudit/review")
	ctx, span := tracer.Start(ctx, "review.agent_run")
	span.SetAttributes(
		attribute.String("agent", r.agent.Name),
		attribute.String("chunk_id", chunk.ID),
	)
	defer telemetry.End(span, nil)

	prompt, err := r.prompts.Judge(r.agent.Name, chunk)
	if err != nil {
		r.logger.Error("prompt build failed, escalating to human review",
			"chunk_id", chunk.ID, "error", err)
		return r.terminal(chunk, verdict.ErrorVerdict(fmt.Sprintf("Failed to build review prompt: %v", err)), 0, 0, StateHumanReview)
	}
	inv := Invocation{Agent: r.agent.Name, ChunkID: chunk.ID, Prompt: prompt}

	retries := 0
	state := StateRunning
	var attempt Attempt
	for !state.Terminal() {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("run cancelled, escalating to human review",
				"chunk_id", chunk.ID, "error", err)
			attempt = Attempt{Verdict: verdict.ErrorVerdict(fmt.Sprintf("Review cancelled: %v", err)), CallErr: err}
			state = StateHumanReview
			break
		}

		attempt = r.attempt(ctx, inv, chunk)
		state = StateAwaitingEvaluation

		decision := r.router.Route(attempt, retries)
		r.logger.Debug("attempt routed",
			"chunk_id", chunk.ID,
			"decision", decision.String(),
			"flag", attempt.Verdict.Flag,
			"confidence", attempt.Confidence,
			"retries", retries)

		switch decision {
		case DecisionAccept:
			state = StateAccepted
		case DecisionEscalate:
			state = StateHumanReview
		case DecisionRetry:
			retries++
			r.sleep(ctx, r.retryDelay)
			state = StateRunning
		}
	}

	if state == StateHumanReview {
		r.logger.Info("escalated to human review",
			"chunk_id", chunk.ID, "retries", retries, "flag", attempt.Verdict.Flag)
	}
	return r.terminal(chunk, attempt.Verdict, attempt.Confidence, retries, state)
}

// attempt performs one judge call, parse and evaluation cycle. The evaluator
// is skipped when the call failed or nothing parsable came back; scoring a
// defaulted verdict would be meaningless, so the confidence stays zero.
func (r *AgentRunner) attempt(ctx context.Context, inv Invocation, chunk Chunk) Attempt {
	raw, err := r.judge.Invoke(ctx, inv)
	if err != nil {
		r.logger.Warn("judge call failed", "chunk_id", chunk.ID, "error", err)
		return Attempt{
			Verdict: verdict.ErrorVerdict(fmt.Sprintf("LLM call failed: %v", err)),
			CallErr: err,
		}
	}

	v, parseErr := r.parser.Parse(raw)
	if parseErr != nil {
		return Attempt{Verdict: v, ParseFailed: true}
	}

	score := r.evaluator.Score(ctx, inv.Agent, inv.ChunkID, inv.Prompt, raw)
	return Attempt{Verdict: v, Confidence: score}
}

func (r *AgentRunner) terminal(chunk Chunk, v verdict.Verdict, confidence, retries int, state State) RunResult {
	return RunResult{
		Agent:       r.agent.Name,
		Verdict:     v,
		Confidence:  confidence,
		Retries:     retries,
		HumanReview: state == StateHumanReview,
		CompletedAt: time.Now().UTC(),
	}
}
