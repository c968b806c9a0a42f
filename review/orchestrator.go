package review

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sweetpotato0/bookaudit/errors"
	"github.com/sweetpotato0/bookaudit/pkg/logging"
	"github.com/sweetpotato0/bookaudit/pkg/telemetry"
)

// Orchestrator fans a chunk out to every configured agent in parallel,
// waits for all of them to terminate, and merges the results into one
// AggregateReport. Concurrency is bounded by a semaphore; persistence and
// idempotence are delegated to the optional ResultSink and StatusStore.
type Orchestrator struct {
	runners   []*AgentRunner
	semaphore chan struct{}
	sink      ResultSink
	status    StatusStore
	logger    *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithConcurrency bounds how many agent runs execute at once per chunk.
func WithConcurrency(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.semaphore = make(chan struct{}, n)
		}
	}
}

// WithResultSink sets where terminal results are persisted.
func WithResultSink(sink ResultSink) OrchestratorOption {
	return func(o *Orchestrator) {
		o.sink = sink
	}
}

// WithStatusStore sets the store consulted to skip already-complete chunks.
func WithStatusStore(status StatusStore) OrchestratorOption {
	return func(o *Orchestrator) {
		o.status = status
	}
}

// NewOrchestrator creates an orchestrator over the given agent runners.
func NewOrchestrator(runners []*AgentRunner, opts ...OrchestratorOption) (*Orchestrator, error) {
	if len(runners) == 0 {
		return nil, fmt.Errorf("create orchestrator: %w", errors.ErrNoAgents)
	}
	o := &Orchestrator{
		runners:   runners,
		semaphore: make(chan struct{}, len(runners)),
		logger:    logging.WithComponent("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// ReviewChunk runs every agent against the chunk and returns the merged
// report. Chunks already marked Complete in the status store are skipped
// without any LLM calls. The report is only persisted after every agent has
// reached a terminal state; persistence failures are reported in the returned
// error but never lose the in-memory report.
func (o *Orchestrator) ReviewChunk(ctx context.Context, chunk Chunk) (AggregateReport, error) {
	tracer := otel.Tracer("bookaudit/review")
	ctx, span := tracer.Start(ctx, "review.chunk")
	span.SetAttributes(
		attribute.String("chunk_id", chunk.ID),
		attribute.Int("agents", len(o.runners)),
	)
	var retErr error
	defer func() { telemetry.End(span, retErr) }()

	if o.status != nil {
		st, err := o.status.Status(ctx, chunk.ID)
		if err != nil {
			o.logger.Warn("status lookup failed, reviewing anyway",
				"chunk_id", chunk.ID, "error", err)
		} else if st == StatusComplete {
			o.logger.Info("chunk already complete, skipping", "chunk_id", chunk.ID)
			return AggregateReport{
				ChunkID:    chunk.ID,
				Status:     StatusComplete,
				Results:    map[string]RunResult{},
				Skipped:    true,
				FinishedAt: time.Now().UTC(),
			}, nil
		}
	}

	results := make(map[string]RunResult, len(o.runners))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, runner := range o.runners {
		wg.Add(1)
		go func(runner *AgentRunner) {
			defer wg.Done()
			select {
			case o.semaphore <- struct{}{}:
				defer func() { <-o.semaphore }()
			case <-ctx.Done():
				return
			}

			res := runner.Run(ctx, chunk)
			mu.Lock()
			results[res.Agent] = res
			mu.Unlock()
		}(runner)
	}
	wg.Wait()

	report := AggregateReport{
		ChunkID:    chunk.ID,
		Status:     o.deriveStatus(results),
		Results:    results,
		FinishedAt: time.Now().UTC(),
	}
	o.logger.Info("chunk reviewed",
		"chunk_id", chunk.ID,
		"status", string(report.Status),
		"agents", len(results))

	retErr = o.persist(ctx, chunk, report)
	return report, retErr
}

// deriveStatus is Complete only when every configured agent terminated with a
// schema-conformant verdict; anything less leaves the chunk Pending for a
// later pass.
func (o *Orchestrator) deriveStatus(results map[string]RunResult) Status {
	if len(results) != len(o.runners) {
		return StatusPending
	}
	for _, res := range results {
		if !res.Conformant() {
			return StatusPending
		}
	}
	return StatusComplete
}

func (o *Orchestrator) persist(ctx context.Context, chunk Chunk, report AggregateReport) error {
	if o.sink == nil {
		return nil
	}

	var errs []error
	for _, res := range report.Results {
		if err := o.sink.SaveAgentResult(ctx, chunk, res); err != nil {
			errs = append(errs, fmt.Errorf("save agent result %s: %w", res.Agent, err))
		}
	}
	if err := o.sink.SaveAggregate(ctx, chunk, report); err != nil {
		errs = append(errs, fmt.Errorf("save aggregate: %w", err))
	}

	if o.status != nil {
		if err := o.status.MarkStatus(ctx, chunk.ID, report.Status); err != nil {
			errs = append(errs, fmt.Errorf("mark status: %w", err))
		}
	}

	if len(errs) > 0 {
		for _, err := range errs {
			o.logger.Error("persistence failed", "chunk_id", chunk.ID, "error", err)
		}
		return stderrors.Join(errs...)
	}
	return nil
}
