package review

import (
	"context"
	"time"

	"github.com/sweetpotato0/bookaudit/verdict"
)

// Chunk is one bounded span of book text submitted for review, together with
// its neighbouring context. Page and BBox exist only for downstream
// highlighting and are carried through untouched. Immutable once created.
type Chunk struct {
	ID       string
	DocID    string
	Title    string
	Index    int
	Text     string
	Previous string
	Next     string

	Page int
	BBox []float64

	// Optional upstream classification, carried through to the result
	// document when present.
	PredictedLabel string
	LabelScores    map[string]float64
}

// RunResult is the terminal outcome of one (chunk, agent) review: the
// verdict, the evaluator's confidence score, the retries consumed and whether
// the run escalated to human review. Immutable after completion.
type RunResult struct {
	Agent       string
	Verdict     verdict.Verdict
	Confidence  int
	Retries     int
	HumanReview bool
	CompletedAt time.Time
}

// Conformant reports whether the result's verdict satisfies the output
// schema.
func (r RunResult) Conformant() bool {
	return r.Verdict.Conformant()
}

// Status is the review state of a chunk as recorded in the store.
type Status string

const (
	StatusComplete Status = "Complete"
	StatusPending  Status = "Pending"
)

// AggregateReport merges all agent results for one chunk. Status is Complete
// only when every configured agent produced a schema-conformant terminal
// result; Pending signals the caller to re-queue the chunk.
type AggregateReport struct {
	ChunkID    string
	Status     Status
	Results    map[string]RunResult
	Skipped    bool
	FinishedAt time.Time
}

// Invocation is one prompt bound for an LLM backend, tagged with the agent
// and chunk it belongs to for auditing.
type Invocation struct {
	Agent   string
	ChunkID string
	Prompt  string
}

// Invoker sends a prompt to an LLM and returns the raw response text. Both
// judge and evaluator calls go through this interface; failures are
// recoverable and feed the retry machinery.
type Invoker interface {
	Invoke(ctx context.Context, inv Invocation) (string, error)
}

// PromptBuilder produces the judge prompt for a (agent, chunk) pair. It must
// be deterministic for identical agent configuration.
type PromptBuilder interface {
	Judge(agentName string, chunk Chunk) (string, error)
}

// ResultSink persists terminal results. The core calls these only after a
// run or a whole chunk reached a terminal state.
type ResultSink interface {
	SaveAgentResult(ctx context.Context, chunk Chunk, result RunResult) error
	SaveAggregate(ctx context.Context, chunk Chunk, report AggregateReport) error
}

// StatusStore exposes the pending/complete flag the orchestrator consults to
// select unreviewed chunks and to make re-runs idempotent.
type StatusStore interface {
	Status(ctx context.Context, chunkID string) (Status, error)
	MarkStatus(ctx context.Context, chunkID string, status Status) error
}
