package store

import (
	"context"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/sweetpotato0/bookaudit/policy"
	"github.com/sweetpotato0/bookaudit/review"
	"github.com/sweetpotato0/bookaudit/verdict"
)

func TestMongoConfigFromEnv(t *testing.T) {
	t.Setenv("BOOKAUDIT_MONGO_URI", "mongodb://db.internal:27017")
	t.Setenv("BOOKAUDIT_MONGO_DB", "audit")

	cfg := MongoConfigFromEnv()
	if cfg.URI != "mongodb://db.internal:27017" {
		t.Errorf("Expected URI from env, got %s", cfg.URI)
	}
	if cfg.Database != "audit" {
		t.Errorf("Expected database from env, got %s", cfg.Database)
	}
	if cfg.ChunksCollection != "chunks" {
		t.Errorf("Expected default chunks collection, got %s", cfg.ChunksCollection)
	}
}

func TestMongoConfigValidate(t *testing.T) {
	cfg := DefaultMongoConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}

	cfg.URI = ""
	if err := cfg.Validate(); err == nil {
		t.Errorf("Expected error for empty URI")
	}
}

func TestRedisConfigValidate(t *testing.T) {
	cfg := DefaultRedisConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}

	cfg.DB = 16
	if err := cfg.Validate(); err == nil {
		t.Errorf("Expected error for db number above 15")
	}
}

// Integration tests below require live backends and are skipped unless the
// corresponding environment variables are set.

func newTestMongo(t *testing.T) *Mongo {
	t.Helper()
	uri := os.Getenv("BOOKAUDIT_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("BOOKAUDIT_TEST_MONGO_URI not set, skipping MongoDB integration test")
	}

	cfg := DefaultMongoConfig()
	cfg.URI = uri
	cfg.Database = "bookaudit_test"

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m, err := NewMongo(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	t.Cleanup(func() {
		m.chunks.Drop(context.Background())
		m.agents.Drop(context.Background())
		m.results.Drop(context.Background())
		m.agentResults.Drop(context.Background())
		m.Close(context.Background())
	})
	return m
}

func TestSeedAndLoadAgents(t *testing.T) {
	m := newTestMongo(t)
	ctx := context.Background()

	if err := m.SeedAgents(ctx, policy.BuiltinAgents()); err != nil {
		t.Fatalf("SeedAgents failed: %v", err)
	}
	// Seeding twice must not duplicate.
	if err := m.SeedAgents(ctx, policy.BuiltinAgents()); err != nil {
		t.Fatalf("Second SeedAgents failed: %v", err)
	}

	agents, err := m.LoadAgents(ctx)
	if err != nil {
		t.Fatalf("LoadAgents failed: %v", err)
	}
	if len(agents) != 6 {
		t.Errorf("Expected 6 agents, got %d", len(agents))
	}
	for _, a := range agents {
		if a.Threshold != policy.DefaultThreshold {
			t.Errorf("Agent %q: expected resolved threshold, got %d", a.Name, a.Threshold)
		}
	}
}

func TestPendingChunksFillNeighbours(t *testing.T) {
	m := newTestMongo(t)
	ctx := context.Background()

	docs := []interface{}{
		chunkDoc{ChunkID: "c0", DocID: "book1", DocName: "The Campaign", ChunkIndex: 0, Text: "first", AnalysisStatus: "Complete"},
		chunkDoc{ChunkID: "c1", DocID: "book1", DocName: "The Campaign", ChunkIndex: 1, Text: "second"},
		chunkDoc{ChunkID: "c2", DocID: "book1", DocName: "The Campaign", ChunkIndex: 2, Text: "third"},
	}
	if _, err := m.chunks.InsertMany(ctx, docs); err != nil {
		t.Fatalf("InsertMany failed: %v", err)
	}

	pending, err := m.PendingChunks(ctx, "book1")
	if err != nil {
		t.Fatalf("PendingChunks failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Expected 2 pending chunks, got %d", len(pending))
	}

	if pending[0].ID != "c1" || pending[0].Previous != "first" || pending[0].Next != "third" {
		t.Errorf("Unexpected first pending chunk: %+v", pending[0])
	}
	if pending[1].ID != "c2" || pending[1].Previous != "second" || pending[1].Next != "" {
		t.Errorf("Unexpected second pending chunk: %+v", pending[1])
	}
}

func TestChunkStatusRoundTrip(t *testing.T) {
	m := newTestMongo(t)
	ctx := context.Background()

	if _, err := m.chunks.InsertOne(ctx, chunkDoc{ChunkID: "c1", DocID: "book1", ChunkIndex: 0, Text: "t"}); err != nil {
		t.Fatalf("InsertOne failed: %v", err)
	}

	st, err := m.ChunkStatus(ctx, "c1")
	if err != nil {
		t.Fatalf("ChunkStatus failed: %v", err)
	}
	if st != review.StatusPending {
		t.Errorf("Expected Pending for fresh chunk, got %s", st)
	}

	if err := m.MarkChunkStatus(ctx, "c1", review.StatusComplete); err != nil {
		t.Fatalf("MarkChunkStatus failed: %v", err)
	}
	st, err = m.ChunkStatus(ctx, "c1")
	if err != nil {
		t.Fatalf("ChunkStatus failed: %v", err)
	}
	if st != review.StatusComplete {
		t.Errorf("Expected Complete after mark, got %s", st)
	}
}

func TestSaveResultsRoundTrip(t *testing.T) {
	m := newTestMongo(t)
	ctx := context.Background()

	chunk := review.Chunk{ID: "c1", DocID: "book1", Title: "The Campaign", Index: 1, Text: "second"}
	result := review.RunResult{
		Agent:       "National Security",
		Verdict:     verdict.Default(),
		Confidence:  50,
		Retries:     3,
		HumanReview: true,
		CompletedAt: time.Now().UTC(),
	}
	if err := m.SaveAgentResult(ctx, chunk, result); err != nil {
		t.Fatalf("SaveAgentResult failed: %v", err)
	}
	// Saving again must overwrite, not duplicate.
	if err := m.SaveAgentResult(ctx, chunk, result); err != nil {
		t.Fatalf("Second SaveAgentResult failed: %v", err)
	}
	count, err := m.agentResults.CountDocuments(ctx, bson.M{"chunk_id": "c1"})
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 agent result document, got %d", count)
	}

	report := review.AggregateReport{
		ChunkID:    "c1",
		Status:     review.StatusComplete,
		Results:    map[string]review.RunResult{"National Security": result},
		FinishedAt: time.Now().UTC(),
	}
	if err := m.SaveAggregate(ctx, chunk, report); err != nil {
		t.Fatalf("SaveAggregate failed: %v", err)
	}

	var stored resultDoc
	if err := m.results.FindOne(ctx, bson.M{"chunk_id": "c1"}).Decode(&stored); err != nil {
		t.Fatalf("FindOne failed: %v", err)
	}
	if stored.OverallStatus != string(review.StatusComplete) {
		t.Errorf("Expected Complete overall status, got %s", stored.OverallStatus)
	}
	if len(stored.AgentResponses) != 1 {
		t.Fatalf("Expected 1 agent response, got %d", len(stored.AgentResponses))
	}
	if stored.AgentResponses[0].AgentName != "National Security" {
		t.Errorf("Unexpected agent name %s", stored.AgentResponses[0].AgentName)
	}
	if !stored.AgentResponses[0].HumanReview {
		t.Errorf("Expected human review flag persisted")
	}
}

func TestStatusCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("BOOKAUDIT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BOOKAUDIT_TEST_REDIS_ADDR not set, skipping Redis integration test")
	}

	cfg := DefaultRedisConfig()
	cfg.Addr = addr
	cfg.Prefix = "bookaudit_test:status:"
	cfg.TTL = time.Minute

	cache, err := NewStatusCache(cfg)
	if err != nil {
		t.Fatalf("NewStatusCache failed: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	if err := cache.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	if _, hit, err := cache.Get(ctx, "missing"); err != nil || hit {
		t.Errorf("Expected clean miss, got hit=%v err=%v", hit, err)
	}

	if err := cache.Set(ctx, "c1", review.StatusComplete); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	st, hit, err := cache.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !hit || st != review.StatusComplete {
		t.Errorf("Expected cached Complete, got hit=%v status=%s", hit, st)
	}
}
