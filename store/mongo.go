package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sweetpotato0/bookaudit/errors"
	"github.com/sweetpotato0/bookaudit/pkg/logging"
	"github.com/sweetpotato0/bookaudit/policy"
	"github.com/sweetpotato0/bookaudit/review"
	"github.com/sweetpotato0/bookaudit/verdict"
)

// Mongo is the document store behind the reviewer: agent definitions, book
// chunks, and review results all live in MongoDB. It implements
// review.ResultSink; chunk status reads and writes go through LayeredStatus.
type Mongo struct {
	client       *mongo.Client
	chunks       *mongo.Collection
	agents       *mongo.Collection
	results      *mongo.Collection
	agentResults *mongo.Collection
	logger       *slog.Logger
}

// NewMongo connects to MongoDB and verifies the connection with a ping.
func NewMongo(ctx context.Context, cfg MongoConfig) (*Mongo, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping MongoDB: %w: %v", errors.ErrStoreUnavailable, err)
	}

	db := client.Database(cfg.Database)
	return &Mongo{
		client:       client,
		chunks:       db.Collection(cfg.ChunksCollection),
		agents:       db.Collection(cfg.AgentsCollection),
		results:      db.Collection(cfg.ResultsCollection),
		agentResults: db.Collection(cfg.AgentResultsCollection),
		logger:       logging.WithComponent("store"),
	}, nil
}

// Close disconnects from MongoDB.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Ping checks that the MongoDB connection is alive.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

// LoadAgents returns every analysis agent defined in the store, with
// defaults resolved. Agents of other types are ignored.
func (m *Mongo) LoadAgents(ctx context.Context) ([]policy.Agent, error) {
	filter := bson.M{"type": policy.TypeAnalysis}
	cursor, err := m.agents.Find(ctx, filter, options.Find().SetSort(bson.M{"agent_name": 1}))
	if err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}
	defer cursor.Close(ctx)

	var agents []policy.Agent
	if err := cursor.All(ctx, &agents); err != nil {
		return nil, fmt.Errorf("decode agents: %w", err)
	}
	for i := range agents {
		agents[i] = agents[i].Resolve()
	}
	return agents, nil
}

// SeedAgents upserts agent definitions by name. Existing documents are
// replaced, so seeding is idempotent.
func (m *Mongo) SeedAgents(ctx context.Context, agents []policy.Agent) error {
	for _, agent := range agents {
		if err := agent.Validate(); err != nil {
			return fmt.Errorf("seed agent %q: %w", agent.Name, err)
		}
		filter := bson.M{"agent_name": agent.Name}
		opts := options.Replace().SetUpsert(true)
		if _, err := m.agents.ReplaceOne(ctx, filter, agent, opts); err != nil {
			return fmt.Errorf("seed agent %q: %w", agent.Name, err)
		}
	}
	m.logger.Info("agents seeded", "count", len(agents))
	return nil
}

// chunkDoc is the stored shape of one book chunk.
type chunkDoc struct {
	OID            primitive.ObjectID `bson:"_id,omitempty"`
	ChunkID        string             `bson:"chunk_id,omitempty"`
	DocID          string             `bson:"doc_id"`
	DocName        string             `bson:"doc_name"`
	ChunkIndex     int                `bson:"chunk_index"`
	Text           string             `bson:"text"`
	AnalysisStatus string             `bson:"analysis_status,omitempty"`
	PageNumber     int                `bson:"page_number,omitempty"`
	Coordinates    []float64          `bson:"coordinates,omitempty"`
	PredictedLabel string             `bson:"predicted_label,omitempty"`
	LabelScores    map[string]float64 `bson:"classification_scores,omitempty"`
}

func (d chunkDoc) id() string {
	if d.ChunkID != "" {
		return d.ChunkID
	}
	return d.OID.Hex()
}

// PendingChunks loads every chunk not yet marked Complete, ordered by chunk
// index, with neighbouring chunk text filled in from the adjacent documents.
// An empty docID loads across all documents.
func (m *Mongo) PendingChunks(ctx context.Context, docID string) ([]review.Chunk, error) {
	filter := bson.M{}
	if docID != "" {
		filter["doc_id"] = docID
	}

	opts := options.Find().SetSort(bson.D{{Key: "doc_id", Value: 1}, {Key: "chunk_index", Value: 1}})
	cursor, err := m.chunks.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []chunkDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode chunks: %w", err)
	}

	var pending []review.Chunk
	for i, d := range docs {
		if d.AnalysisStatus == string(review.StatusComplete) {
			continue
		}
		chunk := review.Chunk{
			ID:             d.id(),
			DocID:          d.DocID,
			Title:          d.DocName,
			Index:          d.ChunkIndex,
			Text:           d.Text,
			Page:           d.PageNumber,
			BBox:           d.Coordinates,
			PredictedLabel: d.PredictedLabel,
			LabelScores:    d.LabelScores,
		}
		if i > 0 && docs[i-1].DocID == d.DocID {
			chunk.Previous = docs[i-1].Text
		}
		if i+1 < len(docs) && docs[i+1].DocID == d.DocID {
			chunk.Next = docs[i+1].Text
		}
		pending = append(pending, chunk)
	}
	return pending, nil
}

// ChunkStatus reads the analysis status of one chunk.
func (m *Mongo) ChunkStatus(ctx context.Context, chunkID string) (review.Status, error) {
	var doc struct {
		AnalysisStatus string `bson:"analysis_status"`
	}
	err := m.chunks.FindOne(ctx, chunkFilter(chunkID)).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return "", fmt.Errorf("chunk %q: %w", chunkID, errors.ErrNotFound)
		}
		return "", fmt.Errorf("read chunk status: %w", err)
	}
	if doc.AnalysisStatus == "" {
		return review.StatusPending, nil
	}
	return review.Status(doc.AnalysisStatus), nil
}

// MarkChunkStatus updates the analysis status of one chunk.
func (m *Mongo) MarkChunkStatus(ctx context.Context, chunkID string, status review.Status) error {
	update := bson.M{"$set": bson.M{"analysis_status": string(status)}}
	res, err := m.chunks.UpdateOne(ctx, chunkFilter(chunkID), update)
	if err != nil {
		return fmt.Errorf("mark chunk status: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("chunk %q: %w", chunkID, errors.ErrNotFound)
	}
	return nil
}

// chunkFilter matches a chunk either by its chunk_id field or, when the ID is
// a valid ObjectID hex, by _id. Older ingests keyed chunks only by _id.
func chunkFilter(chunkID string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(chunkID); err == nil {
		return bson.M{"$or": []bson.M{{"chunk_id": chunkID}, {"_id": oid}}}
	}
	return bson.M{"chunk_id": chunkID}
}

// agentResponseDoc is the stored shape of one terminal agent result.
type agentResponseDoc struct {
	AgentName       string          `bson:"agent_name"`
	ResponseContent verdict.Verdict `bson:"response_content"`
	Confidence      int             `bson:"confidence"`
	Retries         int             `bson:"retries"`
	HumanReview     bool            `bson:"human_review"`
	Timestamp       time.Time       `bson:"timestamp"`
}

// resultDoc is the merged result document for one chunk.
type resultDoc struct {
	Timestamp      time.Time          `bson:"timestamp"`
	BookID         string             `bson:"book_id"`
	BookName       string             `bson:"book_name"`
	PageNumber     int                `bson:"page_number"`
	ChunkID        string             `bson:"chunk_id"`
	ChunkIndex     int                `bson:"chunk_index"`
	Text           string             `bson:"text_analyzed"`
	Coordinates    []float64          `bson:"coordinates,omitempty"`
	PredictedLabel string             `bson:"predicted_label,omitempty"`
	LabelScores    map[string]float64 `bson:"classification_scores,omitempty"`
	OverallStatus  string             `bson:"overall_status"`
	AgentResponses []agentResponseDoc `bson:"agent_responses"`
}

// SaveAgentResult upserts one agent's terminal result, keyed by
// (chunk_id, agent_name). Re-running a chunk overwrites the previous result
// for the same agent.
func (m *Mongo) SaveAgentResult(ctx context.Context, chunk review.Chunk, result review.RunResult) error {
	doc := agentResponseDoc{
		AgentName:       result.Agent,
		ResponseContent: result.Verdict,
		Confidence:      result.Confidence,
		Retries:         result.Retries,
		HumanReview:     result.HumanReview,
		Timestamp:       result.CompletedAt,
	}
	filter := bson.M{"chunk_id": chunk.ID, "agent_name": result.Agent}
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	if _, err := m.agentResults.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("save agent result: %w", err)
	}
	return nil
}

// SaveAggregate upserts the merged result document for a chunk, with one
// agent_responses entry per agent in stable name order.
func (m *Mongo) SaveAggregate(ctx context.Context, chunk review.Chunk, report review.AggregateReport) error {
	names := make([]string, 0, len(report.Results))
	for name := range report.Results {
		names = append(names, name)
	}
	sort.Strings(names)

	responses := make([]agentResponseDoc, 0, len(names))
	for _, name := range names {
		res := report.Results[name]
		responses = append(responses, agentResponseDoc{
			AgentName:       res.Agent,
			ResponseContent: res.Verdict,
			Confidence:      res.Confidence,
			Retries:         res.Retries,
			HumanReview:     res.HumanReview,
			Timestamp:       res.CompletedAt,
		})
	}

	doc := resultDoc{
		Timestamp:      report.FinishedAt,
		BookID:         chunk.DocID,
		BookName:       chunk.Title,
		PageNumber:     chunk.Page,
		ChunkID:        chunk.ID,
		ChunkIndex:     chunk.Index,
		Text:           chunk.Text,
		Coordinates:    chunk.BBox,
		PredictedLabel: chunk.PredictedLabel,
		LabelScores:    chunk.LabelScores,
		OverallStatus:  string(report.Status),
		AgentResponses: responses,
	}

	filter := bson.M{"chunk_id": chunk.ID}
	opts := options.Replace().SetUpsert(true)
	if _, err := m.results.ReplaceOne(ctx, filter, doc, opts); err != nil {
		return fmt.Errorf("save aggregate: %w", err)
	}
	return nil
}
