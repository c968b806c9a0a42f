package store

import (
	"context"
	"log/slog"

	"github.com/sweetpotato0/bookaudit/pkg/logging"
	"github.com/sweetpotato0/bookaudit/review"
)

// LayeredStatus implements review.StatusStore with an optional Redis cache
// in front of MongoDB. The cache is best effort: cache failures degrade to
// MongoDB reads and are logged, never surfaced.
type LayeredStatus struct {
	mongo  *Mongo
	cache  *StatusCache
	logger *slog.Logger
}

// NewLayeredStatus creates a status store over MongoDB; cache may be nil.
func NewLayeredStatus(mongo *Mongo, cache *StatusCache) *LayeredStatus {
	return &LayeredStatus{
		mongo:  mongo,
		cache:  cache,
		logger: logging.WithComponent("status"),
	}
}

// Status returns the chunk's review status, consulting the cache first.
func (s *LayeredStatus) Status(ctx context.Context, chunkID string) (review.Status, error) {
	if s.cache != nil {
		status, hit, err := s.cache.Get(ctx, chunkID)
		if err != nil {
			s.logger.Warn("status cache read failed", "chunk_id", chunkID, "error", err)
		} else if hit {
			return status, nil
		}
	}

	status, err := s.mongo.ChunkStatus(ctx, chunkID)
	if err != nil {
		return "", err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, chunkID, status); err != nil {
			s.logger.Warn("status cache fill failed", "chunk_id", chunkID, "error", err)
		}
	}
	return status, nil
}

// MarkStatus writes the chunk's status to MongoDB and refreshes the cache.
func (s *LayeredStatus) MarkStatus(ctx context.Context, chunkID string, status review.Status) error {
	if err := s.mongo.MarkChunkStatus(ctx, chunkID, status); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, chunkID, status); err != nil {
			s.logger.Warn("status cache update failed", "chunk_id", chunkID, "error", err)
		}
	}
	return nil
}
