package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xaenox/council-bot/internal/models"
	"github.com/xaenox/council-bot/internal/storage"
	"go.uber.org/zap"
)

// KnowledgeRepository decorates a storage.Storage so that knowledge entries
// are also written to the index and SearchKnowledge is served from it.
// Empty queries and queries the index cannot answer go to the wrapped
// storage, as does every other call.
type KnowledgeRepository struct {
	storage.Storage
	index  *Index
	logger *zap.Logger
}

func NewKnowledgeRepository(inner storage.Storage, index *Index, logger *zap.Logger) *KnowledgeRepository {
	return &KnowledgeRepository{
		Storage: inner,
		index:   index,
		logger:  logger,
	}
}

func (r *KnowledgeRepository) SaveKnowledge(ctx context.Context, entry *models.KnowledgeEntry) (*models.KnowledgeEntry, error) {
	saved, err := r.Storage.SaveKnowledge(ctx, entry)
	if err != nil {
		return nil, err
	}
	// The store is the source of truth; a stale index only degrades search.
	if err := r.index.Add(saved); err != nil {
		r.logger.Error("Failed to index knowledge entry",
			zap.Error(err),
			zap.String("entry_id", saved.ID.String()))
	}
	return saved, nil
}

// backfillPageSize is how many entries Backfill reads from storage at once.
const backfillPageSize = 500

// Backfill indexes every entry already in the wrapped storage. Entries are
// keyed by ID, so entries that are already indexed are replaced in place.
func (r *KnowledgeRepository) Backfill(ctx context.Context) (int, error) {
	total := 0
	for offset := 0; ; offset += backfillPageSize {
		page, err := r.Storage.ListKnowledge(ctx, offset, backfillPageSize)
		if err != nil {
			return total, fmt.Errorf("failed to list knowledge entries: %w", err)
		}
		if len(page) == 0 {
			break
		}
		if err := r.index.AddBatch(page); err != nil {
			return total, fmt.Errorf("failed to index knowledge entries: %w", err)
		}
		total += len(page)
		if len(page) < backfillPageSize {
			break
		}
	}
	r.logger.Info("Knowledge index backfilled", zap.Int("entries", total))
	return total, nil
}

func (r *KnowledgeRepository) SearchKnowledge(ctx context.Context, query string, limit int) ([]*models.KnowledgeEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	if strings.TrimSpace(query) == "" {
		return r.Storage.SearchKnowledge(ctx, query, limit)
	}

	ids, err := r.index.Search(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge index: %w", err)
	}

	result := make([]*models.KnowledgeEntry, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			r.logger.Warn("Skipping malformed index id", zap.String("entry_id", raw))
			continue
		}
		entry, err := r.Storage.GetKnowledge(ctx, id)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			continue
		}
		result = append(result, entry)
	}
	if len(result) == 0 {
		return r.Storage.SearchKnowledge(ctx, query, limit)
	}
	return result, nil
}

// Close closes the index and then the wrapped storage.
func (r *KnowledgeRepository) Close() error {
	indexErr := r.index.Close()
	if err := r.Storage.Close(); err != nil {
		return err
	}
	return indexErr
}
