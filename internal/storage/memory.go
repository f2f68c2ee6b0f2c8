package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/xaenox/council-bot/internal/models"
)

// MemoryStorage keeps records in maps. Entities are stored in record form so
// callers never share memory with the store.
type MemoryStorage struct {
	mu        sync.RWMutex
	messages  map[string]messageRecord
	projects  map[string]projectRecord
	knowledge map[string]knowledgeRecord
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		messages:  make(map[string]messageRecord),
		projects:  make(map[string]projectRecord),
		knowledge: make(map[string]knowledgeRecord),
	}
}

// Message methods
func (s *MemoryStorage) SaveMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := toMessageRecord(msg)
	if rec.MessageID != nil {
		messageID := *rec.MessageID
		rec.MessageID = &messageID
	}
	s.messages[rec.ID] = rec
	return rec.toModel()
}

func (s *MemoryStorage) GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, exists := s.messages[id.String()]; exists {
		return rec.toModel()
	}
	return nil, nil
}

func (s *MemoryStorage) GetUnprocessed(ctx context.Context, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []messageRecord
	for _, rec := range s.messages {
		if !rec.Processed {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}

	result := make([]*models.Message, 0, len(recs))
	for _, rec := range recs {
		msg, err := rec.toModel()
		if err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, nil
}

func (s *MemoryStorage) MarkAsProcessed(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.messages[id.String()]
	if !exists {
		return &models.NotFoundError{Entity: "message", ID: id.String()}
	}
	rec.Processed = true
	s.messages[rec.ID] = rec
	return nil
}

// Project methods
func (s *MemoryStorage) SaveProject(ctx context.Context, project *models.Project) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := toProjectRecord(project)
	for id, existing := range s.projects {
		if id != rec.ID && existing.Name == rec.Name {
			return nil, &models.DuplicateNameError{Name: rec.Name}
		}
	}
	s.projects[rec.ID] = rec
	return rec.toModel()
}

func (s *MemoryStorage) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, exists := s.projects[id.String()]; exists {
		return rec.toModel()
	}
	return nil, nil
}

func (s *MemoryStorage) GetActiveProjects(ctx context.Context) ([]*models.Project, error) {
	return s.filterProjects(func(rec projectRecord) bool {
		return rec.Status == string(models.StatusActive)
	})
}

func (s *MemoryStorage) SearchProjects(ctx context.Context, query string) ([]*models.Project, error) {
	return s.filterProjects(func(rec projectRecord) bool {
		return containsFold(rec.Name, query) || containsFold(rec.Description, query)
	})
}

func (s *MemoryStorage) filterProjects(keep func(projectRecord) bool) ([]*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []projectRecord
	for _, rec := range s.projects {
		if keep(rec) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})

	result := make([]*models.Project, 0, len(recs))
	for _, rec := range recs {
		p, err := rec.toModel()
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, nil
}

// Knowledge methods
func (s *MemoryStorage) SaveKnowledge(ctx context.Context, entry *models.KnowledgeEntry) (*models.KnowledgeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := toKnowledgeRecord(entry)
	s.knowledge[rec.ID] = rec
	return rec.toModel()
}

func (s *MemoryStorage) GetKnowledge(ctx context.Context, id uuid.UUID) (*models.KnowledgeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, exists := s.knowledge[id.String()]; exists {
		return rec.toModel()
	}
	return nil, nil
}

func (s *MemoryStorage) GetKnowledgeByProject(ctx context.Context, projectID uuid.UUID) ([]*models.KnowledgeEntry, error) {
	pid := projectID.String()
	return s.filterKnowledge(0, func(rec knowledgeRecord) bool {
		return rec.ProjectID != nil && *rec.ProjectID == pid
	})
}

func (s *MemoryStorage) SearchKnowledge(ctx context.Context, query string, limit int) ([]*models.KnowledgeEntry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	return s.filterKnowledge(limit, func(rec knowledgeRecord) bool {
		return containsFold(rec.Content, query)
	})
}

func (s *MemoryStorage) ListKnowledge(ctx context.Context, offset, limit int) ([]*models.KnowledgeEntry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]knowledgeRecord, 0, len(s.knowledge))
	for _, rec := range s.knowledge {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})
	if offset >= len(recs) {
		return []*models.KnowledgeEntry{}, nil
	}
	recs = recs[max(offset, 0):]
	if len(recs) > limit {
		recs = recs[:limit]
	}

	result := make([]*models.KnowledgeEntry, 0, len(recs))
	for _, rec := range recs {
		entry, err := rec.toModel()
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, nil
}

// filterKnowledge returns matching entries newest first. A limit <= 0 means no limit.
func (s *MemoryStorage) filterKnowledge(limit int, keep func(knowledgeRecord) bool) ([]*models.KnowledgeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []knowledgeRecord
	for _, rec := range s.knowledge {
		if keep(rec) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}

	result := make([]*models.KnowledgeEntry, 0, len(recs))
	for _, rec := range recs {
		entry, err := rec.toModel()
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
