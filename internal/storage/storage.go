package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/xaenox/council-bot/internal/models"
)

// Lookups by ID return (nil, nil) when the entity does not exist.

type MessageRepository interface {
	SaveMessage(ctx context.Context, msg *models.Message) (*models.Message, error)
	GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error)
	GetUnprocessed(ctx context.Context, limit int) ([]*models.Message, error)
	MarkAsProcessed(ctx context.Context, id uuid.UUID) error
}

type ProjectRepository interface {
	SaveProject(ctx context.Context, project *models.Project) (*models.Project, error)
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	GetActiveProjects(ctx context.Context) ([]*models.Project, error)
	// SearchProjects matches query as a case-insensitive substring of the
	// name or description.
	SearchProjects(ctx context.Context, query string) ([]*models.Project, error)
}

type KnowledgeRepository interface {
	SaveKnowledge(ctx context.Context, entry *models.KnowledgeEntry) (*models.KnowledgeEntry, error)
	GetKnowledge(ctx context.Context, id uuid.UUID) (*models.KnowledgeEntry, error)
	// GetKnowledgeByProject returns entries newest first.
	GetKnowledgeByProject(ctx context.Context, projectID uuid.UUID) ([]*models.KnowledgeEntry, error)
	SearchKnowledge(ctx context.Context, query string, limit int) ([]*models.KnowledgeEntry, error)
	// ListKnowledge pages through every entry oldest first.
	ListKnowledge(ctx context.Context, offset, limit int) ([]*models.KnowledgeEntry, error)
}

type Storage interface {
	MessageRepository
	ProjectRepository
	KnowledgeRepository
	Close() error
}

// defaultLimit applies when a caller passes a limit <= 0.
const defaultLimit = 10
