package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaenox/council-bot/internal/models"
	"github.com/xaenox/council-bot/internal/storage"
)

type SearchKnowledge struct {
	knowledge storage.KnowledgeRepository
}

func NewSearchKnowledge(knowledge storage.KnowledgeRepository) *SearchKnowledge {
	return &SearchKnowledge{knowledge: knowledge}
}

func (uc *SearchKnowledge) Execute(ctx context.Context, query string, limit int) ([]*models.KnowledgeEntry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	entries, err := uc.knowledge.SearchKnowledge(ctx, strings.TrimSpace(query), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge: %w", err)
	}
	return entries, nil
}

// PendingMessages lists messages that have not finished processing, oldest
// first.
type PendingMessages struct {
	messages storage.MessageRepository
}

func NewPendingMessages(messages storage.MessageRepository) *PendingMessages {
	return &PendingMessages{messages: messages}
}

func (uc *PendingMessages) Execute(ctx context.Context, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	msgs, err := uc.messages.GetUnprocessed(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending messages: %w", err)
	}
	return msgs, nil
}
