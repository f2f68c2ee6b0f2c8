package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// KnowledgeEntry is a distilled, taggable note derived from a message.
type KnowledgeEntry struct {
	ID              uuid.UUID  `json:"id"`
	Content         string     `json:"content"`
	SourceMessageID uuid.UUID  `json:"source_message_id"`
	ProjectID       *uuid.UUID `json:"project_id,omitempty"`
	Tags            []string   `json:"tags"`
	CreatedAt       time.Time  `json:"created_at"`
}

// NewKnowledgeEntry validates content and normalizes tags.
func NewKnowledgeEntry(content string, sourceMessageID uuid.UUID, projectID *uuid.UUID, tags []string) (*KnowledgeEntry, error) {
	content, err := requireText("content", content)
	if err != nil {
		return nil, err
	}
	if sourceMessageID == uuid.Nil {
		return nil, &ValidationError{Field: "source_message_id", Reason: "must reference a message"}
	}

	return &KnowledgeEntry{
		ID:              uuid.New(),
		Content:         content,
		SourceMessageID: sourceMessageID,
		ProjectID:       projectID,
		Tags:            NormalizeTags(tags),
		CreatedAt:       Now(),
	}, nil
}

// AddTag appends tag in normalized form unless it is empty or already present.
func (k *KnowledgeEntry) AddTag(tag string) {
	clean := strings.ToLower(strings.TrimSpace(tag))
	if clean == "" {
		return
	}
	for _, t := range k.Tags {
		if t == clean {
			return
		}
	}
	k.Tags = append(k.Tags, clean)
}

func (k *KnowledgeEntry) LinkToProject(projectID uuid.UUID) {
	k.ProjectID = &projectID
}
