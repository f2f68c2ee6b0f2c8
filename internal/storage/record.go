package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/council-bot/internal/models"
)

// Records are the persisted form of the entities, shared by every backend:
// the SQL store maps them through db tags, the Mongo store through bson tags.

type messageRecord struct {
	ID        string    `db:"id" bson:"_id"`
	Content   string    `db:"content" bson:"content"`
	UserID    string    `db:"user_id" bson:"user_id"`
	ChatID    string    `db:"chat_id" bson:"chat_id"`
	MessageID *int64    `db:"message_id" bson:"message_id"`
	CreatedAt time.Time `db:"created_at" bson:"created_at"`
	Processed bool      `db:"processed" bson:"processed"`
}

type projectRecord struct {
	ID          string    `db:"id" bson:"_id"`
	Name        string    `db:"name" bson:"name"`
	Description string    `db:"description" bson:"description"`
	Status      string    `db:"status" bson:"status"`
	CreatedAt   time.Time `db:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" bson:"updated_at"`
}

type knowledgeRecord struct {
	ID              string    `db:"id" bson:"_id"`
	Content         string    `db:"content" bson:"content"`
	SourceMessageID string    `db:"source_message_id" bson:"source_message_id"`
	ProjectID       *string   `db:"project_id" bson:"project_id"`
	Tags            tagList   `db:"tags" bson:"tags"`
	CreatedAt       time.Time `db:"created_at" bson:"created_at"`
}

// tagList is stored as a JSON array in SQL and as a native array in Mongo.
type tagList []string

func (t tagList) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *tagList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = tagList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported tags type %T", src)
	}

	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return fmt.Errorf("error decoding tags: %w", err)
	}
	*t = tags
	return nil
}

func toMessageRecord(m *models.Message) messageRecord {
	return messageRecord{
		ID:        m.ID.String(),
		Content:   m.Content,
		UserID:    m.UserID,
		ChatID:    m.ChatID,
		MessageID: m.MessageID,
		CreatedAt: m.CreatedAt,
		Processed: m.Processed,
	}
}

func (r messageRecord) toModel() (*models.Message, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid message id %q: %w", r.ID, err)
	}
	msg := &models.Message{
		ID:        id,
		Content:   r.Content,
		UserID:    r.UserID,
		ChatID:    r.ChatID,
		CreatedAt: r.CreatedAt.UTC(),
		Processed: r.Processed,
	}
	if r.MessageID != nil {
		messageID := *r.MessageID
		msg.MessageID = &messageID
	}
	return msg, nil
}

func toProjectRecord(p *models.Project) projectRecord {
	return projectRecord{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (r projectRecord) toModel() (*models.Project, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid project id %q: %w", r.ID, err)
	}
	status, err := models.ParseProjectStatus(r.Status)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", r.ID, err)
	}
	return &models.Project{
		ID:          id,
		Name:        r.Name,
		Description: r.Description,
		Status:      status,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}, nil
}

func toKnowledgeRecord(k *models.KnowledgeEntry) knowledgeRecord {
	rec := knowledgeRecord{
		ID:              k.ID.String(),
		Content:         k.Content,
		SourceMessageID: k.SourceMessageID.String(),
		Tags:            tagList(models.NormalizeTags(k.Tags)),
		CreatedAt:       k.CreatedAt,
	}
	if k.ProjectID != nil {
		projectID := k.ProjectID.String()
		rec.ProjectID = &projectID
	}
	return rec
}

func (r knowledgeRecord) toModel() (*models.KnowledgeEntry, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid knowledge id %q: %w", r.ID, err)
	}
	source, err := uuid.Parse(r.SourceMessageID)
	if err != nil {
		return nil, fmt.Errorf("knowledge %s: invalid source message id: %w", r.ID, err)
	}

	entry := &models.KnowledgeEntry{
		ID:              id,
		Content:         r.Content,
		SourceMessageID: source,
		Tags:            append([]string{}, r.Tags...),
		CreatedAt:       r.CreatedAt.UTC(),
	}
	if r.ProjectID != nil && *r.ProjectID != "" {
		projectID, err := uuid.Parse(*r.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("knowledge %s: invalid project id: %w", r.ID, err)
		}
		entry.ProjectID = &projectID
	}
	return entry, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
