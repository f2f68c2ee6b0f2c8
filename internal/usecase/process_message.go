package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/council-bot/internal/classifier"
	"github.com/xaenox/council-bot/internal/models"
	"github.com/xaenox/council-bot/internal/storage"
)

var errEmptyKnowledge = errors.New("classifier returned empty knowledge")

// ProcessMessage runs the ingestion pipeline for one inbound message:
// save, classify, extract knowledge, link to a project, persist and mark
// the message processed. Classifier failures never abort the pipeline.
type ProcessMessage struct {
	messages   storage.MessageRepository
	projects   storage.ProjectRepository
	knowledge  storage.KnowledgeRepository
	classifier classifier.Classifier
	observer   Observer
	logger     *zap.Logger
}

func NewProcessMessage(
	messages storage.MessageRepository,
	projects storage.ProjectRepository,
	knowledge storage.KnowledgeRepository,
	c classifier.Classifier,
	observer Observer,
	logger *zap.Logger,
) *ProcessMessage {
	if observer == nil {
		observer = nopObserver{}
	}
	return &ProcessMessage{
		messages:   messages,
		projects:   projects,
		knowledge:  knowledge,
		classifier: c,
		observer:   observer,
		logger:     logger.Named("process_message"),
	}
}

func (uc *ProcessMessage) Execute(ctx context.Context, msg *models.Message) (models.MessageClassification, error) {
	start := time.Now()
	log := uc.logger.With(zap.String("message_id", msg.ID.String()))

	saved, err := uc.messages.SaveMessage(ctx, msg)
	if err != nil {
		return models.MessageClassification{}, fmt.Errorf("failed to save message: %w", err)
	}

	active, err := uc.projects.GetActiveProjects(ctx)
	if err != nil {
		return models.MessageClassification{}, fmt.Errorf("failed to load active projects: %w", err)
	}

	classification, err := uc.classifier.ClassifyMessage(ctx, saved.Content, active)
	if err != nil {
		log.Warn("Classification failed, using fallback", zap.Error(err))
		uc.observer.ClassifierFallback(StageClassify)
		classification = models.FallbackClassification(err)
	}

	knowledge, err := uc.classifier.ExtractKnowledge(ctx, saved.Content)
	if err == nil && strings.TrimSpace(knowledge) == "" {
		err = errEmptyKnowledge
	}
	if err != nil {
		log.Warn("Knowledge extraction failed, using fallback", zap.Error(err))
		uc.observer.ClassifierFallback(StageExtract)
		knowledge = models.FallbackKnowledge(saved.Content, err)
	}

	projectID := uc.resolveProject(log, &classification, active)

	entry, err := models.NewKnowledgeEntry(knowledge, saved.ID, projectID, classification.Tags)
	if err != nil {
		return models.MessageClassification{}, fmt.Errorf("failed to build knowledge entry: %w", err)
	}
	classification.Tags = entry.Tags

	if _, err := uc.knowledge.SaveKnowledge(ctx, entry); err != nil {
		return models.MessageClassification{}, fmt.Errorf("failed to save knowledge entry: %w", err)
	}

	msg.MarkAsProcessed()
	if err := uc.messages.MarkAsProcessed(ctx, saved.ID); err != nil {
		return models.MessageClassification{}, fmt.Errorf("failed to mark message processed: %w", err)
	}

	elapsed := time.Since(start)
	uc.observer.MessageProcessed(elapsed)
	log.Info("Message processed",
		zap.String("category", classification.Category),
		zap.Float64("confidence", classification.Confidence),
		zap.Duration("duration", elapsed))

	return classification, nil
}

// resolveProject returns the suggested project ID when it names one of the
// active projects. Any other suggestion is cleared from the classification.
func (uc *ProcessMessage) resolveProject(log *zap.Logger, c *models.MessageClassification, active []*models.Project) *uuid.UUID {
	if c.SuggestedProjectID == "" {
		return nil
	}

	id, err := uuid.Parse(c.SuggestedProjectID)
	if err == nil {
		for _, p := range active {
			if p.ID == id {
				return &id
			}
		}
	}

	log.Warn("Ignoring suggested project that is not active",
		zap.String("suggested_project_id", c.SuggestedProjectID))
	c.SuggestedProjectID = ""
	return nil
}
