package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/council-bot/internal/classifier"
	"github.com/xaenox/council-bot/internal/models"
	"github.com/xaenox/council-bot/internal/storage"
)

// GetNextSteps asks the classifier for research suggestions based on a
// project's knowledge entries.
type GetNextSteps struct {
	projects   storage.ProjectRepository
	knowledge  storage.KnowledgeRepository
	classifier classifier.Classifier
	observer   Observer
	logger     *zap.Logger
}

func NewGetNextSteps(
	projects storage.ProjectRepository,
	knowledge storage.KnowledgeRepository,
	c classifier.Classifier,
	observer Observer,
	logger *zap.Logger,
) *GetNextSteps {
	if observer == nil {
		observer = nopObserver{}
	}
	return &GetNextSteps{
		projects:   projects,
		knowledge:  knowledge,
		classifier: c,
		observer:   observer,
		logger:     logger.Named("next_steps"),
	}
}

func (uc *GetNextSteps) Execute(ctx context.Context, projectID uuid.UUID) ([]models.ResearchSuggestion, error) {
	project, err := uc.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if project == nil {
		return nil, &models.NotFoundError{Entity: "project", ID: projectID.String()}
	}

	entries, err := uc.knowledge.GetKnowledgeByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project knowledge: %w", err)
	}

	suggestions, err := uc.classifier.SuggestNextSteps(ctx, project, entries)
	if err != nil {
		uc.logger.Warn("Next step suggestion failed, using fallback",
			zap.String("project_id", projectID.String()),
			zap.Error(err))
		uc.observer.ClassifierFallback(StageSuggest)
		return models.FallbackSuggestions(project, err), nil
	}
	return suggestions, nil
}
