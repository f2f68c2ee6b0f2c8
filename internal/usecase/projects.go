package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/council-bot/internal/models"
	"github.com/xaenox/council-bot/internal/storage"
)

// CreateProject registers a new active project with a unique name.
type CreateProject struct {
	projects storage.ProjectRepository
	logger   *zap.Logger
}

func NewCreateProject(projects storage.ProjectRepository, logger *zap.Logger) *CreateProject {
	return &CreateProject{projects: projects, logger: logger.Named("create_project")}
}

func (uc *CreateProject) Execute(ctx context.Context, name, description string) (*models.Project, error) {
	project, err := models.NewProject(name, description, models.StatusActive)
	if err != nil {
		return nil, err
	}

	existing, err := findByName(ctx, uc.projects, project.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &models.DuplicateNameError{Name: project.Name}
	}

	saved, err := uc.projects.SaveProject(ctx, project)
	if err != nil {
		var dup *models.DuplicateNameError
		if errors.As(err, &dup) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save project: %w", err)
	}

	uc.logger.Info("Project created",
		zap.String("project_id", saved.ID.String()),
		zap.String("name", saved.Name))
	return saved, nil
}

// ListProjects returns the active projects.
type ListProjects struct {
	projects storage.ProjectRepository
}

func NewListProjects(projects storage.ProjectRepository) *ListProjects {
	return &ListProjects{projects: projects}
}

func (uc *ListProjects) Execute(ctx context.Context) ([]*models.Project, error) {
	projects, err := uc.projects.GetActiveProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// FindProject looks a project up by name, ignoring case.
type FindProject struct {
	projects storage.ProjectRepository
}

func NewFindProject(projects storage.ProjectRepository) *FindProject {
	return &FindProject{projects: projects}
}

func (uc *FindProject) Execute(ctx context.Context, name string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &models.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	project, err := findByName(ctx, uc.projects, name)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, &models.NotFoundError{Entity: "project", ID: name}
	}
	return project, nil
}

// SetProjectStatus moves a project, found by name, to a new status.
type SetProjectStatus struct {
	projects storage.ProjectRepository
	logger   *zap.Logger
}

func NewSetProjectStatus(projects storage.ProjectRepository, logger *zap.Logger) *SetProjectStatus {
	return &SetProjectStatus{projects: projects, logger: logger.Named("set_project_status")}
}

func (uc *SetProjectStatus) Execute(ctx context.Context, name, status string) (*models.Project, error) {
	parsed, err := models.ParseProjectStatus(status)
	if err != nil {
		return nil, err
	}
	project, err := NewFindProject(uc.projects).Execute(ctx, name)
	if err != nil {
		return nil, err
	}
	if project.Status == parsed {
		return project, nil
	}

	previous := project.Status
	if err := project.SetStatus(parsed); err != nil {
		return nil, err
	}
	saved, err := uc.projects.SaveProject(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to save project: %w", err)
	}

	uc.logger.Info("Project status changed",
		zap.String("project_id", saved.ID.String()),
		zap.String("from", string(previous)),
		zap.String("to", string(saved.Status)))
	return saved, nil
}

// findByName narrows candidates with the repository search and then
// requires a case-insensitive exact match.
func findByName(ctx context.Context, projects storage.ProjectRepository, name string) (*models.Project, error) {
	candidates, err := projects.SearchProjects(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to search projects: %w", err)
	}
	for _, p := range candidates {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, nil
}
