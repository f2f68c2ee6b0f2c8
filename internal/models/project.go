package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ProjectStatus string

const (
	StatusActive    ProjectStatus = "active"
	StatusOnHold    ProjectStatus = "on_hold"
	StatusCompleted ProjectStatus = "completed"
	StatusArchived  ProjectStatus = "archived"
)

var projectStatuses = map[ProjectStatus]struct{}{
	StatusActive:    {},
	StatusOnHold:    {},
	StatusCompleted: {},
	StatusArchived:  {},
}

// ParseProjectStatus checks s against the fixed status set.
func ParseProjectStatus(s string) (ProjectStatus, error) {
	status := ProjectStatus(s)
	if _, ok := projectStatuses[status]; !ok {
		names := make([]string, 0, len(projectStatuses))
		for st := range projectStatuses {
			names = append(names, string(st))
		}
		sort.Strings(names)
		return "", &ValidationError{
			Field:  "status",
			Reason: fmt.Sprintf("must be one of: %s", strings.Join(names, ", ")),
		}
	}
	return status, nil
}

// Project is a long-lived, user-defined grouping for knowledge entries.
// Name uniqueness is enforced by the repository layer, not here.
type Project struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// NewProject validates its arguments and returns a project. An empty status
// defaults to active.
func NewProject(name, description string, status ProjectStatus) (*Project, error) {
	name, err := requireText("name", name)
	if err != nil {
		return nil, err
	}
	description, err = requireText("description", description)
	if err != nil {
		return nil, err
	}
	if status == "" {
		status = StatusActive
	}
	if status, err = ParseProjectStatus(string(status)); err != nil {
		return nil, err
	}

	now := Now()
	return &Project{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (p *Project) UpdateDescription(description string) error {
	description, err := requireText("description", description)
	if err != nil {
		return err
	}
	p.Description = description
	p.touch()
	return nil
}

func (p *Project) SetStatus(status ProjectStatus) error {
	status, err := ParseProjectStatus(string(status))
	if err != nil {
		return err
	}
	p.Status = status
	p.touch()
	return nil
}

func (p *Project) IsActive() bool {
	return p.Status == StatusActive
}

// touch bumps UpdatedAt, keeping it strictly after the previous value even
// when two mutations land in the same millisecond.
func (p *Project) touch() {
	now := Now()
	if !now.After(p.UpdatedAt) {
		now = p.UpdatedAt.Add(time.Millisecond)
	}
	p.UpdatedAt = now
}
