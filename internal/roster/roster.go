// Package roster maps debate roles to the specialist models assigned to
// them. Assignments are persisted through a Repository.
package roster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alienxp03/arena/internal/core"
)

// AssignmentType records how a role got its model.
type AssignmentType string

const (
	AssignmentManual AssignmentType = "manual"
	AssignmentAuto   AssignmentType = "auto"
)

// Entry is one role assignment.
type Entry struct {
	ID             string          `json:"id"`
	Role           core.DebateRole `json:"role"`
	ModelID        string          `json:"model_id"`
	AssignmentType AssignmentType  `json:"assignment_type"`
	AssignedAt     time.Time       `json:"assigned_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ErrNotFound is returned when a role has no assignment.
var ErrNotFound = errors.New("roster entry not found")

// Repository persists role assignments. Assign replaces any existing entry
// for the role.
type Repository interface {
	Assign(ctx context.Context, entry Entry) error
	FindByRole(ctx context.Context, role core.DebateRole) (*Entry, error)
	FindAll(ctx context.Context) ([]Entry, error)
	Remove(ctx context.Context, role core.DebateRole) error
}

// Service is the roster API used by the debate engine and handlers.
type Service struct {
	repo Repository
}

// NewService creates a roster service over the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SpecialistForRole returns the model assigned to a role, or "" when the
// role is unassigned.
func (s *Service) SpecialistForRole(ctx context.Context, role core.DebateRole) (string, error) {
	entry, err := s.repo.FindByRole(ctx, role)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find specialist for %s: %w", role, err)
	}
	return entry.ModelID, nil
}

// AssignModelToRole stores or replaces a role assignment.
func (s *Service) AssignModelToRole(ctx context.Context, role core.DebateRole, modelID string, assignmentType AssignmentType) error {
	now := time.Now()
	err := s.repo.Assign(ctx, Entry{
		ID:             core.NewID(),
		Role:           role,
		ModelID:        modelID,
		AssignmentType: assignmentType,
		AssignedAt:     now,
		UpdatedAt:      now,
	})
	if err != nil {
		return fmt.Errorf("assign %s to %s: %w", modelID, role, err)
	}
	return nil
}

// AllAssignments returns the current role-to-model map.
func (s *Service) AllAssignments(ctx context.Context) (map[core.DebateRole]string, error) {
	entries, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	out := make(map[core.DebateRole]string, len(entries))
	for _, entry := range entries {
		out[entry.Role] = entry.ModelID
	}
	return out, nil
}

// RemoveRole clears a role's assignment. Removing an unassigned role is a
// no-op.
func (s *Service) RemoveRole(ctx context.Context, role core.DebateRole) error {
	if err := s.repo.Remove(ctx, role); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("remove role %s: %w", role, err)
	}
	return nil
}
