package roster

import (
	"context"
	"errors"
	"testing"

	"github.com/alienxp03/arena/internal/core"
)

// fakeRepo keeps assignments in a map and can fail on demand.
type fakeRepo struct {
	entries map[core.DebateRole]Entry
	err     error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{entries: make(map[core.DebateRole]Entry)}
}

func (r *fakeRepo) Assign(ctx context.Context, entry Entry) error {
	if r.err != nil {
		return r.err
	}
	r.entries[entry.Role] = entry
	return nil
}

func (r *fakeRepo) FindByRole(ctx context.Context, role core.DebateRole) (*Entry, error) {
	if r.err != nil {
		return nil, r.err
	}
	entry, ok := r.entries[role]
	if !ok {
		return nil, ErrNotFound
	}
	return &entry, nil
}

func (r *fakeRepo) FindAll(ctx context.Context) ([]Entry, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry)
	}
	return out, nil
}

func (r *fakeRepo) Remove(ctx context.Context, role core.DebateRole) error {
	if r.err != nil {
		return r.err
	}
	if _, ok := r.entries[role]; !ok {
		return ErrNotFound
	}
	delete(r.entries, role)
	return nil
}

func TestAssignModelToRole(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	if err := svc.AssignModelToRole(ctx, core.RoleTech, "model/alpha", AssignmentManual); err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	entry := repo.entries[core.RoleTech]
	if entry.ModelID != "model/alpha" {
		t.Errorf("wrong model: got %v, want model/alpha", entry.ModelID)
	}
	if entry.AssignmentType != AssignmentManual {
		t.Errorf("wrong assignment type: got %v, want %v", entry.AssignmentType, AssignmentManual)
	}
	if entry.ID == "" {
		t.Error("expected a generated ID")
	}
	if entry.AssignedAt.IsZero() || entry.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	t.Run("ReplacesExisting", func(t *testing.T) {
		if err := svc.AssignModelToRole(ctx, core.RoleTech, "model/beta", AssignmentAuto); err != nil {
			t.Fatalf("reassign failed: %v", err)
		}
		if got := repo.entries[core.RoleTech].ModelID; got != "model/beta" {
			t.Errorf("wrong model after reassign: got %v, want model/beta", got)
		}
	})

	t.Run("RepoError", func(t *testing.T) {
		repo.err = errors.New("db locked")
		if err := svc.AssignModelToRole(ctx, core.RoleProduct, "model/alpha", AssignmentManual); err == nil {
			t.Error("expected error from repository")
		}
		repo.err = nil
	})
}

func TestSpecialistForRole(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	if err := svc.AssignModelToRole(ctx, core.RoleStrategy, "model/alpha", AssignmentManual); err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	modelID, err := svc.SpecialistForRole(ctx, core.RoleStrategy)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if modelID != "model/alpha" {
		t.Errorf("wrong model: got %v, want model/alpha", modelID)
	}

	t.Run("UnassignedRole", func(t *testing.T) {
		modelID, err := svc.SpecialistForRole(ctx, core.RoleExecution)
		if err != nil {
			t.Fatalf("unassigned role should not error: %v", err)
		}
		if modelID != "" {
			t.Errorf("unassigned role should return empty model, got %v", modelID)
		}
	})

	t.Run("RepoError", func(t *testing.T) {
		repo.err = errors.New("db locked")
		if _, err := svc.SpecialistForRole(ctx, core.RoleStrategy); err == nil {
			t.Error("expected error from repository")
		}
		repo.err = nil
	})
}

func TestAllAssignments(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	svc.AssignModelToRole(ctx, core.RoleStrategy, "model/alpha", AssignmentManual)
	svc.AssignModelToRole(ctx, core.RoleTech, "model/beta", AssignmentAuto)

	assignments, err := svc.AllAssignments(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(assignments) != 2 {
		t.Fatalf("wrong assignment count: got %d, want 2", len(assignments))
	}
	if assignments[core.RoleStrategy] != "model/alpha" {
		t.Errorf("wrong strategy model: got %v, want model/alpha", assignments[core.RoleStrategy])
	}
	if assignments[core.RoleTech] != "model/beta" {
		t.Errorf("wrong tech model: got %v, want model/beta", assignments[core.RoleTech])
	}
}

func TestRemoveRole(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	svc.AssignModelToRole(ctx, core.RoleTech, "model/alpha", AssignmentManual)
	if err := svc.RemoveRole(ctx, core.RoleTech); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, ok := repo.entries[core.RoleTech]; ok {
		t.Error("assignment should be removed")
	}

	t.Run("UnassignedNoOp", func(t *testing.T) {
		if err := svc.RemoveRole(ctx, core.RoleProduct); err != nil {
			t.Errorf("removing an unassigned role should be a no-op: %v", err)
		}
	})

	t.Run("RepoError", func(t *testing.T) {
		repo.err = errors.New("db locked")
		if err := svc.RemoveRole(ctx, core.RoleTech); err == nil {
			t.Error("expected error from repository")
		}
	})
}
