package steward

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/xraph/steward/model"
	"github.com/xraph/steward/store/memory"
	"github.com/xraph/steward/tuple"
)

func TestAssignRole_Exclusive(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	c1 := NewObject(model.TypeCommunity, "c1")

	if err := eng.AssignRole(ctx, User("u1"), c1, model.RoleMember); err != nil {
		t.Fatal(err)
	}
	if err := eng.AssignRole(ctx, User("u1"), c1, model.RoleAdmin); err != nil {
		t.Fatal(err)
	}

	role, ok, err := eng.RoleOf(ctx, User("u1"), c1)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || role != model.RoleAdmin {
		t.Fatalf("expected admin, got %q ok=%v", role, ok)
	}

	// Exactly one base role tuple remains.
	all, err := s.ListTuples(ctx, &tuple.ListFilter{
		ObjectType: "community", ObjectID: "c1",
		SubjectType: "user", SubjectID: "u1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].Relation != model.RoleAdmin {
		t.Fatalf("expected a single admin tuple, got %v", all)
	}
}

func TestAssignRole_Idempotent(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	c1 := NewObject(model.TypeCommunity, "c1")

	if err := eng.AssignRole(ctx, User("u1"), c1, model.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	if err := eng.AssignRole(ctx, User("u1"), c1, model.RoleAdmin); err != nil {
		t.Fatal(err)
	}

	role, ok, err := eng.RoleOf(ctx, User("u1"), c1)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || role != model.RoleAdmin {
		t.Fatalf("expected admin, got %q ok=%v", role, ok)
	}
}

func TestAssignRole_InvalidRole(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	err := eng.AssignRole(ctx, User("u1"), NewObject(model.TypeCommunity, "c1"), "wizard")
	if !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}

	// Feature roles are not base roles.
	err = eng.AssignRole(ctx, User("u1"), NewObject(model.TypeCommunity, "c1"), "forum_manager")
	if !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole for feature role, got %v", err)
	}

	err = eng.AssignRole(ctx, User("u1"), NewObject("gadget", "g1"), model.RoleAdmin)
	if !errors.Is(err, ErrUnknownObjectType) {
		t.Fatalf("expected ErrUnknownObjectType, got %v", err)
	}
}

func TestRemoveRole_Idempotent(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	c1 := NewObject(model.TypeCommunity, "c1")

	// Removing from a subject with no role is a no-op.
	if err := eng.RemoveRole(ctx, User("u1"), c1); err != nil {
		t.Fatal(err)
	}

	if err := eng.AssignRole(ctx, User("u1"), c1, model.RoleMember); err != nil {
		t.Fatal(err)
	}
	if err := eng.RemoveRole(ctx, User("u1"), c1); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := eng.RoleOf(ctx, User("u1"), c1); ok {
		t.Fatal("expected no role after removal")
	}
	if err := eng.RemoveRole(ctx, User("u1"), c1); err != nil {
		t.Fatal(err)
	}
}

func TestRoleOf_PrecedenceUnderViolatedInvariant(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	c1 := NewObject(model.TypeCommunity, "c1")

	// Seed both base roles directly, simulating an unresolved racing write.
	err := s.WriteTuples(ctx, []tuple.Tuple{
		fact(User("u1"), model.RoleMember, c1),
		fact(User("u1"), model.RoleAdmin, c1),
	})
	if err != nil {
		t.Fatal(err)
	}

	role, ok, err := eng.RoleOf(ctx, User("u1"), c1)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || role != model.RoleAdmin {
		t.Fatalf("expected highest-precedence admin, got %q ok=%v", role, ok)
	}

	// The next assignment heals the pair back to one tuple.
	if err := eng.AssignRole(ctx, User("u1"), c1, model.RoleMember); err != nil {
		t.Fatal(err)
	}
	all, _ := s.ListTuples(ctx, &tuple.ListFilter{
		ObjectType: "community", ObjectID: "c1",
		SubjectType: "user", SubjectID: "u1",
	})
	if len(all) != 1 || all[0].Relation != model.RoleMember {
		t.Fatalf("expected a single member tuple, got %v", all)
	}
}

func TestRolesForObject(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	c1 := NewObject(model.TypeCommunity, "c1")

	if err := eng.AssignRole(ctx, User("bob"), c1, model.RoleMember); err != nil {
		t.Fatal(err)
	}
	if err := eng.AssignRole(ctx, User("alice"), c1, model.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	// Feature roles and metadata-subject tuples are not assignments.
	if err := eng.GrantRelation(ctx, User("bob"), DirectRelation("forum_manager"), c1); err != nil {
		t.Fatal(err)
	}
	err := s.WriteTuples(ctx, []tuple.Tuple{fact(metadataSubject(), model.RoleMember, c1)})
	if err != nil {
		t.Fatal(err)
	}

	assignments, err := eng.RolesForObject(ctx, c1)
	if err != nil {
		t.Fatal(err)
	}
	if len(assignments) != 2 {
		t.Fatalf("expected two assignments, got %v", assignments)
	}
	if assignments[0].Subject.ID != "alice" || assignments[0].Role != model.RoleAdmin {
		t.Fatalf("unexpected first assignment %v", assignments[0])
	}
	if assignments[1].Subject.ID != "bob" || assignments[1].Role != model.RoleMember {
		t.Fatalf("unexpected second assignment %v", assignments[1])
	}
}

func TestAssignRole_ConcurrentConvergence(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	c1 := NewObject(model.TypeCommunity, "c1")

	// Two writers fight over the same pair. Every call either succeeds or
	// fails loudly with ErrRoleInconsistent; a lingering double role is
	// acceptable only when someone was told about it.
	var wg sync.WaitGroup
	errCh := make(chan error, 50)
	for _, role := range []string{model.RoleAdmin, model.RoleMember} {
		wg.Add(1)
		go func(role string) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				if err := eng.AssignRole(ctx, User("u1"), c1, role); err != nil {
					errCh <- err
				}
			}
		}(role)
	}
	wg.Wait()
	close(errCh)

	inconsistent := 0
	for err := range errCh {
		if !errors.Is(err, ErrRoleInconsistent) {
			t.Fatalf("unexpected error: %v", err)
		}
		inconsistent++
	}

	held, err := s.ListTuples(ctx, &tuple.ListFilter{
		ObjectType: "community", ObjectID: "c1",
		SubjectType: "user", SubjectID: "u1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(held) > 1 && inconsistent == 0 {
		t.Fatalf("expected a loud failure when both roles remain, got %v", held)
	}

	// A quiet follow-up assignment settles whatever the race left behind.
	if err := eng.AssignRole(ctx, User("u1"), c1, model.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	held, _ = s.ListTuples(ctx, &tuple.ListFilter{
		ObjectType: "community", ObjectID: "c1",
		SubjectType: "user", SubjectID: "u1",
	})
	if len(held) != 1 || held[0].Relation != model.RoleAdmin {
		t.Fatalf("expected a single admin tuple, got %v", held)
	}
}

// droppingStore swallows writes to force a verification failure.
type droppingStore struct {
	*memory.Store
	drop bool
}

func (d *droppingStore) WriteTuples(ctx context.Context, tuples []tuple.Tuple) error {
	if d.drop {
		return nil
	}
	return d.Store.WriteTuples(ctx, tuples)
}

func TestAssignRole_VerificationFailure(t *testing.T) {
	ctx := context.Background()
	ds := &droppingStore{Store: memory.New()}
	eng, err := NewEngine(WithStore(ds))
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Initialize(ctx); err != nil {
		t.Fatal(err)
	}

	ds.drop = true
	err = eng.AssignRole(ctx, User("u1"), NewObject(model.TypeCommunity, "c1"), model.RoleAdmin)
	if !errors.Is(err, ErrRoleInconsistent) {
		t.Fatalf("expected ErrRoleInconsistent, got %v", err)
	}
}
