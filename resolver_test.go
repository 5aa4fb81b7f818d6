package steward

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/xraph/steward/model"
	"github.com/xraph/steward/store/memory"
)

func TestResolve_UnknownRelationDenies(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	c1 := NewObject(model.TypeCommunity, "c1")

	if err := eng.AssignRole(ctx, User("u1"), c1, model.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	allowed, err := eng.Check(ctx, User("u1"), Permission("can_teleport"), c1)
	if err != nil {
		t.Fatal(err)
	}
	if allowed {
		t.Fatal("expected unknown permission to deny")
	}
}

func TestResolve_UnionShortCircuit(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	c1 := NewObject(model.TypeCommunity, "c1")

	// can_view_pool on a community is admin OR pool_viewer; either operand
	// alone satisfies it.
	if err := eng.AssignRole(ctx, User("a"), c1, model.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	if err := eng.GrantRelation(ctx, User("v"), DirectRelation("pool_viewer"), c1); err != nil {
		t.Fatal(err)
	}

	for _, uid := range []string{"a", "v"} {
		allowed, err := eng.Check(ctx, User(uid), Permission("can_view_pool"), c1)
		if err != nil {
			t.Fatal(err)
		}
		if !allowed {
			t.Fatalf("expected %q allowed", uid)
		}
	}
	allowed, _ := eng.Check(ctx, User("stranger"), Permission("can_view_pool"), c1)
	if allowed {
		t.Fatal("expected stranger denied")
	}
}

// folderModel is a self-parenting type used to exercise the traversal
// depth limit, which the production model's fixed two-level hierarchy
// cannot reach.
func folderModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.New(
		&model.TypeDef{Name: model.TypeUser},
		&model.TypeDef{Name: model.TypeSystem, Relations: []string{model.RelationSuperadmin}},
		&model.TypeDef{
			Name:      "folder",
			Relations: []string{model.RelationOwner},
			Parent:    &model.ParentLink{Relation: "parent_folder", Type: "folder"},
			Permissions: map[string]model.Permission{
				"can_read": {AnyOf: []string{model.RelationOwner}, FromParent: true},
			},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestResolve_DepthLimit(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.MaxParentDepth = 3

	s := memory.New()
	eng, err := NewEngine(WithStore(s), WithModel(folderModel(t)), WithConfig(cfg))
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Initialize(ctx); err != nil {
		t.Fatal(err)
	}

	// f0 <- f1 <- ... <- f5, with u1 owning the root.
	if err := eng.GrantRelation(ctx, User("u1"), DirectRelation(model.RelationOwner), NewObject("folder", "f0")); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 5; i++ {
		child := NewObject("folder", fmt.Sprintf("f%d", i))
		parent := NewObject("folder", fmt.Sprintf("f%d", i-1))
		if err := eng.CreateRelationship(ctx, child, "parent_folder", parent); err != nil {
			t.Fatal(err)
		}
	}

	// Within the limit the ownership is inherited.
	allowed, err := eng.Check(ctx, User("u1"), Permission("can_read"), NewObject("folder", "f2"))
	if err != nil {
		t.Fatal(err)
	}
	if !allowed {
		t.Fatal("expected inherited read within depth limit")
	}

	// Beyond the limit the walk stops and the check fails closed.
	allowed, err = eng.Check(ctx, User("u1"), Permission("can_read"), NewObject("folder", "f5"))
	if err != nil {
		t.Fatal(err)
	}
	if allowed {
		t.Fatal("expected deny beyond depth limit")
	}
}

func TestListAccessibleObjects_CyclicParentTerminates(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	eng, err := NewEngine(WithStore(s), WithModel(folderModel(t)))
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Initialize(ctx); err != nil {
		t.Fatal(err)
	}

	// A self-parenting type must hit the depth cap instead of recursing
	// without bound, even with no tuples recorded.
	_, err = eng.ListAccessibleObjects(ctx, User("u1"), "folder", Permission("can_read"))
	if !errors.Is(err, ErrMaxDepthExceeded) {
		t.Fatalf("expected ErrMaxDepthExceeded, got %v", err)
	}
}

func TestResolve_OrphanDenies(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	// A pool with no parent link and no owner has no path to anyone.
	allowed, err := eng.Check(ctx, User("u1"), Permission("can_read"), NewObject(model.TypePool, "p1"))
	if err != nil {
		t.Fatal(err)
	}
	if allowed {
		t.Fatal("expected orphan pool to deny")
	}
}
