package memory

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/steward/checklog"
	"github.com/xraph/steward/id"
	"github.com/xraph/steward/tuple"
)

func fact(objectType, objectID, relation, subjectType, subjectID string) tuple.Tuple {
	return tuple.Tuple{
		ObjectType:  objectType,
		ObjectID:    objectID,
		Relation:    relation,
		SubjectType: subjectType,
		SubjectID:   subjectID,
	}
}

func TestWriteTuples_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	f := fact("community", "c1", "admin", "user", "alice")

	if err := s.WriteTuples(ctx, []tuple.Tuple{f}); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteTuples(ctx, []tuple.Tuple{f}); err != nil {
		t.Fatal(err)
	}

	n, err := s.CountTuples(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected one tuple, got %d", n)
	}

	// The first write's assigned ID survives the duplicate write.
	all, _ := s.ListTuples(ctx, nil)
	if all[0].ID.IsNil() {
		t.Fatal("expected an assigned tuple ID")
	}
	if all[0].CreatedAt.IsZero() {
		t.Fatal("expected an assigned creation time")
	}
}

func TestDeleteTuples_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	f := fact("community", "c1", "admin", "user", "alice")

	// Deleting an absent fact succeeds.
	if err := s.DeleteTuples(ctx, []tuple.Tuple{f}); err != nil {
		t.Fatal(err)
	}

	if err := s.WriteTuples(ctx, []tuple.Tuple{f}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteTuples(ctx, []tuple.Tuple{f}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteTuples(ctx, []tuple.Tuple{f}); err != nil {
		t.Fatal(err)
	}

	has, err := s.HasTuple(ctx, "user", "alice", "admin", "community", "c1")
	if err != nil {
		t.Fatal(err)
	}
	if has {
		t.Fatal("expected fact deleted")
	}
}

func TestListTuples_FilterAndPagination(t *testing.T) {
	ctx := context.Background()
	s := New()
	err := s.WriteTuples(ctx, []tuple.Tuple{
		fact("community", "c1", "admin", "user", "alice"),
		fact("community", "c1", "member", "user", "bob"),
		fact("community", "c2", "member", "user", "alice"),
		fact("pool", "p1", "owner", "user", "alice"),
	})
	if err != nil {
		t.Fatal(err)
	}

	list, err := s.ListTuples(ctx, &tuple.ListFilter{ObjectType: "community"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 community tuples, got %d", len(list))
	}

	list, _ = s.ListTuples(ctx, &tuple.ListFilter{SubjectID: "alice"})
	if len(list) != 3 {
		t.Fatalf("expected 3 alice tuples, got %d", len(list))
	}

	list, _ = s.ListTuples(ctx, &tuple.ListFilter{ObjectType: "community", ObjectID: "c1", Relation: "admin"})
	if len(list) != 1 || list[0].SubjectID != "alice" {
		t.Fatalf("expected alice's admin tuple, got %v", list)
	}

	// Pagination is deterministic over the key ordering.
	page1, _ := s.ListTuples(ctx, &tuple.ListFilter{Limit: 2})
	page2, _ := s.ListTuples(ctx, &tuple.ListFilter{Limit: 2, Offset: 2})
	if len(page1) != 2 || len(page2) != 2 {
		t.Fatalf("expected two pages of two, got %d and %d", len(page1), len(page2))
	}
	if page1[0].Key() == page2[0].Key() {
		t.Fatal("expected disjoint pages")
	}
	empty, _ := s.ListTuples(ctx, &tuple.ListFilter{Offset: 10})
	if len(empty) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(empty))
	}
}

func TestListObjectIDs(t *testing.T) {
	ctx := context.Background()
	s := New()
	err := s.WriteTuples(ctx, []tuple.Tuple{
		fact("pool", "p2", "owner", "user", "alice"),
		fact("pool", "p1", "owner", "user", "alice"),
		fact("pool", "p3", "owner", "user", "bob"),
		fact("pool", "p1", "viewer", "user", "alice"),
	})
	if err != nil {
		t.Fatal(err)
	}

	ids, err := s.ListObjectIDs(ctx, "user", "alice", "owner", "pool")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "p1" || ids[1] != "p2" {
		t.Fatalf("expected sorted [p1 p2], got %v", ids)
	}
}

func TestDeleteTuplesByObjectAndSubject(t *testing.T) {
	ctx := context.Background()
	s := New()
	err := s.WriteTuples(ctx, []tuple.Tuple{
		fact("community", "c1", "admin", "user", "alice"),
		fact("community", "c1", "member", "user", "bob"),
		fact("community", "c2", "member", "user", "alice"),
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteTuplesByObject(ctx, "community", "c1"); err != nil {
		t.Fatal(err)
	}
	n, _ := s.CountTuples(ctx, nil)
	if n != 1 {
		t.Fatalf("expected one tuple after object delete, got %d", n)
	}

	if err := s.DeleteTuplesBySubject(ctx, "user", "alice"); err != nil {
		t.Fatal(err)
	}
	n, _ = s.CountTuples(ctx, nil)
	if n != 0 {
		t.Fatalf("expected no tuples after subject delete, got %d", n)
	}
}

func TestCheckLogLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	old := &checklog.Entry{
		ID:          id.NewCheckLogID(),
		SubjectType: "user", SubjectID: "alice",
		Relation:   "can_read",
		ObjectType: "community", ObjectID: "c1",
		Allowed:   true,
		Reason:    "resolved",
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
	recent := &checklog.Entry{
		ID:          id.NewCheckLogID(),
		SubjectType: "user", SubjectID: "bob",
		Relation:   "can_update",
		ObjectType: "community", ObjectID: "c1",
		Allowed:   false,
		Reason:    "no path",
		CreatedAt: time.Now().UTC(),
	}
	for _, e := range []*checklog.Entry{old, recent} {
		if err := s.CreateCheckLog(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.GetCheckLog(ctx, old.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SubjectID != "alice" || !got.Allowed {
		t.Fatalf("unexpected entry %+v", got)
	}
	if _, err := s.GetCheckLog(ctx, id.NewCheckLogID()); err == nil {
		t.Fatal("expected error for missing entry")
	}

	denied := false
	list, err := s.ListCheckLogs(ctx, &checklog.QueryFilter{Allowed: &denied})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].SubjectID != "bob" {
		t.Fatalf("expected bob's denied entry, got %v", list)
	}

	// Entries come back oldest first.
	list, _ = s.ListCheckLogs(ctx, nil)
	if len(list) != 2 || list[0].SubjectID != "alice" {
		t.Fatalf("expected chronological order, got %v", list)
	}

	purged, err := s.PurgeCheckLogs(ctx, time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if purged != 1 {
		t.Fatalf("expected one purged entry, got %d", purged)
	}
	n, _ := s.CountCheckLogs(ctx, nil)
	if n != 1 {
		t.Fatalf("expected one remaining entry, got %d", n)
	}
}
