package tuple

import "testing"

func TestKey(t *testing.T) {
	f := Tuple{
		ObjectType:  "community",
		ObjectID:    "c1",
		Relation:    "admin",
		SubjectType: "user",
		SubjectID:   "alice",
	}
	if got := f.Key(); got != "community:c1#admin@user:alice" {
		t.Fatalf("unexpected key %q", got)
	}

	link := Tuple{
		ObjectType:  "forum_thread",
		ObjectID:    "t9",
		Relation:    "parent_community",
		SubjectType: "community",
		SubjectID:   "c1",
	}
	if got := link.Key(); got != "forum_thread:t9#parent_community@community:c1" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestListFilter_Matches(t *testing.T) {
	f := &Tuple{
		ObjectType:  "community",
		ObjectID:    "c1",
		Relation:    "admin",
		SubjectType: "user",
		SubjectID:   "alice",
	}

	var nilFilter *ListFilter
	if !nilFilter.Matches(f) {
		t.Error("expected nil filter to match everything")
	}
	if !(&ListFilter{}).Matches(f) {
		t.Error("expected empty filter to match everything")
	}
	if !(&ListFilter{ObjectType: "community", Relation: "admin"}).Matches(f) {
		t.Error("expected partial filter to match")
	}
	if (&ListFilter{ObjectType: "community", Relation: "member"}).Matches(f) {
		t.Error("expected mismatched relation to fail")
	}
	if (&ListFilter{SubjectID: "bob"}).Matches(f) {
		t.Error("expected mismatched subject to fail")
	}
}
