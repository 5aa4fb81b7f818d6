// Package tuple defines the relationship Tuple entity (Zanzibar-style facts).
package tuple

import (
	"fmt"
	"time"

	"github.com/xraph/steward/id"
)

// Tuple is the atomic authorization fact: subject has relation on object.
// Subjects are usually users, but objects can act as subjects too, which
// is how parent links (council → community) are recorded.
//
//	community:c1#admin@user:alice
//	forum_thread:t9#parent_community@community:c1
type Tuple struct {
	ID          id.TupleID `json:"id" db:"id"`
	ObjectType  string     `json:"object_type" db:"object_type"`
	ObjectID    string     `json:"object_id" db:"object_id"`
	Relation    string     `json:"relation" db:"relation"`
	SubjectType string     `json:"subject_type" db:"subject_type"`
	SubjectID   string     `json:"subject_id" db:"subject_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Key returns the logical identity of the fact. Two tuples with the same
// key are the same fact regardless of row ID; writes are idempotent on it.
func (t *Tuple) Key() string {
	return fmt.Sprintf("%s:%s#%s@%s:%s", t.ObjectType, t.ObjectID, t.Relation, t.SubjectType, t.SubjectID)
}

// String implements fmt.Stringer using the same notation as Key.
func (t *Tuple) String() string { return t.Key() }

// ListFilter contains filters for listing tuples. Zero-valued fields are
// wildcards.
type ListFilter struct {
	ObjectType  string `json:"object_type,omitempty"`
	ObjectID    string `json:"object_id,omitempty"`
	Relation    string `json:"relation,omitempty"`
	SubjectType string `json:"subject_type,omitempty"`
	SubjectID   string `json:"subject_id,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Offset      int    `json:"offset,omitempty"`
}

// Matches reports whether the tuple satisfies every non-empty filter field.
func (f *ListFilter) Matches(t *Tuple) bool {
	if f == nil {
		return true
	}
	if f.ObjectType != "" && t.ObjectType != f.ObjectType {
		return false
	}
	if f.ObjectID != "" && t.ObjectID != f.ObjectID {
		return false
	}
	if f.Relation != "" && t.Relation != f.Relation {
		return false
	}
	if f.SubjectType != "" && t.SubjectType != f.SubjectType {
		return false
	}
	if f.SubjectID != "" && t.SubjectID != f.SubjectID {
		return false
	}
	return true
}
