// Package checklog defines the permission-check audit log Entry entity.
package checklog

import (
	"time"

	"github.com/xraph/steward/id"
)

// Entry is a single permission check audit record.
type Entry struct {
	ID          id.CheckLogID `json:"id" db:"id"`
	SubjectType string        `json:"subject_type" db:"subject_type"`
	SubjectID   string        `json:"subject_id" db:"subject_id"`
	Relation    string        `json:"relation" db:"relation"`
	ObjectType  string        `json:"object_type" db:"object_type"`
	ObjectID    string        `json:"object_id" db:"object_id"`
	Allowed     bool          `json:"allowed" db:"allowed"`
	Reason      string        `json:"reason,omitempty" db:"reason"`
	EvalTimeNs  int64         `json:"eval_time_ns" db:"eval_time_ns"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}

// QueryFilter contains filters for querying check logs.
type QueryFilter struct {
	SubjectType string     `json:"subject_type,omitempty"`
	SubjectID   string     `json:"subject_id,omitempty"`
	Relation    string     `json:"relation,omitempty"`
	ObjectType  string     `json:"object_type,omitempty"`
	ObjectID    string     `json:"object_id,omitempty"`
	Allowed     *bool      `json:"allowed,omitempty"`
	After       *time.Time `json:"after,omitempty"`
	Before      *time.Time `json:"before,omitempty"`
	Limit       int        `json:"limit,omitempty"`
	Offset      int        `json:"offset,omitempty"`
}

// Matches reports whether the entry satisfies every set filter field.
func (f *QueryFilter) Matches(e *Entry) bool {
	if f == nil {
		return true
	}
	if f.SubjectType != "" && e.SubjectType != f.SubjectType {
		return false
	}
	if f.SubjectID != "" && e.SubjectID != f.SubjectID {
		return false
	}
	if f.Relation != "" && e.Relation != f.Relation {
		return false
	}
	if f.ObjectType != "" && e.ObjectType != f.ObjectType {
		return false
	}
	if f.ObjectID != "" && e.ObjectID != f.ObjectID {
		return false
	}
	if f.Allowed != nil && e.Allowed != *f.Allowed {
		return false
	}
	if f.After != nil && !e.CreatedAt.After(*f.After) {
		return false
	}
	if f.Before != nil && !e.CreatedAt.Before(*f.Before) {
		return false
	}
	return true
}
