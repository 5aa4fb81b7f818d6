package tuple

import (
	"context"
)

// Store defines persistence operations for relationship tuples.
//
// Write and Delete are idempotent per tuple: writing a fact that already
// exists succeeds without duplicating it, and deleting an absent fact
// succeeds without error. Callers rely on both for race tolerance.
// Infrastructure failures must surface as errors, never as a silent
// "not found" — the resolver fails closed on them.
type Store interface {
	// WriteTuples persists tuples. Existing facts are left untouched.
	WriteTuples(ctx context.Context, tuples []Tuple) error

	// DeleteTuples removes tuples by logical key. Absent facts are ignored.
	DeleteTuples(ctx context.Context, tuples []Tuple) error

	// ListTuples returns tuples matching the filter; nil matches everything.
	ListTuples(ctx context.Context, filter *ListFilter) ([]*Tuple, error)

	// CountTuples returns the number of tuples matching the filter.
	CountTuples(ctx context.Context, filter *ListFilter) (int64, error)

	// HasTuple checks whether one exact fact exists. It never expands
	// computed relations; that is the resolver's job.
	HasTuple(ctx context.Context, subjectType, subjectID, relation, objectType, objectID string) (bool, error)

	// ListObjectIDs is the reverse index: all object IDs of objectType on
	// which the subject holds relation directly.
	ListObjectIDs(ctx context.Context, subjectType, subjectID, relation, objectType string) ([]string, error)

	// DeleteTuplesByObject removes every fact recorded on an object.
	DeleteTuplesByObject(ctx context.Context, objectType, objectID string) error

	// DeleteTuplesBySubject removes every fact held by a subject.
	DeleteTuplesBySubject(ctx context.Context, subjectType, subjectID string) error
}
