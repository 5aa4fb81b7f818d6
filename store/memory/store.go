// Package memory provides an in-memory implementation of the Steward
// composite store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xraph/steward/checklog"
	"github.com/xraph/steward/id"
	"github.com/xraph/steward/tuple"
)

// Compile-time interface checks.
var (
	_ tuple.Store    = (*Store)(nil)
	_ checklog.Store = (*Store)(nil)
)

// errNotFound is the sentinel for missing entities.
var errNotFound = fmt.Errorf("not found")

// Store is a thread-safe in-memory store for tuples and check logs.
// Tuples are keyed by their logical fact key, which makes writes and
// deletes naturally idempotent.
type Store struct {
	mu sync.RWMutex

	tuples    map[string]*tuple.Tuple // fact key -> tuple
	checkLogs map[string]*checklog.Entry
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		tuples:    make(map[string]*tuple.Tuple),
		checkLogs: make(map[string]*checklog.Entry),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Tuple Store
// ──────────────────────────────────────────────────

func (s *Store) WriteTuples(_ context.Context, tuples []tuple.Tuple) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for i := range tuples {
		t := tuples[i]
		key := t.Key()
		if _, exists := s.tuples[key]; exists {
			continue // Idempotent: the fact is already recorded.
		}
		if t.ID.IsNil() {
			t.ID = id.NewTupleID()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		s.tuples[key] = &t
	}
	return nil
}

func (s *Store) DeleteTuples(_ context.Context, tuples []tuple.Tuple) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range tuples {
		delete(s.tuples, tuples[i].Key()) // Idempotent: absent facts ignored.
	}
	return nil
}

func (s *Store) ListTuples(_ context.Context, filter *tuple.ListFilter) ([]*tuple.Tuple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*tuple.Tuple, 0, len(s.tuples))
	for _, t := range s.tuples {
		if !filter.Matches(t) {
			continue
		}
		result = append(result, copyTuple(t))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key() < result[j].Key() })
	return applyPagination(result, paginationOpts(filter)), nil
}

func (s *Store) CountTuples(ctx context.Context, filter *tuple.ListFilter) (int64, error) {
	list, err := s.ListTuples(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) HasTuple(_ context.Context, subjectType, subjectID, relation, objectType, objectID string) (bool, error) {
	probe := tuple.Tuple{
		ObjectType:  objectType,
		ObjectID:    objectID,
		Relation:    relation,
		SubjectType: subjectType,
		SubjectID:   subjectID,
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tuples[probe.Key()]
	return ok, nil
}

func (s *Store) ListObjectIDs(_ context.Context, subjectType, subjectID, relation, objectType string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	var result []string
	for _, t := range s.tuples {
		if t.SubjectType != subjectType || t.SubjectID != subjectID {
			continue
		}
		if t.Relation != relation || t.ObjectType != objectType {
			continue
		}
		if _, dup := seen[t.ObjectID]; dup {
			continue
		}
		seen[t.ObjectID] = struct{}{}
		result = append(result, t.ObjectID)
	}
	sort.Strings(result)
	return result, nil
}

func (s *Store) DeleteTuplesByObject(_ context.Context, objectType, objectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, t := range s.tuples {
		if t.ObjectType == objectType && t.ObjectID == objectID {
			delete(s.tuples, k)
		}
	}
	return nil
}

func (s *Store) DeleteTuplesBySubject(_ context.Context, subjectType, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, t := range s.tuples {
		if t.SubjectType == subjectType && t.SubjectID == subjectID {
			delete(s.tuples, k)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Check Log Store
// ──────────────────────────────────────────────────

func (s *Store) CreateCheckLog(_ context.Context, e *checklog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkLogs[e.ID.String()] = copyCheckLog(e)
	return nil
}

func (s *Store) GetCheckLog(_ context.Context, logID id.CheckLogID) (*checklog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.checkLogs[logID.String()]
	if !ok {
		return nil, fmt.Errorf("check log %s: %w", logID, errNotFound)
	}
	return copyCheckLog(e), nil
}

func (s *Store) ListCheckLogs(_ context.Context, filter *checklog.QueryFilter) ([]*checklog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*checklog.Entry, 0, len(s.checkLogs))
	for _, e := range s.checkLogs {
		if !filter.Matches(e) {
			continue
		}
		result = append(result, copyCheckLog(e))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	var opts pagination
	if filter != nil {
		opts = pagination{limit: filter.Limit, offset: filter.Offset}
	}
	return applyPagination(result, opts), nil
}

func (s *Store) CountCheckLogs(ctx context.Context, filter *checklog.QueryFilter) (int64, error) {
	list, err := s.ListCheckLogs(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) PurgeCheckLogs(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for k, e := range s.checkLogs {
		if e.CreatedAt.Before(before) {
			delete(s.checkLogs, k)
			purged++
		}
	}
	return purged, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

type pagination struct {
	limit  int
	offset int
}

func paginationOpts(filter *tuple.ListFilter) pagination {
	if filter == nil {
		return pagination{}
	}
	return pagination{limit: filter.Limit, offset: filter.Offset}
}

func applyPagination[T any](items []T, opts pagination) []T {
	if opts.offset > 0 {
		if opts.offset >= len(items) {
			return []T{}
		}
		items = items[opts.offset:]
	}
	if opts.limit > 0 && opts.limit < len(items) {
		items = items[:opts.limit]
	}
	return items
}

func copyTuple(t *tuple.Tuple) *tuple.Tuple {
	c := *t
	return &c
}

func copyCheckLog(e *checklog.Entry) *checklog.Entry {
	c := *e
	return &c
}
