// Package mongo provides a MongoDB implementation of the Steward composite
// store backed by grove's mongodriver.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/steward/checklog"
	"github.com/xraph/steward/id"
	"github.com/xraph/steward/store"
	"github.com/xraph/steward/tuple"
)

// Collection name constants.
const (
	colTuples    = "steward_tuples"
	colCheckLogs = "steward_check_logs"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// errNotFound is the sentinel for missing entities.
var errNotFound = fmt.Errorf("not found")

// Store is a MongoDB implementation of the composite Steward store.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Migrate creates indexes for all steward collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()
	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("steward/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all steward collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colTuples: {
			{
				Keys: bson.D{
					{Key: "object_type", Value: 1},
					{Key: "object_id", Value: 1},
					{Key: "relation", Value: 1},
					{Key: "subject_type", Value: 1},
					{Key: "subject_id", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "object_type", Value: 1}, {Key: "object_id", Value: 1}}},
			{Keys: bson.D{{Key: "subject_type", Value: 1}, {Key: "subject_id", Value: 1}, {Key: "relation", Value: 1}, {Key: "object_type", Value: 1}}},
		},
		colCheckLogs: {
			{Keys: bson.D{{Key: "subject_type", Value: 1}, {Key: "subject_id", Value: 1}}},
			{Keys: bson.D{{Key: "object_type", Value: 1}, {Key: "object_id", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
	}
}

// ──────────────────────────────────────────────────
// Tuple operations
// ──────────────────────────────────────────────────

func tupleFilter(subjectType, subjectID, relation, objectType, objectID string) bson.M {
	return bson.M{
		"object_type":  objectType,
		"object_id":    objectID,
		"relation":     relation,
		"subject_type": subjectType,
		"subject_id":   subjectID,
	}
}

func (s *Store) WriteTuples(ctx context.Context, tuples []tuple.Tuple) error {
	ts := now()
	for i := range tuples {
		t := tuples[i]
		exists, err := s.HasTuple(ctx, t.SubjectType, t.SubjectID, t.Relation, t.ObjectType, t.ObjectID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if t.ID.IsNil() {
			t.ID = id.NewTupleID()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = ts
		}
		if _, err := s.mdb.NewInsert(tupleToModel(&t)).Exec(ctx); err != nil {
			return fmt.Errorf("steward: write tuple: %w", err)
		}
	}
	return nil
}

func (s *Store) DeleteTuples(ctx context.Context, tuples []tuple.Tuple) error {
	for i := range tuples {
		t := tuples[i]
		_, err := s.mdb.NewDelete((*tupleModel)(nil)).
			Many().
			Filter(tupleFilter(t.SubjectType, t.SubjectID, t.Relation, t.ObjectType, t.ObjectID)).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("steward: delete tuple: %w", err)
		}
	}
	return nil
}

func (s *Store) ListTuples(ctx context.Context, filter *tuple.ListFilter) ([]*tuple.Tuple, error) {
	var models []tupleModel
	f := bson.M{}
	if filter != nil {
		if filter.ObjectType != "" {
			f["object_type"] = filter.ObjectType
		}
		if filter.ObjectID != "" {
			f["object_id"] = filter.ObjectID
		}
		if filter.Relation != "" {
			f["relation"] = filter.Relation
		}
		if filter.SubjectType != "" {
			f["subject_type"] = filter.SubjectType
		}
		if filter.SubjectID != "" {
			f["subject_id"] = filter.SubjectID
		}
	}
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "created_at", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("steward: list tuples: %w", err)
	}
	result := make([]*tuple.Tuple, len(models))
	for i := range models {
		result[i] = tupleFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountTuples(ctx context.Context, filter *tuple.ListFilter) (int64, error) {
	f := bson.M{}
	if filter != nil {
		if filter.ObjectType != "" {
			f["object_type"] = filter.ObjectType
		}
		if filter.ObjectID != "" {
			f["object_id"] = filter.ObjectID
		}
		if filter.Relation != "" {
			f["relation"] = filter.Relation
		}
		if filter.SubjectType != "" {
			f["subject_type"] = filter.SubjectType
		}
		if filter.SubjectID != "" {
			f["subject_id"] = filter.SubjectID
		}
	}
	count, err := s.mdb.NewFind((*tupleModel)(nil)).Filter(f).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("steward: count tuples: %w", err)
	}
	return count, nil
}

func (s *Store) HasTuple(ctx context.Context, subjectType, subjectID, relation, objectType, objectID string) (bool, error) {
	count, err := s.mdb.NewFind((*tupleModel)(nil)).
		Filter(tupleFilter(subjectType, subjectID, relation, objectType, objectID)).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("steward: has tuple: %w", err)
	}
	return count > 0, nil
}

func (s *Store) ListObjectIDs(ctx context.Context, subjectType, subjectID, relation, objectType string) ([]string, error) {
	var models []tupleModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"subject_type": subjectType,
			"subject_id":   subjectID,
			"relation":     relation,
			"object_type":  objectType,
		}).
		Sort(bson.D{{Key: "object_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("steward: list object ids: %w", err)
	}
	seen := make(map[string]struct{}, len(models))
	result := make([]string, 0, len(models))
	for i := range models {
		oid := models[i].ObjectID
		if _, dup := seen[oid]; dup {
			continue
		}
		seen[oid] = struct{}{}
		result = append(result, oid)
	}
	return result, nil
}

func (s *Store) DeleteTuplesByObject(ctx context.Context, objectType, objectID string) error {
	_, err := s.mdb.NewDelete((*tupleModel)(nil)).
		Many().
		Filter(bson.M{"object_type": objectType, "object_id": objectID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("steward: delete tuples by object: %w", err)
	}
	return nil
}

func (s *Store) DeleteTuplesBySubject(ctx context.Context, subjectType, subjectID string) error {
	_, err := s.mdb.NewDelete((*tupleModel)(nil)).
		Many().
		Filter(bson.M{"subject_type": subjectType, "subject_id": subjectID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("steward: delete tuples by subject: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Check log operations
// ──────────────────────────────────────────────────

func (s *Store) CreateCheckLog(ctx context.Context, e *checklog.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	m := checkLogToModel(e)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("steward: create check log: %w", err)
	}
	return nil
}

func (s *Store) GetCheckLog(ctx context.Context, logID id.CheckLogID) (*checklog.Entry, error) {
	var m checkLogModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": logID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("check log %s: %w", logID, errNotFound)
		}
		return nil, fmt.Errorf("steward: get check log: %w", err)
	}
	return checkLogFromModel(&m), nil
}

func checkLogFilterDoc(filter *checklog.QueryFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	if filter.SubjectType != "" {
		f["subject_type"] = filter.SubjectType
	}
	if filter.SubjectID != "" {
		f["subject_id"] = filter.SubjectID
	}
	if filter.Relation != "" {
		f["relation"] = filter.Relation
	}
	if filter.ObjectType != "" {
		f["object_type"] = filter.ObjectType
	}
	if filter.ObjectID != "" {
		f["object_id"] = filter.ObjectID
	}
	if filter.Allowed != nil {
		f["allowed"] = *filter.Allowed
	}
	created := bson.M{}
	if filter.After != nil {
		created["$gt"] = *filter.After
	}
	if filter.Before != nil {
		created["$lt"] = *filter.Before
	}
	if len(created) > 0 {
		f["created_at"] = created
	}
	return f
}

func (s *Store) ListCheckLogs(ctx context.Context, filter *checklog.QueryFilter) ([]*checklog.Entry, error) {
	var models []checkLogModel
	q := s.mdb.NewFind(&models).
		Filter(checkLogFilterDoc(filter)).
		Sort(bson.D{{Key: "created_at", Value: -1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("steward: list check logs: %w", err)
	}
	result := make([]*checklog.Entry, len(models))
	for i := range models {
		result[i] = checkLogFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountCheckLogs(ctx context.Context, filter *checklog.QueryFilter) (int64, error) {
	count, err := s.mdb.NewFind((*checkLogModel)(nil)).
		Filter(checkLogFilterDoc(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("steward: count check logs: %w", err)
	}
	return count, nil
}

func (s *Store) PurgeCheckLogs(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*checkLogModel)(nil)).
		Many().
		Filter(bson.M{"created_at": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("steward: purge check logs: %w", err)
	}
	return res.DeletedCount(), nil
}
