package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/steward/checklog"
	"github.com/xraph/steward/id"
	"github.com/xraph/steward/tuple"
)

// ──────────────────────────────────────────────────
// Tuple model
// ──────────────────────────────────────────────────

type tupleModel struct {
	grove.BaseModel `grove:"table:steward_tuples"`
	ID              string    `grove:"id,pk"           bson:"_id"`
	ObjectType      string    `grove:"object_type"     bson:"object_type"`
	ObjectID        string    `grove:"object_id"       bson:"object_id"`
	Relation        string    `grove:"relation"        bson:"relation"`
	SubjectType     string    `grove:"subject_type"    bson:"subject_type"`
	SubjectID       string    `grove:"subject_id"      bson:"subject_id"`
	CreatedAt       time.Time `grove:"created_at"      bson:"created_at"`
}

func tupleToModel(t *tuple.Tuple) *tupleModel {
	return &tupleModel{
		ID:          t.ID.String(),
		ObjectType:  t.ObjectType,
		ObjectID:    t.ObjectID,
		Relation:    t.Relation,
		SubjectType: t.SubjectType,
		SubjectID:   t.SubjectID,
		CreatedAt:   t.CreatedAt,
	}
}

func tupleFromModel(m *tupleModel) *tuple.Tuple {
	tid, _ := id.ParseTupleID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &tuple.Tuple{
		ID:          tid,
		ObjectType:  m.ObjectType,
		ObjectID:    m.ObjectID,
		Relation:    m.Relation,
		SubjectType: m.SubjectType,
		SubjectID:   m.SubjectID,
		CreatedAt:   m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// Check log model
// ──────────────────────────────────────────────────

type checkLogModel struct {
	grove.BaseModel `grove:"table:steward_check_logs"`
	ID              string    `grove:"id,pk"           bson:"_id"`
	SubjectType     string    `grove:"subject_type"    bson:"subject_type"`
	SubjectID       string    `grove:"subject_id"      bson:"subject_id"`
	Relation        string    `grove:"relation"        bson:"relation"`
	ObjectType      string    `grove:"object_type"     bson:"object_type"`
	ObjectID        string    `grove:"object_id"       bson:"object_id"`
	Allowed         bool      `grove:"allowed"         bson:"allowed"`
	Reason          string    `grove:"reason"          bson:"reason,omitempty"`
	EvalTimeNs      int64     `grove:"eval_time_ns"    bson:"eval_time_ns"`
	CreatedAt       time.Time `grove:"created_at"      bson:"created_at"`
}

func checkLogToModel(e *checklog.Entry) *checkLogModel {
	return &checkLogModel{
		ID:          e.ID.String(),
		SubjectType: e.SubjectType,
		SubjectID:   e.SubjectID,
		Relation:    e.Relation,
		ObjectType:  e.ObjectType,
		ObjectID:    e.ObjectID,
		Allowed:     e.Allowed,
		Reason:      e.Reason,
		EvalTimeNs:  e.EvalTimeNs,
		CreatedAt:   e.CreatedAt,
	}
}

func checkLogFromModel(m *checkLogModel) *checklog.Entry {
	clid, _ := id.ParseCheckLogID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &checklog.Entry{
		ID:          clid,
		SubjectType: m.SubjectType,
		SubjectID:   m.SubjectID,
		Relation:    m.Relation,
		ObjectType:  m.ObjectType,
		ObjectID:    m.ObjectID,
		Allowed:     m.Allowed,
		Reason:      m.Reason,
		EvalTimeNs:  m.EvalTimeNs,
		CreatedAt:   m.CreatedAt,
	}
}
