// Package steward is a relationship-based authorization engine for
// community platforms. Authorization facts are stored as subject-relation-
// object tuples; computed permissions expand over them through a static
// model of unions and parent links.
//
// The root package exposes the Engine. Entities and store contracts live in
// subpackages: tuple, checklog, model, store (with memory, postgres, sqlite,
// and mongo backends), cache, and plugin.
package steward

import (
	"github.com/xraph/steward/model"
	"github.com/xraph/steward/tuple"
)

// Subject identifies who holds a relation. Usually a user, but objects act
// as subjects too when recording object-to-object links.
type Subject struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// User returns a user subject.
func User(id string) Subject { return Subject{Type: model.TypeUser, ID: id} }

// AsSubject converts an object into a subject for object-to-object tuples.
func AsSubject(o Object) Subject { return Subject{Type: o.Type, ID: o.ID} }

// Ref renders the subject in type:id notation.
func (s Subject) Ref() string { return model.Ref(s.Type, s.ID) }

// IsZero reports whether the subject is unset.
func (s Subject) IsZero() bool { return s.Type == "" && s.ID == "" }

// Object identifies the target of a relation.
type Object struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// NewObject returns an object reference.
func NewObject(typ, id string) Object { return Object{Type: typ, ID: id} }

// Ref renders the object in type:id notation.
func (o Object) Ref() string { return model.Ref(o.Type, o.ID) }

// SystemObject is the singleton object carrying platform-wide relations.
func SystemObject() Object {
	return Object{Type: model.TypeSystem, ID: model.SystemObjectID}
}

// MetadataSubjectID is the reserved subject ID for metadata tuples such as
// pending-invite role grants. It never refers to a real user.
const MetadataSubjectID = "metadata"

func metadataSubject() Subject {
	return Subject{Type: model.TypeUser, ID: MetadataSubjectID}
}

// fact assembles a store tuple from engine-level references.
func fact(subject Subject, relation string, object Object) tuple.Tuple {
	return tuple.Tuple{
		ObjectType:  object.Type,
		ObjectID:    object.ID,
		Relation:    relation,
		SubjectType: subject.Type,
		SubjectID:   subject.ID,
	}
}
