// Package model defines the static authorization model: which relations each
// object type supports, how computed permissions expand into unions of
// relations, and how child types inherit checks from a parent object.
//
// A Model is built once at startup from typed definitions and is immutable
// afterwards. It plays the role an authorization-model document plays in
// engines like OpenFGA, without the external DSL.
package model

import (
	"fmt"
)

// TypeDef describes the authorization schema for one object type.
type TypeDef struct {
	// Name is the canonical object type name (e.g. "community").
	Name string

	// RoleSet is the ordered, mutually exclusive set of base roles for
	// this type, highest privilege first. A subject holds at most one of
	// these per object instance; the role assignment protocol enforces it.
	RoleSet []string

	// Relations lists directly assignable relations beyond the role set:
	// feature roles, ownership, parent links.
	Relations []string

	// Permissions maps permission names to their union definitions.
	Permissions map[string]Permission

	// Parent links this type to its parent object type. The parent
	// reference itself is a tuple: parent-object relation child-object.
	Parent *ParentLink

	// TrustLevels allows trust_level_<n> tuples on objects of this type.
	TrustLevels bool

	// GrantMetadata allows grants_<role> metadata tuples on objects of
	// this type (pending-invite role grants).
	GrantMetadata bool

	relations map[string]struct{}
	roles     map[string]struct{}
}

// Permission is a computed relation: a union of other relations and
// permissions, optionally extended through the parent link.
type Permission struct {
	// AnyOf lists union operands, evaluated in order with short-circuit
	// OR. Operands may name direct relations or other permissions of the
	// same type. Union is the only composite this model needs.
	AnyOf []string

	// FromParent additionally satisfies the permission when the same
	// permission holds on the object's parent.
	FromParent bool
}

// ParentLink names the tuple relation and object type of a parent link.
type ParentLink struct {
	Relation string
	Type     string
}

// Model is the immutable authorization schema for the whole system.
type Model struct {
	types map[string]*TypeDef
}

// New builds a Model from type definitions and validates cross-references.
func New(defs ...*TypeDef) (*Model, error) {
	m := &Model{types: make(map[string]*TypeDef, len(defs))}
	for _, td := range defs {
		if td.Name == "" {
			return nil, fmt.Errorf("model: type definition with empty name")
		}
		if _, dup := m.types[td.Name]; dup {
			return nil, fmt.Errorf("model: duplicate type %q", td.Name)
		}
		td.index()
		m.types[td.Name] = td
	}
	for _, td := range m.types {
		if err := m.validate(td); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNew is like New but panics on error. Use for static model literals.
func MustNew(defs ...*TypeDef) *Model {
	m, err := New(defs...)
	if err != nil {
		panic(err)
	}
	return m
}

func (td *TypeDef) index() {
	td.relations = make(map[string]struct{}, len(td.Relations)+len(td.RoleSet))
	for _, r := range td.Relations {
		td.relations[r] = struct{}{}
	}
	td.roles = make(map[string]struct{}, len(td.RoleSet))
	for _, r := range td.RoleSet {
		td.roles[r] = struct{}{}
		td.relations[r] = struct{}{}
	}
	if td.Parent != nil {
		td.relations[td.Parent.Relation] = struct{}{}
	}
}

func (m *Model) validate(td *TypeDef) error {
	if td.Parent != nil {
		if _, ok := m.types[td.Parent.Type]; !ok {
			return fmt.Errorf("model: type %q links to unknown parent type %q", td.Name, td.Parent.Type)
		}
	}
	for name, perm := range td.Permissions {
		for _, op := range perm.AnyOf {
			if td.IsDirect(op) {
				continue
			}
			if _, ok := td.Permissions[op]; ok {
				continue
			}
			return fmt.Errorf("model: permission %q on type %q references unknown operand %q", name, td.Name, op)
		}
		if perm.FromParent && td.Parent == nil {
			return fmt.Errorf("model: permission %q on type %q is FromParent but the type has no parent link", name, td.Name)
		}
	}
	return nil
}

// Type returns the definition for an object type.
func (m *Model) Type(name string) (*TypeDef, bool) {
	td, ok := m.types[name]
	return td, ok
}

// Types returns the names of all defined object types.
func (m *Model) Types() []string {
	names := make([]string, 0, len(m.types))
	for name := range m.types {
		names = append(names, name)
	}
	return names
}

// IsDirect reports whether rel can be written as a tuple on this type.
// The trust_level_<n> and grants_<role> families count as direct when the
// type opts into them.
func (td *TypeDef) IsDirect(rel string) bool {
	if _, ok := td.relations[rel]; ok {
		return true
	}
	if td.TrustLevels {
		if _, ok := ParseTrustLevel(rel); ok {
			return true
		}
	}
	if td.GrantMetadata {
		if _, ok := ParseGrant(rel); ok {
			return true
		}
	}
	return false
}

// Permission returns the computed definition of a permission name.
func (td *TypeDef) Permission(name string) (Permission, bool) {
	p, ok := td.Permissions[name]
	return p, ok
}

// InRoleSet reports whether rel belongs to this type's exclusive role set.
func (td *TypeDef) InRoleSet(rel string) bool {
	_, ok := td.roles[rel]
	return ok
}
