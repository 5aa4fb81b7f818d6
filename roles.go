package steward

import (
	"context"
	"fmt"
	"sort"

	"github.com/xraph/steward/model"
	"github.com/xraph/steward/tuple"
)

// RoleAssignment pairs a subject with the base role it holds on an object.
type RoleAssignment struct {
	Subject Subject `json:"subject"`
	Role    string  `json:"role"`
}

// AssignRole gives the subject exactly one base role on the object,
// replacing whatever base role it held before.
//
// The protocol is read, diff, batch-apply, verify: current role tuples are
// read, stale ones are deleted and the target written in one batch (both
// operations tolerate concurrent writers thanks to idempotent store
// semantics), and a verification re-read confirms exactly the target role
// remains. A failed verification returns ErrRoleInconsistent without
// retrying; the caller owns the retry decision.
func (e *Engine) AssignRole(ctx context.Context, subject Subject, object Object, role string) error {
	if err := e.ready(); err != nil {
		return err
	}
	td, ok := e.model.Type(object.Type)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownObjectType, object.Type)
	}
	if !td.InRoleSet(role) {
		return fmt.Errorf("%w: %q on type %q", ErrInvalidRole, role, object.Type)
	}

	current, err := e.roleTuples(ctx, subject, object, td)
	if err != nil {
		return err
	}
	if len(current) == 1 && current[0].Relation == role {
		return nil
	}

	var deletes []tuple.Tuple
	target := false
	for _, t := range current {
		if t.Relation == role {
			target = true
			continue
		}
		deletes = append(deletes, *t)
	}
	var writes []tuple.Tuple
	if !target {
		writes = append(writes, fact(subject, role, object))
	}
	if err := e.applyBatch(ctx, writes, deletes); err != nil {
		return err
	}

	after, err := e.roleTuples(ctx, subject, object, td)
	if err != nil {
		return err
	}
	if len(after) != 1 || after[0].Relation != role {
		e.logger.Warn("role assignment verification failed",
			"subject", subject.Ref(), "object", object.Ref(),
			"want", role, "held", len(after))
		return fmt.Errorf("%w: %s on %s", ErrRoleInconsistent, subject.Ref(), object.Ref())
	}

	if e.plugins != nil {
		e.plugins.EmitRoleAssigned(ctx, subject.Ref(), role, object.Ref())
	}
	return nil
}

// RemoveRole deletes every base role the subject holds on the object.
// Removing from a subject with no role is a no-op.
func (e *Engine) RemoveRole(ctx context.Context, subject Subject, object Object) error {
	if err := e.ready(); err != nil {
		return err
	}
	td, ok := e.model.Type(object.Type)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownObjectType, object.Type)
	}
	current, err := e.roleTuples(ctx, subject, object, td)
	if err != nil {
		return err
	}
	if len(current) == 0 {
		return nil
	}
	deletes := make([]tuple.Tuple, 0, len(current))
	for _, t := range current {
		deletes = append(deletes, *t)
	}
	if err := e.applyBatch(ctx, nil, deletes); err != nil {
		return err
	}
	if e.plugins != nil {
		e.plugins.EmitRoleRemoved(ctx, subject.Ref(), object.Ref())
	}
	return nil
}

// RoleOf returns the base role the subject holds on the object. When the
// exclusivity invariant has been violated by an unresolved race, the
// highest-precedence held role wins.
func (e *Engine) RoleOf(ctx context.Context, subject Subject, object Object) (string, bool, error) {
	if err := e.ready(); err != nil {
		return "", false, err
	}
	td, ok := e.model.Type(object.Type)
	if !ok {
		return "", false, fmt.Errorf("%w: %q", ErrUnknownObjectType, object.Type)
	}
	current, err := e.roleTuples(ctx, subject, object, td)
	if err != nil {
		return "", false, err
	}
	if len(current) == 0 {
		return "", false, nil
	}
	held := make(map[string]struct{}, len(current))
	for _, t := range current {
		held[t.Relation] = struct{}{}
	}
	for _, role := range td.RoleSet {
		if _, ok := held[role]; ok {
			return role, true, nil
		}
	}
	return "", false, nil
}

// RolesForObject lists every (subject, role) base role assignment on the
// object, excluding the reserved metadata subject.
func (e *Engine) RolesForObject(ctx context.Context, object Object) ([]RoleAssignment, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	td, ok := e.model.Type(object.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownObjectType, object.Type)
	}
	all, err := e.store.ListTuples(ctx, &tuple.ListFilter{
		ObjectType: object.Type,
		ObjectID:   object.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	assignments := make([]RoleAssignment, 0, len(all))
	for _, t := range all {
		if !td.InRoleSet(t.Relation) {
			continue
		}
		if t.SubjectType == model.TypeUser && t.SubjectID == MetadataSubjectID {
			continue
		}
		assignments = append(assignments, RoleAssignment{
			Subject: Subject{Type: t.SubjectType, ID: t.SubjectID},
			Role:    t.Relation,
		})
	}
	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].Subject.ID != assignments[j].Subject.ID {
			return assignments[i].Subject.ID < assignments[j].Subject.ID
		}
		return assignments[i].Role < assignments[j].Role
	})
	return assignments, nil
}

// roleTuples pattern-reads the base role tuples for a (subject, object)
// pair in one store call rather than probing each role.
func (e *Engine) roleTuples(ctx context.Context, subject Subject, object Object, td *model.TypeDef) ([]*tuple.Tuple, error) {
	all, err := e.store.ListTuples(ctx, &tuple.ListFilter{
		ObjectType:  object.Type,
		ObjectID:    object.ID,
		SubjectType: subject.Type,
		SubjectID:   subject.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	roles := all[:0]
	for _, t := range all {
		if td.InRoleSet(t.Relation) {
			roles = append(roles, t)
		}
	}
	return roles, nil
}
