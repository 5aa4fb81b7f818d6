package steward

import (
	"context"
	"fmt"

	"github.com/xraph/steward/model"
	"github.com/xraph/steward/tuple"
)

// resolver expands relations against the model: direct relations hit the
// store, computed permissions expand as short-circuit unions, and
// parent-linked permissions recurse through the object's parent tuple.
//
// The resolver reports store failures as errors and leaves the fail-closed
// decision to the caller. A missing tuple, unknown type, or unknown
// relation is an ordinary false, never an error.
type resolver struct {
	store    tuple.Store
	model    *model.Model
	maxDepth int
}

func (r *resolver) resolve(ctx context.Context, subject Subject, relation string, object Object) (bool, error) {
	return r.resolveAt(ctx, subject, relation, object, 0)
}

func (r *resolver) resolveAt(ctx context.Context, subject Subject, relation string, object Object, depth int) (bool, error) {
	if depth > r.maxDepth {
		return false, fmt.Errorf("%w: %s on %s", ErrMaxDepthExceeded, relation, object.Ref())
	}

	td, ok := r.model.Type(object.Type)
	if !ok {
		return false, nil
	}

	if td.IsDirect(relation) {
		held, err := r.store.HasTuple(ctx, subject.Type, subject.ID, relation, object.Type, object.ID)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return held, nil
	}

	perm, ok := td.Permission(relation)
	if !ok {
		return false, nil
	}

	// Union operands, in declaration order, short-circuit on first hit.
	for _, op := range perm.AnyOf {
		held, err := r.resolveAt(ctx, subject, op, object, depth+1)
		if err != nil {
			return false, err
		}
		if held {
			return true, nil
		}
	}

	if perm.FromParent && td.Parent != nil {
		return r.resolveThroughParent(ctx, subject, relation, object, td, depth)
	}
	return false, nil
}

// resolveThroughParent re-evaluates the same permission on each recorded
// parent of the object. An orphan object simply resolves to false.
func (r *resolver) resolveThroughParent(ctx context.Context, subject Subject, relation string, object Object, td *model.TypeDef, depth int) (bool, error) {
	parents, err := r.store.ListTuples(ctx, &tuple.ListFilter{
		ObjectType:  object.Type,
		ObjectID:    object.ID,
		Relation:    td.Parent.Relation,
		SubjectType: td.Parent.Type,
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	for _, p := range parents {
		held, err := r.resolveAt(ctx, subject, relation, Object{Type: p.SubjectType, ID: p.SubjectID}, depth+1)
		if err != nil {
			return false, err
		}
		if held {
			return true, nil
		}
	}
	return false, nil
}

// directExpansion flattens a relation into the set of direct relations it
// unions over on the given type, and reports whether any permission along
// the way extends through the parent link. Used by the reverse query.
func (r *resolver) directExpansion(td *model.TypeDef, relation string) (direct []string, fromParent bool) {
	seen := make(map[string]struct{})
	var walk func(rel string)
	walk = func(rel string) {
		if _, dup := seen[rel]; dup {
			return
		}
		seen[rel] = struct{}{}
		if td.IsDirect(rel) {
			direct = append(direct, rel)
			return
		}
		perm, ok := td.Permission(rel)
		if !ok {
			return
		}
		if perm.FromParent {
			fromParent = true
		}
		for _, op := range perm.AnyOf {
			walk(op)
		}
	}
	walk(relation)
	return direct, fromParent
}
