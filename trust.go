package steward

import (
	"context"
	"fmt"
	"math"

	"github.com/xraph/steward/model"
	"github.com/xraph/steward/tuple"
)

// TrustScores is the source of truth for trust scores, mirrored into
// trust_level_<n> tuples by the sync operations. Implementations typically
// wrap the platform's trust ledger.
type TrustScores interface {
	// Score returns the subject's trust score within the object's domain.
	Score(ctx context.Context, subject Subject, object Object) (int, error)

	// Scores returns every subject's score within the object's domain,
	// keyed by subject ID. Subjects are assumed to be users.
	Scores(ctx context.Context, object Object) (map[string]int, error)
}

// SyncTrustLevel mirrors a subject's trust score into its trust level
// tuple on the object. The score is clamped into [0, 100]; the old level
// tuple is deleted and the new one written in a single batch. Syncing an
// unchanged level is a no-op.
func (e *Engine) SyncTrustLevel(ctx context.Context, subject Subject, object Object, score int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, err := e.trustCapableType(object); err != nil {
		return err
	}

	level := clampTrust(score)
	existing, err := e.trustTuples(ctx, subject, object)
	if err != nil {
		return err
	}

	var deletes []tuple.Tuple
	held := false
	for _, t := range existing {
		if n, _ := model.ParseTrustLevel(t.Relation); n == level {
			held = true
			continue
		}
		deletes = append(deletes, *t)
	}
	var writes []tuple.Tuple
	if !held {
		writes = append(writes, fact(subject, model.TrustLevelRelation(level), object))
	}
	if len(writes) == 0 && len(deletes) == 0 {
		return nil
	}
	if err := e.applyBatch(ctx, writes, deletes); err != nil {
		return err
	}
	if e.plugins != nil {
		e.plugins.EmitTrustSynced(ctx, subject.Ref(), object.Ref(), level)
	}
	return nil
}

// SyncTrustLevelQuantized rounds the score to the nearest multiple of 5
// before syncing. Council scores are coarser than raw trust so small
// fluctuations do not churn tuples.
func (e *Engine) SyncTrustLevelQuantized(ctx context.Context, subject Subject, object Object, score int) error {
	quantized := int(math.Round(float64(score)/5.0)) * 5
	return e.SyncTrustLevel(ctx, subject, object, quantized)
}

// SyncAllTrustLevels reconciles every trust level tuple on the object
// against the trust score source. Stale tuples are deleted, missing ones
// written, matching ones untouched, all in one batch. An empty domain is
// a no-op.
func (e *Engine) SyncAllTrustLevels(ctx context.Context, object Object) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, err := e.trustCapableType(object); err != nil {
		return err
	}
	if e.trust == nil {
		return ErrNoTrustSource
	}

	scores, err := e.trust.Scores(ctx, object)
	if err != nil {
		return fmt.Errorf("steward: read trust scores: %w", err)
	}

	all, err := e.store.ListTuples(ctx, &tuple.ListFilter{
		ObjectType: object.Type,
		ObjectID:   object.ID,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	desired := make(map[string]int, len(scores))
	for subjectID, score := range scores {
		desired[subjectID] = clampTrust(score)
	}

	var writes, deletes []tuple.Tuple
	matched := make(map[string]struct{}, len(desired))
	for _, t := range all {
		level, ok := model.ParseTrustLevel(t.Relation)
		if !ok || t.SubjectType != model.TypeUser {
			continue
		}
		want, known := desired[t.SubjectID]
		if known && want == level {
			matched[t.SubjectID] = struct{}{}
			continue
		}
		deletes = append(deletes, *t)
	}
	for subjectID, level := range desired {
		if _, ok := matched[subjectID]; ok {
			continue
		}
		writes = append(writes, fact(User(subjectID), model.TrustLevelRelation(level), object))
	}
	if len(writes) == 0 && len(deletes) == 0 {
		return nil
	}
	if err := e.applyBatch(ctx, writes, deletes); err != nil {
		return err
	}
	if e.plugins != nil {
		for _, w := range writes {
			level, _ := model.ParseTrustLevel(w.Relation)
			e.plugins.EmitTrustSynced(ctx, model.Ref(w.SubjectType, w.SubjectID), object.Ref(), level)
		}
	}
	return nil
}

// HasSufficientTrust reports whether the subject's trust level on the
// object meets the minimum. Admins pass regardless of trust. Like the
// check path, store failures deny and log rather than propagate.
func (e *Engine) HasSufficientTrust(ctx context.Context, subject Subject, object Object, minLevel int) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	if _, err := e.trustCapableType(object); err != nil {
		return false, err
	}

	admin, err := e.store.HasTuple(ctx,
		subject.Type, subject.ID, model.RoleAdmin, object.Type, object.ID)
	if err != nil {
		e.logger.Warn("trust check failed closed",
			"subject", subject.Ref(), "object", object.Ref(), "error", err)
		return false, nil
	}
	if admin {
		return true, nil
	}

	level, held, err := e.trustLevel(ctx, subject, object)
	if err != nil {
		e.logger.Warn("trust check failed closed",
			"subject", subject.Ref(), "object", object.Ref(), "error", err)
		return false, nil
	}
	return held && level >= clampTrust(minLevel), nil
}

// TrustLevelOf returns the subject's current trust level on the object.
// The second result is false when no trust level is recorded.
func (e *Engine) TrustLevelOf(ctx context.Context, subject Subject, object Object) (int, bool, error) {
	if err := e.ready(); err != nil {
		return 0, false, err
	}
	if _, err := e.trustCapableType(object); err != nil {
		return 0, false, err
	}
	return e.trustLevel(ctx, subject, object)
}

// trustLevel pattern-reads the pair's trust tuples. A violated single-
// tuple invariant resolves to the highest recorded level.
func (e *Engine) trustLevel(ctx context.Context, subject Subject, object Object) (int, bool, error) {
	existing, err := e.trustTuples(ctx, subject, object)
	if err != nil {
		return 0, false, err
	}
	best, held := 0, false
	for _, t := range existing {
		if n, ok := model.ParseTrustLevel(t.Relation); ok && (!held || n > best) {
			best, held = n, true
		}
	}
	return best, held, nil
}

func (e *Engine) trustCapableType(object Object) (*model.TypeDef, error) {
	td, ok := e.model.Type(object.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownObjectType, object.Type)
	}
	if !td.TrustLevels {
		return nil, fmt.Errorf("%w: type %q does not carry trust levels", ErrInvalidRole, object.Type)
	}
	return td, nil
}

func (e *Engine) trustTuples(ctx context.Context, subject Subject, object Object) ([]*tuple.Tuple, error) {
	all, err := e.store.ListTuples(ctx, &tuple.ListFilter{
		ObjectType:  object.Type,
		ObjectID:    object.ID,
		SubjectType: subject.Type,
		SubjectID:   subject.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	trust := all[:0]
	for _, t := range all {
		if _, ok := model.ParseTrustLevel(t.Relation); ok {
			trust = append(trust, t)
		}
	}
	return trust, nil
}
