package steward

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/xraph/steward/checklog"
	"github.com/xraph/steward/id"
	"github.com/xraph/steward/model"
	"github.com/xraph/steward/plugin"
	"github.com/xraph/steward/store"
	"github.com/xraph/steward/tuple"
)

// modelVersion identifies the authorization model generation recorded in
// the store. Bump it when the model changes shape incompatibly.
const modelVersion = "v1"

const modelVersionRelation = "model_version"

// Engine is the central authorization engine. It resolves relation checks
// against the tuple store, runs the role assignment and trust sync
// protocols, and fires plugin hooks.
type Engine struct {
	store    store.Store
	model    *model.Model
	resolver *resolver
	cache    Cache
	plugins  *plugin.Registry
	trust    TrustScores
	logger   *slog.Logger
	config   Config

	initialized atomic.Bool
}

// NewEngine creates a new Steward engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: slog.Default(),
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, errors.New("steward: store is required")
	}
	if e.model == nil {
		e.model = model.Default()
	}
	if e.config.MaxParentDepth <= 0 {
		e.config.MaxParentDepth = DefaultConfig().MaxParentDepth
	}
	e.resolver = &resolver{store: e.store, model: e.model, maxDepth: e.config.MaxParentDepth}
	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Model returns the authorization model.
func (e *Engine) Model() *model.Model { return e.model }

// Plugins returns the plugin registry (may be nil).
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Initialize prepares the engine for use: it pings the store with bounded
// exponential backoff, runs migrations, and records the model version.
// It is idempotent and safe to call on every startup.
func (e *Engine) Initialize(ctx context.Context) error {
	if e.initialized.Load() {
		return nil
	}

	attempts := e.config.InitMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	bo := backoff.NewExponentialBackOff()
	if e.config.InitRetryInterval > 0 {
		bo.InitialInterval = e.config.InitRetryInterval
	}
	ping := func() error { return e.store.Ping(ctx) }
	notify := func(err error, next time.Duration) {
		e.logger.Warn("store ping failed, retrying", "error", err, "next_attempt_in", next)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(attempts-1)), ctx)
	if err := backoff.RetryNotify(ping, policy, notify); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := e.store.Migrate(ctx); err != nil {
		return fmt.Errorf("steward: migrate: %w", err)
	}
	if err := e.verifyModelVersion(ctx); err != nil {
		return err
	}

	e.initialized.Store(true)
	e.logger.Info("steward engine initialized", "model_version", modelVersion)
	return nil
}

// verifyModelVersion checks the recorded model version tuple and writes or
// replaces it as needed, mirroring a verify-then-create startup flow.
func (e *Engine) verifyModelVersion(ctx context.Context) error {
	recorded, err := e.store.ListTuples(ctx, &tuple.ListFilter{
		ObjectType: model.TypeSystem,
		ObjectID:   model.SystemObjectID,
		Relation:   modelVersionRelation,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	current := false
	var stale []tuple.Tuple
	for _, t := range recorded {
		if t.SubjectID == modelVersion {
			current = true
			continue
		}
		stale = append(stale, *t)
	}
	if len(stale) > 0 {
		e.logger.Info("removing stale model versions",
			"old", stale[0].SubjectID, "new", modelVersion)
		if err := e.store.DeleteTuples(ctx, stale); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	if current {
		return nil
	}
	record := fact(Subject{Type: "model", ID: modelVersion}, modelVersionRelation, SystemObject())
	if err := e.store.WriteTuples(ctx, []tuple.Tuple{record}); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Stop shuts the engine down: plugin shutdown hooks fire, then the store
// closes.
func (e *Engine) Stop(ctx context.Context) error {
	if e.plugins != nil {
		e.plugins.EmitShutdown(ctx)
	}
	e.initialized.Store(false)
	return e.store.Close()
}

func (e *Engine) ready() error {
	if !e.initialized.Load() {
		return ErrNotInitialized
	}
	return nil
}

// ──────────────────────────────────────────────────
// Checks
// ──────────────────────────────────────────────────

// Check answers whether the subject holds the relation on the object.
// Store failures deny and log rather than propagate: authorization fails
// closed on the read path.
func (e *Engine) Check(ctx context.Context, subject Subject, relation Relation, object Object) (bool, error) {
	return e.check(ctx, subject, relation.String(), object)
}

// CheckAccess is the caller-facing check: it normalizes a resource type
// alias (communities → community) and maps an action verb to its
// permission (update → can_update, otherwise can_<action>) before
// delegating to Check.
func (e *Engine) CheckAccess(ctx context.Context, subject Subject, resourceType, resourceID, action string) (bool, error) {
	object := Object{Type: NormalizeObjectType(resourceType), ID: resourceID}
	return e.check(ctx, subject, PermissionForAction(action), object)
}

func (e *Engine) check(ctx context.Context, subject Subject, relation string, object Object) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	start := time.Now()

	if e.plugins != nil {
		e.plugins.EmitBeforeCheck(ctx, subject.Ref(), relation, object.Ref())
	}

	cacheable := e.cache != nil && e.config.CacheTTL > 0
	if cacheable {
		if allowed, ok := e.cache.Get(ctx, subject, relation, object); ok {
			return allowed, nil
		}
	}

	allowed, reason := e.decide(ctx, subject, relation, object)

	if cacheable {
		e.cache.Set(ctx, subject, relation, object, allowed, e.config.CacheTTL)
	}
	if e.config.EnableCheckLog {
		e.recordCheck(ctx, subject, relation, object, allowed, reason, time.Since(start))
	}
	if e.plugins != nil {
		e.plugins.EmitAfterCheck(ctx, subject.Ref(), relation, object.Ref(), allowed)
	}
	return allowed, nil
}

// decide runs the superadmin bypass and the resolver, converting any store
// failure into a logged deny.
func (e *Engine) decide(ctx context.Context, subject Subject, relation string, object Object) (allowed bool, reason string) {
	if subject.Type == model.TypeUser && subject.ID != MetadataSubjectID {
		held, err := e.store.HasTuple(ctx,
			subject.Type, subject.ID, model.RelationSuperadmin,
			model.TypeSystem, model.SystemObjectID)
		if err != nil {
			e.logger.Warn("superadmin probe failed",
				"subject", subject.Ref(), "error", err)
		} else if held {
			return true, "superadmin"
		}
	}

	held, err := e.resolver.resolve(ctx, subject, relation, object)
	if err != nil {
		e.logger.Warn("check failed closed",
			"subject", subject.Ref(), "relation", relation,
			"object", object.Ref(), "error", err)
		return false, "resolve error"
	}
	if held {
		return true, "resolved"
	}
	return false, "no path"
}

// recordCheck appends a best-effort audit entry. The write happens off the
// request path and never affects the decision.
func (e *Engine) recordCheck(ctx context.Context, subject Subject, relation string, object Object, allowed bool, reason string, elapsed time.Duration) {
	entry := &checklog.Entry{
		ID:          id.NewCheckLogID(),
		SubjectType: subject.Type,
		SubjectID:   subject.ID,
		Relation:    relation,
		ObjectType:  object.Type,
		ObjectID:    object.ID,
		Allowed:     allowed,
		Reason:      reason,
		EvalTimeNs:  elapsed.Nanoseconds(),
		CreatedAt:   time.Now().UTC(),
	}
	bg := context.WithoutCancel(ctx)
	go func() {
		if err := e.store.CreateCheckLog(bg, entry); err != nil {
			e.logger.Warn("check log write failed", "error", err)
		}
	}()
}

// ──────────────────────────────────────────────────
// Tuple mutations
// ──────────────────────────────────────────────────

// GrantRelation writes a single direct relation tuple. Base roles are
// rejected here; their exclusivity invariant is owned by AssignRole.
func (e *Engine) GrantRelation(ctx context.Context, subject Subject, relation Relation, object Object) error {
	if err := e.ready(); err != nil {
		return err
	}
	rel := relation.String()
	td, err := e.validateDirect(rel, object, relation.Writable())
	if err != nil {
		return err
	}
	if td.InRoleSet(rel) {
		return fmt.Errorf("%w: %q is a base role on %q, use AssignRole", ErrInvalidRole, rel, object.Type)
	}
	if _, ok := model.ParseTrustLevel(rel); ok {
		return fmt.Errorf("%w: %q is managed by SyncTrustLevel", ErrInvalidRole, rel)
	}
	if _, ok := model.ParseGrant(rel); ok {
		return fmt.Errorf("%w: %q is managed by SetGrantMetadata", ErrInvalidRole, rel)
	}
	return e.applyBatch(ctx, []tuple.Tuple{fact(subject, rel, object)}, nil)
}

// RevokeRelation deletes a single direct relation tuple. Deleting an
// absent fact succeeds.
func (e *Engine) RevokeRelation(ctx context.Context, subject Subject, relation Relation, object Object) error {
	if err := e.ready(); err != nil {
		return err
	}
	rel := relation.String()
	if _, err := e.validateDirect(rel, object, relation.Writable()); err != nil {
		return err
	}
	return e.applyBatch(ctx, nil, []tuple.Tuple{fact(subject, rel, object)})
}

// CreateRelationship records an object-to-object parent link, such as a
// forum thread belonging to its community.
func (e *Engine) CreateRelationship(ctx context.Context, child Object, relation string, parent Object) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.validateParentLink(child, relation, parent); err != nil {
		return err
	}
	return e.applyBatch(ctx, []tuple.Tuple{fact(AsSubject(parent), relation, child)}, nil)
}

// RemoveRelationship deletes an object-to-object parent link.
func (e *Engine) RemoveRelationship(ctx context.Context, child Object, relation string, parent Object) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.validateParentLink(child, relation, parent); err != nil {
		return err
	}
	return e.applyBatch(ctx, nil, []tuple.Tuple{fact(AsSubject(parent), relation, child)})
}

// BatchWrite applies deletes then writes as one logical change set.
func (e *Engine) BatchWrite(ctx context.Context, writes, deletes []tuple.Tuple) error {
	if err := e.ready(); err != nil {
		return err
	}
	return e.applyBatch(ctx, writes, deletes)
}

// applyBatch orders deletes before writes so replace-style batches (role
// swaps, trust level moves) never leave both facts visible.
func (e *Engine) applyBatch(ctx context.Context, writes, deletes []tuple.Tuple) error {
	if len(deletes) > 0 {
		if err := e.store.DeleteTuples(ctx, deletes); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	if len(writes) > 0 {
		if err := e.store.WriteTuples(ctx, writes); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	e.invalidate(ctx, deletes)
	e.invalidate(ctx, writes)
	if e.plugins != nil {
		if len(deletes) > 0 {
			e.plugins.EmitTuplesDeleted(ctx, deletes)
		}
		if len(writes) > 0 {
			e.plugins.EmitTuplesWritten(ctx, writes)
		}
	}
	return nil
}

func (e *Engine) invalidate(ctx context.Context, tuples []tuple.Tuple) {
	if e.cache == nil {
		return
	}
	for _, t := range tuples {
		e.cache.InvalidateSubject(ctx, Subject{Type: t.SubjectType, ID: t.SubjectID})
		e.cache.InvalidateObject(ctx, Object{Type: t.ObjectType, ID: t.ObjectID})
	}
}

func (e *Engine) validateDirect(rel string, object Object, writable bool) (*model.TypeDef, error) {
	if !writable {
		return nil, fmt.Errorf("%w: %q is a computed permission", ErrInvalidRole, rel)
	}
	td, ok := e.model.Type(object.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownObjectType, object.Type)
	}
	if !td.IsDirect(rel) {
		return nil, fmt.Errorf("%w: %q on type %q", ErrInvalidRole, rel, object.Type)
	}
	return td, nil
}

func (e *Engine) validateParentLink(child Object, relation string, parent Object) error {
	td, ok := e.model.Type(child.Type)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownObjectType, child.Type)
	}
	if td.Parent == nil || td.Parent.Relation != relation || td.Parent.Type != parent.Type {
		return fmt.Errorf("%w: %q does not link %q to %q", ErrInvalidRole, relation, child.Type, parent.Type)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Grant metadata
// ──────────────────────────────────────────────────

// SetGrantMetadata records which role an object grants on redemption, as a
// grants_<role> tuple held by the reserved metadata subject. Used to stamp
// invites with the role they carry.
func (e *Engine) SetGrantMetadata(ctx context.Context, object Object, role string) error {
	if err := e.ready(); err != nil {
		return err
	}
	td, err := e.grantCapableType(object)
	if err != nil {
		return err
	}
	if ptd, ok := e.model.Type(td.Parent.Type); !ok || !ptd.IsDirect(role) {
		return fmt.Errorf("%w: %q is not grantable on %q", ErrInvalidRole, role, td.Parent.Type)
	}
	return e.applyBatch(ctx, []tuple.Tuple{fact(metadataSubject(), model.GrantRelation(role), object)}, nil)
}

// GrantMetadata returns the role an object grants, if one is recorded.
func (e *Engine) GrantMetadata(ctx context.Context, object Object) (string, bool, error) {
	if err := e.ready(); err != nil {
		return "", false, err
	}
	if _, err := e.grantCapableType(object); err != nil {
		return "", false, err
	}
	grants, err := e.listGrantTuples(ctx, object)
	if err != nil {
		return "", false, err
	}
	if len(grants) == 0 {
		return "", false, nil
	}
	role, _ := model.ParseGrant(grants[0].Relation)
	return role, true, nil
}

// ClearGrantMetadata removes every grants_* tuple on the object.
func (e *Engine) ClearGrantMetadata(ctx context.Context, object Object) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, err := e.grantCapableType(object); err != nil {
		return err
	}
	grants, err := e.listGrantTuples(ctx, object)
	if err != nil {
		return err
	}
	if len(grants) == 0 {
		return nil
	}
	deletes := make([]tuple.Tuple, 0, len(grants))
	for _, t := range grants {
		deletes = append(deletes, *t)
	}
	return e.applyBatch(ctx, nil, deletes)
}

func (e *Engine) grantCapableType(object Object) (*model.TypeDef, error) {
	td, ok := e.model.Type(object.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownObjectType, object.Type)
	}
	if !td.GrantMetadata || td.Parent == nil {
		return nil, fmt.Errorf("%w: type %q does not carry grant metadata", ErrInvalidRole, object.Type)
	}
	return td, nil
}

func (e *Engine) listGrantTuples(ctx context.Context, object Object) ([]*tuple.Tuple, error) {
	all, err := e.store.ListTuples(ctx, &tuple.ListFilter{
		ObjectType:  object.Type,
		ObjectID:    object.ID,
		SubjectType: model.TypeUser,
		SubjectID:   MetadataSubjectID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	grants := all[:0]
	for _, t := range all {
		if _, ok := model.ParseGrant(t.Relation); ok {
			grants = append(grants, t)
		}
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].Relation < grants[j].Relation })
	return grants, nil
}

// ──────────────────────────────────────────────────
// Reverse query
// ──────────────────────────────────────────────────

// ListAccessibleObjects returns the IDs of every object of the given type
// on which the subject holds the relation. Computed permissions expand
// into their union operands against the store's reverse index; inherited
// permissions additionally expand through accessible parent objects.
// No matches is an empty slice, not an error.
func (e *Engine) ListAccessibleObjects(ctx context.Context, subject Subject, objectType string, relation Relation) ([]string, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	objectType = NormalizeObjectType(objectType)

	if subject.Type == model.TypeUser && subject.ID != MetadataSubjectID {
		held, err := e.store.HasTuple(ctx,
			subject.Type, subject.ID, model.RelationSuperadmin,
			model.TypeSystem, model.SystemObjectID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if held {
			return e.listKnownObjects(ctx, objectType)
		}
	}
	return e.listAccessible(ctx, subject, objectType, relation.String(), 0)
}

// listKnownObjects returns every object ID of the type that has at least
// one recorded tuple. Superadmins see all of them.
func (e *Engine) listKnownObjects(ctx context.Context, objectType string) ([]string, error) {
	all, err := e.store.ListTuples(ctx, &tuple.ListFilter{ObjectType: objectType})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	seen := make(map[string]struct{}, len(all))
	for _, t := range all {
		seen[t.ObjectID] = struct{}{}
	}
	result := make([]string, 0, len(seen))
	for oid := range seen {
		result = append(result, oid)
	}
	sort.Strings(result)
	return result, nil
}

// listAccessible walks parent types under the same depth cap as the
// forward resolver, so a cyclic parent chain terminates instead of
// recursing without bound.
func (e *Engine) listAccessible(ctx context.Context, subject Subject, objectType, relation string, depth int) ([]string, error) {
	if depth > e.config.MaxParentDepth {
		return nil, fmt.Errorf("%w: %s on type %s", ErrMaxDepthExceeded, relation, objectType)
	}

	td, ok := e.model.Type(objectType)
	if !ok {
		return []string{}, nil
	}

	seen := make(map[string]struct{})

	direct, fromParent := e.resolver.directExpansion(td, relation)
	for _, rel := range direct {
		ids, err := e.store.ListObjectIDs(ctx, subject.Type, subject.ID, rel, objectType)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		for _, oid := range ids {
			seen[oid] = struct{}{}
		}
	}

	if fromParent && td.Parent != nil {
		parentIDs, err := e.listAccessible(ctx, subject, td.Parent.Type, relation, depth+1)
		if err != nil {
			return nil, err
		}
		for _, pid := range parentIDs {
			children, err := e.store.ListTuples(ctx, &tuple.ListFilter{
				ObjectType:  objectType,
				Relation:    td.Parent.Relation,
				SubjectType: td.Parent.Type,
				SubjectID:   pid,
			})
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			for _, c := range children {
				seen[c.ObjectID] = struct{}{}
			}
		}
	}

	result := make([]string, 0, len(seen))
	for oid := range seen {
		result = append(result, oid)
	}
	sort.Strings(result)
	return result, nil
}
