// Package plugin defines the plugin system for Steward.
// Plugins are notified of lifecycle events (check decided, role assigned,
// trust synced, tuples written) and can react — logging, metrics, tracing.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"

	"github.com/xraph/steward/tuple"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Check lifecycle hooks
// ──────────────────────────────────────────────────

// BeforeCheck is called before an authorization check is evaluated.
// References use type:id notation.
type BeforeCheck interface {
	OnBeforeCheck(ctx context.Context, subjectRef, relation, objectRef string) error
}

// AfterCheck is called after an authorization check completes.
type AfterCheck interface {
	OnAfterCheck(ctx context.Context, subjectRef, relation, objectRef string, allowed bool) error
}

// ──────────────────────────────────────────────────
// Role lifecycle hooks
// ──────────────────────────────────────────────────

// RoleAssigned is called after a base role is assigned to a subject.
type RoleAssigned interface {
	OnRoleAssigned(ctx context.Context, subjectRef, role, objectRef string) error
}

// RoleRemoved is called after a subject's base role is removed.
type RoleRemoved interface {
	OnRoleRemoved(ctx context.Context, subjectRef, objectRef string) error
}

// ──────────────────────────────────────────────────
// Tuple lifecycle hooks
// ──────────────────────────────────────────────────

// TuplesWritten is called after tuples are persisted.
type TuplesWritten interface {
	OnTuplesWritten(ctx context.Context, tuples []tuple.Tuple) error
}

// TuplesDeleted is called after tuples are removed.
type TuplesDeleted interface {
	OnTuplesDeleted(ctx context.Context, tuples []tuple.Tuple) error
}

// ──────────────────────────────────────────────────
// Trust lifecycle hooks
// ──────────────────────────────────────────────────

// TrustSynced is called after a subject's trust level tuple is updated.
type TrustSynced interface {
	OnTrustSynced(ctx context.Context, subjectRef, objectRef string, level int) error
}

// ──────────────────────────────────────────────────
// Engine lifecycle hooks
// ──────────────────────────────────────────────────

// Shutdown is called when the engine stops.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
