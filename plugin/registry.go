package plugin

import (
	"context"
	"log/slog"

	"github.com/xraph/steward/tuple"
)

// Named entry types pair a hook with the plugin name for logging.

type beforeCheckEntry struct {
	name string
	hook BeforeCheck
}
type afterCheckEntry struct {
	name string
	hook AfterCheck
}
type roleAssignedEntry struct {
	name string
	hook RoleAssigned
}
type roleRemovedEntry struct {
	name string
	hook RoleRemoved
}
type tuplesWrittenEntry struct {
	name string
	hook TuplesWritten
}
type tuplesDeletedEntry struct {
	name string
	hook TuplesDeleted
}
type trustSyncedEntry struct {
	name string
	hook TrustSynced
}
type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	beforeCheck   []beforeCheckEntry
	afterCheck    []afterCheckEntry
	roleAssigned  []roleAssignedEntry
	roleRemoved   []roleRemovedEntry
	tuplesWritten []tuplesWrittenEntry
	tuplesDeleted []tuplesDeletedEntry
	trustSynced   []trustSyncedEntry
	shutdown      []shutdownEntry
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(BeforeCheck); ok {
		r.beforeCheck = append(r.beforeCheck, beforeCheckEntry{name, h})
	}
	if h, ok := p.(AfterCheck); ok {
		r.afterCheck = append(r.afterCheck, afterCheckEntry{name, h})
	}
	if h, ok := p.(RoleAssigned); ok {
		r.roleAssigned = append(r.roleAssigned, roleAssignedEntry{name, h})
	}
	if h, ok := p.(RoleRemoved); ok {
		r.roleRemoved = append(r.roleRemoved, roleRemovedEntry{name, h})
	}
	if h, ok := p.(TuplesWritten); ok {
		r.tuplesWritten = append(r.tuplesWritten, tuplesWrittenEntry{name, h})
	}
	if h, ok := p.(TuplesDeleted); ok {
		r.tuplesDeleted = append(r.tuplesDeleted, tuplesDeletedEntry{name, h})
	}
	if h, ok := p.(TrustSynced); ok {
		r.trustSynced = append(r.trustSynced, trustSyncedEntry{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// EmitBeforeCheck notifies all plugins that implement BeforeCheck.
func (r *Registry) EmitBeforeCheck(ctx context.Context, subjectRef, relation, objectRef string) {
	for _, e := range r.beforeCheck {
		if err := e.hook.OnBeforeCheck(ctx, subjectRef, relation, objectRef); err != nil {
			r.logHookError("OnBeforeCheck", e.name, err)
		}
	}
}

// EmitAfterCheck notifies all plugins that implement AfterCheck.
func (r *Registry) EmitAfterCheck(ctx context.Context, subjectRef, relation, objectRef string, allowed bool) {
	for _, e := range r.afterCheck {
		if err := e.hook.OnAfterCheck(ctx, subjectRef, relation, objectRef, allowed); err != nil {
			r.logHookError("OnAfterCheck", e.name, err)
		}
	}
}

// EmitRoleAssigned notifies all plugins that implement RoleAssigned.
func (r *Registry) EmitRoleAssigned(ctx context.Context, subjectRef, role, objectRef string) {
	for _, e := range r.roleAssigned {
		if err := e.hook.OnRoleAssigned(ctx, subjectRef, role, objectRef); err != nil {
			r.logHookError("OnRoleAssigned", e.name, err)
		}
	}
}

// EmitRoleRemoved notifies all plugins that implement RoleRemoved.
func (r *Registry) EmitRoleRemoved(ctx context.Context, subjectRef, objectRef string) {
	for _, e := range r.roleRemoved {
		if err := e.hook.OnRoleRemoved(ctx, subjectRef, objectRef); err != nil {
			r.logHookError("OnRoleRemoved", e.name, err)
		}
	}
}

// EmitTuplesWritten notifies all plugins that implement TuplesWritten.
func (r *Registry) EmitTuplesWritten(ctx context.Context, tuples []tuple.Tuple) {
	for _, e := range r.tuplesWritten {
		if err := e.hook.OnTuplesWritten(ctx, tuples); err != nil {
			r.logHookError("OnTuplesWritten", e.name, err)
		}
	}
}

// EmitTuplesDeleted notifies all plugins that implement TuplesDeleted.
func (r *Registry) EmitTuplesDeleted(ctx context.Context, tuples []tuple.Tuple) {
	for _, e := range r.tuplesDeleted {
		if err := e.hook.OnTuplesDeleted(ctx, tuples); err != nil {
			r.logHookError("OnTuplesDeleted", e.name, err)
		}
	}
}

// EmitTrustSynced notifies all plugins that implement TrustSynced.
func (r *Registry) EmitTrustSynced(ctx context.Context, subjectRef, objectRef string, level int) {
	for _, e := range r.trustSynced {
		if err := e.hook.OnTrustSynced(ctx, subjectRef, objectRef, level); err != nil {
			r.logHookError("OnTrustSynced", e.name, err)
		}
	}
}

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

func (r *Registry) logHookError(hook, plugin string, err error) {
	if r.logger == nil {
		return
	}
	r.logger.Warn("plugin hook failed", "hook", hook, "plugin", plugin, "error", err)
}
