package steward

import (
	"github.com/xraph/steward/model"
)

// Relation is a typed relation name. Constructors tag the family, so call
// sites cannot pass a computed permission where a writable relation is
// required, and trust levels are clamped before a name ever exists.
type Relation struct {
	name string
	kind relationKind
}

type relationKind uint8

const (
	kindDirect relationKind = iota
	kindPermission
	kindTrustLevel
	kindGrant
)

// DirectRelation names a writable relation: a role, feature role, owner,
// or parent link.
func DirectRelation(name string) Relation {
	return Relation{name: name, kind: kindDirect}
}

// Permission names a computed can_* relation. Permissions are checked,
// never written.
func Permission(name string) Relation {
	return Relation{name: name, kind: kindPermission}
}

// TrustLevelRelation names a trust_level_<n> relation, clamping the level
// into [0, 100].
func TrustLevelRelation(level int) Relation {
	return Relation{name: model.TrustLevelRelation(clampTrust(level)), kind: kindTrustLevel}
}

// GrantRelation names a grants_<role> metadata relation.
func GrantRelation(role string) Relation {
	return Relation{name: model.GrantRelation(role), kind: kindGrant}
}

// String returns the wire-level relation name.
func (r Relation) String() string { return r.name }

// Writable reports whether the relation may be written as a tuple.
func (r Relation) Writable() bool { return r.kind != kindPermission }

// resourceTypeAliases maps caller-facing resource type names (the plural
// table-style names upstream services use) to canonical model types. The
// mapping is exhaustive for known aliases; unmapped names pass through
// unchanged so new singular types work without a table edit.
var resourceTypeAliases = map[string]string{
	"communities":      model.TypeCommunity,
	"councils":         model.TypeCouncil,
	"pools":            model.TypePool,
	"wealths":          model.TypeWealth,
	"wealth_comments":  model.TypeWealthComment,
	"invites":          model.TypeInvite,
	"forum_categories": model.TypeForumCategory,
	"forum_threads":    model.TypeForumThread,
	"forum_posts":      model.TypeForumPost,
	"users":            model.TypeUser,
}

// NormalizeObjectType resolves a caller-facing resource type name to its
// canonical model type. Unknown names pass through unchanged.
func NormalizeObjectType(resourceType string) string {
	if canonical, ok := resourceTypeAliases[resourceType]; ok {
		return canonical
	}
	return resourceType
}

// actionPermissions maps the common CRUD action verbs to their permission
// names. Anything else falls through to can_<action>.
var actionPermissions = map[string]string{
	"create": "can_create",
	"read":   "can_read",
	"update": "can_update",
	"delete": "can_delete",
}

// PermissionForAction maps an action verb to the permission it requires.
func PermissionForAction(action string) string {
	if perm, ok := actionPermissions[action]; ok {
		return perm
	}
	return "can_" + action
}

func clampTrust(level int) int {
	if level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}
