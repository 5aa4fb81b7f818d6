package model

// Canonical object type names for the community platform.
const (
	TypeUser          = "user"
	TypeSystem        = "system"
	TypeCommunity     = "community"
	TypeCouncil       = "council"
	TypePool          = "pool"
	TypeWealth        = "wealth"
	TypeWealthComment = "wealth_comment"
	TypeInvite        = "invite"
	TypeForumCategory = "forum_category"
	TypeForumThread   = "forum_thread"
	TypeForumPost     = "forum_post"
)

// Well-known relation names.
const (
	RelationSuperadmin      = "superadmin"
	RelationParentCommunity = "parent_community"
	RelationOwner           = "owner"

	RoleAdmin  = "admin"
	RoleMember = "member"
)

// SystemObjectID is the singleton object carrying platform-wide relations
// such as superadmin.
const SystemObjectID = "global"

// BaseRoles is the community role set, highest privilege first.
var BaseRoles = []string{RoleAdmin, RoleMember}

// featurePermissions pairs each grantable feature role with the permission
// it unlocks. Every permission is a union of admin, the feature role, and
// the role's trust twin (trust_<role>).
var featurePermissions = map[string]string{
	"can_view_trust":        "trust_viewer",
	"can_award_trust":       "trust_granter",
	"can_view_wealth":       "wealth_viewer",
	"can_create_wealth":     "wealth_creator",
	"can_view_poll":         "poll_viewer",
	"can_create_poll":       "poll_creator",
	"can_view_dispute":      "dispute_viewer",
	"can_handle_dispute":    "dispute_handler",
	"can_view_pool":         "pool_viewer",
	"can_create_pool":       "pool_creator",
	"can_view_council":      "council_viewer",
	"can_create_council":    "council_creator",
	"can_view_forum":        "forum_viewer",
	"can_manage_forum":      "forum_manager",
	"can_create_thread":     "thread_creator",
	"can_upload_attachment": "attachment_uploader",
	"can_flag_content":      "content_flagger",
	"can_review_flag":       "flag_reviewer",
	"can_view_item":         "item_viewer",
	"can_manage_item":       "item_manager",
	"can_view_analytics":    "analytics_viewer",
	"can_view_needs":        "needs_viewer",
	"can_publish_needs":     "needs_publisher",
}

// Default returns the community-platform authorization model.
//
// Communities carry the exclusive base roles plus grantable feature roles
// and their trust twins; every can_* permission is a union of admin, the
// matching feature role, and the trust twin.
// Child resources link back to their community through parent_community and
// inherit permission checks from it, with a direct owner escape hatch.
func Default() *Model {
	return MustNew(
		&TypeDef{Name: TypeUser},
		&TypeDef{
			Name:      TypeSystem,
			Relations: []string{RelationSuperadmin},
		},
		communityDef(),
		&TypeDef{
			Name:        TypeCouncil,
			RoleSet:     []string{RoleAdmin, RoleMember},
			Parent:      &ParentLink{Relation: RelationParentCommunity, Type: TypeCommunity},
			TrustLevels: true,
			Permissions: map[string]Permission{
				"can_read":   {AnyOf: []string{RoleAdmin, RoleMember}, FromParent: true},
				"can_update": {AnyOf: []string{RoleAdmin}},
				"can_delete": {AnyOf: []string{RoleAdmin}, FromParent: true},
			},
		},
		childDef(TypePool, map[string]Permission{
			"can_view_pool": {AnyOf: []string{RelationOwner}, FromParent: true},
		}),
		childDef(TypeWealth, map[string]Permission{
			"can_view_wealth": {AnyOf: []string{RelationOwner}, FromParent: true},
		}),
		childDef(TypeWealthComment, nil),
		&TypeDef{
			Name:          TypeInvite,
			Relations:     []string{RelationOwner},
			Parent:        &ParentLink{Relation: RelationParentCommunity, Type: TypeCommunity},
			GrantMetadata: true,
			Permissions: map[string]Permission{
				"can_read":   {AnyOf: []string{RelationOwner}, FromParent: true},
				"can_update": {AnyOf: []string{RelationOwner}, FromParent: true},
				"can_delete": {AnyOf: []string{RelationOwner}, FromParent: true},
			},
		},
		childDef(TypeForumCategory, map[string]Permission{
			"can_manage_forum": {FromParent: true},
			"can_view_forum":   {FromParent: true},
		}),
		childDef(TypeForumThread, map[string]Permission{
			"can_manage_forum":  {FromParent: true},
			"can_view_forum":    {FromParent: true},
			"can_create_thread": {FromParent: true},
		}),
		childDef(TypeForumPost, map[string]Permission{
			"can_manage_forum": {FromParent: true},
			"can_flag_content": {FromParent: true},
		}),
	)
}

func communityDef() *TypeDef {
	features := make([]string, 0, len(featurePermissions))
	perms := map[string]Permission{
		"can_read":   {AnyOf: []string{RoleAdmin, RoleMember}},
		"can_update": {AnyOf: []string{RoleAdmin}},
		"can_delete": {AnyOf: []string{RoleAdmin}},
	}
	for perm, role := range featurePermissions {
		features = append(features, role, TrustRole(role))
		perms[perm] = Permission{AnyOf: []string{RoleAdmin, role, TrustRole(role)}}
	}
	return &TypeDef{
		Name:        TypeCommunity,
		RoleSet:     BaseRoles,
		Relations:   features,
		Permissions: perms,
		TrustLevels: true,
	}
}

// childDef builds a community child resource: owned, parent-linked, with
// read/update/delete resolved through the owner or the parent community.
func childDef(name string, extra map[string]Permission) *TypeDef {
	perms := map[string]Permission{
		"can_read":   {AnyOf: []string{RelationOwner}, FromParent: true},
		"can_update": {AnyOf: []string{RelationOwner}, FromParent: true},
		"can_delete": {AnyOf: []string{RelationOwner}, FromParent: true},
	}
	for k, v := range extra {
		perms[k] = v
	}
	return &TypeDef{
		Name:        name,
		Relations:   []string{RelationOwner},
		Parent:      &ParentLink{Relation: RelationParentCommunity, Type: TypeCommunity},
		Permissions: perms,
	}
}
