package model

import (
	"strings"
	"testing"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		defs    []*TypeDef
		wantErr string
	}{
		{
			name:    "empty type name",
			defs:    []*TypeDef{{Name: ""}},
			wantErr: "empty name",
		},
		{
			name:    "duplicate type",
			defs:    []*TypeDef{{Name: "a"}, {Name: "a"}},
			wantErr: "duplicate type",
		},
		{
			name: "unknown parent type",
			defs: []*TypeDef{{
				Name:   "a",
				Parent: &ParentLink{Relation: "parent", Type: "missing"},
			}},
			wantErr: "unknown parent type",
		},
		{
			name: "unknown union operand",
			defs: []*TypeDef{{
				Name:        "a",
				Permissions: map[string]Permission{"can_read": {AnyOf: []string{"ghost"}}},
			}},
			wantErr: "unknown operand",
		},
		{
			name: "from parent without parent link",
			defs: []*TypeDef{{
				Name:        "a",
				Permissions: map[string]Permission{"can_read": {FromParent: true}},
			}},
			wantErr: "no parent link",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.defs...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNew_PermissionOperands(t *testing.T) {
	// Operands may name roles, relations, or other permissions.
	_, err := New(&TypeDef{
		Name:      "a",
		RoleSet:   []string{"admin"},
		Relations: []string{"viewer"},
		Permissions: map[string]Permission{
			"can_read":  {AnyOf: []string{"admin", "viewer"}},
			"can_audit": {AnyOf: []string{"can_read"}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestTypeDef_IsDirect(t *testing.T) {
	m := MustNew(&TypeDef{
		Name:          "community",
		RoleSet:       []string{"admin", "member"},
		Relations:     []string{"forum_manager"},
		TrustLevels:   true,
		GrantMetadata: true,
		Permissions:   map[string]Permission{"can_read": {AnyOf: []string{"admin"}}},
	}, &TypeDef{Name: "bare"})

	td, _ := m.Type("community")
	for _, rel := range []string{"admin", "member", "forum_manager", "trust_level_50", "grants_member"} {
		if !td.IsDirect(rel) {
			t.Errorf("expected %q direct", rel)
		}
	}
	for _, rel := range []string{"can_read", "trust_level_-5", "trust_level_x", "grants_", "ghost"} {
		if td.IsDirect(rel) {
			t.Errorf("expected %q not direct", rel)
		}
	}

	// Types that do not opt in reject the parameterized families.
	bare, _ := m.Type("bare")
	if bare.IsDirect("trust_level_50") || bare.IsDirect("grants_member") {
		t.Error("expected bare type to reject trust and grant relations")
	}
}

func TestTypeDef_InRoleSet(t *testing.T) {
	m := MustNew(&TypeDef{
		Name:      "community",
		RoleSet:   []string{"admin", "member"},
		Relations: []string{"forum_manager"},
	})
	td, _ := m.Type("community")
	if !td.InRoleSet("admin") || !td.InRoleSet("member") {
		t.Error("expected base roles in role set")
	}
	if td.InRoleSet("forum_manager") {
		t.Error("expected feature role outside role set")
	}
}

func TestDefault(t *testing.T) {
	m := Default()

	td, ok := m.Type(TypeCommunity)
	if !ok {
		t.Fatal("expected community type")
	}
	if !td.InRoleSet(RoleAdmin) || !td.InRoleSet(RoleMember) {
		t.Fatal("expected community base roles")
	}
	if !td.TrustLevels {
		t.Fatal("expected community trust levels")
	}
	perm, ok := td.Permission("can_manage_forum")
	if !ok {
		t.Fatal("expected can_manage_forum permission")
	}
	if len(perm.AnyOf) != 3 || perm.AnyOf[0] != RoleAdmin || perm.AnyOf[1] != "forum_manager" || perm.AnyOf[2] != "trust_forum_manager" {
		t.Fatalf("expected admin|forum_manager|trust_forum_manager union, got %v", perm.AnyOf)
	}
	if !td.IsDirect("trust_forum_manager") {
		t.Fatal("expected trust twin to be directly assignable")
	}

	// Every child type links back to community and can escape through owner.
	for _, name := range []string{TypePool, TypeWealth, TypeWealthComment, TypeForumCategory, TypeForumThread, TypeForumPost} {
		td, ok := m.Type(name)
		if !ok {
			t.Fatalf("expected type %q", name)
		}
		if td.Parent == nil || td.Parent.Type != TypeCommunity || td.Parent.Relation != RelationParentCommunity {
			t.Fatalf("expected %q parent-linked to community", name)
		}
		perm, ok := td.Permission("can_read")
		if !ok || !perm.FromParent {
			t.Fatalf("expected inherited can_read on %q", name)
		}
	}

	inv, _ := m.Type(TypeInvite)
	if !inv.GrantMetadata {
		t.Fatal("expected invites to carry grant metadata")
	}

	sys, _ := m.Type(TypeSystem)
	if !sys.IsDirect(RelationSuperadmin) {
		t.Fatal("expected superadmin on system")
	}
}
