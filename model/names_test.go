package model

import "testing"

func TestParseTrustLevel(t *testing.T) {
	cases := []struct {
		rel   string
		level int
		ok    bool
	}{
		{"trust_level_0", 0, true},
		{"trust_level_50", 50, true},
		{"trust_level_100", 100, true},
		{"trust_level_", 0, false},
		{"trust_level_-5", 0, false},
		{"trust_level_abc", 0, false},
		{"admin", 0, false},
	}
	for _, c := range cases {
		level, ok := ParseTrustLevel(c.rel)
		if level != c.level || ok != c.ok {
			t.Errorf("ParseTrustLevel(%q) = (%d, %v), want (%d, %v)", c.rel, level, ok, c.level, c.ok)
		}
	}
}

func TestParseGrant(t *testing.T) {
	if role, ok := ParseGrant("grants_member"); !ok || role != "member" {
		t.Errorf("ParseGrant(grants_member) = (%q, %v)", role, ok)
	}
	if _, ok := ParseGrant("grants_"); ok {
		t.Error("expected empty role rejected")
	}
	if _, ok := ParseGrant("member"); ok {
		t.Error("expected unprefixed name rejected")
	}
}

func TestRoundTrips(t *testing.T) {
	if rel := TrustLevelRelation(42); rel != "trust_level_42" {
		t.Errorf("unexpected relation %q", rel)
	}
	if rel := GrantRelation("admin"); rel != "grants_admin" {
		t.Errorf("unexpected relation %q", rel)
	}
	if rel := TrustRole("forum_manager"); rel != "trust_forum_manager" {
		t.Errorf("unexpected relation %q", rel)
	}
	if !PermissionName("can_read") || PermissionName("admin") {
		t.Error("unexpected permission name classification")
	}
	if got := Ref("user", "alice"); got != "user:alice" {
		t.Errorf("unexpected ref %q", got)
	}
}
