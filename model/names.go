package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Relation name families shared by the engine and the model. Trust levels
// and grant metadata are synthesized relation names rather than enumerated
// schema entries; these helpers are the single place that knows the format.
const (
	trustLevelPrefix = "trust_level_"
	grantPrefix      = "grants_"
	trustRolePrefix  = "trust_"
)

// TrustLevelRelation returns the relation name for a discrete trust level.
// The level is NOT clamped here; callers clamp before constructing names.
func TrustLevelRelation(level int) string {
	return trustLevelPrefix + strconv.Itoa(level)
}

// ParseTrustLevel extracts the level from a trust_level_<n> relation name.
func ParseTrustLevel(rel string) (int, bool) {
	rest, ok := strings.CutPrefix(rel, trustLevelPrefix)
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// GrantRelation returns the grants_<role> metadata relation name.
func GrantRelation(role string) string {
	return grantPrefix + role
}

// ParseGrant extracts the role from a grants_<role> relation name.
func ParseGrant(rel string) (string, bool) {
	rest, ok := strings.CutPrefix(rel, grantPrefix)
	if !ok || rest == "" {
		return "", false
	}
	return rest, true
}

// TrustRole returns the trust-threshold twin of a feature role. Trust
// twins are granted when a member's trust level crosses the threshold
// configured for the role, and union into the same permission.
func TrustRole(role string) string {
	return trustRolePrefix + role
}

// PermissionName reports whether the relation uses the can_* convention.
func PermissionName(rel string) bool {
	return strings.HasPrefix(rel, "can_")
}

// Ref renders a subject or object reference in tuple notation.
func Ref(typ, id string) string {
	return fmt.Sprintf("%s:%s", typ, id)
}
