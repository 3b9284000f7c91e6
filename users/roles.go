package users

import (
	"fmt"
	"strings"
	"unicode"

	apperrors "github.com/jrsteele09/academy-portal/internal/errors"
)

// RoleType identifies one of the portal roles. Each role keeps its own session.
type RoleType string

const (
	RoleStudent       RoleType = "student"        // Enrolled student
	RoleCoach         RoleType = "coach"          // Coach teaching at one or more branches
	RoleBranchManager RoleType = "branch_manager" // Manager of a single branch
	RoleSuperAdmin    RoleType = "super_admin"    // Academy-wide administrator
)

// Roles lists every role in the order the route guard consults them.
var Roles = []RoleType{RoleStudent, RoleCoach, RoleBranchManager, RoleSuperAdmin}

// roleDescriptor holds the per-role wiring: where the backend puts the principal in a login
// response, which URL segment the role's pages live under, and extra role tags the backend
// is known to emit.
type roleDescriptor struct {
	responseKey string
	pathSegment string
	aliases     []string
}

var descriptors = map[RoleType]roleDescriptor{
	RoleStudent:       {responseKey: "user", pathSegment: "student", aliases: []string{"user"}},
	RoleCoach:         {responseKey: "coach", pathSegment: "coach"},
	RoleBranchManager: {responseKey: "branch_manager", pathSegment: "branch-manager"},
	RoleSuperAdmin:    {responseKey: "admin", pathSegment: "superadmin", aliases: []string{"admin"}},
}

// ParseRole resolves a role name or role tag such as "coach", "branch-manager" or
// "Super Admin".
func ParseRole(s string) (RoleType, error) {
	for _, role := range Roles {
		if role.Matches(s) {
			return role, nil
		}
	}
	return "", fmt.Errorf("%q: %w", s, apperrors.ErrUnknownRole)
}

// RoleFromPath returns the role whose pages live under the given URL segment.
func RoleFromPath(segment string) (RoleType, bool) {
	for _, role := range Roles {
		if descriptors[role].pathSegment == segment {
			return role, true
		}
	}
	return "", false
}

// Valid reports whether r is one of the known roles.
func (r RoleType) Valid() bool {
	_, ok := descriptors[r]
	return ok
}

// ResponseKey is the login response field holding this role's principal.
func (r RoleType) ResponseKey() string {
	return descriptors[r].responseKey
}

// PathSegment is the URL segment under which the role's pages are served.
func (r RoleType) PathSegment() string {
	return descriptors[r].pathSegment
}

func (r RoleType) LoginRoute() string {
	return "/" + r.PathSegment() + "/login"
}

func (r RoleType) DashboardRoute() string {
	return "/" + r.PathSegment() + "/dashboard"
}

// Matches reports whether a role tag taken from a principal or token refers to r.
// Tags are compared case-insensitively with separators ignored.
func (r RoleType) Matches(tag string) bool {
	n := normaliseRoleTag(tag)
	if n == "" {
		return false
	}
	if n == normaliseRoleTag(string(r)) {
		return true
	}
	for _, alias := range descriptors[r].aliases {
		if n == normaliseRoleTag(alias) {
			return true
		}
	}
	return false
}

func normaliseRoleTag(tag string) string {
	var b strings.Builder
	for _, c := range tag {
		if unicode.IsLetter(c) {
			b.WriteRune(unicode.ToLower(c))
		}
	}
	return b.String()
}
