package rbac

import (
	"context"
	"strings"
)

type Checker struct {
	RolePermissions map[string][]string
}

func NewChecker(rp map[string][]string) *Checker {
	if rp == nil {
		rp = RolePermissions
	}
	return &Checker{RolePermissions: rp}
}

// Has reports whether role grants perm. Patterns ending in "*" match by prefix.
func (c *Checker) Has(role, perm string) bool {
	for _, p := range c.RolePermissions[role] {
		if matchPerm(p, perm) {
			return true
		}
	}
	return false
}

// matchPerm treats "*" as match-all and "area:*" as every perm in area.
func matchPerm(pattern, perm string) bool {
	prefix, wild := strings.CutSuffix(pattern, "*")
	if !wild {
		return pattern == perm
	}
	return strings.HasPrefix(perm, prefix)
}

// Can checks perm against the role carried by ctx. No role grants nothing.
func Can(ctx context.Context, perm string) bool {
	role, ok := ctx.Value(roleKey{}).(string)
	return ok && role != "" && defaultChecker.Has(role, perm)
}

type roleKey struct{}

// WithRole stores the caller's role, as resolved from the profile store.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey{}).(string)
	return role
}
