// internal/auth/middleware/attach_role.go
package authmw

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/itembased/examdesk/internal/rbac"
)

// AttachRoleFromDB makes the profile record authoritative for the role.
// A caller without a profile is refused until the profile form is completed.
// allowClaimFallback keeps the token role when the lookup itself fails (dev only).
func AttachRoleFromDB(db *sql.DB, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub := SubjectFromContext(ctx)
			claimRole := rbac.RoleFromContext(ctx)

			var role string
			err := db.QueryRowContext(ctx, `SELECT role FROM profiles WHERE uid=$1`, sub).Scan(&role)
			switch {
			case err == nil && role != "":
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, role)))
			case err == nil || errors.Is(err, sql.ErrNoRows):
				http.Error(w, "profile required", http.StatusForbidden)
			default:
				slog.Error("role lookup failed", "sub", sub, "error", err)
				if allowClaimFallback && claimRole != "" {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "profile unavailable", http.StatusServiceUnavailable)
			}
		})
	}
}
