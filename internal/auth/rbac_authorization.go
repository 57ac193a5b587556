package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/cash-advance/internal/transport"
)

// RBACAuthorization gates routes on the policy table.
type RBACAuthorization struct {
	*transport.BaseHandler
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{BaseHandler: transport.NewBaseHandler(logger)}
}

func (ra *RBACAuthorization) Require(op Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := UserFromContext(r.Context())
			if err := Authorize(user, op); err != nil {
				if user != nil {
					ra.Logger.WarnContext(r.Context(), "access denied: insufficient role",
						"user_id", user.ID,
						"role", user.Role,
						"operation", op)
				}
				ra.HandleServiceError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
