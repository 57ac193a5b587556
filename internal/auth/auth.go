package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	coreuser "github.com/frahmantamala/cash-advance/internal/core/user"
)

type ctxKey string

const userContextKey ctxKey = "auth_user"

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, u *coreuser.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// UserFromContext returns the user resolved by AuthMiddleware.
func UserFromContext(ctx context.Context) (*coreuser.User, bool) {
	u, ok := ctx.Value(userContextKey).(*coreuser.User)
	return u, ok && u != nil
}

// Claims represents JWT token claims
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenGenerator creates and verifies access tokens.
type TokenGenerator interface {
	GenerateAccessToken(u *coreuser.User) (token string, claims *Claims, err error)
	ValidateToken(tokenString string) (*Claims, error)
}
