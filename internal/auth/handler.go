package auth

import (
	"context"
	"log/slog"
	"net/http"

	apperrors "github.com/frahmantamala/cash-advance/internal"
	"github.com/frahmantamala/cash-advance/internal/transport"
	"github.com/frahmantamala/cash-advance/pkg/logger"
)

const claimsContextKey ctxKey = "auth_claims"

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsContextKey).(*Claims)
	return c, ok && c != nil
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	resp, err := h.Service.Register(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusCreated, "User registered successfully", resp)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	resp, err := h.Service.Login(r.Context(), dto)
	if err != nil {
		h.Logger.Info("authentication failed", "error", err)
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, "Login successful", resp)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, apperrors.ErrMissingToken)
		return
	}

	me, err := h.Service.Me(r.Context(), user.ID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, "", me)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, apperrors.ErrMissingToken)
		return
	}

	var dto ChangePasswordDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	if err := h.Service.ChangePassword(r.Context(), user.ID, dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, "Password changed successfully", nil)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, apperrors.ErrMissingToken)
		return
	}

	if err := h.Service.Logout(r.Context(), claims); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, "Logged out successfully", nil)
}

// VerifyToken runs behind AuthMiddleware, so reaching it means the token is valid.
func (h *Handler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	claims, hasClaims := ClaimsFromContext(r.Context())
	if !ok || !hasClaims {
		h.WriteAppError(w, apperrors.ErrMissingToken)
		return
	}

	h.WriteSuccess(w, http.StatusOK, "Token is valid", TokenInfo{
		Valid:     true,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user,
	})
}

func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)

		user, claims, err := h.Service.Authenticate(r.Context(), token)
		if err != nil {
			h.Logger.Info("auth middleware: authentication failed", "error", err, "path", r.URL.Path)
			h.HandleServiceError(w, r, err)
			return
		}

		ctx := WithUser(r.Context(), user)
		ctx = context.WithValue(ctx, claimsContextKey, claims)
		ctx = logger.With(ctx, "user_id", user.ID, "role", string(user.Role))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
