package advance

import (
	"context"
	"log/slog"
	"net/http"

	apperrors "github.com/frahmantamala/cash-advance/internal"
	"github.com/frahmantamala/cash-advance/internal/auth"
	"github.com/frahmantamala/cash-advance/internal/core/query"
	coreuser "github.com/frahmantamala/cash-advance/internal/core/user"
	"github.com/frahmantamala/cash-advance/internal/transport"
	"github.com/frahmantamala/cash-advance/pkg/logger"
)

type ServiceAPI interface {
	Create(ctx context.Context, actor *coreuser.User, dto CreateAdvanceDTO) (*Advance, error)
	Get(ctx context.Context, actor *coreuser.User, id int64) (*Advance, error)
	List(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter, p query.Params) (query.Page[*Advance], error)
	MyRequests(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter, p query.Params) (query.Page[*Advance], error)
	Update(ctx context.Context, actor *coreuser.User, id int64, dto UpdateAdvanceDTO) (*Advance, error)
	Review(ctx context.Context, actor *coreuser.User, id int64, dto ApproveDTO) (*Advance, error)
	Disburse(ctx context.Context, actor *coreuser.User, id int64, dto DisburseDTO) (*Advance, error)
	Retire(ctx context.Context, actor *coreuser.User, id int64, dto RetireDTO) (*Advance, error)
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

// CreateAdvance handles POST /advances
func (h *Handler) CreateAdvance(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, apperrors.ErrMissingToken)
		return
	}

	var dto CreateAdvanceDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	a, err := h.Service.Create(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusCreated, "Cash advance request created successfully", a)
}

// ListAdvances handles GET /advances
func (h *Handler) ListAdvances(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.Service.List)
}

// MyRequests handles GET /advances/staff/my-requests
func (h *Handler) MyRequests(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.Service.MyRequests)
}

type listFunc func(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter, p query.Params) (query.Page[*Advance], error)

func (h *Handler) list(w http.ResponseWriter, r *http.Request, fn listFunc) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, apperrors.ErrMissingToken)
		return
	}

	filter, appErr := ParseFilter(r.URL.Query())
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	page, err := fn(r.Context(), actor, filter, query.ParsePagination(r.URL.Query()))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, "", page)
}

// GetAdvance handles GET /advances/{id}
func (h *Handler) GetAdvance(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	a, err := h.Service.Get(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, "", a)
}

// UpdateAdvance handles PUT /advances/{id}
func (h *Handler) UpdateAdvance(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	var dto UpdateAdvanceDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	a, err := h.Service.Update(r.Context(), actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, "Cash advance request updated successfully", a)
}

// ApproveAdvance handles PUT /advances/{id}/approve
func (h *Handler) ApproveAdvance(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	var dto ApproveDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	a, err := h.Service.Review(r.Context(), actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	message := "Cash advance request approved"
	if a.Status == StatusRejected {
		message = "Cash advance request rejected"
	}
	h.WriteSuccess(w, http.StatusOK, message, a)
}

// DisburseAdvance handles PUT /advances/{id}/disburse
func (h *Handler) DisburseAdvance(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	var dto DisburseDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	a, err := h.Service.Disburse(r.Context(), actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, "Cash advance disbursed successfully", a)
}

// RetireAdvance handles PUT /advances/{id}/retire
func (h *Handler) RetireAdvance(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	var dto RetireDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	a, err := h.Service.Retire(r.Context(), actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, "Cash advance retired successfully", a)
}

func (h *Handler) actorAndID(w http.ResponseWriter, r *http.Request) (*coreuser.User, int64, bool) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, apperrors.ErrMissingToken)
		return nil, 0, false
	}
	id, appErr := h.ParseID(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return nil, 0, false
	}
	return actor, id, true
}
