package disbursement

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes disbursement endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers disbursement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/disbursements", h.list)
	r.Post("/disbursements", h.create)
	r.Get("/disbursements/{id}", h.get)
	r.Post("/disbursements/{id}/release", h.release)
	r.Post("/disbursements/{id}/void", h.void)
}

type createRequest struct {
	PurchaseOrderID *int64 `json:"purchase_order_id"`
	Amount          string `json:"amount" validate:"required"`
	Method          string `json:"method" validate:"required"`
	ReferenceNumber string `json:"reference_number" validate:"required"`
	Remarks         string `json:"remarks"`
}

type response struct {
	ID              int64      `json:"id"`
	Number          string     `json:"number"`
	PurchaseOrderID *int64     `json:"purchase_order_id,omitempty"`
	Amount          float64    `json:"amount"`
	Method          string     `json:"method"`
	ReferenceNumber string     `json:"reference_number"`
	Status          string     `json:"status"`
	ProcessedByID   int64      `json:"processed_by"`
	ReleasedByID    *int64     `json:"released_by,omitempty"`
	ReleasedAt      *time.Time `json:"released_at,omitempty"`
	Remarks         string     `json:"remarks,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toResponse(d Disbursement) response {
	return response{
		ID:              d.ID,
		Number:          d.Number,
		PurchaseOrderID: d.PurchaseOrderID,
		Amount:          shared.AmountFloat(d.Amount),
		Method:          string(d.Method),
		ReferenceNumber: d.ReferenceNumber,
		Status:          string(d.Status),
		ProcessedByID:   d.ProcessedByID,
		ReleasedByID:    d.ReleasedByID,
		ReleasedAt:      d.ReleasedAt,
		Remarks:         d.Remarks,
		CreatedAt:       d.CreatedAt,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ValidationError("%s", err.Error()))
		return
	}
	amount, err := shared.ParseAmount(req.Amount)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	d, err := h.service.Create(r.Context(), CreateInput{
		PurchaseOrderID: req.PurchaseOrderID,
		Amount:          amount,
		Method:          Method(req.Method),
		ReferenceNumber: req.ReferenceNumber,
		ProcessedByID:   actor.ID,
		Remarks:         req.Remarks,
	})
	if err != nil {
		h.logger.Warn("create disbursement", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(d))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(d))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	filters := ListFilters{
		Status: r.URL.Query().Get("status"),
		Method: r.URL.Query().Get("method"),
	}
	if raw := r.URL.Query().Get("purchase_order_id"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filters.PurchaseOrderID = v
		}
	}
	list, total, err := h.service.List(r.Context(), limit, offset, filters)
	if err != nil {
		h.logger.Error("list disbursements", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]response, 0, len(list))
	for _, d := range list {
		out = append(out, toResponse(d))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"disbursements": out, "meta": shared.NewPagination(offset/limit+1, limit, total)})
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Release, "release disbursement")
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Void, "void disbursement")
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id int64, actor shared.Actor) error, op string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ValidationError("actor identity is required"))
		return
	}
	if err := apply(r.Context(), id, actor); err != nil {
		h.logger.Warn(op, slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(d))
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.ValidationError("invalid id"))
		return 0, false
	}
	return id, true
}

func pageParams(r *http.Request) (limit, offset int) {
	limit = 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
