package invoicing

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

// Handler exposes supplier invoice endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/invoices", h.list)
	r.Post("/invoices", h.create)
	r.Get("/invoices/{id}", h.get)
	r.Post("/invoices/{id}/match", h.match)
	r.Post("/invoices/{id}/cancel", h.cancel)
}

type createInvoiceRequest struct {
	InvoiceNumber     string     `json:"invoice_number" validate:"required"`
	InvoiceDate       *time.Time `json:"invoice_date"`
	SupplierID        int64      `json:"supplier_id" validate:"required"`
	PurchaseOrderID   *int64     `json:"purchase_order_id"`
	ReceivingReportID *int64     `json:"receiving_report_id"`
	TotalAmount       string     `json:"total_amount" validate:"required"`
	Remarks           string     `json:"remarks"`
}

type invoiceResponse struct {
	ID                int64      `json:"id"`
	Number            string     `json:"number"`
	InvoiceNumber     string     `json:"invoice_number"`
	InvoiceDate       time.Time  `json:"invoice_date"`
	SupplierID        int64      `json:"supplier_id"`
	PurchaseOrderID   *int64     `json:"purchase_order_id,omitempty"`
	ReceivingReportID *int64     `json:"receiving_report_id,omitempty"`
	Status            string     `json:"status"`
	TotalAmount       float64    `json:"total_amount"`
	Remarks           string     `json:"remarks,omitempty"`
	MatchedByID       *int64     `json:"matched_by,omitempty"`
	MatchedAt         *time.Time `json:"matched_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func toInvoiceResponse(inv Invoice) invoiceResponse {
	return invoiceResponse{
		ID:                inv.ID,
		Number:            inv.Number,
		InvoiceNumber:     inv.InvoiceNumber,
		InvoiceDate:       inv.InvoiceDate,
		SupplierID:        inv.SupplierID,
		PurchaseOrderID:   inv.PurchaseOrderID,
		ReceivingReportID: inv.ReceivingReportID,
		Status:            string(inv.Status),
		TotalAmount:       shared.AmountFloat(inv.TotalAmount),
		Remarks:           inv.Remarks,
		MatchedByID:       inv.MatchedByID,
		MatchedAt:         inv.MatchedAt,
		CreatedAt:         inv.CreatedAt,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ValidationError("%s", err.Error()))
		return
	}
	total, err := shared.ParseAmount(req.TotalAmount)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	input := CreateInvoiceInput{
		InvoiceNumber:     req.InvoiceNumber,
		SupplierID:        req.SupplierID,
		PurchaseOrderID:   req.PurchaseOrderID,
		ReceivingReportID: req.ReceivingReportID,
		TotalAmount:       total,
		Remarks:           req.Remarks,
		ActorID:           actor.ID,
	}
	if req.InvoiceDate != nil {
		input.InvoiceDate = *req.InvoiceDate
	}
	inv, err := h.service.CreateInvoice(r.Context(), input)
	if err != nil {
		h.logger.Warn("create invoice", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toInvoiceResponse(inv))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInvoiceResponse(inv))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	filters := ListFilters{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("q"),
	}
	if raw := r.URL.Query().Get("supplier_id"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filters.SupplierID = v
		}
	}
	if raw := r.URL.Query().Get("purchase_order_id"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filters.PurchaseOrderID = v
		}
	}
	invoices, total, err := h.service.ListInvoices(r.Context(), limit, offset, filters)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toInvoiceResponse(inv))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": out, "meta": shared.NewPagination(offset/limit+1, limit, total)})
}

func (h *Handler) match(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.MatchInvoice, "match invoice")
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.CancelInvoice, "cancel invoice")
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
	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInvoiceResponse(inv))
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
