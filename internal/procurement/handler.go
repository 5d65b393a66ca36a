package procurement

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes material request, purchase order and receiving report
// endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/material-requests", h.listMRs)
	r.Post("/material-requests", h.createMR)
	r.Get("/material-requests/{id}", h.getMR)
	r.Post("/material-requests/{id}/approve", h.approveMR)
	r.Post("/material-requests/{id}/decline", h.declineMR)

	r.Get("/purchase-orders", h.listPOs)
	r.Post("/purchase-orders", h.createPO)
	r.Get("/purchase-orders/{id}", h.getPO)
	r.Post("/purchase-orders/{id}/approve", h.approvePO)
	r.Post("/purchase-orders/{id}/decline", h.declinePO)

	r.Post("/receiving-reports", h.createRR)
	r.Get("/receiving-reports/{id}", h.getRR)
}

type mrItemRequest struct {
	MaterialID        int64  `json:"material_id" validate:"required"`
	Description       string `json:"description"`
	Quantity          string `json:"quantity" validate:"required"`
	Unit              string `json:"unit" validate:"required"`
	MaterialUnitPrice string `json:"material_unit_price" validate:"required"`
	LaborUnitPrice    string `json:"labor_unit_price"`
}

type createMRRequest struct {
	ProjectID int64           `json:"project_id" validate:"required"`
	Remarks   string          `json:"remarks"`
	Items     []mrItemRequest `json:"items" validate:"required,min=1,dive"`
}

type mrResponse struct {
	ID           int64      `json:"id"`
	Number       string     `json:"number"`
	ProjectID    int64      `json:"project_id"`
	RequesterID  int64      `json:"requester_id"`
	ApproverID   *int64     `json:"approver_id,omitempty"`
	ApproverRole string     `json:"approver_role"`
	Status       string     `json:"status"`
	TotalAmount  float64    `json:"total_amount"`
	Remarks      string     `json:"remarks,omitempty"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toMRResponse(mr MaterialRequest) mrResponse {
	return mrResponse{
		ID:           mr.ID,
		Number:       mr.Number,
		ProjectID:    mr.ProjectID,
		RequesterID:  mr.RequesterID,
		ApproverID:   mr.ApproverID,
		ApproverRole: mr.ApproverRole,
		Status:       string(mr.Status),
		TotalAmount:  shared.AmountFloat(mr.TotalAmount),
		Remarks:      mr.Remarks,
		DecidedAt:    mr.DecidedAt,
		CreatedAt:    mr.CreatedAt,
	}
}

type mrItemResponse struct {
	ID                int64   `json:"id"`
	MaterialID        int64   `json:"material_id"`
	Description       string  `json:"description,omitempty"`
	Quantity          float64 `json:"quantity"`
	Unit              string  `json:"unit"`
	MaterialUnitPrice float64 `json:"material_unit_price"`
	LaborUnitPrice    float64 `json:"labor_unit_price"`
	LineAmount        float64 `json:"line_amount"`
}

func (h *Handler) createMR(w http.ResponseWriter, r *http.Request) {
	var req createMRRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ValidationError("%s", err.Error()))
		return
	}
	input := CreateMRInput{
		ProjectID:   req.ProjectID,
		RequesterID: actorID(r),
		Remarks:     req.Remarks,
	}
	for _, item := range req.Items {
		qty, err := shared.ParseAmount(item.Quantity)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		material, err := shared.ParseAmount(item.MaterialUnitPrice)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		labor := decimal.Zero
		if item.LaborUnitPrice != "" {
			labor, err = shared.ParseAmount(item.LaborUnitPrice)
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
		}
		input.Items = append(input.Items, MRItemInput{
			MaterialID:        item.MaterialID,
			Description:       item.Description,
			Quantity:          qty,
			Unit:              item.Unit,
			MaterialUnitPrice: material,
			LaborUnitPrice:    labor,
		})
	}
	mr, err := h.service.CreateMaterialRequest(r.Context(), input)
	if err != nil {
		h.logger.Warn("create material request", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toMRResponse(mr))
}

func (h *Handler) getMR(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	mr, items, err := h.service.GetMaterialRequest(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]mrItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, mrItemResponse{
			ID:                item.ID,
			MaterialID:        item.MaterialID,
			Description:       item.Description,
			Quantity:          shared.AmountFloat(item.Quantity),
			Unit:              item.Unit,
			MaterialUnitPrice: shared.AmountFloat(item.MaterialUnitPrice),
			LaborUnitPrice:    shared.AmountFloat(item.LaborUnitPrice),
			LineAmount:        shared.AmountFloat(item.LineAmount()),
		})
	}
	resp := map[string]any{"material_request": toMRResponse(mr), "items": out}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) listMRs(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	mrs, total, err := h.service.ListMaterialRequests(r.Context(), limit, offset, filtersFromQuery(r))
	if err != nil {
		h.logger.Error("list material requests", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]mrResponse, 0, len(mrs))
	for _, mr := range mrs {
		out = append(out, toMRResponse(mr))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"material_requests": out, "meta": shared.NewPagination(offset/limit+1, limit, total)})
}

func (h *Handler) approveMR(w http.ResponseWriter, r *http.Request) {
	h.decideMR(w, r, h.service.ApproveMaterialRequest)
}

func (h *Handler) declineMR(w http.ResponseWriter, r *http.Request) {
	h.decideMR(w, r, h.service.DeclineMaterialRequest)
}

func (h *Handler) decideMR(w http.ResponseWriter, r *http.Request, decide func(ctx context.Context, id int64, actor shared.Actor) error) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ValidationError("actor identity is required"))
		return
	}
	if err := decide(r.Context(), id, actor); err != nil {
		h.logger.Warn("decide material request", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	mr, _, err := h.service.GetMaterialRequest(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toMRResponse(mr))
}

type poItemRequest struct {
	MaterialID  int64  `json:"material_id" validate:"required"`
	Description string `json:"description"`
	Quantity    string `json:"quantity" validate:"required"`
	Unit        string `json:"unit" validate:"required"`
	UnitPrice   string `json:"unit_price" validate:"required"`
}

type createPORequest struct {
	ProjectID  int64           `json:"project_id" validate:"required"`
	SupplierID int64           `json:"supplier_id" validate:"required"`
	Remarks    string          `json:"remarks"`
	Items      []poItemRequest `json:"items" validate:"required,min=1,dive"`
}

type poResponse struct {
	ID           int64      `json:"id"`
	Number       string     `json:"number"`
	ProjectID    int64      `json:"project_id"`
	SupplierID   int64      `json:"supplier_id"`
	RequesterID  int64      `json:"requester_id"`
	ApproverID   *int64     `json:"approver_id,omitempty"`
	ApproverRole string     `json:"approver_role"`
	Status       string     `json:"status"`
	TotalAmount  float64    `json:"total_amount"`
	Remarks      string     `json:"remarks,omitempty"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toPOResponse(po PurchaseOrder) poResponse {
	return poResponse{
		ID:           po.ID,
		Number:       po.Number,
		ProjectID:    po.ProjectID,
		SupplierID:   po.SupplierID,
		RequesterID:  po.RequesterID,
		ApproverID:   po.ApproverID,
		ApproverRole: po.ApproverRole,
		Status:       string(po.Status),
		TotalAmount:  shared.AmountFloat(po.TotalAmount),
		Remarks:      po.Remarks,
		DecidedAt:    po.DecidedAt,
		CreatedAt:    po.CreatedAt,
	}
}

type poItemResponse struct {
	ID          int64   `json:"id"`
	MaterialID  int64   `json:"material_id"`
	Description string  `json:"description,omitempty"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
}

func (h *Handler) createPO(w http.ResponseWriter, r *http.Request) {
	var req createPORequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ValidationError("%s", err.Error()))
		return
	}
	input := CreatePOInput{
		ProjectID:   req.ProjectID,
		SupplierID:  req.SupplierID,
		RequesterID: actorID(r),
		Remarks:     req.Remarks,
	}
	for _, item := range req.Items {
		qty, err := shared.ParseAmount(item.Quantity)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		price, err := shared.ParseAmount(item.UnitPrice)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		input.Items = append(input.Items, POItemInput{
			MaterialID:  item.MaterialID,
			Description: item.Description,
			Quantity:    qty,
			Unit:        item.Unit,
			UnitPrice:   price,
		})
	}
	po, items, err := h.service.CreatePurchaseOrder(r.Context(), input)
	if err != nil {
		h.logger.Warn("create purchase order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]poItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toPOItemResponse(item))
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"purchase_order": toPOResponse(po), "items": out})
}

func toPOItemResponse(item POItem) poItemResponse {
	return poItemResponse{
		ID:          item.ID,
		MaterialID:  item.MaterialID,
		Description: item.Description,
		Quantity:    shared.AmountFloat(item.Quantity),
		Unit:        item.Unit,
		UnitPrice:   shared.AmountFloat(item.UnitPrice),
		TotalPrice:  shared.AmountFloat(item.TotalPrice),
	}
}

func (h *Handler) getPO(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	po, items, err := h.service.GetPurchaseOrder(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]poItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toPOItemResponse(item))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"purchase_order": toPOResponse(po), "items": out})
}

func (h *Handler) listPOs(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	pos, total, err := h.service.ListPurchaseOrders(r.Context(), limit, offset, filtersFromQuery(r))
	if err != nil {
		h.logger.Error("list purchase orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]poResponse, 0, len(pos))
	for _, po := range pos {
		out = append(out, toPOResponse(po))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"purchase_orders": out, "meta": shared.NewPagination(offset/limit+1, limit, total)})
}

func (h *Handler) approvePO(w http.ResponseWriter, r *http.Request) {
	h.decidePO(w, r, h.service.ApprovePurchaseOrder)
}

func (h *Handler) declinePO(w http.ResponseWriter, r *http.Request) {
	h.decidePO(w, r, h.service.DeclinePurchaseOrder)
}

func (h *Handler) decidePO(w http.ResponseWriter, r *http.Request, decide func(ctx context.Context, id int64, actor shared.Actor) error) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ValidationError("actor identity is required"))
		return
	}
	if err := decide(r.Context(), id, actor); err != nil {
		h.logger.Warn("decide purchase order", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	po, _, err := h.service.GetPurchaseOrder(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPOResponse(po))
}

type rrItemRequest struct {
	POItemID    *int64 `json:"po_item_id"`
	Description string `json:"description"`
	Quantity    string `json:"quantity" validate:"required"`
	Unit        string `json:"unit" validate:"required"`
}

type createRRRequest struct {
	PurchaseOrderID int64           `json:"purchase_order_id" validate:"required"`
	ReceivedDate    *time.Time      `json:"received_date"`
	Remarks         string          `json:"remarks"`
	Items           []rrItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) createRR(w http.ResponseWriter, r *http.Request) {
	var req createRRRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ValidationError("%s", err.Error()))
		return
	}
	input := CreateReceivingReportInput{
		PurchaseOrderID: req.PurchaseOrderID,
		ReceivedBy:      actorID(r),
		Remarks:         req.Remarks,
	}
	if req.ReceivedDate != nil {
		input.ReceivedDate = *req.ReceivedDate
	}
	for _, item := range req.Items {
		qty, err := shared.ParseAmount(item.Quantity)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		input.Items = append(input.Items, ReceivingReportItemInput{
			POItemID:    item.POItemID,
			Description: item.Description,
			Quantity:    qty,
			Unit:        item.Unit,
		})
	}
	rr, err := h.service.CreateReceivingReport(r.Context(), input)
	if err != nil {
		h.logger.Warn("create receiving report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"id":                rr.ID,
		"number":            rr.Number,
		"purchase_order_id": rr.PurchaseOrderID,
		"received_by":       rr.ReceivedBy,
		"received_date":     rr.ReceivedDate,
	})
}

func (h *Handler) getRR(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rr, items, err := h.service.GetReceivingReport(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, map[string]any{
			"id":          item.ID,
			"po_item_id":  item.POItemID,
			"description": item.Description,
			"quantity":    shared.AmountFloat(item.Quantity),
			"unit":        item.Unit,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"receiving_report": map[string]any{
			"id":                rr.ID,
			"number":            rr.Number,
			"purchase_order_id": rr.PurchaseOrderID,
			"received_by":       rr.ReceivedBy,
			"received_date":     rr.ReceivedDate,
			"remarks":           rr.Remarks,
		},
		"items": out,
	})
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

func filtersFromQuery(r *http.Request) ListFilters {
	f := ListFilters{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("q"),
	}
	if raw := r.URL.Query().Get("project_id"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			f.ProjectID = v
		}
	}
	if raw := r.URL.Query().Get("supplier_id"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			f.SupplierID = v
		}
	}
	return f
}

func actorID(r *http.Request) int64 {
	actor, _ := shared.ActorFromContext(r.Context())
	return actor.ID
}
