package masterdata

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes reference data endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers masterdata routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/suppliers", h.listSuppliers)
	r.Post("/suppliers", h.createSupplier)
	r.Get("/suppliers/{id}", h.getSupplier)
	r.Put("/suppliers/{id}", h.updateSupplier)

	r.Get("/materials", h.listMaterials)
	r.Post("/materials", h.createMaterial)
	r.Get("/materials/{id}", h.getMaterial)

	r.Get("/units", h.listUnits)
	r.Post("/units", h.createUnit)

	r.Get("/warehouses", h.listWarehouses)
	r.Post("/warehouses", h.createWarehouse)
}

type supplierRequest struct {
	Code          string `json:"code" validate:"required"`
	Name          string `json:"name" validate:"required"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email" validate:"omitempty,email"`
	Address       string `json:"address"`
}

type supplierResponse struct {
	ID            int64     `json:"id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contact_person,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	Address       string    `json:"address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toSupplierResponse(s Supplier) supplierResponse {
	return supplierResponse{
		ID:            s.ID,
		Code:          s.Code,
		Name:          s.Name,
		ContactPerson: s.ContactPerson,
		Phone:         s.Phone,
		Email:         s.Email,
		Address:       s.Address,
		CreatedAt:     s.CreatedAt,
	}
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ValidationError("%s", err.Error()))
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	s, err := h.service.CreateSupplier(r.Context(), SupplierInput{
		Code: req.Code, Name: req.Name, ContactPerson: req.ContactPerson,
		Phone: req.Phone, Email: req.Email, Address: req.Address, ActorID: actor.ID,
	})
	if err != nil {
		h.logger.Warn("create supplier", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toSupplierResponse(s))
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req supplierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid request body"))
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	s, err := h.service.UpdateSupplier(r.Context(), id, SupplierInput{
		Name: req.Name, ContactPerson: req.ContactPerson,
		Phone: req.Phone, Email: req.Email, Address: req.Address, ActorID: actor.ID,
	})
	if err != nil {
		h.logger.Warn("update supplier", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSupplierResponse(s))
}

func (h *Handler) getSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s, err := h.service.GetSupplier(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSupplierResponse(s))
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	list, total, err := h.service.ListSuppliers(r.Context(), limit, offset, r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("list suppliers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]supplierResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toSupplierResponse(s))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"suppliers": out, "meta": shared.NewPagination(offset/limit+1, limit, total)})
}

type materialRequest struct {
	Code          string `json:"code" validate:"required"`
	Name          string `json:"name" validate:"required"`
	UnitID        *int64 `json:"unit_id"`
	StandardPrice string `json:"standard_price"`
}

type materialResponse struct {
	ID            int64     `json:"id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	UnitID        *int64    `json:"unit_id,omitempty"`
	StandardPrice float64   `json:"standard_price"`
	CreatedAt     time.Time `json:"created_at"`
}

func toMaterialResponse(m Material) materialResponse {
	return materialResponse{
		ID:            m.ID,
		Code:          m.Code,
		Name:          m.Name,
		UnitID:        m.UnitID,
		StandardPrice: shared.AmountFloat(m.StandardPrice),
		CreatedAt:     m.CreatedAt,
	}
}

func (h *Handler) createMaterial(w http.ResponseWriter, r *http.Request) {
	var req materialRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ValidationError("%s", err.Error()))
		return
	}
	input := MaterialInput{Code: req.Code, Name: req.Name, UnitID: req.UnitID}
	if req.StandardPrice != "" {
		price, err := shared.ParseAmount(req.StandardPrice)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		input.StandardPrice = price
	}
	actor, _ := shared.ActorFromContext(r.Context())
	input.ActorID = actor.ID
	m, err := h.service.CreateMaterial(r.Context(), input)
	if err != nil {
		h.logger.Warn("create material", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toMaterialResponse(m))
}

func (h *Handler) getMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	m, err := h.service.GetMaterial(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toMaterialResponse(m))
}

func (h *Handler) listMaterials(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	list, total, err := h.service.ListMaterials(r.Context(), limit, offset, r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("list materials", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]materialResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toMaterialResponse(m))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"materials": out, "meta": shared.NewPagination(offset/limit+1, limit, total)})
}

type unitRequest struct {
	Code string `json:"code" validate:"required"`
	Name string `json:"name" validate:"required"`
}

func (h *Handler) createUnit(w http.ResponseWriter, r *http.Request) {
	var req unitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ValidationError("%s", err.Error()))
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	u, err := h.service.CreateUnit(r.Context(), UnitInput{Code: req.Code, Name: req.Name, ActorID: actor.ID})
	if err != nil {
		h.logger.Warn("create unit", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": u.ID, "code": u.Code, "name": u.Name})
}

func (h *Handler) listUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.service.ListUnits(r.Context())
	if err != nil {
		h.logger.Error("list units", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(units))
	for _, u := range units {
		out = append(out, map[string]any{"id": u.ID, "code": u.Code, "name": u.Name})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"units": out})
}

type warehouseRequest struct {
	Code     string `json:"code" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Location string `json:"location"`
}

func (h *Handler) createWarehouse(w http.ResponseWriter, r *http.Request) {
	var req warehouseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ValidationError("%s", err.Error()))
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	wh, err := h.service.CreateWarehouse(r.Context(), WarehouseInput{
		Code: req.Code, Name: req.Name, Location: req.Location, ActorID: actor.ID,
	})
	if err != nil {
		h.logger.Warn("create warehouse", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": wh.ID, "code": wh.Code, "name": wh.Name, "location": wh.Location})
}

func (h *Handler) listWarehouses(w http.ResponseWriter, r *http.Request) {
	warehouses, err := h.service.ListWarehouses(r.Context())
	if err != nil {
		h.logger.Error("list warehouses", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(warehouses))
	for _, wh := range warehouses {
		out = append(out, map[string]any{"id": wh.ID, "code": wh.Code, "name": wh.Name, "location": wh.Location})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"warehouses": out})
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
