package projects

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

// Handler exposes project and client endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers project routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/projects", h.listProjects)
	r.Post("/projects", h.createProject)
	r.Get("/projects/{id}", h.getProject)
	r.Patch("/projects/{id}", h.updateProject)

	r.Get("/clients", h.listClients)
	r.Post("/clients", h.createClient)
	r.Get("/clients/{id}", h.getClient)
}

type projectResponse struct {
	ID        int64      `json:"id"`
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	ClientID  *int64     `json:"client_id,omitempty"`
	Budget    float64    `json:"budget"`
	Location  string     `json:"location,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

func toProjectResponse(p Project) projectResponse {
	return projectResponse{
		ID:        p.ID,
		Code:      p.Code,
		Name:      p.Name,
		ClientID:  p.ClientID,
		Budget:    shared.AmountFloat(p.Budget),
		Location:  p.Location,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
	}
}

type createProjectRequest struct {
	Code     string `json:"code" validate:"required"`
	Name     string `json:"name" validate:"required"`
	ClientID *int64 `json:"client_id"`
	Budget   string `json:"budget" validate:"required"`
	Location string `json:"location"`
}

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ValidationError("%s", err.Error()))
		return
	}
	budget, err := shared.ParseAmount(req.Budget)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	p, err := h.service.CreateProject(r.Context(), CreateProjectInput{
		Code:     req.Code,
		Name:     req.Name,
		ClientID: req.ClientID,
		Budget:   budget,
		Location: req.Location,
		ActorID:  actor.ID,
	})
	if err != nil {
		h.logger.Warn("create project", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toProjectResponse(p))
}

type updateProjectRequest struct {
	Name     *string `json:"name"`
	Budget   *string `json:"budget"`
	Location *string `json:"location"`
	Status   *string `json:"status"`
}

func (h *Handler) updateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateProjectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid request body"))
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	input := UpdateProjectInput{
		Name:     req.Name,
		Location: req.Location,
		Status:   req.Status,
		ActorID:  actor.ID,
	}
	if req.Budget != nil {
		budget, err := shared.ParseAmount(*req.Budget)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		input.Budget = &budget
	}
	p, err := h.service.UpdateProject(r.Context(), id, input)
	if err != nil {
		h.logger.Warn("update project", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProjectResponse(p))
}

func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.service.GetProject(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProjectResponse(p))
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	list, total, err := h.service.ListProjects(r.Context(), limit, offset, r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("list projects", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]projectResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toProjectResponse(p))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"projects": out, "meta": shared.NewPagination(offset/limit+1, limit, total)})
}

type clientResponse struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contact_person,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	Address       string    `json:"address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toClientResponse(c Client) clientResponse {
	return clientResponse{
		ID:            c.ID,
		Name:          c.Name,
		ContactPerson: c.ContactPerson,
		Phone:         c.Phone,
		Email:         c.Email,
		Address:       c.Address,
		CreatedAt:     c.CreatedAt,
	}
}

type createClientRequest struct {
	Name          string `json:"name" validate:"required"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email" validate:"omitempty,email"`
	Address       string `json:"address"`
}

func (h *Handler) createClient(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ValidationError("%s", err.Error()))
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	c, err := h.service.CreateClient(r.Context(), CreateClientInput{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		ActorID:       actor.ID,
	})
	if err != nil {
		h.logger.Warn("create client", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toClientResponse(c))
}

func (h *Handler) getClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.service.GetClient(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toClientResponse(c))
}

func (h *Handler) listClients(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	list, total, err := h.service.ListClients(r.Context(), limit, offset, r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("list clients", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]clientResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toClientResponse(c))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"clients": out, "meta": shared.NewPagination(offset/limit+1, limit, total)})
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
