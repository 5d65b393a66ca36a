package workflow

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes workflow rule endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers workflow routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/rules", h.listRules)
	r.Post("/rules", h.createRule)
	r.Delete("/rules/{id}", h.deleteRule)
	r.Get("/resolve", h.resolveApprover)
}

type ruleResponse struct {
	ID           int64    `json:"id"`
	ProcessType  string   `json:"process_type"`
	MinAmount    float64  `json:"min_amount"`
	MaxAmount    *float64 `json:"max_amount,omitempty"`
	ApproverRole string   `json:"approver_role"`
	StepOrder    int      `json:"step_order"`
}

func toRuleResponse(rule Rule) ruleResponse {
	resp := ruleResponse{
		ID:           rule.ID,
		ProcessType:  string(rule.ProcessType),
		MinAmount:    shared.AmountFloat(rule.MinAmount),
		ApproverRole: rule.ApproverRole,
		StepOrder:    rule.StepOrder,
	}
	if rule.MaxAmount != nil {
		max := shared.AmountFloat(*rule.MaxAmount)
		resp.MaxAmount = &max
	}
	return resp
}

func (h *Handler) listRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.service.ListRules(r.Context())
	if err != nil {
		h.logger.Error("list workflow rules", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]ruleResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toRuleResponse(rule))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rules": out})
}

type createRuleRequest struct {
	ProcessType  string  `json:"process_type" validate:"required"`
	MinAmount    string  `json:"min_amount" validate:"required"`
	MaxAmount    *string `json:"max_amount"`
	ApproverRole string  `json:"approver_role" validate:"required"`
	StepOrder    int     `json:"step_order" validate:"required,min=1"`
}

func (h *Handler) createRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ValidationError("%s", err.Error()))
		return
	}
	minAmount, err := shared.ParseAmount(req.MinAmount)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := CreateRuleInput{
		ProcessType:  ProcessType(req.ProcessType),
		MinAmount:    minAmount,
		ApproverRole: req.ApproverRole,
		StepOrder:    req.StepOrder,
		ActorID:      actorID(r),
	}
	if req.MaxAmount != nil {
		maxAmount, err := shared.ParseAmount(*req.MaxAmount)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		input.MaxAmount = &maxAmount
	}
	rule, err := h.service.CreateRule(r.Context(), input)
	if err != nil {
		h.logger.Warn("create workflow rule", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRuleResponse(rule))
}

func (h *Handler) deleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.ValidationError("invalid rule id"))
		return
	}
	if err := h.service.DeleteRule(r.Context(), id, actorID(r)); err != nil {
		h.logger.Warn("delete workflow rule", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) resolveApprover(w http.ResponseWriter, r *http.Request) {
	process := ProcessType(r.URL.Query().Get("process_type"))
	amount, err := shared.ParseAmount(r.URL.Query().Get("amount"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resolution, err := h.service.ResolveApprover(r.Context(), process, amount)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"approver_role": resolution.ApproverRole,
		"step_order":    resolution.StepOrder,
	})
}

func actorID(r *http.Request) int64 {
	actor, _ := shared.ActorFromContext(r.Context())
	return actor.ID
}
