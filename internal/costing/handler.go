package costing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes the project cost report.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/project-costs", h.projectCosts)
}

type summaryResponse struct {
	ProjectID   int64   `json:"project_id"`
	ProjectName string  `json:"project_name"`
	Budget      float64 `json:"budget"`
	Committed   float64 `json:"committed"`
	Invoiced    float64 `json:"invoiced"`
	Paid        float64 `json:"paid"`
	Remaining   float64 `json:"remaining"`
	Progress    float64 `json:"progress"`
}

func (h *Handler) projectCosts(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.ComputeProjectCostSummary(r.Context())
	if err != nil {
		h.logger.Error("project cost summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]summaryResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, summaryResponse{
			ProjectID:   s.ProjectID,
			ProjectName: s.ProjectName,
			Budget:      shared.AmountFloat(s.Budget),
			Committed:   shared.AmountFloat(s.Committed),
			Invoiced:    shared.AmountFloat(s.Invoiced),
			Paid:        shared.AmountFloat(s.Paid),
			Remaining:   shared.AmountFloat(s.Remaining),
			Progress:    shared.AmountFloat(s.Progress),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"projects": out})
}
