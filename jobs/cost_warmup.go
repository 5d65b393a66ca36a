package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/costing"
)

// CostWarmupJob refreshes the cached project cost summary.
type CostWarmupJob struct {
	Costing    *costing.Service
	Logger     *slog.Logger
	DefaultTTL time.Duration
}

// NewCostWarmupJob wires dependencies for the warmup handler.
func NewCostWarmupJob(costingSvc *costing.Service, logger *slog.Logger, defaultTTL time.Duration) *CostWarmupJob {
	return &CostWarmupJob{Costing: costingSvc, Logger: logger, DefaultTTL: defaultTTL}
}

// Handle processes cost summary warmup tasks.
func (j *CostWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Costing == nil {
		return errors.New("cost warmup: handler not configured")
	}
	var payload CostWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	ttl := payload.TTL
	if ttl <= 0 {
		ttl = j.DefaultTTL
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	started := time.Now()
	jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := j.Costing.WarmCache(jobCtx, ttl); err != nil {
		j.logger().Error("cost summary warmup", slog.Any("error", err))
		return err
	}
	j.logger().Info("cost summary warmed", slog.Duration("duration", time.Since(started)), slog.Duration("ttl", ttl))
	return nil
}

func (j *CostWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskCostSummaryWarmup))
	}
	return slog.Default()
}
