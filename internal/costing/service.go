package costing

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// CacheKey is where the warmup job stores the serialized summary.
const CacheKey = "meridian:reports:project-costs"

// Service computes project cost summaries. The request path always
// recomputes from a fresh snapshot; singleflight only collapses calls that
// arrive while a computation is in flight.
type Service struct {
	repo  RepositoryPort
	redis *redis.Client
	group singleflight.Group
}

// NewService constructs the costing service. redis may be nil when no cache
// warmup target is configured.
func NewService(repo RepositoryPort, rdb *redis.Client) *Service {
	return &Service{repo: repo, redis: rdb}
}

// ComputeProjectCostSummary aggregates the latest snapshot.
func (s *Service) ComputeProjectCostSummary(ctx context.Context) ([]ProjectCostSummary, error) {
	v, err, _ := s.group.Do("project-costs", func() (any, error) {
		snap, err := s.repo.ReadSnapshot(ctx)
		if err != nil {
			return nil, shared.PersistenceError(err)
		}
		return Aggregate(snap), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]ProjectCostSummary), nil
}

// cachedSummary is the wire shape stored in redis for dashboard consumers.
type cachedSummary struct {
	GeneratedAt time.Time            `json:"generated_at"`
	Summaries   []cachedProjectEntry `json:"summaries"`
}

type cachedProjectEntry struct {
	ProjectID   int64  `json:"project_id"`
	ProjectName string `json:"project_name"`
	Budget      string `json:"budget"`
	Committed   string `json:"committed"`
	Invoiced    string `json:"invoiced"`
	Paid        string `json:"paid"`
	Remaining   string `json:"remaining"`
	Progress    string `json:"progress"`
}

// WarmCache recomputes the summary and stores it in redis with the given
// TTL. Called from the background worker, never from the request path.
func (s *Service) WarmCache(ctx context.Context, ttl time.Duration) error {
	if s.redis == nil {
		return nil
	}
	summaries, err := s.ComputeProjectCostSummary(ctx)
	if err != nil {
		return err
	}
	payload := cachedSummary{GeneratedAt: time.Now()}
	for _, sm := range summaries {
		payload.Summaries = append(payload.Summaries, cachedProjectEntry{
			ProjectID:   sm.ProjectID,
			ProjectName: sm.ProjectName,
			Budget:      sm.Budget.StringFixed(2),
			Committed:   sm.Committed.StringFixed(2),
			Invoiced:    sm.Invoiced.StringFixed(2),
			Paid:        sm.Paid.StringFixed(2),
			Remaining:   sm.Remaining.StringFixed(2),
			Progress:    sm.Progress.StringFixed(2),
		})
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, CacheKey, raw, ttl).Err()
}
