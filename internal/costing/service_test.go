package costing

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/docstate"
)

type staticSnapshotRepo struct {
	snap Snapshot
}

func (r staticSnapshotRepo) ReadSnapshot(ctx context.Context) (Snapshot, error) {
	return r.snap, nil
}

func testSnapshot() Snapshot {
	return Snapshot{
		Projects: []ProjectSnapshot{{ID: 1, Name: "Tower A", Budget: amount("1000000")}},
		POs: []POSnapshot{
			{ID: 10, ProjectID: 1, Status: docstate.StatusApproved, TotalAmount: amount("500000")},
		},
	}
}

func TestComputeProjectCostSummary(t *testing.T) {
	svc := NewService(staticSnapshotRepo{snap: testSnapshot()}, nil)

	out, err := svc.ComputeProjectCostSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.True(t, out[0].Committed.Equal(amount("500000")))
	require.True(t, out[0].Progress.Equal(amount("50")))
}

func TestWarmCacheStoresSerializedSummary(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	svc := NewService(staticSnapshotRepo{snap: testSnapshot()}, rdb)
	require.NoError(t, svc.WarmCache(context.Background(), time.Minute))

	raw, err := rdb.Get(context.Background(), CacheKey).Result()
	require.NoError(t, err)

	var payload cachedSummary
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	require.Len(t, payload.Summaries, 1)
	require.Equal(t, "500000.00", payload.Summaries[0].Committed)
	require.Equal(t, "50.00", payload.Summaries[0].Progress)
	require.False(t, payload.GeneratedAt.IsZero())

	srv.FastForward(2 * time.Minute)
	_, err = rdb.Get(context.Background(), CacheKey).Result()
	require.ErrorIs(t, err, redis.Nil)
}

func TestWarmCacheNoRedisIsNoop(t *testing.T) {
	svc := NewService(staticSnapshotRepo{snap: testSnapshot()}, nil)
	require.NoError(t, svc.WarmCache(context.Background(), time.Minute))
}
