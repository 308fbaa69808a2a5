package redis

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := NewFromRedis(redis.NewClient(&redis.Options{Addr: srv.Addr()}))
	t.Cleanup(func() { client.Close() })

	return client, srv
}

func TestMetrics_CountsByPrefix(t *testing.T) {
	client, srv := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.IncrementMetric(ctx, "answers:enriched"))
	require.NoError(t, client.IncrementMetric(ctx, "answers:enriched"))
	require.NoError(t, client.IncrementMetric(ctx, "answers:deterministic"))
	require.NoError(t, client.IncrementMetric(ctx, "fallback:timeout"))
	require.NoError(t, srv.Set("answers:unprefixed", "7"))

	counts, err := client.Metrics(ctx, "answers:")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{
		"answers:enriched":      2,
		"answers:deterministic": 1,
	}, counts)
}

func TestMetrics_Empty(t *testing.T) {
	client, _ := newTestClient(t)

	counts, err := client.Metrics(context.Background(), "answers:")
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestMetrics_NonNumericValueFails(t *testing.T) {
	client, srv := newTestClient(t)
	require.NoError(t, srv.Set(metricPrefix+"answers:broken", "not-a-number"))

	_, err := client.Metrics(context.Background(), "answers:")
	assert.Error(t, err)
}

func TestNewClient(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewClient(srv.Host(), mustPort(t, srv), "", 0)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.IncrementMetric(context.Background(), "answers:enriched"))
	got, err := srv.Get(metricPrefix + "answers:enriched")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
}

func mustPort(t *testing.T, srv *miniredis.Miniredis) int {
	t.Helper()
	var port int
	_, err := fmt.Sscanf(srv.Port(), "%d", &port)
	require.NoError(t, err)
	return port
}
