package usage_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/tally/internal/usage"
)

const stream = "tally:usage"

func newSink(t *testing.T) (*usage.RedisSink, *redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return usage.NewRedisSink(client, stream, time.Hour, slog.New(slog.DiscardHandler)), client, mr
}

func TestRedisSinkRecordsOnce(t *testing.T) {
	sink, client, _ := newSink(t)
	ctx := context.Background()

	e := usage.Event{Name: usage.EventScan, OwnerID: "user_1", CorrelationID: "rec_1"}
	require.NoError(t, sink.Track(ctx, e))
	require.NoError(t, sink.Track(ctx, e))

	msgs, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "scan", msgs[0].Values["name"])
	assert.Equal(t, "user_1", msgs[0].Values["owner_id"])
	assert.Equal(t, "rec_1", msgs[0].Values["correlation_id"])
}

func TestRedisSinkConcurrentDuplicates(t *testing.T) {
	sink, client, _ := newSink(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			assert.NoError(t, sink.Track(ctx, usage.Event{Name: usage.EventScan, OwnerID: "u", CorrelationID: "rec_7"}))
		})
	}
	wg.Wait()

	n, err := client.XLen(ctx, stream).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestRedisSinkDistinctCorrelations(t *testing.T) {
	sink, client, _ := newSink(t)
	ctx := context.Background()

	for _, id := range []string{"rec_1", "rec_2", "rec_3"} {
		require.NoError(t, sink.Track(ctx, usage.Event{Name: usage.EventScan, OwnerID: "u", CorrelationID: id}))
	}

	n, err := client.XLen(ctx, stream).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestRedisSinkDedupeExpires(t *testing.T) {
	sink, client, mr := newSink(t)
	ctx := context.Background()
	e := usage.Event{Name: usage.EventScan, OwnerID: "u", CorrelationID: "rec_1"}

	require.NoError(t, sink.Track(ctx, e))
	mr.FastForward(2 * time.Hour)
	require.NoError(t, sink.Track(ctx, e))

	n, err := client.XLen(ctx, stream).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestRedisSinkUnavailable(t *testing.T) {
	sink, _, mr := newSink(t)
	mr.Close()

	err := sink.Track(context.Background(), usage.Event{Name: usage.EventScan, CorrelationID: "rec_1"})
	assert.Error(t, err)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := usage.NewLogSink(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, sink.Track(context.Background(), usage.Event{Name: usage.EventScan, OwnerID: "user_1", CorrelationID: "rec_1"}))
	assert.Contains(t, buf.String(), "correlation_id=rec_1")
	assert.Contains(t, buf.String(), "system=usage")
}
