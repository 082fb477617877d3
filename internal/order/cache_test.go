package order_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/uniform-shop/internal/order"
)

type countingLinesRepository struct {
	order.Repository
	calls int
	lines []order.LineDetail
}

func (r *countingLinesRepository) GetOrderLines(ctx context.Context, userID, orderID uuid.UUID) ([]order.LineDetail, error) {
	r.calls++
	return r.lines, nil
}

func sampleLines() []order.LineDetail {
	return []order.LineDetail{{
		ProductID: uuid.Must(uuid.NewV4()),
		Name:      "shirt",
		ImageURL:  "/img/shirt.png",
		Quantity:  2,
		Size:      "M",
		Price:     decimal.RequireFromString("12.50"),
	}}
}

func TestRedisLineCache_MissLoadHit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &countingLinesRepository{lines: sampleLines()}
	svc := order.NewService(nil, repo, order.NewRedisLineCache(client, time.Minute), order.Options{})
	userID := uuid.Must(uuid.NewV4())
	orderID := uuid.Must(uuid.NewV4())

	first, err := svc.GetOrderDetail(context.Background(), userID, orderID)
	require.NoError(t, err)
	second, err := svc.GetOrderDetail(context.Background(), userID, orderID)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.calls)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ProductID, second[0].ProductID)
	assert.True(t, first[0].Price.Equal(second[0].Price))

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], orderID.String())
	assert.Equal(t, time.Minute, mr.TTL(keys[0]))

	// A different user never reads the owner's entry.
	repo.lines = []order.LineDetail{}
	_, err = svc.GetOrderDetail(context.Background(), uuid.Must(uuid.NewV4()), orderID)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestRedisLineCache_OutageFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	repo := &countingLinesRepository{lines: sampleLines()}
	svc := order.NewService(nil, repo, order.NewRedisLineCache(client, time.Minute), order.Options{})

	for i := 0; i < 2; i++ {
		lines, err := svc.GetOrderDetail(context.Background(), uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()))
		require.NoError(t, err)
		assert.Len(t, lines, 1)
	}
	assert.Equal(t, 2, repo.calls)
}

func TestRedisLineCache_CorruptEntryIsMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := order.NewRedisLineCache(client, time.Minute)
	userID := uuid.Must(uuid.NewV4())
	orderID := uuid.Must(uuid.NewV4())
	cache.Set(context.Background(), userID, orderID, sampleLines())

	for _, k := range mr.Keys() {
		require.NoError(t, mr.Set(k, "not json"))
	}

	_, ok := cache.Get(context.Background(), userID, orderID)
	assert.False(t, ok)
}
