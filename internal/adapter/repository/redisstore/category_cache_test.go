package redisstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srgjo27/westudy/internal/adapter/repository/redisstore"
	"github.com/srgjo27/westudy/internal/core/domain"
	"github.com/srgjo27/westudy/internal/core/ports/mocks"
)

const cachedCategories = `[{"id":"kitnet","label":"Kitnet","icon":"home"}]`

func TestCategoryCache_MissFillsCache(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	api := mocks.NewCategoryAPI(t)
	ctx := context.Background()
	cache := redisstore.NewCategoryCache(db, api, redisstore.DefaultCategoryTTL, nil)

	categories := []domain.Category{{ID: "kitnet", Label: "Kitnet", Icon: "home"}}

	mockRedis.ExpectGet(redisstore.CategoriesKey).RedisNil()
	api.On("GetCategories", ctx).Return(categories, nil).Once()
	mockRedis.ExpectSet(redisstore.CategoriesKey, cachedCategories, redisstore.DefaultCategoryTTL).SetVal("OK")

	got, err := cache.GetCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, categories, got)

	if err := mockRedis.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestCategoryCache_HitSkipsAPI(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	api := mocks.NewCategoryAPI(t)
	cache := redisstore.NewCategoryCache(db, api, 0, nil)

	mockRedis.ExpectGet(redisstore.CategoriesKey).SetVal(cachedCategories)

	got, err := cache.GetCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Kitnet", got[0].Label)
	api.AssertNotCalled(t, "GetCategories")
}

func TestCategoryCache_RedisDownFallsThrough(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	api := mocks.NewCategoryAPI(t)
	ctx := context.Background()
	cache := redisstore.NewCategoryCache(db, api, redisstore.DefaultCategoryTTL, nil)

	mockRedis.ExpectGet(redisstore.CategoriesKey).SetErr(errors.New("connection refused"))
	api.On("GetCategories", ctx).Return([]domain.Category{{ID: "kitnet", Label: "Kitnet", Icon: "home"}}, nil).Once()
	mockRedis.ExpectSet(redisstore.CategoriesKey, cachedCategories, redisstore.DefaultCategoryTTL).SetErr(errors.New("connection refused"))

	got, err := cache.GetCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCategoryCache_APIErrorIsReturned(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	api := mocks.NewCategoryAPI(t)
	ctx := context.Background()
	cache := redisstore.NewCategoryCache(db, api, 0, nil)

	mockRedis.ExpectGet(redisstore.CategoriesKey).RedisNil()
	api.On("GetCategories", ctx).Return(nil, errors.New("bad gateway")).Once()

	_, err := cache.GetCategories(ctx)
	assert.EqualError(t, err, "bad gateway")
}

func TestCategoryCache_Invalidate(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	cache := redisstore.NewCategoryCache(db, mocks.NewCategoryAPI(t), 0, nil)

	mockRedis.ExpectDel(redisstore.CategoriesKey).SetVal(1)

	require.NoError(t, cache.Invalidate(context.Background()))

	if err := mockRedis.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}
