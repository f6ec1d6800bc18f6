package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srgjo27/westudy/internal/core/domain"
	"github.com/srgjo27/westudy/internal/core/ports/mocks"
	"github.com/srgjo27/westudy/internal/core/services"
)

func TestListingDetailController_LoadAndRefresh(t *testing.T) {
	api := mocks.NewListingAPI(t)
	ctx := context.Background()
	listing := &domain.Listing{ID: "l1", Title: "Quarto perto da USP"}

	api.On("GetListing", ctx, "l1").Return(listing, nil).Once()
	api.On("GetListing", ctx, "l1").Return(nil, errors.New("not found")).Once()

	c := services.NewListingDetailController(ctx, api, "l1", nil)
	assert.Equal(t, listing, c.State().Listing)

	assert.Error(t, c.Refresh(ctx))

	state := c.State()
	assert.Equal(t, listing, state.Listing)
	assert.Equal(t, "not found", state.Error)
}

func TestListingDetailController_EmptyIDSkipsLoad(t *testing.T) {
	api := mocks.NewListingAPI(t)

	c := services.NewListingDetailController(context.Background(), api, "", nil)

	assert.Nil(t, c.State().Listing)
	api.AssertNotCalled(t, "GetListing")
}

func TestCategoryController(t *testing.T) {
	ctx := context.Background()

	t.Run("loaded", func(t *testing.T) {
		api := mocks.NewCategoryAPI(t)
		categories := []domain.Category{{ID: "kitnet", Label: "Kitnet", Icon: "home"}}
		api.On("GetCategories", ctx).Return(categories, nil).Once()

		c := services.NewCategoryController(ctx, api, nil)

		state := c.State()
		require.Empty(t, state.Error)
		assert.Equal(t, categories, state.Categories)
	})

	t.Run("failed", func(t *testing.T) {
		api := mocks.NewCategoryAPI(t)
		api.On("GetCategories", ctx).Return(nil, errors.New("boom")).Once()

		c := services.NewCategoryController(ctx, api, nil)

		state := c.State()
		assert.Equal(t, "boom", state.Error)
		assert.Empty(t, state.Categories)
	})
}
