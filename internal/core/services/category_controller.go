package services

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/srgjo27/westudy/internal/core/domain"
	"github.com/srgjo27/westudy/internal/core/ports"
)

type CategoryState struct {
	Categories []domain.Category
	Error      string
}

// CategoryController loads the category taxonomy once, at construction, and
// is read-only afterwards.
type CategoryController struct {
	categories []domain.Category
	errMsg     string
}

func NewCategoryController(ctx context.Context, api ports.CategoryAPI, logger *zap.Logger) *CategoryController {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &CategoryController{}

	categories, err := api.GetCategories(ctx)
	if err != nil {
		c.errMsg = errorMessage(err, "failed to load categories")
		logger.Error("failed to load categories", zap.Error(err))
		return c
	}
	c.categories = categories

	return c
}

func (c *CategoryController) State() CategoryState {
	return CategoryState{
		Categories: slices.Clone(c.categories),
		Error:      c.errMsg,
	}
}
