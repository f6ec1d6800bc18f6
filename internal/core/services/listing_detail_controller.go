package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/srgjo27/westudy/internal/core/domain"
	"github.com/srgjo27/westudy/internal/core/ports"
)

type ListingDetailState struct {
	Listing *domain.Listing
	Loading bool
	Error   string
}

// ListingDetailController backs the room detail view for one listing id.
type ListingDetailController struct {
	api    ports.ListingAPI
	id     string
	logger *zap.Logger

	mu      sync.Mutex
	listing *domain.Listing
	loading bool
	errMsg  string
	closed  bool
}

func NewListingDetailController(ctx context.Context, api ports.ListingAPI, id string, logger *zap.Logger) *ListingDetailController {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &ListingDetailController{
		api:    api,
		id:     id,
		logger: logger,
	}

	if id != "" {
		_ = c.Load(ctx)
	}

	return c
}

func (c *ListingDetailController) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrControllerClosed
	}
	c.loading = true
	c.mu.Unlock()

	listing, err := c.api.GetListing(ctx, c.id)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return err
	}

	c.loading = false

	if err != nil {
		c.errMsg = errorMessage(err, "failed to load listing")
		c.logger.Error("failed to load listing", zap.String("listing_id", c.id), zap.Error(err))
		return err
	}

	if listing != nil {
		c.listing = listing
	}
	c.errMsg = ""

	return nil
}

func (c *ListingDetailController) Refresh(ctx context.Context) error {
	return c.Load(ctx)
}

func (c *ListingDetailController) State() ListingDetailState {
	c.mu.Lock()
	defer c.mu.Unlock()

	var listing *domain.Listing
	if c.listing != nil {
		l := *c.listing
		listing = &l
	}

	return ListingDetailState{
		Listing: listing,
		Loading: c.loading,
		Error:   c.errMsg,
	}
}

func (c *ListingDetailController) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
