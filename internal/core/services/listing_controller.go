package services

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/srgjo27/westudy/internal/core/domain"
	"github.com/srgjo27/westudy/internal/core/ports"
)

const DefaultPageSize = 10

type ListingState struct {
	Listings []domain.Listing
	Filters  domain.ListingFilters
	// Page is the next page LoadMore will request.
	Page    int
	HasMore bool
	Loading bool
	Error   string
}

// ListingController keeps the paged listings feed: the accumulated items, the
// page cursor and whether another page is likely to exist.
//
// HasMore is true when the last page came back full. A final page holding
// exactly pageSize items therefore costs one extra, empty request before
// HasMore turns false.
type ListingController struct {
	api      ports.ListingAPI
	pageSize int
	logger   *zap.Logger

	mu         sync.Mutex
	listings   []domain.Listing
	filters    domain.ListingFilters
	page       int
	hasMore    bool
	loading    bool
	errMsg     string
	generation uint64
	closed     bool
}

// NewListingController loads the first page for initial before returning. A
// failed first load is reported through State, not as an error.
func NewListingController(ctx context.Context, api ports.ListingAPI, initial domain.ListingFilters, pageSize int, logger *zap.Logger) *ListingController {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &ListingController{
		api:      api,
		pageSize: pageSize,
		logger:   logger,
		filters:  initial,
		page:     1,
		hasMore:  true,
	}

	_ = c.LoadPage(ctx, 1, initial, false)

	return c
}

// LoadPage requests one page. With appendMode the page is added after the
// items already held, otherwise it replaces them. On failure only the error
// string changes.
func (c *ListingController) LoadPage(ctx context.Context, page int, filters domain.ListingFilters, appendMode bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrControllerClosed
	}
	gen := c.begin()
	c.mu.Unlock()

	return c.load(ctx, gen, page, filters, appendMode)
}

func (c *ListingController) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrControllerClosed
	}
	c.page = 1
	c.hasMore = true
	filters := c.filters
	gen := c.begin()
	c.mu.Unlock()

	return c.load(ctx, gen, 1, filters, false)
}

// Search makes filters the active query and reloads from the first page.
func (c *ListingController) Search(ctx context.Context, filters domain.ListingFilters) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrControllerClosed
	}
	c.filters = filters
	c.page = 1
	c.hasMore = true
	gen := c.begin()
	c.mu.Unlock()

	return c.load(ctx, gen, 1, filters, false)
}

// LoadMore appends the next page. It does nothing while a load is in flight
// or once HasMore is false.
func (c *ListingController) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.loading || !c.hasMore {
		c.mu.Unlock()
		return nil
	}
	page, filters := c.page, c.filters
	gen := c.begin()
	c.mu.Unlock()

	return c.load(ctx, gen, page, filters, true)
}

func (c *ListingController) State() ListingState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return ListingState{
		Listings: slices.Clone(c.listings),
		Filters:  c.filters,
		Page:     c.page,
		HasMore:  c.hasMore,
		Loading:  c.loading,
		Error:    c.errMsg,
	}
}

// Close detaches the controller; responses arriving afterwards are dropped.
func (c *ListingController) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// begin must be called with mu held. Only the request holding the newest
// generation may write its result.
func (c *ListingController) begin() uint64 {
	c.generation++
	c.loading = true
	return c.generation
}

func (c *ListingController) load(ctx context.Context, gen uint64, page int, filters domain.ListingFilters, appendMode bool) error {
	items, err := c.api.GetListings(ctx, page, c.pageSize, filters)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.generation {
		c.logger.Debug("dropping superseded listings response",
			zap.Int("page", page),
			zap.Uint64("generation", gen),
		)
		return err
	}

	c.loading = false

	if err != nil {
		c.errMsg = errorMessage(err, "failed to load listings")
		c.logger.Error("failed to load listings",
			zap.Int("page", page),
			zap.Bool("append", appendMode),
			zap.Error(err),
		)
		return err
	}

	if appendMode {
		c.listings = append(c.listings, items...)
	} else {
		c.listings = slices.Clone(items)
	}
	c.hasMore = len(items) == c.pageSize
	c.page = page + 1
	c.errMsg = ""

	return nil
}
