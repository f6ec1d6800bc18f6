package services

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/srgjo27/westudy/internal/core/domain"
	"github.com/srgjo27/westudy/internal/core/ports"
)

type BookingState struct {
	Bookings []domain.Booking
	Loading  bool
	Error    string
}

// BookingController holds the current user's bookings, most recent first.
type BookingController struct {
	api    ports.BookingAPI
	logger *zap.Logger

	mu         sync.Mutex
	bookings   []domain.Booking
	loading    bool
	errMsg     string
	generation uint64
	closed     bool
}

// NewBookingController performs the initial load before returning.
func NewBookingController(ctx context.Context, api ports.BookingAPI, logger *zap.Logger) *BookingController {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &BookingController{
		api:    api,
		logger: logger,
	}

	_ = c.Load(ctx)

	return c
}

// Load replaces the held bookings with the API's list. On failure the
// previous list is kept and only the error string changes.
func (c *BookingController) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrControllerClosed
	}
	c.generation++
	gen := c.generation
	c.loading = true
	c.mu.Unlock()

	bookings, err := c.api.GetBookings(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.generation {
		return err
	}

	c.loading = false

	if err != nil {
		c.errMsg = errorMessage(err, "failed to load bookings")
		c.logger.Error("failed to load bookings", zap.Error(err))
		return err
	}

	c.bookings = slices.Clone(bookings)
	c.errMsg = ""

	return nil
}

func (c *BookingController) Refresh(ctx context.Context) error {
	return c.Load(ctx)
}

// Create submits req and puts the created booking at the front of the list.
// Errors are recorded and returned; the list is left as it was.
func (c *BookingController) Create(ctx context.Context, req domain.BookingRequest) (*domain.Booking, error) {
	booking, err := c.api.CreateBooking(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return booking, err
	}

	if err != nil {
		c.errMsg = errorMessage(err, "failed to create booking")
		c.logger.Error("failed to create booking",
			zap.String("listing_id", req.ListingID),
			zap.Error(err),
		)
		return nil, err
	}

	c.errMsg = ""
	if booking != nil {
		c.bookings = append([]domain.Booking{*booking}, c.bookings...)
	}

	return booking, nil
}

// Unlock asks the API to open the door of the booked room.
func (c *BookingController) Unlock(ctx context.Context, bookingID string) error {
	err := c.api.UnlockDoor(ctx, bookingID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		if !c.closed {
			c.errMsg = ""
		}
		c.logger.Info("door unlocked", zap.String("booking_id", bookingID))
		return nil
	}

	if !c.closed {
		c.errMsg = errorMessage(err, "failed to unlock door")
	}
	c.logger.Error("failed to unlock door", zap.String("booking_id", bookingID), zap.Error(err))

	return err
}

func (c *BookingController) State() BookingState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return BookingState{
		Bookings: slices.Clone(c.bookings),
		Loading:  c.loading,
		Error:    c.errMsg,
	}
}

func (c *BookingController) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
