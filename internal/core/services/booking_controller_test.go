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

func TestBookingController_LoadsOnceOnConstruction(t *testing.T) {
	api := mocks.NewBookingAPI(t)
	ctx := context.Background()
	bookings := []domain.Booking{
		{ID: "b2", ListingID: "l2", Status: domain.BookingPending},
		{ID: "b1", ListingID: "l1", Status: domain.BookingConfirmed},
	}

	api.On("GetBookings", ctx).Return(bookings, nil).Once()

	c := services.NewBookingController(ctx, api, nil)

	state := c.State()
	assert.Equal(t, bookings, state.Bookings)
	assert.False(t, state.Loading)
	assert.Empty(t, state.Error)
	api.AssertNumberOfCalls(t, "GetBookings", 1)
}

func TestBookingController_CreatePrepends(t *testing.T) {
	api := mocks.NewBookingAPI(t)
	ctx := context.Background()
	b1 := domain.Booking{ID: "b1"}
	b2 := domain.Booking{ID: "b2"}
	b3 := domain.Booking{ID: "b3", ListingID: "l9", Status: domain.BookingPending, TotalPrice: 450}

	req := domain.BookingRequest{
		ListingID:    "l9",
		CheckInDate:  "2026-11-01",
		CheckOutDate: "2026-11-04",
		TotalPrice:   450,
		Guests:       1,
	}

	api.On("GetBookings", ctx).Return([]domain.Booking{b2, b1}, nil).Once()
	api.On("CreateBooking", ctx, req).Return(&b3, nil).Once()

	c := services.NewBookingController(ctx, api, nil)

	created, err := c.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, &b3, created)
	assert.Equal(t, []domain.Booking{b3, b2, b1}, c.State().Bookings)
}

func TestBookingController_CreateFailureLeavesList(t *testing.T) {
	api := mocks.NewBookingAPI(t)
	ctx := context.Background()
	existing := []domain.Booking{{ID: "b1"}}
	req := domain.BookingRequest{ListingID: "l1"}

	api.On("GetBookings", ctx).Return(existing, nil).Once()
	api.On("CreateBooking", ctx, req).Return(nil, errors.New("listing unavailable")).Once()

	c := services.NewBookingController(ctx, api, nil)

	created, err := c.Create(ctx, req)
	assert.Nil(t, created)
	assert.EqualError(t, err, "listing unavailable")

	state := c.State()
	assert.Equal(t, existing, state.Bookings)
	assert.Equal(t, "listing unavailable", state.Error)
}

func TestBookingController_LoadFailureKeepsPreviousList(t *testing.T) {
	api := mocks.NewBookingAPI(t)
	ctx := context.Background()
	existing := []domain.Booking{{ID: "b1"}, {ID: "b0"}}
	fresh := []domain.Booking{{ID: "b2"}}

	api.On("GetBookings", ctx).Return(existing, nil).Once()
	api.On("GetBookings", ctx).Return(nil, errors.New("timeout")).Once()
	api.On("GetBookings", ctx).Return(fresh, nil).Once()

	c := services.NewBookingController(ctx, api, nil)

	assert.Error(t, c.Refresh(ctx))
	state := c.State()
	assert.Equal(t, existing, state.Bookings)
	assert.Equal(t, "timeout", state.Error)

	require.NoError(t, c.Refresh(ctx))
	state = c.State()
	assert.Equal(t, fresh, state.Bookings)
	assert.Empty(t, state.Error)
}

func TestBookingController_Unlock(t *testing.T) {
	api := mocks.NewBookingAPI(t)
	ctx := context.Background()

	api.On("GetBookings", ctx).Return([]domain.Booking{{ID: "b1"}}, nil).Once()
	api.On("UnlockDoor", ctx, "b1").Return(nil).Once()
	api.On("UnlockDoor", ctx, "b2").Return(errors.New("lock offline")).Once()

	c := services.NewBookingController(ctx, api, nil)

	require.NoError(t, c.Unlock(ctx, "b1"))
	assert.Empty(t, c.State().Error)

	assert.EqualError(t, c.Unlock(ctx, "b2"), "lock offline")
	assert.Equal(t, "lock offline", c.State().Error)
}

func TestBookingController_UnlockSuccessClearsError(t *testing.T) {
	api := mocks.NewBookingAPI(t)
	ctx := context.Background()

	api.On("GetBookings", ctx).Return(nil, errors.New("network down")).Once()
	api.On("UnlockDoor", ctx, "b1").Return(nil).Once()

	c := services.NewBookingController(ctx, api, nil)
	require.Equal(t, "network down", c.State().Error)

	require.NoError(t, c.Unlock(ctx, "b1"))
	assert.Empty(t, c.State().Error)
}
