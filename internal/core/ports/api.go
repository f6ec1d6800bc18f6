package ports

import (
	"context"

	"github.com/srgjo27/westudy/internal/core/domain"
)

type ListingAPI interface {
	GetListings(ctx context.Context, page int, limit int, filters domain.ListingFilters) ([]domain.Listing, error)
	GetListing(ctx context.Context, id string) (*domain.Listing, error)
}

type CategoryAPI interface {
	GetCategories(ctx context.Context) ([]domain.Category, error)
}

type BookingAPI interface {
	GetBookings(ctx context.Context) ([]domain.Booking, error)
	CreateBooking(ctx context.Context, req domain.BookingRequest) (*domain.Booking, error)
	UnlockDoor(ctx context.Context, bookingID string) error
}

type ProfileAPI interface {
	GetMe(ctx context.Context) (*domain.User, error)
	UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.User, error)
}
