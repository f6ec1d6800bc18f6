package domain

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingPending   BookingStatus = "pending"
	BookingCancelled BookingStatus = "cancelled"
)

type Booking struct {
	ID           string        `json:"id"`
	ListingID    string        `json:"listing_id"`
	UserID       string        `json:"user_id"`
	CheckInDate  string        `json:"check_in_date"`
	CheckOutDate string        `json:"check_out_date"`
	TotalPrice   float64       `json:"total_price"`
	Guests       int           `json:"guests"`
	Status       BookingStatus `json:"status"`
	Listing      *Listing      `json:"listing,omitempty"`
	CreatedAt    string        `json:"created_at"`
	UpdatedAt    string        `json:"updated_at"`
}

type BookingRequest struct {
	ListingID    string  `json:"listing_id"`
	CheckInDate  string  `json:"check_in_date"`
	CheckOutDate string  `json:"check_out_date"`
	TotalPrice   float64 `json:"total_price"`
	Guests       int     `json:"guests"`
}

func (b *Booking) IsActive() bool {
	return b.Status != BookingCancelled
}
