package domain

type Image struct {
	ID  string `json:"id"`
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

type Amenity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type UniversityArea struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Acronym string `json:"acronym"`
	City    string `json:"city"`
	State   string `json:"state"`
	Icon    string `json:"icon"`
}

// Listing is a rentable room as returned by the API. The client only reads it.
type Listing struct {
	ID                 string         `json:"id"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	Images             []Image        `json:"images"`
	PricePerNight      float64        `json:"pricePerNight"`
	Address            string         `json:"address"`
	Lat                float64        `json:"lat"`
	Lng                float64        `json:"lng"`
	Guests             int            `json:"guests"`
	Bedrooms           int            `json:"bedrooms"`
	Beds               int            `json:"beds"`
	Baths              int            `json:"baths"`
	Amenities          []Amenity      `json:"amenities"`
	Rating             float64        `json:"rating"`
	Reviews            int            `json:"reviews"`
	Host               User           `json:"host"`
	University         UniversityArea `json:"university"`
	IsAvailable        bool           `json:"isAvailable"`
	Type               string         `json:"type"`
	Category           string         `json:"category"`
	CancellationPolicy string         `json:"cancellationPolicy"`
	HouseRules         string         `json:"houseRules"`
	SafetyAndProperty  string         `json:"safetyAndProperty"`
	CreatedAt          string         `json:"created_at,omitempty"`
	UpdatedAt          string         `json:"updated_at,omitempty"`
}

// ListingFilters narrows a listings query. Zero values are left out of the request.
type ListingFilters struct {
	SearchTerm string  `schema:"searchTerm,omitempty"`
	Category   string  `schema:"category,omitempty"`
	PriceMin   float64 `schema:"priceMin,omitempty"`
	PriceMax   float64 `schema:"priceMax,omitempty"`
	Guests     int     `schema:"guests,omitempty"`
	University string  `schema:"university,omitempty"`
}

type Category struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon"`
}
