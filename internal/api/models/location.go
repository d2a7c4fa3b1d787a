package models

// Location is a saved pin as stored in the locations collection.
type Location struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	CreatedAt   Timestamp `json:"createdAt"`
}

// CreateLocationRequest is the body of POST /api/locations.
type CreateLocationRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

// LocationList wraps the ordered location collection.
type LocationList struct {
	Items []Location `json:"items"`
}
