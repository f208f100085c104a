package domain

// A pickup location. Orders reference their origin restaurant by ID.
type Restaurant struct {
	ID string
	Location Coordinates
}
