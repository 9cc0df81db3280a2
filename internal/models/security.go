package models

// Security is identified by its ISIN. Name and currency are whatever the first
// sighting carried.
type Security struct {
	ISIN     string `json:"isin"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}
