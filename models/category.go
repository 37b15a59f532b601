package models

// Category represents a catalog category as seen in the current snapshot.
// Slot is set when the category is the search label of a build slot.
type Category struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Slot  string `json:"slot,omitempty"`
}
