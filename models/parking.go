package models

// ParkingStatus is the live facility snapshot used for info answers and for
// gating reservation periods during collection.
type ParkingStatus struct {
	WorkingHours    string `json:"working_hours"`
	Pricing         string `json:"pricing"`
	TotalSpots      int    `json:"total_spots"`
	AvailableSpaces int    `json:"available_spaces"`
}
