package domain

import "time"

type SpotStatus string

const (
	StatusAvailable SpotStatus = "Available"
	StatusOccupied  SpotStatus = "Occupied"
)

type ParkingSpot struct {
	ID         int        `json:"id"`
	LotID      int        `json:"lot_id"`
	SpotNumber int        `json:"spot_number"`
	Status     SpotStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// SpotStatusNotification is pushed to websocket subscribers whenever a spot
// flips between Available and Occupied.
type SpotStatusNotification struct {
	LotID      int        `json:"lot_id"`
	SpotID     int        `json:"spot_id"`
	SpotNumber int        `json:"spot_number"`
	Status     SpotStatus `json:"status"`
	OccurredAt time.Time  `json:"occurred_at"`
}
