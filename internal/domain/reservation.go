package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// Reservation is a user's claim on a spot. It is open while EndTime is null
// and closed (with a computed cost) once released. Closed reservations are
// never deleted; SpotID goes null if the spot is later removed with its lot
// or by a capacity shrink.
type Reservation struct {
	ID        int        `json:"id"`
	Code      string     `json:"code"`
	UserID    int        `json:"user_id"`
	SpotID    null.Int   `json:"spot_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   null.Time  `json:"end_time"`
	Cost      null.Float `json:"cost"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Joined for API responses, not stored on the reservations row.
	Spot *ParkingSpot `json:"spot,omitempty"`
	Lot  *ParkingLot  `json:"lot,omitempty"`
}

type BookReservationDTO struct {
	LotID int `json:"lot_id" binding:"required"`
}
