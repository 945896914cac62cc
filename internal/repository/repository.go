package repository

import (
	"context"
	"errors"
	"time"

	"vehicle_parking/internal/domain"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEntry = errors.New("record already exists")

	// ErrSpotsOccupied guards lot deletion and capacity shrink: the targeted
	// spots must all be Available or the whole operation is refused.
	ErrSpotsOccupied = errors.New("occupied spots block the operation")

	// ErrNoAvailableSpot is returned by Book when the lot has no free spot.
	ErrNoAvailableSpot = errors.New("no available spot in lot")

	// ErrOpenReservation is returned by Book when the user already holds an
	// open reservation.
	ErrOpenReservation = errors.New("user already holds an open reservation")

	// ErrAlreadyClosed is returned by Close for a reservation whose end time
	// is already set.
	ErrAlreadyClosed = errors.New("reservation already closed")
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
}

type ParkingLotRepository interface {
	// CreateWithSpots inserts the lot and spots numbered 1..Capacity, all
	// Available, in one transaction.
	CreateWithSpots(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
	FindByID(ctx context.Context, id int) (*domain.ParkingLot, error)
	FindAllWithAvailability(ctx context.Context) ([]domain.ParkingLotSummary, error)
	// UpdateWithResize renames, reprices and resizes the lot in one
	// transaction. Growing appends spots; shrinking removes the
	// highest-numbered spots and fails with ErrSpotsOccupied (rolling back the
	// rename/reprice too) if any of them is Occupied.
	UpdateWithResize(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
	// DeleteIfAllAvailable deletes the lot and its spots (cascade) only when
	// every spot is Available; otherwise ErrSpotsOccupied.
	DeleteIfAllAvailable(ctx context.Context, id int) error
}

type ParkingSpotRepository interface {
	// FindByLotID returns the lot's spots ordered by spot number ascending.
	FindByLotID(ctx context.Context, lotID int) ([]domain.ParkingSpot, error)
}

type ReservationRepository interface {
	// Book claims the lowest-numbered Available spot in the lot and inserts an
	// open reservation for it, in one transaction. ErrOpenReservation if the
	// user already has an open reservation, ErrNoAvailableSpot if the lot is
	// full.
	Book(ctx context.Context, lotID, userID int, code string, startTime time.Time) (*domain.Reservation, error)
	// Close sets end time and cost and frees the spot, in one transaction.
	// ErrAlreadyClosed if the reservation's end time is already set.
	Close(ctx context.Context, id int, endTime time.Time, cost float64) (*domain.Reservation, error)
	FindByID(ctx context.Context, id int) (*domain.Reservation, error)
	FindOpenByUserID(ctx context.Context, userID int) (*domain.Reservation, error)
	// FindClosedByUserID returns the user's closed reservations, most recent
	// start time first.
	FindClosedByUserID(ctx context.Context, userID int) ([]domain.Reservation, error)
	FindAllClosed(ctx context.Context) ([]domain.Reservation, error)
}
