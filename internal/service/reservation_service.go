package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"vehicle_parking/internal/domain"
	"vehicle_parking/internal/repository"

	"github.com/google/uuid"
)

var (
	// ErrNotOwner is returned when a user tries to release somebody else's
	// reservation.
	ErrNotOwner = errors.New("reservation belongs to another user")
)

// SpotNotifier receives spot status transitions for the live availability
// feed. It must not block.
type SpotNotifier interface {
	BroadcastSpotUpdate(n domain.SpotStatusNotification)
}

type ReservationService struct {
	reservationRepo repository.ReservationRepository
	lotRepo         repository.ParkingLotRepository
	notifier        SpotNotifier

	now func() time.Time
}

func NewReservationService(reservationRepo repository.ReservationRepository, lotRepo repository.ParkingLotRepository, notifier SpotNotifier) *ReservationService {
	return &ReservationService{
		reservationRepo: reservationRepo,
		lotRepo:         lotRepo,
		notifier:        notifier,
		now:             time.Now,
	}
}

// BookSpot claims one Available spot in the lot for the user and opens a
// reservation. A user holds at most one open reservation at a time.
func (s *ReservationService) BookSpot(ctx context.Context, userID, lotID int) (*domain.Reservation, error) {
	lot, err := s.lotRepo.FindByID(ctx, lotID)
	if err != nil {
		return nil, err
	}

	res, err := s.reservationRepo.Book(ctx, lotID, userID, uuid.NewString(), s.now().UTC())
	if err != nil {
		return nil, err
	}
	res.Lot = lot

	s.notifySpot(res.Spot)
	return res, nil
}

// ReleaseSpot closes the caller's reservation, computes the cost and frees
// the spot. Billing is per started hour with a one hour minimum, rounded to
// two decimals.
func (s *ReservationService) ReleaseSpot(ctx context.Context, reservationID, actingUserID int) (*domain.Reservation, error) {
	res, err := s.reservationRepo.FindByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.UserID != actingUserID {
		return nil, ErrNotOwner
	}
	if res.EndTime.Valid {
		return nil, repository.ErrAlreadyClosed
	}
	if res.Lot == nil {
		return nil, fmt.Errorf("reservation %d has no lot attached", reservationID)
	}

	endTime := s.now().UTC()
	cost := computeCost(res.StartTime, endTime, res.Lot.PricePerHour)

	closed, err := s.reservationRepo.Close(ctx, reservationID, endTime, cost)
	if err != nil {
		return nil, err
	}

	s.notifySpot(closed.Spot)
	return closed, nil
}

// computeCost bills every started hour: ceil(duration in hours) times the
// hourly price, minimum one hour, rounded to two decimals.
func computeCost(start, end time.Time, pricePerHour float64) float64 {
	hours := math.Ceil(end.Sub(start).Seconds() / 3600)
	if hours < 1 {
		hours = 1
	}
	return math.Round(hours*pricePerHour*100) / 100
}

// GetOpenReservation returns the user's open reservation, or
// repository.ErrNotFound if they are not parked anywhere.
func (s *ReservationService) GetOpenReservation(ctx context.Context, userID int) (*domain.Reservation, error) {
	return s.reservationRepo.FindOpenByUserID(ctx, userID)
}

// GetHistory returns the user's closed reservations, newest start first.
func (s *ReservationService) GetHistory(ctx context.Context, userID int) ([]domain.Reservation, error) {
	return s.reservationRepo.FindClosedByUserID(ctx, userID)
}

// GetAllClosed returns every closed reservation system-wide, newest start
// first. Admin view.
func (s *ReservationService) GetAllClosed(ctx context.Context) ([]domain.Reservation, error) {
	return s.reservationRepo.FindAllClosed(ctx)
}

func (s *ReservationService) notifySpot(spot *domain.ParkingSpot) {
	if s.notifier == nil || spot == nil {
		return
	}
	s.notifier.BroadcastSpotUpdate(domain.SpotStatusNotification{
		LotID:      spot.LotID,
		SpotID:     spot.ID,
		SpotNumber: spot.SpotNumber,
		Status:     spot.Status,
		OccurredAt: s.now().UTC(),
	})
}
