package service

import (
	"context"
	"fmt"

	"vehicle_parking/internal/domain"
	"vehicle_parking/internal/repository"
)

// ParkingService owns the admin side: parking lots and their spots. The
// capacity rules (spots numbered 1..capacity, occupancy guards on shrink and
// delete) live in the lot repository's transactional operations; this layer
// shapes the requests and keeps handlers thin.
type ParkingService struct {
	lotRepo  repository.ParkingLotRepository
	spotRepo repository.ParkingSpotRepository
}

func NewParkingService(lotRepo repository.ParkingLotRepository, spotRepo repository.ParkingSpotRepository) *ParkingService {
	return &ParkingService{
		lotRepo:  lotRepo,
		spotRepo: spotRepo,
	}
}

// CreateParkingLot creates the lot and exactly Capacity spots, all Available,
// atomically.
func (s *ParkingService) CreateParkingLot(ctx context.Context, dto domain.ParkingLotDTO) (*domain.ParkingLot, error) {
	lot := &domain.ParkingLot{
		Name:         dto.Name,
		Capacity:     dto.Capacity,
		PricePerHour: dto.PricePerHour,
	}
	return s.lotRepo.CreateWithSpots(ctx, lot)
}

func (s *ParkingService) GetParkingLotByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	return s.lotRepo.FindByID(ctx, id)
}

func (s *ParkingService) GetAllParkingLots(ctx context.Context) ([]domain.ParkingLotSummary, error) {
	summaries, err := s.lotRepo.FindAllWithAvailability(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing lots: %w", err)
	}
	return summaries, nil
}

// UpdateParkingLot renames, reprices and resizes in one atomic unit. A shrink
// that would remove an occupied spot fails with repository.ErrSpotsOccupied
// and leaves name and price untouched as well.
func (s *ParkingService) UpdateParkingLot(ctx context.Context, id int, dto domain.ParkingLotDTO) (*domain.ParkingLot, error) {
	lot := &domain.ParkingLot{
		ID:           id,
		Name:         dto.Name,
		Capacity:     dto.Capacity,
		PricePerHour: dto.PricePerHour,
	}
	return s.lotRepo.UpdateWithResize(ctx, lot)
}

func (s *ParkingService) DeleteParkingLot(ctx context.Context, id int) error {
	return s.lotRepo.DeleteIfAllAvailable(ctx, id)
}

// GetSpotsByLotID returns the lot's spots ordered by spot number.
func (s *ParkingService) GetSpotsByLotID(ctx context.Context, lotID int) ([]domain.ParkingSpot, error) {
	if _, err := s.lotRepo.FindByID(ctx, lotID); err != nil {
		return nil, err
	}
	return s.spotRepo.FindByLotID(ctx, lotID)
}
