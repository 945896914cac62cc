package service

import (
	"context"
	"errors"
	"testing"

	"vehicle_parking/internal/domain"
	"vehicle_parking/internal/repository"
)

type fakeSpotRepo struct {
	spotsByLot map[int][]domain.ParkingSpot
}

func (f *fakeSpotRepo) FindByLotID(_ context.Context, lotID int) ([]domain.ParkingSpot, error) {
	return f.spotsByLot[lotID], nil
}

func TestCreateParkingLot(t *testing.T) {
	lotRepo := newFakeLotRepo()
	svc := NewParkingService(lotRepo, &fakeSpotRepo{})

	lot, err := svc.CreateParkingLot(context.Background(), domain.ParkingLotDTO{
		Name: "Central", Capacity: 10, PricePerHour: 2.5,
	})
	if err != nil {
		t.Fatalf("CreateParkingLot: %v", err)
	}
	if lot.Name != "Central" || lot.Capacity != 10 || lot.PricePerHour != 2.5 {
		t.Errorf("lot fields not carried through: %+v", lot)
	}
}

func TestGetSpotsByLotIDUnknownLot(t *testing.T) {
	svc := NewParkingService(newFakeLotRepo(), &fakeSpotRepo{})
	if _, err := svc.GetSpotsByLotID(context.Background(), 99); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetSpotsByLotIDOrdered(t *testing.T) {
	lot := &domain.ParkingLot{ID: 1, Name: "Central", Capacity: 3}
	spotRepo := &fakeSpotRepo{spotsByLot: map[int][]domain.ParkingSpot{
		1: {
			{ID: 11, LotID: 1, SpotNumber: 1, Status: domain.StatusAvailable},
			{ID: 12, LotID: 1, SpotNumber: 2, Status: domain.StatusOccupied},
			{ID: 13, LotID: 1, SpotNumber: 3, Status: domain.StatusAvailable},
		},
	}}
	svc := NewParkingService(newFakeLotRepo(lot), spotRepo)

	spots, err := svc.GetSpotsByLotID(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetSpotsByLotID: %v", err)
	}
	if len(spots) != 3 {
		t.Fatalf("expected 3 spots, got %d", len(spots))
	}
	for i, s := range spots {
		if s.SpotNumber != i+1 {
			t.Errorf("spot %d out of order: number %d", i, s.SpotNumber)
		}
	}
}

func TestUpdateParkingLotPropagatesGuards(t *testing.T) {
	svc := NewParkingService(newFakeLotRepo(), &fakeSpotRepo{})
	_, err := svc.UpdateParkingLot(context.Background(), 99, domain.ParkingLotDTO{Name: "X", Capacity: 1})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteParkingLotPropagatesGuards(t *testing.T) {
	svc := NewParkingService(newFakeLotRepo(), &fakeSpotRepo{})
	if err := svc.DeleteParkingLot(context.Background(), 99); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
