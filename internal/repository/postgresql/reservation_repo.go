package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vehicle_parking/internal/domain"
	"vehicle_parking/internal/repository"

	"gopkg.in/guregu/null.v4"
)

type pgReservationRepository struct {
	db *sql.DB
}

func NewPgReservationRepository(db *sql.DB) repository.ReservationRepository {
	return &pgReservationRepository{db: db}
}

func (r *pgReservationRepository) Book(ctx context.Context, lotID, userID int, code string, startTime time.Time) (*domain.Reservation, error) {
	res := &domain.Reservation{
		Code:      code,
		UserID:    userID,
		StartTime: startTime,
		Spot:      &domain.ParkingSpot{LotID: lotID},
	}
	err := execTx(ctx, r.db, func(tx *sql.Tx) error {
		var open int
		query := `SELECT COUNT(*) FROM reservations WHERE user_id = $1 AND end_time IS NULL`
		if err := tx.QueryRowContext(ctx, query, userID).Scan(&open); err != nil {
			return fmt.Errorf("checking open reservations: %w", err)
		}
		if open > 0 {
			return repository.ErrOpenReservation
		}

		// Claim the lowest-numbered free spot. SKIP LOCKED makes concurrent
		// bookings of the last spot resolve to exactly one winner; the loser
		// sees zero rows.
		query = `UPDATE parking_spots SET status = $1, updated_at = CURRENT_TIMESTAMP
		          WHERE id = (
		              SELECT id FROM parking_spots
		               WHERE lot_id = $2 AND status = $3
		               ORDER BY spot_number
		               LIMIT 1
		               FOR UPDATE SKIP LOCKED)
		          RETURNING id, spot_number, status, created_at, updated_at`
		err := tx.QueryRowContext(ctx, query, domain.StatusOccupied, lotID, domain.StatusAvailable).
			Scan(&res.Spot.ID, &res.Spot.SpotNumber, &res.Spot.Status, &res.Spot.CreatedAt, &res.Spot.UpdatedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrNoAvailableSpot
			}
			return fmt.Errorf("claiming spot: %w", err)
		}
		res.SpotID = null.IntFrom(int64(res.Spot.ID))

		query = `INSERT INTO reservations (code, user_id, spot_id, start_time)
		          VALUES ($1, $2, $3, $4)
		          RETURNING id, created_at, updated_at`
		if err := tx.QueryRowContext(ctx, query, code, userID, res.Spot.ID, startTime).
			Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt); err != nil {
			if isUniqueViolation(err) {
				// Partial unique index on (user_id) WHERE end_time IS NULL.
				return repository.ErrOpenReservation
			}
			return fmt.Errorf("inserting reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrOpenReservation) || errors.Is(err, repository.ErrNoAvailableSpot) {
			return nil, err
		}
		return nil, fmt.Errorf("ReservationRepository.Book: %w", err)
	}
	normalizeReservation(res)
	return res, nil
}

func (r *pgReservationRepository) Close(ctx context.Context, id int, endTime time.Time, cost float64) (*domain.Reservation, error) {
	var res *domain.Reservation
	err := execTx(ctx, r.db, func(tx *sql.Tx) error {
		var spotID int
		// The end_time IS NULL guard makes re-releasing a closed reservation
		// a detectable conflict instead of a silent overwrite.
		query := `UPDATE reservations SET end_time = $1, cost = $2, updated_at = CURRENT_TIMESTAMP
		           WHERE id = $3 AND end_time IS NULL
		           RETURNING spot_id`
		if err := tx.QueryRowContext(ctx, query, endTime, cost, id).Scan(&spotID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				var exists int
				if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations WHERE id = $1`, id).Scan(&exists); err != nil {
					return fmt.Errorf("checking reservation existence: %w", err)
				}
				if exists == 0 {
					return repository.ErrNotFound
				}
				return repository.ErrAlreadyClosed
			}
			return fmt.Errorf("closing reservation: %w", err)
		}

		query = `UPDATE parking_spots SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
		if _, err := tx.ExecContext(ctx, query, domain.StatusAvailable, spotID); err != nil {
			return fmt.Errorf("freeing spot %d: %w", spotID, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrAlreadyClosed) {
			return nil, err
		}
		return nil, fmt.Errorf("ReservationRepository.Close: %w", err)
	}
	res, err = r.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.Close (reloading): %w", err)
	}
	return res, nil
}

// LEFT JOINs: spot_id is nulled when its spot is deleted with the lot or by a
// shrink, so a closed reservation may have no spot (or lot) to join anymore.
const reservationSelect = `
	SELECT r.id, r.code, r.user_id, r.spot_id, r.start_time, r.end_time, r.cost, r.created_at, r.updated_at,
	       s.id, s.lot_id, s.spot_number, s.status, s.created_at, s.updated_at,
	       l.id, l.name, l.capacity, l.price_per_hour, l.created_at, l.updated_at
	  FROM reservations r
	  LEFT JOIN parking_spots s ON s.id = r.spot_id
	  LEFT JOIN parking_lots l ON l.id = s.lot_id`

func scanReservation(scanner interface{ Scan(dest ...any) error }) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	var (
		spotID, spotLotID, spotNumber null.Int
		spotStatus                    null.String
		spotCreated, spotUpdated      null.Time

		lotID, lotCapacity     null.Int
		lotName                null.String
		lotPrice               null.Float
		lotCreated, lotUpdated null.Time
	)
	err := scanner.Scan(
		&res.ID, &res.Code, &res.UserID, &res.SpotID, &res.StartTime, &res.EndTime, &res.Cost, &res.CreatedAt, &res.UpdatedAt,
		&spotID, &spotLotID, &spotNumber, &spotStatus, &spotCreated, &spotUpdated,
		&lotID, &lotName, &lotCapacity, &lotPrice, &lotCreated, &lotUpdated,
	)
	if err != nil {
		return nil, err
	}
	if spotID.Valid {
		res.Spot = &domain.ParkingSpot{
			ID:         int(spotID.Int64),
			LotID:      int(spotLotID.Int64),
			SpotNumber: int(spotNumber.Int64),
			Status:     domain.SpotStatus(spotStatus.String),
			CreatedAt:  spotCreated.Time,
			UpdatedAt:  spotUpdated.Time,
		}
	}
	if lotID.Valid {
		res.Lot = &domain.ParkingLot{
			ID:           int(lotID.Int64),
			Name:         lotName.String,
			Capacity:     int(lotCapacity.Int64),
			PricePerHour: lotPrice.Float64,
			CreatedAt:    lotCreated.Time,
			UpdatedAt:    lotUpdated.Time,
		}
	}
	normalizeReservation(res)
	return res, nil
}

func normalizeReservation(res *domain.Reservation) {
	res.StartTime = res.StartTime.In(time.UTC)
	if res.EndTime.Valid {
		res.EndTime.Time = res.EndTime.Time.In(time.UTC)
	}
	res.CreatedAt = res.CreatedAt.In(time.UTC)
	res.UpdatedAt = res.UpdatedAt.In(time.UTC)
	if res.Spot != nil {
		res.Spot.CreatedAt = res.Spot.CreatedAt.In(time.UTC)
		res.Spot.UpdatedAt = res.Spot.UpdatedAt.In(time.UTC)
	}
	if res.Lot != nil {
		res.Lot.CreatedAt = res.Lot.CreatedAt.In(time.UTC)
		res.Lot.UpdatedAt = res.Lot.UpdatedAt.In(time.UTC)
	}
}

func (r *pgReservationRepository) FindByID(ctx context.Context, id int) (*domain.Reservation, error) {
	row := r.db.QueryRowContext(ctx, reservationSelect+` WHERE r.id = $1`, id)
	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ReservationRepository.FindByID: %w", err)
	}
	return res, nil
}

func (r *pgReservationRepository) FindOpenByUserID(ctx context.Context, userID int) (*domain.Reservation, error) {
	row := r.db.QueryRowContext(ctx, reservationSelect+` WHERE r.user_id = $1 AND r.end_time IS NULL`, userID)
	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ReservationRepository.FindOpenByUserID: %w", err)
	}
	return res, nil
}

func (r *pgReservationRepository) FindClosedByUserID(ctx context.Context, userID int) ([]domain.Reservation, error) {
	query := reservationSelect + ` WHERE r.user_id = $1 AND r.end_time IS NOT NULL ORDER BY r.start_time DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.FindClosedByUserID: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows, "ReservationRepository.FindClosedByUserID")
}

func (r *pgReservationRepository) FindAllClosed(ctx context.Context) ([]domain.Reservation, error) {
	query := reservationSelect + ` WHERE r.end_time IS NOT NULL ORDER BY r.start_time DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.FindAllClosed: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows, "ReservationRepository.FindAllClosed")
}

func collectReservations(rows *sql.Rows, op string) ([]domain.Reservation, error) {
	var reservations []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("%s (scanning row): %w", op, err)
		}
		reservations = append(reservations, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows error): %w", op, err)
	}
	return reservations, nil
}
