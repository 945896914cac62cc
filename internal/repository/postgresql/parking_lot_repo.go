package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vehicle_parking/internal/domain"
	"vehicle_parking/internal/repository"
)

type pgParkingLotRepository struct {
	db *sql.DB
}

func NewPgParkingLotRepository(db *sql.DB) repository.ParkingLotRepository {
	return &pgParkingLotRepository{db: db}
}

func (r *pgParkingLotRepository) CreateWithSpots(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	err := execTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `INSERT INTO parking_lots (name, capacity, price_per_hour) VALUES ($1, $2, $3)
		           RETURNING id, created_at, updated_at`
		if err := tx.QueryRowContext(ctx, query, lot.Name, lot.Capacity, lot.PricePerHour).
			Scan(&lot.ID, &lot.CreatedAt, &lot.UpdatedAt); err != nil {
			return fmt.Errorf("inserting lot: %w", err)
		}
		if err := insertSpotRange(ctx, tx, lot.ID, 1, lot.Capacity); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.CreateWithSpots: %w", err)
	}
	lot.CreatedAt = lot.CreatedAt.In(time.UTC)
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return lot, nil
}

// insertSpotRange bulk-creates Available spots numbered from..to (inclusive).
func insertSpotRange(ctx context.Context, tx *sql.Tx, lotID, from, to int) error {
	query := `INSERT INTO parking_spots (lot_id, spot_number, status)
	           SELECT $1, n, $2 FROM generate_series($3, $4) AS n`
	if _, err := tx.ExecContext(ctx, query, lotID, domain.StatusAvailable, from, to); err != nil {
		return fmt.Errorf("inserting spots %d..%d: %w", from, to, err)
	}
	return nil
}

func (r *pgParkingLotRepository) FindByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	lot := &domain.ParkingLot{}
	query := `SELECT id, name, capacity, price_per_hour, created_at, updated_at FROM parking_lots WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&lot.ID, &lot.Name, &lot.Capacity, &lot.PricePerHour, &lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingLotRepository.FindByID: %w", err)
	}
	lot.CreatedAt = lot.CreatedAt.In(time.UTC)
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return lot, nil
}

func (r *pgParkingLotRepository) FindAllWithAvailability(ctx context.Context) ([]domain.ParkingLotSummary, error) {
	query := `SELECT l.id, l.name, l.capacity, l.price_per_hour, l.created_at, l.updated_at,
	                 COUNT(s.id) FILTER (WHERE s.status = $1) AS available,
	                 COUNT(s.id) FILTER (WHERE s.status = $2) AS occupied
	           FROM parking_lots l
	           LEFT JOIN parking_spots s ON s.lot_id = l.id
	           GROUP BY l.id
	           ORDER BY l.name`
	rows, err := r.db.QueryContext(ctx, query, domain.StatusAvailable, domain.StatusOccupied)
	if err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.FindAllWithAvailability: %w", err)
	}
	defer rows.Close()

	var summaries []domain.ParkingLotSummary
	for rows.Next() {
		var s domain.ParkingLotSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Capacity, &s.PricePerHour, &s.CreatedAt, &s.UpdatedAt,
			&s.AvailableSpots, &s.OccupiedSpots); err != nil {
			return nil, fmt.Errorf("ParkingLotRepository.FindAllWithAvailability (scanning row): %w", err)
		}
		s.CreatedAt = s.CreatedAt.In(time.UTC)
		s.UpdatedAt = s.UpdatedAt.In(time.UTC)
		summaries = append(summaries, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.FindAllWithAvailability (rows error): %w", err)
	}
	return summaries, nil
}

func (r *pgParkingLotRepository) UpdateWithResize(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	err := execTx(ctx, r.db, func(tx *sql.Tx) error {
		var oldCapacity int
		query := `SELECT capacity FROM parking_lots WHERE id = $1 FOR UPDATE`
		if err := tx.QueryRowContext(ctx, query, lot.ID).Scan(&oldCapacity); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrNotFound
			}
			return fmt.Errorf("locking lot: %w", err)
		}

		if lot.Capacity < oldCapacity {
			// Shrink removes the highest-numbered spots, and only if every
			// one of them is still Available.
			var occupied int
			query = `SELECT COUNT(*) FROM parking_spots WHERE lot_id = $1 AND spot_number > $2 AND status = $3`
			if err := tx.QueryRowContext(ctx, query, lot.ID, lot.Capacity, domain.StatusOccupied).Scan(&occupied); err != nil {
				return fmt.Errorf("counting occupied shrink candidates: %w", err)
			}
			if occupied > 0 {
				return fmt.Errorf("%w: %d of the spots to remove are occupied", repository.ErrSpotsOccupied, occupied)
			}
			query = `DELETE FROM parking_spots WHERE lot_id = $1 AND spot_number > $2`
			if _, err := tx.ExecContext(ctx, query, lot.ID, lot.Capacity); err != nil {
				return fmt.Errorf("removing spots above %d: %w", lot.Capacity, err)
			}
		} else if lot.Capacity > oldCapacity {
			if err := insertSpotRange(ctx, tx, lot.ID, oldCapacity+1, lot.Capacity); err != nil {
				return err
			}
		}

		query = `UPDATE parking_lots SET name = $1, capacity = $2, price_per_hour = $3, updated_at = CURRENT_TIMESTAMP
		          WHERE id = $4 RETURNING created_at, updated_at`
		if err := tx.QueryRowContext(ctx, query, lot.Name, lot.Capacity, lot.PricePerHour, lot.ID).
			Scan(&lot.CreatedAt, &lot.UpdatedAt); err != nil {
			return fmt.Errorf("updating lot: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrSpotsOccupied) {
			return nil, err
		}
		return nil, fmt.Errorf("ParkingLotRepository.UpdateWithResize: %w", err)
	}
	lot.CreatedAt = lot.CreatedAt.In(time.UTC)
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return lot, nil
}

func (r *pgParkingLotRepository) DeleteIfAllAvailable(ctx context.Context, id int) error {
	err := execTx(ctx, r.db, func(tx *sql.Tx) error {
		var occupied int
		query := `SELECT COUNT(*) FROM parking_spots WHERE lot_id = $1 AND status = $2`
		if err := tx.QueryRowContext(ctx, query, id, domain.StatusOccupied).Scan(&occupied); err != nil {
			return fmt.Errorf("counting occupied spots: %w", err)
		}
		if occupied > 0 {
			return fmt.Errorf("%w: %d spots are occupied", repository.ErrSpotsOccupied, occupied)
		}

		// Spots go with the lot via ON DELETE CASCADE.
		result, err := tx.ExecContext(ctx, `DELETE FROM parking_lots WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("deleting lot: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrSpotsOccupied) {
			return err
		}
		return fmt.Errorf("ParkingLotRepository.DeleteIfAllAvailable: %w", err)
	}
	return nil
}
