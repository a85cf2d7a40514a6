package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-appointment-core/internal/db"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanMedication(row pgx.Row) (*Medication, error) {
	var m Medication

	err := row.Scan(&m.ID, &m.Name, &m.Unit, &m.Stock, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMedicationNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *PgRepository) GetMedicationByID(ctx context.Context, id uuid.UUID) (*Medication, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, name, unit, stock, created_at, updated_at
		FROM medications
		WHERE id = $1
	`, id)
	return scanMedication(row)
}

func (r *PgRepository) GetMedicationForUpdate(ctx context.Context, id uuid.UUID) (*Medication, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, name, unit, stock, created_at, updated_at
		FROM medications
		WHERE id = $1
		FOR UPDATE
	`, id)
	return scanMedication(row)
}

func (r *PgRepository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE medications
		SET stock = stock - $2,
		    updated_at = now()
		WHERE id = $1
		  AND stock >= $2
	`, id, quantity)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetMedicationByID(ctx, id); err != nil {
			return err
		}
		return ErrInsufficientStock
	}
	return nil
}
