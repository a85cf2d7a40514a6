// Package inventory is the medication stock consulted and drawn down when a
// prescription is issued.
package inventory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-core/internal/apperr"
)

var (
	ErrMedicationNotFound = apperr.New(apperr.KindNotFound, "medication not found")
	ErrInsufficientStock  = apperr.New(apperr.KindBadRequest, "insufficient stock")
	ErrInvalidQuantity    = apperr.New(apperr.KindValidation, "quantity must be positive")
)

type Medication struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Repository interface {
	GetMedicationByID(ctx context.Context, id uuid.UUID) (*Medication, error)
	// GetMedicationForUpdate locks the row for the rest of the transaction.
	GetMedicationForUpdate(ctx context.Context, id uuid.UUID) (*Medication, error)
	// DecrementStock fails with ErrInsufficientStock rather than going negative.
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error
}

// Demand is the total quantity requested of one medication.
type Demand struct {
	MedicationID uuid.UUID
	Quantity     int
}

// Aggregate sums quantities per medication, keeping first-seen order.
func Aggregate(lines []Demand) ([]Demand, error) {
	index := make(map[uuid.UUID]int, len(lines))
	var out []Demand
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: medication %s requested %d", ErrInvalidQuantity, l.MedicationID, l.Quantity)
		}
		if i, ok := index[l.MedicationID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.MedicationID] = len(out)
		out = append(out, l)
	}
	return out, nil
}

// Reserve checks every demand against stock and then draws it down. Rows
// are locked in id order so concurrent prescriptions cannot deadlock. It
// must run inside a transaction for the check to hold until commit.
func Reserve(ctx context.Context, repo Repository, demand []Demand) ([]Medication, error) {
	ordered := slices.Clone(demand)
	slices.SortFunc(ordered, func(a, b Demand) int {
		return bytes.Compare(a.MedicationID[:], b.MedicationID[:])
	})

	locked := make(map[uuid.UUID]*Medication, len(ordered))
	for _, d := range ordered {
		m, err := repo.GetMedicationForUpdate(ctx, d.MedicationID)
		if err != nil {
			if errors.Is(err, ErrMedicationNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrMedicationNotFound, d.MedicationID)
			}
			return nil, fmt.Errorf("load medication %s: %w", d.MedicationID, err)
		}
		locked[d.MedicationID] = m
	}

	// report in request order
	for _, d := range demand {
		if m := locked[d.MedicationID]; m.Stock < d.Quantity {
			return nil, insufficient(m, d.Quantity)
		}
	}

	out := make([]Medication, 0, len(demand))
	for _, d := range demand {
		m := locked[d.MedicationID]
		if err := repo.DecrementStock(ctx, d.MedicationID, d.Quantity); err != nil {
			if errors.Is(err, ErrInsufficientStock) {
				return nil, insufficient(m, d.Quantity)
			}
			return nil, fmt.Errorf("decrement stock of %s: %w", d.MedicationID, err)
		}
		m.Stock -= d.Quantity
		out = append(out, *m)
	}
	return out, nil
}

func insufficient(m *Medication, requested int) error {
	return fmt.Errorf("%w for %s (%s): requested %d, available %d",
		ErrInsufficientStock, m.Name, m.ID, requested, m.Stock)
}
