package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-appointment-core/internal/apperr"
)

type mapRepo struct {
	meds   map[uuid.UUID]*Medication
	locked []uuid.UUID
}

func (r *mapRepo) GetMedicationByID(_ context.Context, id uuid.UUID) (*Medication, error) {
	m, ok := r.meds[id]
	if !ok {
		return nil, ErrMedicationNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *mapRepo) GetMedicationForUpdate(ctx context.Context, id uuid.UUID) (*Medication, error) {
	r.locked = append(r.locked, id)
	return r.GetMedicationByID(ctx, id)
}

func (r *mapRepo) DecrementStock(_ context.Context, id uuid.UUID, quantity int) error {
	m, ok := r.meds[id]
	if !ok {
		return ErrMedicationNotFound
	}
	if m.Stock < quantity {
		return ErrInsufficientStock
	}
	m.Stock -= quantity
	return nil
}

func newMapRepo(meds ...Medication) *mapRepo {
	r := &mapRepo{meds: map[uuid.UUID]*Medication{}}
	for i := range meds {
		r.meds[meds[i].ID] = &meds[i]
	}
	return r
}

func TestAggregate(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	got, err := Aggregate([]Demand{{a, 2}, {b, 1}, {a, 3}})
	require.NoError(t, err)
	assert.Equal(t, []Demand{{a, 5}, {b, 1}}, got)

	_, err = Aggregate([]Demand{{a, 0}})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestReserve(t *testing.T) {
	amox := Medication{ID: uuid.New(), Name: "Amoxicillin", Stock: 10}
	ibu := Medication{ID: uuid.New(), Name: "Ibuprofen", Stock: 4}
	repo := newMapRepo(amox, ibu)

	out, err := Reserve(context.Background(), repo, []Demand{{amox.ID, 6}, {ibu.ID, 4}})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 4, out[0].Stock)
	assert.Equal(t, 0, out[1].Stock)
	assert.Equal(t, 4, repo.meds[amox.ID].Stock)
	assert.Equal(t, 0, repo.meds[ibu.ID].Stock)
}

func TestReserve_InsufficientTouchesNothing(t *testing.T) {
	amox := Medication{ID: uuid.New(), Name: "Amoxicillin", Stock: 10}
	ibu := Medication{ID: uuid.New(), Name: "Ibuprofen", Stock: 2}
	repo := newMapRepo(amox, ibu)

	_, err := Reserve(context.Background(), repo, []Demand{{amox.ID, 1}, {ibu.ID, 3}})
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
	assert.Contains(t, err.Error(), "Ibuprofen")
	assert.Contains(t, err.Error(), "requested 3, available 2")

	assert.Equal(t, 10, repo.meds[amox.ID].Stock)
	assert.Equal(t, 2, repo.meds[ibu.ID].Stock)
}

func TestReserve_UnknownMedication(t *testing.T) {
	repo := newMapRepo()

	_, err := Reserve(context.Background(), repo, []Demand{{uuid.New(), 1}})
	assert.ErrorIs(t, err, ErrMedicationNotFound)
}

func TestReserve_LocksInIDOrder(t *testing.T) {
	meds := []Medication{
		{ID: uuid.MustParse("ffffffff-0000-0000-0000-000000000000"), Stock: 5},
		{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Stock: 5},
	}
	repo := newMapRepo(meds...)

	_, err := Reserve(context.Background(), repo, []Demand{{meds[0].ID, 1}, {meds[1].ID, 1}})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{meds[1].ID, meds[0].ID}, repo.locked)
}
