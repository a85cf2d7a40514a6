package memstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-core/internal/clinical"
	"github.com/hackgods/clinic-appointment-core/internal/inventory"
)

var errDuplicate = errors.New("duplicate row")

func (s *Store) GetMedicationByID(_ context.Context, id uuid.UUID) (*inventory.Medication, error) {
	var (
		m  inventory.Medication
		ok bool
	)
	s.read(func(d *state) { m, ok = d.medications[id] })
	if !ok {
		return nil, inventory.ErrMedicationNotFound
	}
	return &m, nil
}

func (s *Store) GetMedicationForUpdate(ctx context.Context, id uuid.UUID) (*inventory.Medication, error) {
	return s.GetMedicationByID(ctx, id)
}

func (s *Store) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	return s.write(ctx, func(d *state) error {
		m, ok := d.medications[id]
		if !ok {
			return inventory.ErrMedicationNotFound
		}
		if m.Stock < quantity {
			return inventory.ErrInsufficientStock
		}
		m.Stock -= quantity
		d.medications[id] = m
		return nil
	})
}

func (s *Store) CreateClinicalHistory(ctx context.Context, h *clinical.ClinicalHistory) error {
	return s.write(ctx, func(d *state) error {
		if _, ok := d.histories[h.AppointmentID]; ok {
			return errDuplicate
		}
		d.histories[h.AppointmentID] = *h
		return nil
	})
}

func (s *Store) CreateOdontogram(ctx context.Context, o *clinical.Odontogram) error {
	return s.write(ctx, func(d *state) error {
		if _, ok := d.odontograms[o.AppointmentID]; ok {
			return errDuplicate
		}
		d.odontograms[o.AppointmentID] = *o
		return nil
	})
}

func (s *Store) CreatePrescription(ctx context.Context, p *clinical.Prescription) error {
	return s.write(ctx, func(d *state) error {
		for _, other := range d.prescriptions {
			if other.Number == p.Number {
				return errDuplicate
			}
		}
		if _, ok := d.prescriptions[p.AppointmentID]; ok {
			return errDuplicate
		}
		d.prescriptions[p.AppointmentID] = *p
		return nil
	})
}

func (s *Store) LastPrescriptionNumber(_ context.Context, year int) (string, error) {
	prefix := fmt.Sprintf("RX-%d-", year)

	last := ""
	s.read(func(d *state) {
		for _, p := range d.prescriptions {
			if !strings.HasPrefix(p.Number, prefix) {
				continue
			}
			if len(p.Number) > len(last) || (len(p.Number) == len(last) && p.Number > last) {
				last = p.Number
			}
		}
	})
	return last, nil
}

func (s *Store) GetClinicalHistoryByAppointment(_ context.Context, appointmentID uuid.UUID) (*clinical.ClinicalHistory, error) {
	var (
		h  clinical.ClinicalHistory
		ok bool
	)
	s.read(func(d *state) { h, ok = d.histories[appointmentID] })
	if !ok {
		return nil, clinical.ErrHistoryNotFound
	}
	return &h, nil
}

func (s *Store) GetOdontogramByAppointment(_ context.Context, appointmentID uuid.UUID) (*clinical.Odontogram, error) {
	var (
		o  clinical.Odontogram
		ok bool
	)
	s.read(func(d *state) { o, ok = d.odontograms[appointmentID] })
	if !ok {
		return nil, clinical.ErrOdontogramNotFound
	}
	return &o, nil
}

func (s *Store) GetPrescriptionByAppointment(_ context.Context, appointmentID uuid.UUID) (*clinical.Prescription, error) {
	var (
		p  clinical.Prescription
		ok bool
	)
	s.read(func(d *state) { p, ok = d.prescriptions[appointmentID] })
	if !ok {
		return nil, clinical.ErrPrescriptionNotFound
	}
	return &p, nil
}
