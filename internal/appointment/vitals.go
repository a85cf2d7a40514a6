package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-core/internal/audit"
)

// VitalsInput is the optional bundle of measurements taken at check-in.
type VitalsInput struct {
	WeightKg         *float64
	HeightCm         *float64
	TemperatureC     *float64
	SystolicMmHg     *int
	DiastolicMmHg    *int
	HeartRateBpm     *int
	RespiratoryRate  *int
	OxygenSaturation *float64
	Notes            *string
}

// HasMeasurements ignores Notes: a note alone is not a measurement.
func (in VitalsInput) HasMeasurements() bool {
	return in.WeightKg != nil || in.HeightCm != nil || in.TemperatureC != nil ||
		in.SystolicMmHg != nil || in.DiastolicMmHg != nil || in.HeartRateBpm != nil ||
		in.RespiratoryRate != nil || in.OxygenSaturation != nil
}

// Optional distinguishes an absent field from an explicit null. Set is true
// whenever the field was present; Value is nil for null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o Optional[T]) apply(dst **T) {
	if o.Set {
		*dst = o.Value
	}
}

// VitalsPatch replaces the fields that are Set, including with null.
type VitalsPatch struct {
	WeightKg         Optional[float64] `json:"weight_kg"`
	HeightCm         Optional[float64] `json:"height_cm"`
	TemperatureC     Optional[float64] `json:"temperature_c"`
	SystolicMmHg     Optional[int]     `json:"systolic_mmhg"`
	DiastolicMmHg    Optional[int]     `json:"diastolic_mmhg"`
	HeartRateBpm     Optional[int]     `json:"heart_rate_bpm"`
	RespiratoryRate  Optional[int]     `json:"respiratory_rate"`
	OxygenSaturation Optional[float64] `json:"oxygen_saturation"`
	Notes            Optional[string]  `json:"notes"`
}

func (p VitalsPatch) applyTo(v *VitalSigns) {
	p.WeightKg.apply(&v.WeightKg)
	p.HeightCm.apply(&v.HeightCm)
	p.TemperatureC.apply(&v.TemperatureC)
	p.SystolicMmHg.apply(&v.SystolicMmHg)
	p.DiastolicMmHg.apply(&v.DiastolicMmHg)
	p.HeartRateBpm.apply(&v.HeartRateBpm)
	p.RespiratoryRate.apply(&v.RespiratoryRate)
	p.OxygenSaturation.apply(&v.OxygenSaturation)
	p.Notes.apply(&v.Notes)
}

// checkRanges rejects measurements no patient can have. Absent values pass.
func (v *VitalSigns) checkRanges() error {
	checks := []error{
		positive("weight_kg", v.WeightKg),
		positive("height_cm", v.HeightCm),
		positive("temperature_c", v.TemperatureC),
		positive("systolic_mmhg", v.SystolicMmHg),
		positive("diastolic_mmhg", v.DiastolicMmHg),
		positive("heart_rate_bpm", v.HeartRateBpm),
		positive("respiratory_rate", v.RespiratoryRate),
		positive("oxygen_saturation", v.OxygenSaturation),
	}
	if o := v.OxygenSaturation; o != nil && *o > 100 {
		checks = append(checks, fmt.Errorf("%w: oxygen_saturation %v is above 100", ErrInvalidInput, *o))
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

func positive[T int | float64](field string, p *T) error {
	if p != nil && *p <= 0 {
		return fmt.Errorf("%w: %s must be greater than 0, got %v", ErrInvalidInput, field, *p)
	}
	return nil
}

func (s *Service) recordVitals(ctx context.Context, actor uuid.UUID, a *Appointment, in VitalsInput) (*VitalSigns, error) {
	now := s.now()
	v := &VitalSigns{
		ID:               uuid.New(),
		AppointmentID:    a.ID,
		PatientID:        a.PatientID,
		RecordedBy:       actor,
		WeightKg:         in.WeightKg,
		HeightCm:         in.HeightCm,
		TemperatureC:     in.TemperatureC,
		SystolicMmHg:     in.SystolicMmHg,
		DiastolicMmHg:    in.DiastolicMmHg,
		HeartRateBpm:     in.HeartRateBpm,
		RespiratoryRate:  in.RespiratoryRate,
		OxygenSaturation: in.OxygenSaturation,
		Notes:            in.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := v.checkRanges(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateVitalSigns(ctx, v); err != nil {
		return nil, fmt.Errorf("record vital signs: %w", err)
	}
	if err := s.record(ctx, actor, audit.ActionVitalSignsRecorded, entityVitalSigns, v.ID, nil, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) GetVitals(ctx context.Context, appointmentID uuid.UUID) (*VitalSigns, error) {
	if _, err := s.GetAppointment(ctx, appointmentID); err != nil {
		return nil, err
	}
	v, err := s.repo.GetVitalSignsByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, wrapVitalsNotFound(err, appointmentID)
	}
	return v, nil
}

// UpdateVitals edits the record taken at check-in. Closed appointments keep
// their vitals as recorded.
func (s *Service) UpdateVitals(ctx context.Context, actor, appointmentID uuid.UUID, patch VitalsPatch) (*VitalSigns, error) {
	var updated *VitalSigns

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetAppointmentForUpdate(ctx, appointmentID)
		if err != nil {
			return wrapNotFound(err, appointmentID)
		}

		current, err := s.repo.GetVitalSignsByAppointment(ctx, appointmentID)
		if err != nil {
			return wrapVitalsNotFound(err, appointmentID)
		}
		if a.Status.Terminal() {
			return fmt.Errorf("%w: appointment %s is %s, vital signs are read-only", ErrNotEditable, a.ID, a.Status)
		}

		next := *current
		patch.applyTo(&next)
		if err := next.checkRanges(); err != nil {
			return err
		}
		next.UpdatedAt = s.now()

		if err := s.repo.UpdateVitalSigns(ctx, &next); err != nil {
			return wrapVitalsNotFound(err, appointmentID)
		}
		if err := s.record(ctx, actor, audit.ActionVitalSignsUpdated, entityVitalSigns, next.ID, current, &next); err != nil {
			return err
		}

		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func wrapVitalsNotFound(err error, appointmentID uuid.UUID) error {
	if errors.Is(err, ErrVitalSignsNotFound) {
		return fmt.Errorf("%w: appointment %s", ErrVitalSignsNotFound, appointmentID)
	}
	return fmt.Errorf("load vital signs: %w", err)
}
