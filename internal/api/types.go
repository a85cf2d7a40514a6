package api

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-core/internal/appointment"
	"github.com/hackgods/clinic-appointment-core/internal/clinical"
)

type CreateAppointmentRequest struct {
	PatientID       string  `json:"patient_id" validate:"required,uuid"`
	PractitionerID  string  `json:"practitioner_id" validate:"required,uuid"`
	Date            string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime       string  `json:"start_time" validate:"required"`
	EndTime         string  `json:"end_time" validate:"required_without=DurationMinutes"`
	DurationMinutes int     `json:"duration_minutes" validate:"omitempty,gt=0"`
	Notes           *string `json:"notes"`
}

func (req CreateAppointmentRequest) toInput() (appointment.CreateInput, error) {
	in := appointment.CreateInput{
		PatientID:       uuid.MustParse(req.PatientID),
		PractitionerID:  uuid.MustParse(req.PractitionerID),
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
	}

	var err error
	if in.Date, err = parseDate("date", req.Date); err != nil {
		return in, err
	}
	if in.StartTime, err = parseClock("start_time", req.StartTime); err != nil {
		return in, err
	}
	if req.EndTime != "" {
		if in.EndTime, err = parseClock("end_time", req.EndTime); err != nil {
			return in, err
		}
	}
	return in, nil
}

// EditAppointmentRequest is a partial update; absent fields keep their value.
type EditAppointmentRequest struct {
	PatientID       *string `json:"patient_id" validate:"omitempty,uuid"`
	PractitionerID  *string `json:"practitioner_id" validate:"omitempty,uuid"`
	Date            *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StartTime       *string `json:"start_time"`
	EndTime         *string `json:"end_time"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,gt=0"`
	Notes           *string `json:"notes"`
}

func (req EditAppointmentRequest) toInput() (appointment.EditInput, error) {
	in := appointment.EditInput{DurationMinutes: req.DurationMinutes, Notes: req.Notes}

	if req.PatientID != nil {
		id := uuid.MustParse(*req.PatientID)
		in.PatientID = &id
	}
	if req.PractitionerID != nil {
		id := uuid.MustParse(*req.PractitionerID)
		in.PractitionerID = &id
	}
	if req.Date != nil {
		d, err := parseDate("date", *req.Date)
		if err != nil {
			return in, err
		}
		in.Date = &d
	}
	if req.StartTime != nil {
		c, err := parseClock("start_time", *req.StartTime)
		if err != nil {
			return in, err
		}
		in.StartTime = &c
	}
	if req.EndTime != nil {
		c, err := parseClock("end_time", *req.EndTime)
		if err != nil {
			return in, err
		}
		in.EndTime = &c
	}
	return in, nil
}

type NotesRequest struct {
	Notes *string `json:"notes"`
}

type VitalsRequest struct {
	WeightKg         *float64 `json:"weight_kg" validate:"omitempty,gt=0"`
	HeightCm         *float64 `json:"height_cm" validate:"omitempty,gt=0"`
	TemperatureC     *float64 `json:"temperature_c" validate:"omitempty,gt=0"`
	SystolicMmHg     *int     `json:"systolic_mmhg" validate:"omitempty,gt=0"`
	DiastolicMmHg    *int     `json:"diastolic_mmhg" validate:"omitempty,gt=0"`
	HeartRateBpm     *int     `json:"heart_rate_bpm" validate:"omitempty,gt=0"`
	RespiratoryRate  *int     `json:"respiratory_rate" validate:"omitempty,gt=0"`
	OxygenSaturation *float64 `json:"oxygen_saturation" validate:"omitempty,gt=0,lte=100"`
	Notes            *string  `json:"notes"`
}

func (req VitalsRequest) toInput() appointment.VitalsInput {
	return appointment.VitalsInput{
		WeightKg:         req.WeightKg,
		HeightCm:         req.HeightCm,
		TemperatureC:     req.TemperatureC,
		SystolicMmHg:     req.SystolicMmHg,
		DiastolicMmHg:    req.DiastolicMmHg,
		HeartRateBpm:     req.HeartRateBpm,
		RespiratoryRate:  req.RespiratoryRate,
		OxygenSaturation: req.OxygenSaturation,
		Notes:            req.Notes,
	}
}

type HistoryRequest struct {
	ChiefComplaint  *string `json:"chief_complaint"`
	Diagnosis       *string `json:"diagnosis"`
	HygieneLevel    string  `json:"hygiene_level"`
	GumCondition    string  `json:"gum_condition"`
	Bleeding        bool    `json:"bleeding"`
	Sensitivity     bool    `json:"sensitivity"`
	Bruxism         bool    `json:"bruxism"`
	Halitosis       bool    `json:"halitosis"`
	TreatmentPlan   *string `json:"treatment_plan"`
	NextVisitDate   *string `json:"next_visit_date" validate:"omitempty,datetime=2006-01-02"`
	Recommendations *string `json:"recommendations"`
}

type ToothRequest struct {
	ToothNumber int     `json:"tooth_number"`
	Condition   string  `json:"condition"`
	Notes       *string `json:"notes"`
}

type OdontogramRequest struct {
	Notes *string        `json:"notes"`
	Teeth []ToothRequest `json:"teeth"`
}

type PrescriptionItemRequest struct {
	MedicationID string  `json:"medication_id" validate:"required,uuid"`
	Quantity     int     `json:"quantity"`
	Dosage       *string `json:"dosage"`
	Frequency    *string `json:"frequency"`
	DurationDays *int    `json:"duration_days"`
	Instructions *string `json:"instructions"`
}

type PrescriptionRequest struct {
	Instructions *string                   `json:"instructions"`
	Notes        *string                   `json:"notes"`
	Items        []PrescriptionItemRequest `json:"items" validate:"dive"`
}

// CompletionRequest carries the clinical record of a finished consultation.
// Chart contents are checked by the clinical service.
type CompletionRequest struct {
	History      HistoryRequest       `json:"clinical_history"`
	Odontogram   *OdontogramRequest   `json:"odontogram"`
	Prescription *PrescriptionRequest `json:"prescription"`
}

func (req CompletionRequest) toInput() (clinical.CompletionInput, error) {
	h := req.History
	hygiene, err := parseEnum(h.HygieneLevel, clinical.ParseHygieneLevel)
	if err != nil {
		return clinical.CompletionInput{}, err
	}
	gum, err := parseEnum(h.GumCondition, clinical.ParseGumCondition)
	if err != nil {
		return clinical.CompletionInput{}, err
	}

	in := clinical.CompletionInput{
		History: clinical.HistoryInput{
			ChiefComplaint:  h.ChiefComplaint,
			Diagnosis:       h.Diagnosis,
			HygieneLevel:    hygiene,
			GumCondition:    gum,
			Bleeding:        h.Bleeding,
			Sensitivity:     h.Sensitivity,
			Bruxism:         h.Bruxism,
			Halitosis:       h.Halitosis,
			TreatmentPlan:   h.TreatmentPlan,
			Recommendations: h.Recommendations,
		},
	}
	if h.NextVisitDate != nil {
		d, err := parseDate("next_visit_date", *h.NextVisitDate)
		if err != nil {
			return in, err
		}
		in.History.NextVisitDate = &d
	}

	if o := req.Odontogram; o != nil {
		in.Odontogram = &clinical.OdontogramInput{Notes: o.Notes}
		for _, t := range o.Teeth {
			condition, err := parseEnum(t.Condition, clinical.ParseToothCondition)
			if err != nil {
				return in, err
			}
			in.Odontogram.Teeth = append(in.Odontogram.Teeth, clinical.ToothInput{
				ToothNumber: t.ToothNumber,
				Condition:   condition,
				Notes:       t.Notes,
			})
		}
	}

	if p := req.Prescription; p != nil {
		in.Prescription = &clinical.PrescriptionInput{Instructions: p.Instructions, Notes: p.Notes}
		for _, it := range p.Items {
			in.Prescription.Items = append(in.Prescription.Items, clinical.ItemInput{
				MedicationID: uuid.MustParse(it.MedicationID),
				Quantity:     it.Quantity,
				Dosage:       it.Dosage,
				Frequency:    it.Frequency,
				DurationDays: it.DurationDays,
				Instructions: it.Instructions,
			})
		}
	}
	return in, nil
}

type AppointmentListResponse struct {
	Items  []appointment.Appointment `json:"items"`
	Total  int                       `json:"total"`
	Limit  int                       `json:"limit"`
	Offset int                       `json:"offset"`
}

type CheckInResponse struct {
	Appointment *appointment.Appointment `json:"appointment"`
	VitalSigns  *appointment.VitalSigns  `json:"vital_signs"`
}

type SlotsResponse struct {
	PractitionerID uuid.UUID          `json:"practitioner_id"`
	Date           string             `json:"date"`
	Slots          []appointment.Slot `json:"slots"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD, got %q", appointment.ErrInvalidInput, field, s)
	}
	return t, nil
}

func parseClock(field, s string) (appointment.Clock, error) {
	c, err := appointment.ParseClock(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", appointment.ErrInvalidInput, field, err)
	}
	return c, nil
}

// parseEnum leaves an empty value empty so the service default applies.
func parseEnum[T ~string](s string, parse func(string) (T, error)) (T, error) {
	if s == "" {
		return "", nil
	}
	return parse(s)
}
