package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Practitioner struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty *string   `json:"specialty,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Appointment is the root entity of the scheduling core. Date is a civil
// date stored as UTC midnight; StartTime and EndTime are wall clock times
// on that date.
type Appointment struct {
	ID                    uuid.UUID  `json:"id"`
	PatientID             uuid.UUID  `json:"patient_id"`
	PractitionerID        uuid.UUID  `json:"practitioner_id"`
	Date                  time.Time  `json:"date"`
	StartTime             Clock      `json:"start_time"`
	EndTime               Clock      `json:"end_time"`
	DurationMinutes       int        `json:"duration_minutes"`
	Status                Status     `json:"status"`
	Notes                 *string    `json:"notes,omitempty"`
	CreatedBy             uuid.UUID  `json:"created_by"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
	VitalsTakenAt         *time.Time `json:"vitals_taken_at,omitempty"`
	ConsultationStartedAt *time.Time `json:"consultation_started_at,omitempty"`
	ConsultationEndedAt   *time.Time `json:"consultation_ended_at,omitempty"`
	Active                bool       `json:"active"`
}

func (a *Appointment) Interval() Interval {
	return Interval{Start: a.StartTime, End: a.EndTime}
}

type VitalSigns struct {
	ID               uuid.UUID `json:"id"`
	AppointmentID    uuid.UUID `json:"appointment_id"`
	PatientID        uuid.UUID `json:"patient_id"`
	RecordedBy       uuid.UUID `json:"recorded_by"`
	WeightKg         *float64  `json:"weight_kg"`
	HeightCm         *float64  `json:"height_cm"`
	TemperatureC     *float64  `json:"temperature_c"`
	SystolicMmHg     *int      `json:"systolic_mmhg"`
	DiastolicMmHg    *int      `json:"diastolic_mmhg"`
	HeartRateBpm     *int      `json:"heart_rate_bpm"`
	RespiratoryRate  *int      `json:"respiratory_rate"`
	OxygenSaturation *float64  `json:"oxygen_saturation"`
	Notes            *string   `json:"notes"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type AppointmentDetail struct {
	Appointment
	Patient      *Patient      `json:"patient,omitempty"`
	Practitioner *Practitioner `json:"practitioner,omitempty"`
	VitalSigns   *VitalSigns   `json:"vital_signs,omitempty"`
}

// Filter narrows ListAppointments. Zero values mean "any".
type Filter struct {
	PatientID      *uuid.UUID
	PractitionerID *uuid.UUID
	Status         *Status
	DateFrom       *time.Time
	DateTo         *time.Time
	Limit          int
	Offset         int
}

type Page struct {
	Items  []Appointment
	Total  int
	Limit  int
	Offset int
}

// DateOf truncates t to its calendar date in t's own location and returns
// that date as UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
