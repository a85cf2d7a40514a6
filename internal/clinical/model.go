package clinical

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-core/internal/appointment"
)

type HygieneLevel string

const (
	HygieneExcellent HygieneLevel = "EXCELLENT"
	HygieneGood      HygieneLevel = "GOOD"
	HygieneFair      HygieneLevel = "FAIR"
	HygienePoor      HygieneLevel = "POOR"
)

func (h HygieneLevel) Valid() bool {
	switch h {
	case HygieneExcellent, HygieneGood, HygieneFair, HygienePoor:
		return true
	}
	return false
}

func ParseHygieneLevel(s string) (HygieneLevel, error) {
	if h := HygieneLevel(s); h.Valid() {
		return h, nil
	}
	return "", fmt.Errorf("%w: unknown hygiene level %q", ErrInvalidCompletion, s)
}

type GumCondition string

const (
	GumHealthy       GumCondition = "HEALTHY"
	GumGingivitis    GumCondition = "GINGIVITIS"
	GumPeriodontitis GumCondition = "PERIODONTITIS"
	GumRecession     GumCondition = "RECESSION"
)

func (g GumCondition) Valid() bool {
	switch g {
	case GumHealthy, GumGingivitis, GumPeriodontitis, GumRecession:
		return true
	}
	return false
}

func ParseGumCondition(s string) (GumCondition, error) {
	if g := GumCondition(s); g.Valid() {
		return g, nil
	}
	return "", fmt.Errorf("%w: unknown gum condition %q", ErrInvalidCompletion, s)
}

type ToothCondition string

const (
	ToothHealthy          ToothCondition = "HEALTHY"
	ToothCaries           ToothCondition = "CARIES"
	ToothFilled           ToothCondition = "FILLED"
	ToothMissing          ToothCondition = "MISSING"
	ToothCrown            ToothCondition = "CROWN"
	ToothRootCanal        ToothCondition = "ROOT_CANAL"
	ToothExtractionNeeded ToothCondition = "EXTRACTION_NEEDED"
	ToothImplant          ToothCondition = "IMPLANT"
	ToothFractured        ToothCondition = "FRACTURED"
)

func (t ToothCondition) Valid() bool {
	switch t {
	case ToothHealthy, ToothCaries, ToothFilled, ToothMissing, ToothCrown,
		ToothRootCanal, ToothExtractionNeeded, ToothImplant, ToothFractured:
		return true
	}
	return false
}

func ParseToothCondition(s string) (ToothCondition, error) {
	if t := ToothCondition(s); t.Valid() {
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown tooth condition %q", ErrInvalidCompletion, s)
}

const (
	MinTooth = 1
	MaxTooth = 32
)

type ClinicalHistory struct {
	ID              uuid.UUID    `json:"id"`
	AppointmentID   uuid.UUID    `json:"appointment_id"`
	PatientID       uuid.UUID    `json:"patient_id"`
	ClinicianID     uuid.UUID    `json:"clinician_id"`
	ChiefComplaint  *string      `json:"chief_complaint,omitempty"`
	Diagnosis       *string      `json:"diagnosis,omitempty"`
	HygieneLevel    HygieneLevel `json:"hygiene_level"`
	GumCondition    GumCondition `json:"gum_condition"`
	Bleeding        bool         `json:"bleeding"`
	Sensitivity     bool         `json:"sensitivity"`
	Bruxism         bool         `json:"bruxism"`
	Halitosis       bool         `json:"halitosis"`
	TreatmentPlan   *string      `json:"treatment_plan,omitempty"`
	NextVisitDate   *time.Time   `json:"next_visit_date,omitempty"`
	Recommendations *string      `json:"recommendations,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

type Odontogram struct {
	ID                uuid.UUID    `json:"id"`
	ClinicalHistoryID uuid.UUID    `json:"clinical_history_id"`
	AppointmentID     uuid.UUID    `json:"appointment_id"`
	PatientID         uuid.UUID    `json:"patient_id"`
	Notes             *string      `json:"notes,omitempty"`
	Teeth             []ToothEntry `json:"teeth"`
	CreatedAt         time.Time    `json:"created_at"`
}

type ToothEntry struct {
	ID          uuid.UUID      `json:"id"`
	ToothNumber int            `json:"tooth_number"`
	Condition   ToothCondition `json:"condition"`
	Notes       *string        `json:"notes,omitempty"`
}

type Prescription struct {
	ID                uuid.UUID          `json:"id"`
	Number            string             `json:"number"`
	AppointmentID     uuid.UUID          `json:"appointment_id"`
	ClinicalHistoryID uuid.UUID          `json:"clinical_history_id"`
	PatientID         uuid.UUID          `json:"patient_id"`
	PrescriberID      uuid.UUID          `json:"prescriber_id"`
	Instructions      *string            `json:"instructions,omitempty"`
	Notes             *string            `json:"notes,omitempty"`
	Items             []PrescriptionItem `json:"items"`
	IssuedAt          time.Time          `json:"issued_at"`
}

type PrescriptionItem struct {
	ID           uuid.UUID `json:"id"`
	Position     int       `json:"position"`
	MedicationID uuid.UUID `json:"medication_id"`
	Quantity     int       `json:"quantity"`
	Dosage       *string   `json:"dosage,omitempty"`
	Frequency    *string   `json:"frequency,omitempty"`
	DurationDays *int      `json:"duration_days,omitempty"`
	Instructions *string   `json:"instructions,omitempty"`
}

// Bundle is everything a finished consultation produced.
type Bundle struct {
	Appointment  *appointment.Appointment `json:"appointment"`
	History      *ClinicalHistory         `json:"clinical_history"`
	Odontogram   *Odontogram              `json:"odontogram,omitempty"`
	Prescription *Prescription            `json:"prescription,omitempty"`
}
