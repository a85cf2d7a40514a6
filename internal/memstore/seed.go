package memstore

import (
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-core/internal/appointment"
	"github.com/hackgods/clinic-appointment-core/internal/inventory"
)

var Specialties = []string{
	"General Dentistry",
	"Orthodontics",
	"Endodontics",
	"Periodontics",
	"Prosthodontics",
	"Oral Surgery",
	"Pediatric Dentistry",
}

var Medications = []string{
	"Amoxicillin 500mg",
	"Ibuprofen 400mg",
	"Paracetamol 500mg",
	"Chlorhexidine 0.12% rinse",
	"Metronidazole 250mg",
	"Clindamycin 300mg",
	"Naproxen 250mg",
}

// SeedDemo fills the store with fake patients, practitioners and a stocked
// medication shelf so the memory driver has something to book against.
func (s *Store) SeedDemo(patients, practitioners int) {
	now := time.Now()

	for range practitioners {
		spec := Specialties[gofakeit.Number(0, len(Specialties)-1)]
		s.AddPractitioner(appointment.Practitioner{
			ID:        uuid.New(),
			Name:      "Dr. " + gofakeit.Name(),
			Specialty: &spec,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	for range patients {
		email := gofakeit.Email()
		s.AddPatient(appointment.Patient{
			ID:        uuid.New(),
			Name:      gofakeit.Name(),
			Email:     &email,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	for _, name := range Medications {
		s.AddMedication(inventory.Medication{
			ID:        uuid.New(),
			Name:      name,
			Unit:      "unit",
			Stock:     gofakeit.Number(20, 200),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
}
