// Package memstore keeps every repository of the core in process memory. It
// backs the memory storage driver and the service tests.
package memstore

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-core/internal/appointment"
	"github.com/hackgods/clinic-appointment-core/internal/audit"
	"github.com/hackgods/clinic-appointment-core/internal/clinical"
	"github.com/hackgods/clinic-appointment-core/internal/db"
	"github.com/hackgods/clinic-appointment-core/internal/inventory"
	redisclient "github.com/hackgods/clinic-appointment-core/internal/redis"
)

var (
	_ appointment.Store         = (*Store)(nil)
	_ clinical.Repository       = (*Store)(nil)
	_ clinical.AppointmentStore = (*Store)(nil)
	_ inventory.Repository      = (*Store)(nil)
	_ audit.Recorder            = (*Store)(nil)
	_ db.Transactor             = (*Store)(nil)
	_ redisclient.Locker        = (*Store)(nil)
)

type state struct {
	patients      map[uuid.UUID]appointment.Patient
	practitioners map[uuid.UUID]appointment.Practitioner
	appointments  map[uuid.UUID]appointment.Appointment
	vitals        map[uuid.UUID]appointment.VitalSigns // by appointment
	medications   map[uuid.UUID]inventory.Medication
	histories     map[uuid.UUID]clinical.ClinicalHistory // by appointment
	odontograms   map[uuid.UUID]clinical.Odontogram      // by appointment
	prescriptions map[uuid.UUID]clinical.Prescription    // by appointment
	audit         []audit.Entry
}

func newState() *state {
	return &state{
		patients:      map[uuid.UUID]appointment.Patient{},
		practitioners: map[uuid.UUID]appointment.Practitioner{},
		appointments:  map[uuid.UUID]appointment.Appointment{},
		vitals:        map[uuid.UUID]appointment.VitalSigns{},
		medications:   map[uuid.UUID]inventory.Medication{},
		histories:     map[uuid.UUID]clinical.ClinicalHistory{},
		odontograms:   map[uuid.UUID]clinical.Odontogram{},
		prescriptions: map[uuid.UUID]clinical.Prescription{},
	}
}

// clone copies every table. Rows are values and stored slices are never
// mutated in place, so a shallow copy per map is a full snapshot.
func (s *state) clone() *state {
	return &state{
		patients:      maps.Clone(s.patients),
		practitioners: maps.Clone(s.practitioners),
		appointments:  maps.Clone(s.appointments),
		vitals:        maps.Clone(s.vitals),
		medications:   maps.Clone(s.medications),
		histories:     maps.Clone(s.histories),
		odontograms:   maps.Clone(s.odontograms),
		prescriptions: maps.Clone(s.prescriptions),
		audit:         slices.Clone(s.audit),
	}
}

// Store implements the appointment, vital signs, inventory, clinical and
// audit repositories, plus a Transactor and a Locker over them.
type Store struct {
	txMu sync.Mutex // one transaction at a time
	mu   sync.Mutex // guards data
	data *state

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	nextAuditID int64
}

func New() *Store {
	return &Store{
		data:  newState(),
		locks: map[string]*sync.Mutex{},
	}
}

type txKey struct{}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(bool)
	return ok
}

// WithinTx snapshots the store and restores the snapshot if fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// WithLock serializes callers per key inside this process.
func (s *Store) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	s.locksMu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.locksMu.Unlock()

	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

func (s *Store) read(fn func(d *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.data)
}

// write outside a transaction waits for any running one to finish.
func (s *Store) write(ctx context.Context, fn func(d *state) error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// Seeding and inspection

func (s *Store) AddPatient(p appointment.Patient) {
	_ = s.write(context.Background(), func(d *state) error {
		d.patients[p.ID] = p
		return nil
	})
}

func (s *Store) AddPractitioner(p appointment.Practitioner) {
	_ = s.write(context.Background(), func(d *state) error {
		d.practitioners[p.ID] = p
		return nil
	})
}

func (s *Store) AddMedication(m inventory.Medication) {
	_ = s.write(context.Background(), func(d *state) error {
		d.medications[m.ID] = m
		return nil
	})
}

func (s *Store) Patients() []appointment.Patient {
	var out []appointment.Patient
	s.read(func(d *state) {
		out = slices.SortedFunc(maps.Values(d.patients), func(a, b appointment.Patient) int {
			return cmp.Compare(a.Name, b.Name)
		})
	})
	return out
}

func (s *Store) Practitioners() []appointment.Practitioner {
	var out []appointment.Practitioner
	s.read(func(d *state) {
		out = slices.SortedFunc(maps.Values(d.practitioners), func(a, b appointment.Practitioner) int {
			return cmp.Compare(a.Name, b.Name)
		})
	})
	return out
}

// AuditEntries returns every recorded entry in insertion order.
func (s *Store) AuditEntries() []audit.Entry {
	var out []audit.Entry
	s.read(func(d *state) { out = slices.Clone(d.audit) })
	return out
}

func (s *Store) Record(ctx context.Context, e audit.Entry) error {
	return s.write(ctx, func(d *state) error {
		s.nextAuditID++
		e.ID = s.nextAuditID
		d.audit = append(d.audit, e)
		return nil
	})
}
