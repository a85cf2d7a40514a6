// Package audit records who changed what. Entries are written through the
// ctx-bound transaction when there is one, so they commit or roll back with
// the change they describe.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	ActionAppointmentCreated   = "APPOINTMENT_CREATED"
	ActionAppointmentUpdated   = "APPOINTMENT_UPDATED"
	ActionAppointmentStatus    = "APPOINTMENT_STATUS_CHANGED"
	ActionAppointmentDeleted   = "APPOINTMENT_DELETED"
	ActionVitalSignsRecorded   = "VITAL_SIGNS_RECORDED"
	ActionVitalSignsUpdated    = "VITAL_SIGNS_UPDATED"
	ActionConsultationComplete = "CONSULTATION_COMPLETED"
)

// SystemActor is used for changes made by workers rather than people.
var SystemActor = uuid.MustParse("00000000-0000-0000-0000-00000000a0d1")

type Entry struct {
	ID         int64
	ActorID    uuid.UUID
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	OldValue   []byte
	NewValue   []byte
	CreatedAt  time.Time
}

type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// NewEntry marshals the before/after values. Nil values are left empty.
func NewEntry(actorID uuid.UUID, action, entityType string, entityID uuid.UUID, oldValue, newValue any) (Entry, error) {
	e := Entry{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		CreatedAt:  time.Now(),
	}
	if entityID != uuid.Nil {
		id := entityID
		e.EntityID = &id
	}

	var err error
	if e.OldValue, err = marshal(oldValue); err != nil {
		return Entry{}, fmt.Errorf("marshal old value for %s: %w", action, err)
	}
	if e.NewValue, err = marshal(newValue); err != nil {
		return Entry{}, fmt.Errorf("marshal new value for %s: %w", action, err)
	}
	return e, nil
}

func marshal(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
