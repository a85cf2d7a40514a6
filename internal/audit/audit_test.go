package audit

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntry(t *testing.T) {
	actor := uuid.New()
	entity := uuid.New()

	e, err := NewEntry(actor, ActionAppointmentStatus, "appointment", entity,
		map[string]string{"status": "SCHEDULED"},
		map[string]string{"status": "CANCELED"},
	)
	require.NoError(t, err)

	assert.Equal(t, actor, e.ActorID)
	require.NotNil(t, e.EntityID)
	assert.Equal(t, entity, *e.EntityID)
	assert.JSONEq(t, `{"status":"SCHEDULED"}`, string(e.OldValue))
	assert.JSONEq(t, `{"status":"CANCELED"}`, string(e.NewValue))
	assert.False(t, e.CreatedAt.IsZero())
}

func TestNewEntry_NilValues(t *testing.T) {
	e, err := NewEntry(SystemActor, ActionAppointmentCreated, "appointment", uuid.Nil, nil, struct{ A int }{1})
	require.NoError(t, err)

	assert.Nil(t, e.EntityID)
	assert.Nil(t, e.OldValue)
	assert.JSONEq(t, `{"A":1}`, string(e.NewValue))
}

func TestNewEntry_Unmarshalable(t *testing.T) {
	_, err := NewEntry(SystemActor, ActionAppointmentCreated, "appointment", uuid.Nil, nil, make(chan int))
	assert.Error(t, err)
}
