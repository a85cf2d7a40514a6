package app

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-appointment-core/internal/config"
)

func TestNew_MemoryDriver(t *testing.T) {
	a, err := New(context.Background(), config.Default(), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Appointments)
	assert.NotNil(t, a.Clinical)
	assert.Nil(t, a.PgPool)
	assert.Nil(t, a.Redis)
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.StorageDriver = "sqlite"

	_, err := New(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, `unknown storage driver "sqlite"`)
}
