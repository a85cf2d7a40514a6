package appointment

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock(t *testing.T) {
	c, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, NewClock(9, 30), c)
	assert.Equal(t, "09:30", c.String())
	assert.Equal(t, NewClock(10, 0), c.Add(30*time.Minute))
	assert.Equal(t, 90*time.Minute, NewClock(11, 0).Sub(c))

	_, err = ParseClock("9h30")
	assert.Error(t, err)
}

func TestClock_JSON(t *testing.T) {
	b, err := json.Marshal(NewClock(8, 5))
	require.NoError(t, err)
	assert.JSONEq(t, `"08:05"`, string(b))

	var c Clock
	require.NoError(t, json.Unmarshal([]byte(`"17:45"`), &c))
	assert.Equal(t, NewClock(17, 45), c)

	assert.Error(t, json.Unmarshal([]byte(`1065`), &c))
}

func TestClock_On(t *testing.T) {
	loc := time.FixedZone("clinic", -5*3600)
	date := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)

	got := NewClock(9, 15).On(date, loc)
	assert.Equal(t, time.Date(2025, 6, 3, 9, 15, 0, 0, loc), got)
}
