package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewEvent(t *testing.T) {
	e := NewEvent("plans_imported", "ingestion", map[string]interface{}{"plans": 3})
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "plans_imported", e.Type)
	assert.Equal(t, "ingestion", e.Source)
	assert.False(t, e.Timestamp.IsZero())

	other := NewEvent("plans_imported", "ingestion", nil)
	assert.NotEqual(t, e.ID, other.ID)
}

func TestDecodeEvent(t *testing.T) {
	raw, err := json.Marshal(NewEvent("plan_record", "registry", map[string]interface{}{"plan": "x"}))
	require.NoError(t, err)

	e, err := DecodeEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, "plan_record", e.Type)
	assert.Equal(t, "x", e.Data["plan"])

	_, err = DecodeEvent([]byte(`{"id":"1"}`))
	assert.ErrorIs(t, err, ErrMissingEventType)

	_, err = DecodeEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.PublishEvent(context.Background(), "selection_changed", "dashboard", "", nil))
}

func TestSleepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleep(ctx, time.Hour))
	assert.True(t, sleep(context.Background(), time.Millisecond))
}
