package core

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetFetchErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("loading legs: %w", NewAssetFetchError("https://cdn/legs.obj", AssetKindModel, cause))

	assert.ErrorIs(t, err, ErrAssetFetch)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)

	var afe *AssetFetchError
	require.ErrorAs(t, err, &afe)
	assert.Equal(t, "https://cdn/legs.obj", afe.URL)
	assert.Contains(t, afe.Error(), "model")
}

func TestEventBusFireOrderAndHandled(t *testing.T) {
	bus := NewEventBus()
	var calls []string

	first := &struct{ name string }{"first"}
	second := &struct{ name string }{"second"}

	require.True(t, bus.Register(EventTraitAttached, first, func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		calls = append(calls, "first:"+data.GroupID)
		return false
	}))
	require.True(t, bus.Register(EventTraitAttached, second, func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		calls = append(calls, "second:"+data.GroupID)
		return true
	}))
	assert.False(t, bus.Register(EventTraitAttached, first, func(SystemEventCode, interface{}, interface{}, EventContext) bool { return false }))

	handled := bus.Fire(EventTraitAttached, nil, EventContext{GroupID: "head"})
	assert.True(t, handled)
	assert.Equal(t, []string{"first:head", "second:head"}, calls)

	assert.True(t, bus.Unregister(EventTraitAttached, second))
	assert.False(t, bus.Fire(EventTraitAttached, nil, EventContext{GroupID: "chest"}))
	assert.False(t, bus.Fire(EventTraitRemoved, nil, EventContext{}))
}

func TestMetricsRollingAverage(t *testing.T) {
	m := NewMetrics()
	m.RecordBatch(10*time.Millisecond, 3, 1)
	m.RecordBatch(30*time.Millisecond, 2, 0)

	assert.InDelta(t, 20.0, m.BatchTime(), 0.001)
	assert.Equal(t, int64(2), m.Batches())
	loaded, failed := m.Assets()
	assert.Equal(t, int64(5), loaded)
	assert.Equal(t, int64(1), failed)

	for i := 0; i < int(AVG_COUNT); i++ {
		m.RecordBatch(5*time.Millisecond, 0, 0)
	}
	assert.InDelta(t, 5.0, m.BatchTime(), 0.001)
}

func TestClockElapsed(t *testing.T) {
	now := time.Unix(100, 0)
	c := NewClock()
	c.now = func() time.Time { return now }

	c.Update()
	assert.Zero(t, c.Elapsed())

	c.Start()
	now = now.Add(250 * time.Millisecond)
	c.Update()
	assert.Equal(t, 250*time.Millisecond, c.Elapsed())

	now = now.Add(time.Second)
	c.Stop()
	now = now.Add(time.Hour)
	c.Update()
	assert.Equal(t, 1250*time.Millisecond, c.Elapsed())
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(os.Stderr)

	SetLogLevel("warn")
	LogInfo("hidden")
	LogWarn("visible %d", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible 1")
	SetLogLevel("info")
}
