package trip

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatrack/n2krouter/monitor"
)

func TestAggregatorRollover(t *testing.T) {
	a := NewAggregator(nil, nil)
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	first := a.Fold(monitor.VesselStatus{Timestamp: start, ElapsedMs: 30000})
	require.NotNil(t, first)
	assert.Equal(t, "Trip 2026-01-15", first.Description)
	assert.Equal(t, start, first.Start)
	assert.Equal(t, start, first.End)
	assert.NotEmpty(t, first.ID)

	// 23 h 59 min later: still the same trip
	second := a.Fold(monitor.VesselStatus{
		Timestamp: start.Add(23*time.Hour + 59*time.Minute),
		ElapsedMs: 30000,
	})
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, start, second.Start)

	// 24 h 1 min of silence after that: a fresh trip
	rolloverAt := second.End.Add(24*time.Hour + 1*time.Minute)
	third := a.Fold(monitor.VesselStatus{Timestamp: rolloverAt, ElapsedMs: 30000})
	assert.NotEqual(t, first.ID, third.ID)
	assert.Equal(t, rolloverAt, third.Start)
	assert.Equal(t, rolloverAt, third.End)
	assert.Zero(t, third.MsSailing+third.MsMotoring+third.MsMoored-30000)
}

func TestAggregatorAccounting(t *testing.T) {
	a := NewAggregator(nil, nil)
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	statuses := []monitor.VesselStatus{
		{Timestamp: start, IsMoored: true, ElapsedMs: 1800000},
		{Timestamp: start.Add(30 * time.Minute), EngineOn: true, ElapsedMs: 30000, DistanceNm: 0.1},
		{Timestamp: start.Add(31 * time.Minute), EngineOn: true, ElapsedMs: 30000, DistanceNm: 0.12},
		{Timestamp: start.Add(32 * time.Minute), ElapsedMs: 30000, DistanceNm: 0.15},
		{Timestamp: start.Add(33 * time.Minute), IsMoored: true, EngineOn: true, ElapsedMs: 30000},
	}
	var tr *Trip
	for _, s := range statuses {
		tr = a.Fold(s)
	}

	require.NotNil(t, tr)
	// mooring wins over engine state
	assert.Equal(t, int64(1830000), tr.MsMoored)
	assert.Equal(t, int64(60000), tr.MsMotoring)
	assert.Equal(t, int64(30000), tr.MsSailing)
	assert.InDelta(t, 0.22, tr.NmMotoring, 1e-9)
	assert.InDelta(t, 0.15, tr.NmSailed, 1e-9)

	// conservation: trip totals match the contributing statuses
	var elapsed int64
	var nm float64
	for _, s := range statuses {
		elapsed += s.ElapsedMs
		nm += s.DistanceNm
	}
	assert.Equal(t, elapsed, tr.MsMoored+tr.MsMotoring+tr.MsSailing)
	assert.InDelta(t, nm, tr.NmMotoring+tr.NmSailed, 1e-9)
	assert.Equal(t, start.Add(33*time.Minute), tr.End)
}

func TestAggregatorRehydration(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	open := &Trip{
		ID:          "resume-me",
		Description: "Trip 2026-01-15",
		Start:       start,
		End:         start.Add(time.Hour),
		MsMoored:    3600000,
	}
	a := NewAggregator(open, nil)

	// a status within the gap continues the rehydrated trip
	tr := a.Fold(monitor.VesselStatus{
		Timestamp: start.Add(2 * time.Hour),
		IsMoored:  true,
		ElapsedMs: 1800000,
	})
	assert.Equal(t, "resume-me", tr.ID)
	assert.Equal(t, int64(5400000), tr.MsMoored)
	assert.Equal(t, start, tr.Start)
}
