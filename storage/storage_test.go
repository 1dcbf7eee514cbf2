package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatrack/n2krouter/monitor"
	"github.com/seatrack/n2krouter/trip"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "n2k-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreInsertVesselStatusAndTrip(t *testing.T) {
	s := openTestStore(t)
	at := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	status := monitor.VesselStatus{
		Timestamp:  at,
		Position:   &monitor.Position{LatitudeDeg: 43.63, LongitudeDeg: 10.29},
		AvgSpeedKn: 4.2,
		MaxSpeedKn: 6.1,
		EngineOn:   true,
		DistanceNm: 0.12,
		ElapsedMs:  30000,
	}
	tr := trip.Trip{
		ID:          "trip-1",
		Description: "Trip 2026-01-15",
		Start:       at,
		End:         at,
		NmMotoring:  0.12,
		MsMotoring:  30000,
	}

	require.NoError(t, s.InsertVesselStatusAndTrip(status, tr))

	count, err := s.StatusCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	loaded, err := s.LoadOpenTrip()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, tr, *loaded)
}

func TestStoreTripUpdatedInPlace(t *testing.T) {
	s := openTestStore(t)
	at := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	tr := trip.Trip{ID: "trip-1", Description: "Trip 2026-01-15", Start: at, End: at}
	require.NoError(t, s.InsertVesselStatusAndTrip(monitor.VesselStatus{Timestamp: at}, tr))

	tr.End = at.Add(30 * time.Minute)
	tr.MsMoored = 1800000
	require.NoError(t, s.InsertVesselStatusAndTrip(monitor.VesselStatus{Timestamp: tr.End}, tr))

	loaded, err := s.LoadOpenTrip()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, int64(1800000), loaded.MsMoored)
	assert.Equal(t, tr.End, loaded.End)

	count, err := s.StatusCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStoreInsertMetricIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	at := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	m := monitor.MetricAggregate{
		Metric:    monitor.MetricPressure,
		Timestamp: at,
		Avg:       101325,
		Min:       101300,
		Max:       101350,
		Unit:      "Pa",
	}
	require.NoError(t, s.InsertMetric(m))
	// replaying the same (timestamp, metric) aggregate is a no-op
	require.NoError(t, s.InsertMetric(m))

	count, err := s.MetricCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// same timestamp, different metric is a separate record
	m.Metric = monitor.MetricHumidity
	m.Unit = "%"
	require.NoError(t, s.InsertMetric(m))

	count, err = s.MetricCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStoreLoadOpenTripEmptyDatabase(t *testing.T) {
	s := openTestStore(t)

	loaded, err := s.LoadOpenTrip()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
