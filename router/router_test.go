package router

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	n2k "github.com/seatrack/n2krouter"
	"github.com/seatrack/n2krouter/broadcast"
	"github.com/seatrack/n2krouter/monitor"
	"github.com/seatrack/n2krouter/pgn"
	"github.com/seatrack/n2krouter/storage"
	"github.com/seatrack/n2krouter/trip"
	test_test "github.com/seatrack/n2krouter/test"
)

// fakeDevice replays recorded frames and advances the shared test clock to
// each frame's time, then reports EOF.
type fakeDevice struct {
	frames []n2k.RawFrame
	idx    int
	clock  *time.Time
}

func (d *fakeDevice) Initialize() error { return nil }
func (d *fakeDevice) Close() error      { return nil }

func (d *fakeDevice) ReadRawFrame(ctx context.Context) (n2k.RawFrame, error) {
	if d.idx >= len(d.frames) {
		return n2k.RawFrame{}, io.EOF
	}
	frame := d.frames[d.idx]
	d.idx++
	*d.clock = frame.Time
	return frame, nil
}

// captureSink records every broadcast message.
type captureSink struct {
	mu       sync.Mutex
	messages []pgn.Message
}

func (s *captureSink) Send(msg pgn.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

func (s *captureSink) Close() error { return nil }

func (s *captureSink) Messages() []pgn.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pgn.Message{}, s.messages...)
}

func singleFrame(t time.Time, header n2k.CanBusHeader, payload []byte) n2k.RawFrame {
	f := n2k.RawFrame{Time: t, Header: header, Length: uint8(len(payload))}
	copy(f.Data[:], payload)
	return f
}

// fastPacketFrames splits an assembled payload into fast-packet frames.
func fastPacketFrames(t time.Time, header n2k.CanBusHeader, sequence uint8, payload []byte) []n2k.RawFrame {
	var frames []n2k.RawFrame

	first := n2k.RawFrame{Time: t, Header: header, Length: 8}
	first.Data[0] = sequence << 5
	first.Data[1] = uint8(len(payload))
	n := copy(first.Data[2:], payload)
	frames = append(frames, first)

	frameNr := uint8(1)
	for n < len(payload) {
		f := n2k.RawFrame{Time: t, Header: header, Length: 8}
		f.Data[0] = sequence<<5 | frameNr
		for i := 1; i < 8; i++ {
			f.Data[i] = 0xFF
		}
		n += copy(f.Data[1:], payload[n:])
		frames = append(frames, f)
		frameNr++
	}
	return frames
}

func f64(v float64) *float64 { return &v }

var positionHeader = n2k.CanBusHeader{PGN: pgn.PGNPositionRapidUpdate, Priority: 3, Source: 10, Destination: n2k.AddressGlobal}

func runRouter(t *testing.T, r *Router, device *fakeDevice) {
	t.Helper()
	require.NoError(t, r.Run(context.Background(), device))
}

func TestRouterDecodesSingleFramePosition(t *testing.T) {
	start := test_test.UTCTime(1768471200)
	clock := start
	vessel := monitor.NewVessel(monitor.VesselConfig{})
	sink := &captureSink{}

	payload := pgn.PositionRapidUpdate{LatitudeDeg: f64(43.630142), LongitudeDeg: f64(10.293372)}.Encode()
	device := &fakeDevice{
		clock:  &clock,
		frames: []n2k.RawFrame{singleFrame(start, positionHeader, payload)},
	}

	r := New(Config{Vessel: vessel, Sinks: []broadcast.Sink{sink}})
	r.now = func() time.Time { return clock }
	runRouter(t, r, device)

	require.NotNil(t, vessel.Position())
	assert.InDelta(t, 43.630142, vessel.Position().LatitudeDeg, 1e-6)
	assert.InDelta(t, 10.293372, vessel.Position().LongitudeDeg, 1e-6)

	messages := sink.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "PositionRapidUpdate", messages[0].MessageType())
	assert.Equal(t, uint8(10), messages[0].CanHeader().Source)
}

func TestRouterReassemblesFastPacketGnss(t *testing.T) {
	start := test_test.UTCTime(1768471200)
	clock := start
	vessel := monitor.NewVessel(monitor.VesselConfig{})
	sink := &captureSink{}

	utc := start
	payload := pgn.GnssPositionData{
		UTC: &utc, LatitudeDeg: f64(43.630142), LongitudeDeg: f64(10.293372), AltitudeM: f64(2.5), Method: 1,
	}.Encode()
	header := n2k.CanBusHeader{PGN: pgn.PGNGnssPositionData, Priority: 3, Source: 11, Destination: n2k.AddressGlobal}

	device := &fakeDevice{
		clock:  &clock,
		frames: fastPacketFrames(start, header, 2, payload),
	}

	r := New(Config{Vessel: vessel, Sinks: []broadcast.Sink{sink}})
	r.now = func() time.Time { return clock }
	runRouter(t, r, device)

	require.NotNil(t, vessel.Position())
	assert.InDelta(t, 43.630142, vessel.Position().LatitudeDeg, 1e-6)

	// seven frames, exactly one decoded message
	messages := sink.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "GnssPositionData", messages[0].MessageType())
}

func TestRouterSourceFilter(t *testing.T) {
	start := test_test.UTCTime(1768471200)
	clock := start
	vessel := monitor.NewVessel(monitor.VesselConfig{})
	sink := &captureSink{}

	payload := pgn.PositionRapidUpdate{LatitudeDeg: f64(43.630142), LongitudeDeg: f64(10.293372)}.Encode()
	badSource := positionHeader
	badSource.Source = 99

	device := &fakeDevice{
		clock:  &clock,
		frames: []n2k.RawFrame{singleFrame(start, badSource, payload)},
	}

	r := New(Config{
		Filter: NewSourceFilter(map[uint32]uint8{pgn.PGNPositionRapidUpdate: 10}),
		Vessel: vessel,
		Sinks:  []broadcast.Sink{sink},
	})
	r.now = func() time.Time { return clock }
	runRouter(t, r, device)

	// the message was filtered before monitor dispatch but still broadcast
	assert.Nil(t, vessel.Position())
	assert.Len(t, sink.Messages(), 1)
}

func TestRouterGateSuppressesPersistence(t *testing.T) {
	start := test_test.UTCTime(1768471200)
	clock := start

	store, err := storage.Open(filepath.Join(t.TempDir(), "n2k-test.db"))
	require.NoError(t, err)
	defer store.Close()

	gate := monitor.NewTimeSyncGate(500*time.Millisecond, nil)
	vessel := monitor.NewVessel(monitor.VesselConfig{IntervalUnderway: 30 * time.Second})
	trips := trip.NewAggregator(nil, nil)

	systemTimeHeader := n2k.CanBusHeader{PGN: pgn.PGNSystemTime, Priority: 3, Source: 3, Destination: n2k.AddressGlobal}
	systemTimeFrame := func(at time.Time, skew time.Duration) n2k.RawFrame {
		busTime := at.Add(skew)
		return singleFrame(at, systemTimeHeader, pgn.SystemTime{UTC: &busTime}.Encode())
	}

	device := &fakeDevice{
		clock: &clock,
		frames: []n2k.RawFrame{
			// skew 800 ms: gate closes, the first emission is suppressed
			systemTimeFrame(start, 800*time.Millisecond),
			systemTimeFrame(start.Add(31*time.Second), 800*time.Millisecond),
			// skew back to 100 ms: gate opens, the next emission persists
			systemTimeFrame(start.Add(62*time.Second), 100*time.Millisecond),
			systemTimeFrame(start.Add(93*time.Second), 100*time.Millisecond),
		},
	}

	r := New(Config{
		Gate:      gate,
		Vessel:    vessel,
		Trips:     trips,
		Persister: storage.NewPersister(store, nil),
	})
	r.now = func() time.Time { return clock }
	runRouter(t, r, device)

	count, err := store.StatusCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count, "emissions at 62 s and 93 s persisted, the one at 31 s was gated")

	open, err := store.LoadOpenTrip()
	require.NoError(t, err)
	require.NotNil(t, open)
	// the trip kept accounting in memory while the gate was closed
	assert.Equal(t, int64(93000), open.MsSailing)
}

func TestRouterReassemblyErrorDoesNotStopIngestion(t *testing.T) {
	start := test_test.UTCTime(1768471200)
	clock := start
	vessel := monitor.NewVessel(monitor.VesselConfig{})

	header := n2k.CanBusHeader{PGN: pgn.PGNGnssPositionData, Priority: 3, Source: 11, Destination: n2k.AddressGlobal}
	orphan := n2k.RawFrame{Time: start, Header: header, Length: 8}
	orphan.Data[0] = 2<<5 | 3 // continuation without a first frame

	payload := pgn.PositionRapidUpdate{LatitudeDeg: f64(43.630142), LongitudeDeg: f64(10.293372)}.Encode()

	device := &fakeDevice{
		clock: &clock,
		frames: []n2k.RawFrame{
			orphan,
			singleFrame(start.Add(time.Second), positionHeader, payload),
		},
	}

	r := New(Config{Vessel: vessel})
	r.now = func() time.Time { return clock }
	runRouter(t, r, device)

	require.NotNil(t, vessel.Position())
}
