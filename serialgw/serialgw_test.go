package serialgw

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	n2k "github.com/seatrack/n2krouter"
	test_test "github.com/seatrack/n2krouter/test"
)

// fakePort hands out the given chunks one Read at a time, then io.EOF. This
// mimics a serial port delivering a line in pieces.
type fakePort struct {
	chunks [][]byte
	closed bool
}

func newFakePort(chunks ...string) *fakePort {
	f := &fakePort{}
	for _, c := range chunks {
		f.chunks = append(f.chunks, []byte(c))
	}
	return f
}

func (f *fakePort) Read(p []byte) (int, error) {
	if len(f.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, f.chunks[0])
	if n == len(f.chunks[0]) {
		f.chunks = f.chunks[1:]
	} else {
		f.chunks[0] = f.chunks[0][n:]
	}
	return n, nil
}

func (f *fakePort) Write(p []byte) (int, error) { return len(p), nil }

func (f *fakePort) Close() error {
	f.closed = true
	return nil
}

func TestDeviceReadsFramesFromLines(t *testing.T) {
	now := test_test.UTCTime(1768471200)
	port := newFakePort("3,129025,10,255,8,6c,6e,01,1a,d8,a4,22,06\n2,130306,15,255,8,ff,e8,03,5c,3d,fa,ff,ff\n")
	d := NewDevice(port, Config{})
	d.timeNow = func() time.Time { return now }

	frame, err := d.ReadRawFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, n2k.RawFrame{
		Time:   now,
		Header: n2k.CanBusHeader{PGN: 129025, Priority: 3, Source: 10, Destination: 255},
		Length: 8,
		Data:   [8]byte{0x6C, 0x6E, 0x01, 0x1A, 0xD8, 0xA4, 0x22, 0x06},
	}, frame)

	frame, err = d.ReadRawFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(130306), frame.Header.PGN)
	assert.Equal(t, uint8(15), frame.Header.Source)

	_, err = d.ReadRawFrame(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestDeviceSkipsMalformedLines(t *testing.T) {
	var logged int
	port := newFakePort("garbage\n3,129025,10,255,8,6c\n3,129025,10,255,8,6c,6e,01,1a,d8,a4,22,06\n")
	d := NewDevice(port, Config{
		LogFunc: func(format string, a ...any) { logged++ },
	})

	frame, err := d.ReadRawFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(129025), frame.Header.PGN)
	assert.Equal(t, 2, logged)
}

func TestDevicePartialLineAcrossReads(t *testing.T) {
	// the line arrives in two chunks: nothing is emitted until the newline
	port := newFakePort("3,129025,10,", "255,8,6c,6e,01,1a,d8,a4,22,06\n")
	d := NewDevice(port, Config{})

	frame, err := d.ReadRawFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(129025), frame.Header.PGN)
	assert.Empty(t, d.pending)
}

func TestDeviceCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDevice(newFakePort(""), Config{})

	_, err := d.ReadRawFrame(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDeviceClose(t *testing.T) {
	port := newFakePort("")
	d := NewDevice(port, Config{})

	require.NoError(t, d.Close())
	assert.True(t, port.closed)
}

func TestParseLineValidation(t *testing.T) {
	d := NewDevice(newFakePort(""), Config{})

	var testCases = []struct {
		name string
		when string
	}{
		{name: "nok, too few fields", when: "3,129025,10"},
		{name: "nok, priority out of range", when: "9,129025,10,255,1,6c"},
		{name: "nok, length mismatch", when: "3,129025,10,255,3,6c"},
		{name: "nok, bad hex", when: "3,129025,10,255,1,zz"},
		{name: "nok, length over 8", when: "3,129025,10,255,9,01,02,03,04,05,06,07,08,09"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.parseLine(tc.when)
			assert.Error(t, err)
		})
	}
}
