package socketcan

import (
	"context"
	"errors"
	"time"

	n2k "github.com/seatrack/n2krouter"
)

// readBlockTimeout bounds a single read so the caller wakes up to run its
// periodic work and to notice context cancellation.
const readBlockTimeout = 500 * time.Millisecond

type Config struct {
	// InterfaceName is the SocketCAN interface name. For example: can0
	InterfaceName string
	LogFunc       func(format string, a ...any)
}

// Device is a SocketCAN frame source implementing n2k.RawFrameReader.
type Device struct {
	conn    *Connection
	config  Config
	timeNow func() time.Time
}

func NewDevice(config Config) *Device {
	if config.LogFunc == nil {
		config.LogFunc = func(format string, a ...any) {}
	}
	return &Device{
		config:  config,
		timeNow: time.Now,
	}
}

func (d *Device) Initialize() error {
	conn, err := NewConnection(d.config.InterfaceName)
	if err != nil {
		return err
	}
	if err := conn.SetReadTimeout(readBlockTimeout); err != nil {
		conn.Close()
		return err
	}
	d.conn = conn
	d.config.LogFunc("socketcan: listening on %v", d.config.InterfaceName)
	return nil
}

func (d *Device) Close() error {
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}

// ReadRawFrame reads the next frame. It returns n2k.ErrReadTimeout when the
// bus stayed silent for the read timeout.
func (d *Device) ReadRawFrame(ctx context.Context) (n2k.RawFrame, error) {
	select {
	case <-ctx.Done():
		return n2k.RawFrame{}, ctx.Err()
	default:
	}
	frame, err := d.conn.ReadRawFrame()
	if err != nil {
		if errors.Is(err, n2k.ErrReadTimeout) {
			return n2k.RawFrame{}, n2k.ErrReadTimeout
		}
		return n2k.RawFrame{}, err
	}
	return frame, nil
}
