// Package serialgw reads CAN frames from a serial gateway that emits one
// frame per line in the plain-text format
//
//	prio,pgn,src,dst,len,b0,b1,...
//
// for example: 3,129025,10,255,8,6c,54,01,1a,58,a6,22,06
package serialgw

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tarm/serial"

	n2k "github.com/seatrack/n2krouter"
)

type Config struct {
	// ReceiveDataTimeout limits how long a read can return no complete line
	// before the device reports n2k.ErrReadTimeout. This is different from
	// the underlying serial read timeout which has to stay small so context
	// cancellation is noticed.
	ReceiveDataTimeout time.Duration
	LogFunc            func(format string, a ...any)
}

// Device implements n2k.RawFrameReader on top of a serial port (or any
// ReadWriteCloser).
type Device struct {
	device io.ReadWriteCloser
	// open reopens the underlying port on Initialize. Absent when the caller
	// handed over an already open ReadWriteCloser.
	open   func() (io.ReadWriteCloser, error)
	config Config

	buffer  []byte
	pending []n2k.RawFrame

	timeNow func() time.Time
}

// NewDevice wraps an already open port or stream.
func NewDevice(device io.ReadWriteCloser, config Config) *Device {
	d := newDevice(config)
	d.device = device
	return d
}

// NewPortDevice opens the serial port on Initialize so an absent gateway can
// be reopened later. The serial read timeout stays small so context
// cancellation is noticed during reads.
func NewPortDevice(path string, baudRate int, config Config) *Device {
	d := newDevice(config)
	d.open = func() (io.ReadWriteCloser, error) {
		return serial.OpenPort(&serial.Config{
			Name:        path,
			Baud:        baudRate,
			ReadTimeout: 100 * time.Millisecond,
		})
	}
	return d
}

func newDevice(config Config) *Device {
	if config.ReceiveDataTimeout == 0 {
		config.ReceiveDataTimeout = 5 * time.Second
	}
	if config.LogFunc == nil {
		config.LogFunc = func(format string, a ...any) {}
	}
	return &Device{
		config:  config,
		buffer:  make([]byte, 0, 256),
		timeNow: time.Now,
	}
}

func (d *Device) Initialize() error {
	if d.open == nil {
		return nil
	}
	port, err := d.open()
	if err != nil {
		return err
	}
	d.device = port
	d.buffer = d.buffer[:0]
	d.pending = nil
	return nil
}

func (d *Device) Close() error {
	if d.device == nil {
		return nil
	}
	err := d.device.Close()
	d.device = nil
	return err
}

// ReadRawFrame returns the next frame parsed from the serial stream.
func (d *Device) ReadRawFrame(ctx context.Context) (n2k.RawFrame, error) {
	start := d.timeNow()
	readBuffer := make([]byte, 128)
	for {
		select {
		case <-ctx.Done():
			return n2k.RawFrame{}, ctx.Err()
		default:
		}
		if len(d.pending) > 0 {
			frame := d.pending[0]
			d.pending = d.pending[1:]
			return frame, nil
		}

		n, err := d.device.Read(readBuffer)
		if err != nil && err != io.EOF {
			return n2k.RawFrame{}, err
		}
		if n == 0 {
			if err == io.EOF {
				return n2k.RawFrame{}, io.EOF
			}
			// serial read timeout tick
			if d.timeNow().Sub(start) > d.config.ReceiveDataTimeout {
				return n2k.RawFrame{}, n2k.ErrReadTimeout
			}
			continue
		}
		d.buffer = append(d.buffer, readBuffer[:n]...)
		d.drainLines()
	}
}

func (d *Device) drainLines() {
	for {
		idx := bytes.IndexByte(d.buffer, '\n')
		if idx < 0 {
			return
		}
		line := strings.TrimSpace(string(d.buffer[:idx]))
		d.buffer = d.buffer[idx+1:]
		if line == "" {
			continue
		}
		frame, err := d.parseLine(line)
		if err != nil {
			d.config.LogFunc("serialgw: skipping malformed line: %v", err)
			continue
		}
		d.pending = append(d.pending, frame)
	}
}

func (d *Device) parseLine(line string) (n2k.RawFrame, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 6 {
		return n2k.RawFrame{}, fmt.Errorf("invalid frame line: %q", line)
	}
	priority, err := parseUint8(parts[0], 7, "priority")
	if err != nil {
		return n2k.RawFrame{}, err
	}
	pgn, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return n2k.RawFrame{}, fmt.Errorf("failed to parse PGN: %w", err)
	}
	src, err := parseUint8(parts[2], 255, "src")
	if err != nil {
		return n2k.RawFrame{}, err
	}
	dst, err := parseUint8(parts[3], 255, "dst")
	if err != nil {
		return n2k.RawFrame{}, err
	}
	dataLen, err := parseUint8(parts[4], 8, "len")
	if err != nil {
		return n2k.RawFrame{}, err
	}
	if int(dataLen) != len(parts)-5 {
		return n2k.RawFrame{}, fmt.Errorf("frame line length mismatch: %q", line)
	}

	frame := n2k.RawFrame{
		Time: d.timeNow(),
		Header: n2k.CanBusHeader{
			PGN:         uint32(pgn),
			Priority:    priority,
			Source:      src,
			Destination: dst,
		},
		Length: dataLen,
	}
	for i := 0; i < int(dataLen); i++ {
		b, err := strconv.ParseUint(parts[5+i], 16, 8)
		if err != nil {
			return n2k.RawFrame{}, fmt.Errorf("failed to decode hex data: %w", err)
		}
		frame.Data[i] = uint8(b)
	}
	return frame, nil
}

func parseUint8(raw string, max uint64, name string) (uint8, error) {
	n, err := strconv.ParseUint(raw, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %v: %w", name, err)
	}
	if n > max {
		return 0, fmt.Errorf("invalid %v: %v", name, n)
	}
	return uint8(n), nil
}
