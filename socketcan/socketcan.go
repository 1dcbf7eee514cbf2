// Package socketcan reads raw CAN frames from a Linux SocketCAN interface.
package socketcan

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	n2k "github.com/seatrack/n2krouter"
)

const (
	canRaw = 1

	// canIDERRFlag is bit 29 in CAN ID and means ERR error message flag (0 = data frame, 1 = error message)
	canIDERRFlag = uint32(1 << 29)
	// canIDRTRFlag is bit 30 in CAN ID and means RTR remote transmission request (1 = rtr frame)
	canIDRTRFlag = uint32(1 << 30)
	// canIDMask extracts the 29 identifier bits from the socketCAN id field
	canIDMask = uint32(1<<29) - 1
)

// Connection is a bound raw CAN socket.
type Connection struct {
	socketFD int
	timeNow  func() time.Time
}

func NewConnection(ifName string) (*Connection, error) {
	ifi, err := net.InterfaceByName(ifName)
	if err != nil {
		return nil, fmt.Errorf("bad CAN interface name: %w", err)
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, canRaw)
	if err != nil {
		return nil, fmt.Errorf("could not create CAN socket: %w", err)
	}

	addr := &unix.SockaddrCAN{Ifindex: ifi.Index}
	if err = unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("could not bind CAN socket: %w", err)
	}

	return &Connection{
		socketFD: fd,
		timeNow:  time.Now,
	}, nil
}

func isContinuableSocketErr(err error) bool {
	// EWOULDBLOCK - with SO_RCVTIMEO set a receive returns EWOULDBLOCK when
	// the timeout elapses while no input data becomes available.
	// EINTR - a signal during a blocking operation makes it return failure,
	// do nothing, and set errno to EINTR.
	return err == syscall.EWOULDBLOCK || err == syscall.EINTR
}

// SetReadTimeout limits how long a single ReadRawFrame call can block.
func (c Connection) SetReadTimeout(timeout time.Duration) error {
	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	return unix.SetsockoptTimeval(c.socketFD, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
}

func (c Connection) Close() error {
	return unix.Close(c.socketFD)
}

// ReadRawFrame reads a single frame from the socket.
func (c Connection) ReadRawFrame() (n2k.RawFrame, error) {
	// CAN frame structure: https://github.com/linux-can/can-utils/blob/master/include/linux/can.h
	// bits 0-28 CAN ID, bit 29 ERR, bit 30 RTR, bit 31 EFF; byte 4 is data length
	canFrame := make([]byte, 16)
	_, err := unix.Read(c.socketFD, canFrame)
	if err != nil {
		if isContinuableSocketErr(err) {
			return n2k.RawFrame{}, n2k.ErrReadTimeout
		}
		return n2k.RawFrame{}, err
	}
	canID := binary.LittleEndian.Uint32(canFrame[0:4])
	if canID&canIDRTRFlag != 0 {
		return n2k.RawFrame{}, errors.New("read CAN remote transmission request frame")
	} else if canID&canIDERRFlag != 0 {
		return n2k.RawFrame{}, errors.New("read CAN error message frame")
	}

	header, err := n2k.ParseCANID(canID & canIDMask)
	if err != nil {
		return n2k.RawFrame{}, err
	}
	f := n2k.RawFrame{
		Time:   c.timeNow(),
		Header: header,
		Length: canFrame[4],
	}
	if f.Length > 8 {
		return n2k.RawFrame{}, fmt.Errorf("read CAN frame with invalid length: %v", f.Length)
	}
	copy(f.Data[:], canFrame[8:8+f.Length])

	return f, nil
}
