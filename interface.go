package n2k

import (
	"context"
	"errors"
)

// ErrReadTimeout is returned by devices when no frame arrived within the read
// timeout. The caller is expected to run its periodic work and read again.
var ErrReadTimeout = errors.New("read timeout")

// RawFrameReader is a CAN device supplying individual frames. Reads block at
// most for the device read timeout so callers can interleave periodic work.
type RawFrameReader interface {
	ReadRawFrame(ctx context.Context) (RawFrame, error)
	Initialize() error
	Close() error
}
