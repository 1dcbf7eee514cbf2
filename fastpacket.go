package n2k

import (
	"errors"
	"time"
)

var (
	// ErrFastPacketOutOfOrder is returned when a continuation frame does not
	// match the sequence in flight for its (source, PGN) key. The buffer for
	// the key is discarded.
	ErrFastPacketOutOfOrder = errors.New("fast-packet frame out of order")
	// ErrFastPacketLengthOverflow is returned when a first frame declares a
	// length larger than FastRawPacketMaxSize.
	ErrFastPacketLengthOverflow = errors.New("fast-packet declared length overflows maximum size")
	// ErrFastPacketUnknownFormat is returned when a frame of a fast-packet PGN
	// is too short to carry the sequence/frame header.
	ErrFastPacketUnknownFormat = errors.New("fast-packet frame has unknown format")
)

// Assembler assembles RawFrames into complete RawMessages. Single-frame PGNs
// pass through with their payload byte-for-byte.
type Assembler interface {
	Assemble(frame RawFrame, to *RawMessage) (bool, error)
}

// sequenceKey identifies one in-flight fast-packet sequence. At most one
// sequence per (source, PGN) pair is collected at a time.
type sequenceKey struct {
	source uint8
	pgn    uint32
}

type fastPacketSequence struct {
	header CanBusHeader

	lastReceivedFrameTime time.Time
	// sequence is message counter to distinguish to which message a frame
	// belongs. Range 0-7, found as upper 3 bits of the first payload byte.
	sequence uint8
	// length of data over all frames. Found as second byte of the first frame.
	length uint8
	// nextFrameNr is the frame index the sequence expects next. Frames
	// arriving with any other index invalidate the sequence.
	nextFrameNr uint8
	received    uint8
	data        [FastRawPacketMaxSize]byte
}

func (m *fastPacketSequence) remaining() uint8 {
	return m.length - m.received
}

// FastPacketAssembler converts a stream of frames into a stream of complete
// messages. Fast-packet sequences are collected strictly in frame order per
// (source, PGN) key; a first frame always supersedes an in-flight sequence.
type FastPacketAssembler struct {
	// pgns is the set of PGNs that are transferred as fast-packet frames and
	// should be assembled to a RawMessage
	pgns       map[uint32]struct{}
	inTransfer map[sequenceKey]*fastPacketSequence

	// evictAfter discards partial sequences that have not seen a frame for
	// this long, bounding the table to the active keys on the bus.
	evictAfter time.Duration
	now        func() time.Time
}

func NewFastPacketAssembler(fpPGNs []uint32) *FastPacketAssembler {
	pgns := make(map[uint32]struct{}, len(fpPGNs))
	for _, pgn := range fpPGNs {
		pgns[pgn] = struct{}{}
	}
	return &FastPacketAssembler{
		pgns:       pgns,
		inTransfer: make(map[sequenceKey]*fastPacketSequence, 10),

		evictAfter: 1 * time.Second,
		now:        time.Now,
	}
}

// Assemble feeds a frame into the assembler. It returns true when `to` now
// holds a complete message. Errors are recoverable: the affected key has been
// reset and the assembler continues with the next frame.
func (a *FastPacketAssembler) Assemble(frame RawFrame, to *RawMessage) (bool, error) {
	if _, ok := a.pgns[frame.Header.PGN]; !ok {
		if cap(to.Data) < int(frame.Length) {
			to.Data = make([]byte, frame.Length)
		}
		to.Data = to.Data[:frame.Length]
		copy(to.Data, frame.Data[0:frame.Length])
		to.Time = frame.Time
		to.Header = frame.Header
		return true, nil
	}

	a.evictStale(frame.Time)

	if frame.Length < 2 {
		return false, ErrFastPacketUnknownFormat
	}
	sequence := frame.Data[0] >> 5          // upper 3 bits
	frameNr := frame.Data[0] & 0b0001_1111 // lower 5 bits

	key := sequenceKey{source: frame.Header.Source, pgn: frame.Header.PGN}
	fp, collecting := a.inTransfer[key]

	if frameNr == 0 {
		// first frame declares the length and carries up to 6 bytes of data.
		// An in-flight sequence for the key is superseded: newer wins.
		length := frame.Data[1]
		if int(length) > FastRawPacketMaxSize {
			delete(a.inTransfer, key)
			return false, ErrFastPacketLengthOverflow
		}
		if !collecting {
			fp = &fastPacketSequence{}
			a.inTransfer[key] = fp
		}
		*fp = fastPacketSequence{
			header:                frame.Header,
			lastReceivedFrameTime: frame.Time,
			sequence:              sequence,
			length:                length,
			nextFrameNr:           1,
		}
		n := int(length)
		if n > 6 {
			n = 6
		}
		copy(fp.data[:n], frame.Data[2:2+n])
		fp.received = uint8(n)
	} else {
		if !collecting || fp.sequence != sequence || frameNr != fp.nextFrameNr {
			delete(a.inTransfer, key)
			return false, ErrFastPacketOutOfOrder
		}
		n := fp.remaining()
		if n > 7 {
			n = 7
		}
		start := fp.received
		copy(fp.data[start:start+n], frame.Data[1:1+n])
		fp.received += n
		fp.nextFrameNr++
		fp.lastReceivedFrameTime = frame.Time
	}

	if fp.received < fp.length {
		return false, nil
	}

	to.Time = fp.lastReceivedFrameTime
	to.Header = fp.header
	if cap(to.Data) < int(fp.length) {
		to.Data = make([]byte, fp.length)
	}
	to.Data = to.Data[:fp.length]
	copy(to.Data, fp.data[0:fp.length])
	delete(a.inTransfer, key)
	return true, nil
}

// evictStale measures idle time against the time of the incoming frame, so
// replayed traffic is evicted on its own clock.
func (a *FastPacketAssembler) evictStale(frameTime time.Time) {
	if len(a.inTransfer) == 0 {
		return
	}
	threshold := frameTime.Add(-a.evictAfter)
	for key, fp := range a.inTransfer {
		if fp.lastReceivedFrameTime.Before(threshold) {
			delete(a.inTransfer, key)
		}
	}
}
