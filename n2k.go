package n2k

import (
	"time"
)

// FastRawPacketMaxSize is maximum size of fast packet multiple packets total length.
//
// NMEA 2000 uses the 8 'data' bytes as follows: data[0] is divided into 3 bits of
// sequence counter and 5 bits of frame index. The first frame carries the total
// length in data[1] and 6 bytes of payload, every following frame 7 bytes.
// Since the max frame index is 31, the maximal payload is 6 + 31 * 7 = 223 bytes.
const FastRawPacketMaxSize = 223

const (
	// AddressGlobal is broadcast destination address (all nodes on bus)
	AddressGlobal uint8 = 255
	// AddressNull is address of node that does not have (yet) an address claimed
	AddressNull uint8 = 254
)

// RawFrame is a single CAN frame read from the bus. Fast-packet PGNs span
// multiple RawFrames and are assembled into a RawMessage before decoding.
type RawFrame struct {
	// Time is when frame was read from the bus. Filled by the device.
	Time   time.Time
	Header CanBusHeader
	Length uint8
	Data   [8]byte
}

// RawMessage is a complete NMEA message. For single-frame PGNs it carries the
// frame payload byte-for-byte, for fast-packet PGNs the assembled payload.
type RawMessage struct {
	// Time is when the last contributing frame was read from the bus.
	Time   time.Time
	Header CanBusHeader
	Data   []byte
}
