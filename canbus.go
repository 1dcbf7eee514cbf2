package n2k

import (
	"errors"
)

// ErrMalformedIdentifier is returned when a CAN identifier does not fit into
// the 29 bits of the extended frame format.
var ErrMalformedIdentifier = errors.New("CAN identifier exceeds 29 bits")

// CanBusHeader is the decoded form of a 29-bit extended CAN identifier:
// 3 bits of priority, PGN decoded per J1939 PDU1/PDU2 rules and 8 bits of
// source address.
type CanBusHeader struct {
	PGN         uint32 `json:"pgn"`
	Priority    uint8  `json:"priority"`
	Source      uint8  `json:"source"`
	Destination uint8  `json:"destination"`
}

// Uint32 packs the header back into a 29-bit CAN identifier.
func (h CanBusHeader) Uint32() uint32 {
	canID := uint32(h.Source) // bit 0-7

	pf := uint8(h.PGN >> 8)
	if pf < 240 {
		canID |= uint32(h.Destination) << 8 // bits 8-15
	}
	canID |= h.PGN << 8                        // bits 8-25
	canID = canID | uint32(h.Priority&0x7)<<26 // bit 26,27,28
	return canID
}

// ParseCANID parses can bus header fields from a 29-bit CAN identifier.
//
// J1939 PDU rule: when the PDU-format byte is below 240 the message is
// addressed, PGN is PF<<8 and the PDU-specific byte is the destination
// address. Otherwise the message is a broadcast and PS is part of the PGN.
func ParseCANID(canID uint32) (CanBusHeader, error) {
	if canID > 0x1FFFFFFF {
		return CanBusHeader{}, ErrMalformedIdentifier
	}
	result := CanBusHeader{
		Priority: uint8((canID >> 26) & 0x7), // bit 26,27,28
		Source:   uint8(canID),               // bit 0-7
	}
	ps := uint8(canID >> 8)         // bits 8-15
	pduFormat := uint8(canID >> 16) // bits 16-23
	rAndDP := uint8(canID>>24) & 3  // bits 24,25
	pgn := (uint32(rAndDP) << 16) + uint32(pduFormat)<<8
	if pduFormat < 240 {
		result.Destination = ps
		result.PGN = pgn
	} else {
		result.Destination = AddressGlobal // 0xff is broadcast to all
		result.PGN = pgn + uint32(ps)
	}
	return result, nil
}
