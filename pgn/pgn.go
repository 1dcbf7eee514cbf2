// Package pgn implements typed decoders for the supported set of NMEA2000
// parameter groups. Anything outside the set decodes to Unknown.
package pgn

import (
	"time"

	n2k "github.com/seatrack/n2krouter"
)

const (
	PGNSystemTime           uint32 = 126992
	PGNVesselHeading        uint32 = 127250
	PGNRateOfTurn           uint32 = 127251
	PGNAttitude             uint32 = 127257
	PGNEngineRapidUpdate    uint32 = 127488
	PGNSpeedWaterReferenced uint32 = 128259
	PGNWaterDepth           uint32 = 128267
	PGNPositionRapidUpdate  uint32 = 129025
	PGNCogSogRapidUpdate    uint32 = 129026
	PGNGnssPositionData     uint32 = 129029
	PGNWindData             uint32 = 130306
	PGNTemperature          uint32 = 130312
	PGNHumidity             uint32 = 130313
	PGNActualPressure       uint32 = 130314
)

// fastPacketPGNs lists PGNs that are transferred with the fast-packet
// protocol. Everything else on the bus is single-frame.
var fastPacketPGNs = []uint32{
	126464, // PGN List
	126996, // Product Information
	126998, // Configuration Information
	PGNGnssPositionData,
	129284, // Navigation Data
	129285, // Route/WP Information
	129540, // GNSS Sats in View
	129794, // AIS Class A Static and Voyage Related Data
	129809, // AIS Class B static data (msg 24 Part A)
	129810, // AIS Class B static data (msg 24 Part B)
	130074, // Route and WP Service - WP List
	130323, // Meteorological Station Data
	130577, // Direction Data
}

// FastPacketPGNs returns the static fast-packet classification table.
func FastPacketPGNs() []uint32 {
	return append([]uint32{}, fastPacketPGNs...)
}

// Info carries bus metadata shared by every decoded message.
type Info struct {
	Header n2k.CanBusHeader `json:"-"`
	Time   time.Time        `json:"-"`
}

func (i Info) CanHeader() n2k.CanBusHeader { return i.Header }
func (i Info) Received() time.Time         { return i.Time }

// Message is a decoded NMEA2000 message. Consumers dispatch with a type
// switch over the concrete types in this package; adding a PGN means adding
// a type and handling it explicitly.
type Message interface {
	PGN() uint32
	MessageType() string
	CanHeader() n2k.CanBusHeader
}
