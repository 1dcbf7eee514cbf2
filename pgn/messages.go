package pgn

import (
	"time"
)

// DirectionReference tells whether an angle is relative to true or magnetic
// north.
type DirectionReference uint8

const (
	DirectionTrue     DirectionReference = 0
	DirectionMagnetic DirectionReference = 1
)

func (r DirectionReference) String() string {
	switch r {
	case DirectionTrue:
		return "True"
	case DirectionMagnetic:
		return "Magnetic"
	}
	return "Unknown"
}

// WindReference tells how the wind measurement relates to the vessel.
type WindReference uint8

const (
	WindReferenceTrueNorth WindReference = 0
	WindReferenceMagnetic  WindReference = 1
	WindReferenceApparent  WindReference = 2
	WindReferenceTrueBoat  WindReference = 3
	WindReferenceTrueWater WindReference = 4
)

func (r WindReference) String() string {
	switch r {
	case WindReferenceTrueNorth:
		return "True (ground referenced to North)"
	case WindReferenceMagnetic:
		return "Magnetic (ground referenced to Magnetic North)"
	case WindReferenceApparent:
		return "Apparent"
	case WindReferenceTrueBoat:
		return "True (boat referenced)"
	case WindReferenceTrueWater:
		return "True (water referenced)"
	}
	return "Unknown"
}

// TemperatureSource identifies what a temperature reading measures.
type TemperatureSource uint8

const (
	TemperatureSourceSea           TemperatureSource = 0
	TemperatureSourceOutside       TemperatureSource = 1
	TemperatureSourceInside        TemperatureSource = 2
	TemperatureSourceEngineRoom    TemperatureSource = 3
	TemperatureSourceMainCabin     TemperatureSource = 4
	TemperatureSourceLiveWell      TemperatureSource = 5
	TemperatureSourceBaitWell      TemperatureSource = 6
	TemperatureSourceRefrigeration TemperatureSource = 7
	TemperatureSourceHeatingSystem TemperatureSource = 8
	TemperatureSourceDewPoint      TemperatureSource = 9
)

// SystemTime (PGN 126992) distributes the bus UTC time.
type SystemTime struct {
	Info
	SID    *uint8     `json:"sid,omitempty"`
	Source uint8      `json:"source"`
	UTC    *time.Time `json:"utc,omitempty"`
}

func (SystemTime) PGN() uint32         { return PGNSystemTime }
func (SystemTime) MessageType() string { return "SystemTime" }

// VesselHeading (PGN 127250).
type VesselHeading struct {
	Info
	SID          *uint8             `json:"sid,omitempty"`
	HeadingRad   *float64           `json:"heading_rad,omitempty"`
	DeviationRad *float64           `json:"deviation_rad,omitempty"`
	VariationRad *float64           `json:"variation_rad,omitempty"`
	Reference    DirectionReference `json:"reference"`
}

func (VesselHeading) PGN() uint32         { return PGNVesselHeading }
func (VesselHeading) MessageType() string { return "VesselHeading" }

// RateOfTurn (PGN 127251).
type RateOfTurn struct {
	Info
	SID           *uint8   `json:"sid,omitempty"`
	RateRadPerSec *float64 `json:"rate_rad_per_sec,omitempty"`
}

func (RateOfTurn) PGN() uint32         { return PGNRateOfTurn }
func (RateOfTurn) MessageType() string { return "RateOfTurn" }

// Attitude (PGN 127257).
type Attitude struct {
	Info
	SID      *uint8   `json:"sid,omitempty"`
	YawRad   *float64 `json:"yaw_rad,omitempty"`
	PitchRad *float64 `json:"pitch_rad,omitempty"`
	RollRad  *float64 `json:"roll_rad,omitempty"`
}

func (Attitude) PGN() uint32         { return PGNAttitude }
func (Attitude) MessageType() string { return "Attitude" }

// EngineRapidUpdate (PGN 127488).
type EngineRapidUpdate struct {
	Info
	Instance        uint8    `json:"instance"`
	SpeedRPM        *float64 `json:"speed_rpm,omitempty"`
	BoostPressurePa *float64 `json:"boost_pressure_pa,omitempty"`
	TiltTrimPct     *int8    `json:"tilt_trim_pct,omitempty"`
}

func (EngineRapidUpdate) PGN() uint32         { return PGNEngineRapidUpdate }
func (EngineRapidUpdate) MessageType() string { return "EngineRapidUpdate" }

// SpeedWaterReferenced (PGN 128259).
type SpeedWaterReferenced struct {
	Info
	SID           *uint8   `json:"sid,omitempty"`
	SpeedWaterMs  *float64 `json:"speed_water_ms,omitempty"`
	SpeedGroundMs *float64 `json:"speed_ground_ms,omitempty"`
}

func (SpeedWaterReferenced) PGN() uint32         { return PGNSpeedWaterReferenced }
func (SpeedWaterReferenced) MessageType() string { return "SpeedWaterReferenced" }

// WaterDepth (PGN 128267). Depth is below transducer, offset relates the
// transducer to the waterline (positive) or to the keel (negative).
type WaterDepth struct {
	Info
	SID     *uint8   `json:"sid,omitempty"`
	DepthM  *float64 `json:"depth_m,omitempty"`
	OffsetM *float64 `json:"offset_m,omitempty"`
	RangeM  *float64 `json:"range_m,omitempty"`
}

func (WaterDepth) PGN() uint32         { return PGNWaterDepth }
func (WaterDepth) MessageType() string { return "WaterDepth" }

// PositionRapidUpdate (PGN 129025).
type PositionRapidUpdate struct {
	Info
	LatitudeDeg  *float64 `json:"latitude_deg,omitempty"`
	LongitudeDeg *float64 `json:"longitude_deg,omitempty"`
}

func (PositionRapidUpdate) PGN() uint32         { return PGNPositionRapidUpdate }
func (PositionRapidUpdate) MessageType() string { return "PositionRapidUpdate" }

// CogSogRapidUpdate (PGN 129026).
type CogSogRapidUpdate struct {
	Info
	SID       *uint8             `json:"sid,omitempty"`
	Reference DirectionReference `json:"reference"`
	CogRad    *float64           `json:"cog_rad,omitempty"`
	SogMs     *float64           `json:"sog_ms,omitempty"`
}

func (CogSogRapidUpdate) PGN() uint32         { return PGNCogSogRapidUpdate }
func (CogSogRapidUpdate) MessageType() string { return "CogSogRapidUpdate" }

// GnssPositionData (PGN 129029, fast-packet).
type GnssPositionData struct {
	Info
	SID                *uint8     `json:"sid,omitempty"`
	UTC                *time.Time `json:"utc,omitempty"`
	LatitudeDeg        *float64   `json:"latitude_deg,omitempty"`
	LongitudeDeg       *float64   `json:"longitude_deg,omitempty"`
	AltitudeM          *float64   `json:"altitude_m,omitempty"`
	Type               uint8      `json:"type"`
	Method             uint8      `json:"method"`
	Integrity          uint8      `json:"integrity"`
	SatelliteCount     *uint8     `json:"satellite_count,omitempty"`
	HDOP               *float64   `json:"hdop,omitempty"`
	PDOP               *float64   `json:"pdop,omitempty"`
	GeoidalSeparationM *float64   `json:"geoidal_separation_m,omitempty"`
}

func (GnssPositionData) PGN() uint32         { return PGNGnssPositionData }
func (GnssPositionData) MessageType() string { return "GnssPositionData" }

// WindData (PGN 130306).
type WindData struct {
	Info
	SID       *uint8        `json:"sid,omitempty"`
	SpeedMs   *float64      `json:"speed_ms,omitempty"`
	AngleRad  *float64      `json:"angle_rad,omitempty"`
	Reference WindReference `json:"reference"`
}

func (WindData) PGN() uint32         { return PGNWindData }
func (WindData) MessageType() string { return "WindData" }

// Temperature (PGN 130312). Temperatures are Kelvin at protocol level.
type Temperature struct {
	Info
	SID             *uint8            `json:"sid,omitempty"`
	Instance        uint8             `json:"instance"`
	Source          TemperatureSource `json:"source"`
	TemperatureK    *float64          `json:"temperature_k,omitempty"`
	SetTemperatureK *float64          `json:"set_temperature_k,omitempty"`
}

func (Temperature) PGN() uint32         { return PGNTemperature }
func (Temperature) MessageType() string { return "Temperature" }

// Humidity (PGN 130313).
type Humidity struct {
	Info
	SID            *uint8   `json:"sid,omitempty"`
	Instance       uint8    `json:"instance"`
	Source         uint8    `json:"source"`
	HumidityPct    *float64 `json:"humidity_pct,omitempty"`
	SetHumidityPct *float64 `json:"set_humidity_pct,omitempty"`
}

func (Humidity) PGN() uint32         { return PGNHumidity }
func (Humidity) MessageType() string { return "Humidity" }

// ActualPressure (PGN 130314).
type ActualPressure struct {
	Info
	SID        *uint8   `json:"sid,omitempty"`
	Instance   uint8    `json:"instance"`
	Source     uint8    `json:"source"`
	PressurePa *float64 `json:"pressure_pa,omitempty"`
}

func (ActualPressure) PGN() uint32         { return PGNActualPressure }
func (ActualPressure) MessageType() string { return "ActualPressure" }

// Unknown carries the raw payload of a PGN outside the supported set.
type Unknown struct {
	Info
	RawPGN uint32 `json:"pgn"`
	Raw    []byte `json:"raw"`
}

func (m Unknown) PGN() uint32       { return m.RawPGN }
func (Unknown) MessageType() string { return "Unknown" }
