package pgn

import (
	"encoding/binary"
	"math"
	"time"
)

// Encode builds the wire payload of a message, quantizing physical values to
// the protocol's fixed-point resolution. Missing fields are written as the
// "no data" sentinel the field readers recognize (all ones for unsigned
// fields, the maximum positive value for signed fields) and reserve bytes are
// filled with ones. Used by the round-trip tests and
// by tooling that replays captured traffic.

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 0xff
	}
	return b
}

func putScaledUint16(b []byte, offset int, v *float64, resolution float64) {
	if v == nil {
		return
	}
	binary.LittleEndian.PutUint16(b[offset:], uint16(math.Round(*v/resolution)))
}

func putScaledInt16(b []byte, offset int, v *float64, resolution float64) {
	if v == nil {
		binary.LittleEndian.PutUint16(b[offset:], 0x7fff)
		return
	}
	binary.LittleEndian.PutUint16(b[offset:], uint16(int16(math.Round(*v/resolution))))
}

func putScaledUint32(b []byte, offset int, v *float64, resolution float64) {
	if v == nil {
		return
	}
	binary.LittleEndian.PutUint32(b[offset:], uint32(math.Round(*v/resolution)))
}

func putScaledInt32(b []byte, offset int, v *float64, resolution float64) {
	if v == nil {
		binary.LittleEndian.PutUint32(b[offset:], 0x7fffffff)
		return
	}
	binary.LittleEndian.PutUint32(b[offset:], uint32(int32(math.Round(*v/resolution))))
}

func putScaledInt64(b []byte, offset int, v *float64, resolution float64) {
	if v == nil {
		binary.LittleEndian.PutUint64(b[offset:], 0x7fffffffffffffff)
		return
	}
	binary.LittleEndian.PutUint64(b[offset:], uint64(int64(math.Round(*v/resolution))))
}

func putUint8(b []byte, offset int, v *uint8) {
	if v == nil {
		return
	}
	b[offset] = *v
}

func putInt8(b []byte, offset int, v *int8) {
	if v == nil {
		b[offset] = 0x7f
		return
	}
	b[offset] = uint8(*v)
}

func putDateTime(b []byte, dateOffset, timeOffset int, t *time.Time) {
	if t == nil {
		return
	}
	utc := t.UTC()
	secs := utc.Unix()
	days := secs / 86400
	midnight := days * 86400
	ticks := (utc.UnixNano() - midnight*1e9) / int64(100*time.Microsecond)
	binary.LittleEndian.PutUint16(b[dateOffset:], uint16(days))
	binary.LittleEndian.PutUint32(b[timeOffset:], uint32(ticks))
}

func (m SystemTime) Encode() []byte {
	b := payload(8)
	putUint8(b, 0, m.SID)
	b[1] = m.Source&0x0f | 0xf0
	putDateTime(b, 2, 4, m.UTC)
	return b
}

func (m VesselHeading) Encode() []byte {
	b := payload(8)
	putUint8(b, 0, m.SID)
	putScaledUint16(b, 1, m.HeadingRad, resAngleRad)
	putScaledInt16(b, 3, m.DeviationRad, resAngleRad)
	putScaledInt16(b, 5, m.VariationRad, resAngleRad)
	b[7] = uint8(m.Reference)&0x03 | 0xfc
	return b
}

func (m RateOfTurn) Encode() []byte {
	b := payload(8)
	putUint8(b, 0, m.SID)
	putScaledInt32(b, 1, m.RateRadPerSec, resRateOfTurn)
	return b
}

func (m Attitude) Encode() []byte {
	b := payload(8)
	putUint8(b, 0, m.SID)
	putScaledInt16(b, 1, m.YawRad, resAngleRad)
	putScaledInt16(b, 3, m.PitchRad, resAngleRad)
	putScaledInt16(b, 5, m.RollRad, resAngleRad)
	return b
}

func (m EngineRapidUpdate) Encode() []byte {
	b := payload(8)
	b[0] = m.Instance
	putScaledUint16(b, 1, m.SpeedRPM, resEngineRPM)
	putScaledUint16(b, 3, m.BoostPressurePa, resBoostPa)
	putInt8(b, 5, m.TiltTrimPct)
	return b
}

func (m SpeedWaterReferenced) Encode() []byte {
	b := payload(8)
	putUint8(b, 0, m.SID)
	putScaledUint16(b, 1, m.SpeedWaterMs, resSpeedMs)
	putScaledUint16(b, 3, m.SpeedGroundMs, resSpeedMs)
	return b
}

func (m WaterDepth) Encode() []byte {
	b := payload(8)
	putUint8(b, 0, m.SID)
	putScaledUint32(b, 1, m.DepthM, resDepthM)
	putScaledInt16(b, 5, m.OffsetM, resOffsetM)
	if m.RangeM != nil {
		b[7] = uint8(math.Round(*m.RangeM / 10))
	}
	return b
}

func (m PositionRapidUpdate) Encode() []byte {
	b := payload(8)
	putScaledInt32(b, 0, m.LatitudeDeg, resPositionDeg)
	putScaledInt32(b, 4, m.LongitudeDeg, resPositionDeg)
	return b
}

func (m CogSogRapidUpdate) Encode() []byte {
	b := payload(8)
	putUint8(b, 0, m.SID)
	b[1] = uint8(m.Reference)&0x03 | 0xfc
	putScaledUint16(b, 2, m.CogRad, resAngleRad)
	putScaledUint16(b, 4, m.SogMs, resSpeedMs)
	return b
}

func (m GnssPositionData) Encode() []byte {
	b := payload(43)
	putUint8(b, 0, m.SID)
	putDateTime(b, 1, 3, m.UTC)
	putScaledInt64(b, 7, m.LatitudeDeg, resGnssDeg)
	putScaledInt64(b, 15, m.LongitudeDeg, resGnssDeg)
	putScaledInt64(b, 23, m.AltitudeM, resAltitudeM)
	b[31] = m.Type&0x0f | m.Method<<4
	b[32] = m.Integrity&0x03 | 0xfc
	putUint8(b, 33, m.SatelliteCount)
	putScaledInt16(b, 34, m.HDOP, resDOP)
	putScaledInt16(b, 36, m.PDOP, resDOP)
	putScaledInt32(b, 38, m.GeoidalSeparationM, resDepthM)
	b[42] = 0 // no reference stations
	return b
}

func (m WindData) Encode() []byte {
	b := payload(8)
	putUint8(b, 0, m.SID)
	putScaledUint16(b, 1, m.SpeedMs, resSpeedMs)
	putScaledUint16(b, 3, m.AngleRad, resAngleRad)
	b[5] = uint8(m.Reference)&0x07 | 0xf8
	return b
}

func (m Temperature) Encode() []byte {
	b := payload(8)
	putUint8(b, 0, m.SID)
	b[1] = m.Instance
	b[2] = uint8(m.Source)
	putScaledUint16(b, 3, m.TemperatureK, resKelvin)
	putScaledUint16(b, 5, m.SetTemperatureK, resKelvin)
	return b
}

func (m Humidity) Encode() []byte {
	b := payload(8)
	putUint8(b, 0, m.SID)
	b[1] = m.Instance
	b[2] = m.Source
	putScaledInt16(b, 3, m.HumidityPct, resHumidityPct)
	putScaledInt16(b, 5, m.SetHumidityPct, resHumidityPct)
	return b
}

func (m ActualPressure) Encode() []byte {
	b := payload(8)
	putUint8(b, 0, m.SID)
	b[1] = m.Instance
	b[2] = m.Source
	putScaledInt32(b, 3, m.PressurePa, resPressurePa)
	return b
}
