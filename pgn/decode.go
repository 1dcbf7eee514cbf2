package pgn

import (
	"errors"

	n2k "github.com/seatrack/n2krouter"
)

// ErrShortPayload is returned when an assembled payload is too short to hold
// the fixed fields of its PGN.
var ErrShortPayload = errors.New("payload too short to decode PGN")

// Field resolutions per the NMEA2000 fixed-point encodings.
const (
	resAngleRad    = 0.0001     // rad, 16 bit angles
	resRateOfTurn  = 3.125e-08  // rad/s, 32 bit
	resSpeedMs     = 0.01       // m/s, 16 bit
	resEngineRPM   = 0.25       // rpm, 16 bit
	resBoostPa     = 100.0      // Pa, 16 bit
	resDepthM      = 0.01       // m, 32 bit
	resOffsetM     = 0.001      // m, 16 bit
	resPositionDeg = 1e-7       // deg, 32 bit lat/lon
	resGnssDeg     = 1e-16      // deg, 64 bit lat/lon
	resAltitudeM   = 1e-6       // m, 64 bit
	resKelvin      = 0.01       // K, 16 bit
	resHumidityPct = 0.004      // %, 16 bit
	resPressurePa  = 0.1        // Pa, 32 bit
	resDOP         = 0.01       // dimensionless, 16 bit
)

// Decode maps an assembled raw message to its typed representation.
// PGNs outside the supported set come back as Unknown, not as an error.
func Decode(raw n2k.RawMessage) (Message, error) {
	info := Info{Header: raw.Header, Time: raw.Time}
	switch raw.Header.PGN {
	case PGNSystemTime:
		return decodeSystemTime(info, raw.Data)
	case PGNVesselHeading:
		return decodeVesselHeading(info, raw.Data)
	case PGNRateOfTurn:
		return decodeRateOfTurn(info, raw.Data)
	case PGNAttitude:
		return decodeAttitude(info, raw.Data)
	case PGNEngineRapidUpdate:
		return decodeEngineRapidUpdate(info, raw.Data)
	case PGNSpeedWaterReferenced:
		return decodeSpeedWaterReferenced(info, raw.Data)
	case PGNWaterDepth:
		return decodeWaterDepth(info, raw.Data)
	case PGNPositionRapidUpdate:
		return decodePositionRapidUpdate(info, raw.Data)
	case PGNCogSogRapidUpdate:
		return decodeCogSogRapidUpdate(info, raw.Data)
	case PGNGnssPositionData:
		return decodeGnssPositionData(info, raw.Data)
	case PGNWindData:
		return decodeWindData(info, raw.Data)
	case PGNTemperature:
		return decodeTemperature(info, raw.Data)
	case PGNHumidity:
		return decodeHumidity(info, raw.Data)
	case PGNActualPressure:
		return decodeActualPressure(info, raw.Data)
	}
	return Unknown{
		Info:   info,
		RawPGN: raw.Header.PGN,
		Raw:    append([]byte{}, raw.Data...),
	}, nil
}

func decodeSystemTime(info Info, data []byte) (Message, error) {
	if len(data) < 8 {
		return nil, ErrShortPayload
	}
	return SystemTime{
		Info:   info,
		SID:    uint8Ptr(data, 0),
		Source: data[1] & 0x0f,
		UTC:    fieldDateTime(data, 2, 4),
	}, nil
}

func decodeVesselHeading(info Info, data []byte) (Message, error) {
	if len(data) < 8 {
		return nil, ErrShortPayload
	}
	return VesselHeading{
		Info:         info,
		SID:          uint8Ptr(data, 0),
		HeadingRad:   scaledUint16(data, 1, resAngleRad),
		DeviationRad: scaledInt16(data, 3, resAngleRad),
		VariationRad: scaledInt16(data, 5, resAngleRad),
		Reference:    DirectionReference(data[7] & 0x03),
	}, nil
}

func decodeRateOfTurn(info Info, data []byte) (Message, error) {
	if len(data) < 5 {
		return nil, ErrShortPayload
	}
	return RateOfTurn{
		Info:          info,
		SID:           uint8Ptr(data, 0),
		RateRadPerSec: scaledInt32(data, 1, resRateOfTurn),
	}, nil
}

func decodeAttitude(info Info, data []byte) (Message, error) {
	if len(data) < 7 {
		return nil, ErrShortPayload
	}
	return Attitude{
		Info:     info,
		SID:      uint8Ptr(data, 0),
		YawRad:   scaledInt16(data, 1, resAngleRad),
		PitchRad: scaledInt16(data, 3, resAngleRad),
		RollRad:  scaledInt16(data, 5, resAngleRad),
	}, nil
}

func decodeEngineRapidUpdate(info Info, data []byte) (Message, error) {
	if len(data) < 6 {
		return nil, ErrShortPayload
	}
	return EngineRapidUpdate{
		Info:            info,
		Instance:        data[0],
		SpeedRPM:        scaledUint16(data, 1, resEngineRPM),
		BoostPressurePa: scaledUint16(data, 3, resBoostPa),
		TiltTrimPct:     int8Ptr(data, 5),
	}, nil
}

func decodeSpeedWaterReferenced(info Info, data []byte) (Message, error) {
	if len(data) < 5 {
		return nil, ErrShortPayload
	}
	return SpeedWaterReferenced{
		Info:          info,
		SID:           uint8Ptr(data, 0),
		SpeedWaterMs:  scaledUint16(data, 1, resSpeedMs),
		SpeedGroundMs: scaledUint16(data, 3, resSpeedMs),
	}, nil
}

func decodeWaterDepth(info Info, data []byte) (Message, error) {
	if len(data) < 7 {
		return nil, ErrShortPayload
	}
	var rangeM *float64
	if v, ok := fieldUint8(data, 7); ok {
		r := float64(v) * 10
		rangeM = &r
	}
	return WaterDepth{
		Info:    info,
		SID:     uint8Ptr(data, 0),
		DepthM:  scaledUint32(data, 1, resDepthM),
		OffsetM: scaledInt16(data, 5, resOffsetM),
		RangeM:  rangeM,
	}, nil
}

func decodePositionRapidUpdate(info Info, data []byte) (Message, error) {
	if len(data) < 8 {
		return nil, ErrShortPayload
	}
	return PositionRapidUpdate{
		Info:         info,
		LatitudeDeg:  scaledInt32(data, 0, resPositionDeg),
		LongitudeDeg: scaledInt32(data, 4, resPositionDeg),
	}, nil
}

func decodeCogSogRapidUpdate(info Info, data []byte) (Message, error) {
	if len(data) < 6 {
		return nil, ErrShortPayload
	}
	return CogSogRapidUpdate{
		Info:      info,
		SID:       uint8Ptr(data, 0),
		Reference: DirectionReference(data[1] & 0x03),
		CogRad:    scaledUint16(data, 2, resAngleRad),
		SogMs:     scaledUint16(data, 4, resSpeedMs),
	}, nil
}

func decodeGnssPositionData(info Info, data []byte) (Message, error) {
	if len(data) < 43 {
		return nil, ErrShortPayload
	}
	return GnssPositionData{
		Info:               info,
		SID:                uint8Ptr(data, 0),
		UTC:                fieldDateTime(data, 1, 3),
		LatitudeDeg:        scaledInt64(data, 7, resGnssDeg),
		LongitudeDeg:       scaledInt64(data, 15, resGnssDeg),
		AltitudeM:          scaledInt64(data, 23, resAltitudeM),
		Type:               data[31] & 0x0f,
		Method:             data[31] >> 4,
		Integrity:          data[32] & 0x03,
		SatelliteCount:     uint8Ptr(data, 33),
		HDOP:               scaledInt16(data, 34, resDOP),
		PDOP:               scaledInt16(data, 36, resDOP),
		GeoidalSeparationM: scaledInt32(data, 38, resDepthM),
	}, nil
}

func decodeWindData(info Info, data []byte) (Message, error) {
	if len(data) < 6 {
		return nil, ErrShortPayload
	}
	return WindData{
		Info:      info,
		SID:       uint8Ptr(data, 0),
		SpeedMs:   scaledUint16(data, 1, resSpeedMs),
		AngleRad:  scaledUint16(data, 3, resAngleRad),
		Reference: WindReference(data[5] & 0x07),
	}, nil
}

func decodeTemperature(info Info, data []byte) (Message, error) {
	if len(data) < 7 {
		return nil, ErrShortPayload
	}
	return Temperature{
		Info:            info,
		SID:             uint8Ptr(data, 0),
		Instance:        data[1],
		Source:          TemperatureSource(data[2]),
		TemperatureK:    scaledUint16(data, 3, resKelvin),
		SetTemperatureK: scaledUint16(data, 5, resKelvin),
	}, nil
}

func decodeHumidity(info Info, data []byte) (Message, error) {
	if len(data) < 7 {
		return nil, ErrShortPayload
	}
	return Humidity{
		Info:           info,
		SID:            uint8Ptr(data, 0),
		Instance:       data[1],
		Source:         data[2],
		HumidityPct:    scaledInt16(data, 3, resHumidityPct),
		SetHumidityPct: scaledInt16(data, 5, resHumidityPct),
	}, nil
}

func decodeActualPressure(info Info, data []byte) (Message, error) {
	if len(data) < 7 {
		return nil, ErrShortPayload
	}
	return ActualPressure{
		Info:       info,
		SID:        uint8Ptr(data, 0),
		Instance:   data[1],
		Source:     data[2],
		PressurePa: scaledInt32(data, 3, resPressurePa),
	}, nil
}
