package pgn

import (
	"encoding/binary"
	"time"
)

// Field readers normalize raw little-endian values and detect the NMEA2000
// "no data" sentinels: all ones for unsigned fields (uint8=>0xFF), the
// maximum positive value for signed fields (int8=>0x7F). Sentinel or
// out-of-bounds reads return ok=false and the field is represented as absent.

func fieldUint8(data []byte, offset int) (uint8, bool) {
	if len(data) < offset+1 {
		return 0, false
	}
	b := data[offset]
	if b == 0xff {
		return 0, false
	}
	return b, true
}

func fieldInt8(data []byte, offset int) (int8, bool) {
	if len(data) < offset+1 {
		return 0, false
	}
	b := data[offset]
	if b == 0x7f {
		return 0, false
	}
	return int8(b), true
}

func fieldUint16(data []byte, offset int) (uint16, bool) {
	if len(data) < offset+2 {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(data[offset : offset+2])
	if v == 0xffff {
		return 0, false
	}
	return v, true
}

func fieldInt16(data []byte, offset int) (int16, bool) {
	if len(data) < offset+2 {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(data[offset : offset+2])
	if v == 0x7fff {
		return 0, false
	}
	return int16(v), true
}

func fieldUint32(data []byte, offset int) (uint32, bool) {
	if len(data) < offset+4 {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(data[offset : offset+4])
	if v == 0xffffffff {
		return 0, false
	}
	return v, true
}

func fieldInt32(data []byte, offset int) (int32, bool) {
	if len(data) < offset+4 {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(data[offset : offset+4])
	if v == 0x7fffffff {
		return 0, false
	}
	return int32(v), true
}

func fieldInt64(data []byte, offset int) (int64, bool) {
	if len(data) < offset+8 {
		return 0, false
	}
	v := binary.LittleEndian.Uint64(data[offset : offset+8])
	if v == 0x7fffffffffffffff {
		return 0, false
	}
	return int64(v), true
}

// scaled readers multiply the raw value with the field resolution and hand
// back nil when the sentinel was seen.

func scaledUint16(data []byte, offset int, resolution float64) *float64 {
	v, ok := fieldUint16(data, offset)
	if !ok {
		return nil
	}
	f := float64(v) * resolution
	return &f
}

func scaledInt16(data []byte, offset int, resolution float64) *float64 {
	v, ok := fieldInt16(data, offset)
	if !ok {
		return nil
	}
	f := float64(v) * resolution
	return &f
}

func scaledUint32(data []byte, offset int, resolution float64) *float64 {
	v, ok := fieldUint32(data, offset)
	if !ok {
		return nil
	}
	f := float64(v) * resolution
	return &f
}

func scaledInt32(data []byte, offset int, resolution float64) *float64 {
	v, ok := fieldInt32(data, offset)
	if !ok {
		return nil
	}
	f := float64(v) * resolution
	return &f
}

func scaledInt64(data []byte, offset int, resolution float64) *float64 {
	v, ok := fieldInt64(data, offset)
	if !ok {
		return nil
	}
	f := float64(v) * resolution
	return &f
}

// fieldDateTime combines the NMEA2000 date (uint16, days since 1970-01-01)
// and time of day (uint32, 0.0001 second units) fields into an UTC instant.
func fieldDateTime(data []byte, dateOffset, timeOffset int) *time.Time {
	days, okDate := fieldUint16(data, dateOffset)
	ticks, okTime := fieldUint32(data, timeOffset)
	if !okDate || !okTime {
		return nil
	}
	t := time.Unix(int64(days)*86400, 0).UTC().
		Add(time.Duration(ticks) * 100 * time.Microsecond)
	return &t
}

func uint8Ptr(data []byte, offset int) *uint8 {
	v, ok := fieldUint8(data, offset)
	if !ok {
		return nil
	}
	return &v
}

func int8Ptr(data []byte, offset int) *int8 {
	v, ok := fieldInt8(data, offset)
	if !ok {
		return nil
	}
	return &v
}
