package n2k

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCANID(t *testing.T) {
	var testCases = []struct {
		name        string
		whenCanID   uint32
		expect      CanBusHeader
		expectError error
	}{
		{
			name:      "ok, PDU2 broadcast, position rapid update",
			whenCanID: 0x0DF8010A, // priority 3, PGN 129025, source 10
			expect: CanBusHeader{
				PGN:         129025,
				Priority:    3,
				Source:      10,
				Destination: AddressGlobal,
			},
		},
		{
			name:      "ok, PDU1 addressed, ISO request",
			whenCanID: 0x18EA20FE, // priority 6, PGN 59904, source 254, destination 32
			expect: CanBusHeader{
				PGN:         59904,
				Priority:    6,
				Source:      254,
				Destination: 32,
			},
		},
		{
			name:      "ok, PDU2 broadcast, wind data",
			whenCanID: 0x09FD020F, // priority 2, PGN 130306, source 15
			expect: CanBusHeader{
				PGN:         130306,
				Priority:    2,
				Source:      15,
				Destination: AddressGlobal,
			},
		},
		{
			name:        "nok, identifier wider than 29 bits",
			whenCanID:   0x20000000,
			expectError: ErrMalformedIdentifier,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			header, err := ParseCANID(tc.whenCanID)

			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expect, header)
		})
	}
}

func TestCanBusHeaderUint32(t *testing.T) {
	var testCases = []struct {
		name  string
		given CanBusHeader
	}{
		{
			name:  "ok, PDU2 broadcast",
			given: CanBusHeader{PGN: 129025, Priority: 3, Source: 10, Destination: AddressGlobal},
		},
		{
			name:  "ok, PDU1 addressed",
			given: CanBusHeader{PGN: 59904, Priority: 6, Source: 254, Destination: 32},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := ParseCANID(tc.given.Uint32())

			assert.NoError(t, err)
			assert.Equal(t, tc.given, parsed)
		})
	}
}
