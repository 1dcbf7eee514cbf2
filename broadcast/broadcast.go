// Package broadcast fans decoded messages out to best-effort consumers.
// Failures are counted but never propagated to the ingestion path.
package broadcast

import (
	"encoding/json"

	"github.com/seatrack/n2krouter/pgn"
)

// Envelope is the documented JSON wire format of the fan-out.
type Envelope struct {
	MessageType string      `json:"message_type"`
	PGN         uint32      `json:"pgn"`
	Source      uint8       `json:"source"`
	Priority    uint8       `json:"priority"`
	Data        pgn.Message `json:"data"`
}

// Sink receives each decoded message with its bus metadata.
type Sink interface {
	Send(msg pgn.Message)
	Close() error
}

func marshalEnvelope(msg pgn.Message) ([]byte, error) {
	header := msg.CanHeader()
	return json.Marshal(Envelope{
		MessageType: msg.MessageType(),
		PGN:         msg.PGN(),
		Source:      header.Source,
		Priority:    header.Priority,
		Data:        msg,
	})
}
