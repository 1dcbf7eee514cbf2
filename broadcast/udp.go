package broadcast

import (
	"fmt"
	"net"
	"sync/atomic"

	"github.com/seatrack/n2krouter/pgn"
)

// UDP sends each message as one datagram to a fixed address. Send never
// blocks on the receiver and never reports an error to the caller.
type UDP struct {
	conn     *net.UDPConn
	failures atomic.Uint64
	logf     func(format string, a ...any)
}

func NewUDP(address string, logf func(format string, a ...any)) (*UDP, error) {
	if logf == nil {
		logf = func(format string, a ...any) {}
	}
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("bad UDP broadcast address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("could not open UDP broadcast socket: %w", err)
	}
	return &UDP{conn: conn, logf: logf}, nil
}

func (u *UDP) Send(msg pgn.Message) {
	b, err := marshalEnvelope(msg)
	if err != nil {
		u.failures.Add(1)
		return
	}
	if _, err := u.conn.Write(b); err != nil {
		if u.failures.Add(1)%100 == 1 {
			u.logf("broadcast: UDP send failed: %v", err)
		}
	}
}

// Failures returns the number of datagrams that could not be sent.
func (u *UDP) Failures() uint64 {
	return u.failures.Load()
}

func (u *UDP) Close() error {
	return u.conn.Close()
}
