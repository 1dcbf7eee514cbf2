package monitor

import (
	"sync/atomic"
	"time"
)

const (
	// MinSkewThreshold is the lowest accepted gate threshold.
	MinSkewThreshold = 100 * time.Millisecond
	// DefaultSkewThreshold gates persistence when the bus time and the system
	// clock drift further apart than this.
	DefaultSkewThreshold = 500 * time.Millisecond

	skewWarnInterval = 10 * time.Second
)

// TimeSyncGate compares the bus SystemTime against the wall clock and keeps a
// persistence-permission flag. The flag has a single writer (the ingestion
// goroutine) and is read by the persistence consumer.
type TimeSyncGate struct {
	threshold time.Duration
	open      atomic.Bool
	logf      func(format string, a ...any)

	lastNmeaTime   time.Time
	lastSystemTime time.Time

	warnedAheadAt  time.Time
	warnedBehindAt time.Time

	// setClock, when non-nil, writes the system clock to the bus time on
	// crossing the threshold. Requires elevated privilege; off by default.
	setClock func(time.Time) error
}

func NewTimeSyncGate(threshold time.Duration, logf func(format string, a ...any)) *TimeSyncGate {
	if threshold < MinSkewThreshold {
		threshold = MinSkewThreshold
	}
	if logf == nil {
		logf = func(format string, a ...any) {}
	}
	g := &TimeSyncGate{
		threshold: threshold,
		logf:      logf,
	}
	// no skew evidence yet: persistence is permitted until a SystemTime
	// message proves the clocks apart
	g.open.Store(true)
	return g
}

// SetClockFunc enables writing the system clock to the bus time when the gate
// closes.
func (g *TimeSyncGate) SetClockFunc(fn func(time.Time) error) {
	g.setClock = fn
}

// Open reports whether persistence is currently permitted. Safe to call from
// consumer goroutines.
func (g *TimeSyncGate) Open() bool {
	return g.open.Load()
}

// OnSystemTime feeds a bus SystemTime instant together with the wall clock at
// arrival and re-evaluates the gate.
func (g *TimeSyncGate) OnSystemTime(nmeaUTC, systemUTC time.Time) {
	g.lastNmeaTime = nmeaUTC
	g.lastSystemTime = systemUTC

	skew := systemUTC.Sub(nmeaUTC)
	open := skew.Abs() <= g.threshold
	wasOpen := g.open.Load()
	g.open.Store(open)

	if !open {
		g.warnSkew(skew, systemUTC)
		if wasOpen && g.setClock != nil {
			if err := g.setClock(nmeaUTC); err != nil {
				g.logf("timesync: failed to set system clock: %v", err)
			} else {
				g.logf("timesync: system clock set to bus time %v", nmeaUTC)
			}
		}
	} else if !wasOpen {
		g.logf("timesync: clock skew back below %v, persistence resumed", g.threshold)
	}
}

// warnSkew logs at most once per skewWarnInterval per direction.
func (g *TimeSyncGate) warnSkew(skew time.Duration, now time.Time) {
	if skew > 0 {
		if now.Sub(g.warnedAheadAt) < skewWarnInterval {
			return
		}
		g.warnedAheadAt = now
		g.logf("timesync: system clock ahead of bus time by %v, persistence gated", skew)
		return
	}
	if now.Sub(g.warnedBehindAt) < skewWarnInterval {
		return
	}
	g.warnedBehindAt = now
	g.logf("timesync: system clock behind bus time by %v, persistence gated", -skew)
}
