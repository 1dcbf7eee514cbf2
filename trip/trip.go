// Package trip folds vessel statuses into voyages bounded by a 24 h
// inactivity gap.
package trip

import (
	"time"

	"github.com/rs/xid"

	"github.com/seatrack/n2krouter/monitor"
)

// RolloverGap is the inactivity period after which the next status opens a
// new trip.
const RolloverGap = 24 * time.Hour

// Trip is one voyage. Mutated only by the Aggregator; persisted whole on each
// update.
type Trip struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	NmSailed    float64   `json:"nm_sailed"`
	NmMotoring  float64   `json:"nm_motoring"`
	MsSailing   int64     `json:"ms_sailing"`
	MsMotoring  int64     `json:"ms_motoring"`
	MsMoored    int64     `json:"ms_moored"`
}

// Aggregator owns the open trip. Not safe for concurrent use; owned by the
// ingestion goroutine.
type Aggregator struct {
	current *Trip
	logf    func(format string, a ...any)
}

// NewAggregator rehydrates from the most recently persisted trip. A trip that
// ended more than RolloverGap ago is treated as closed.
func NewAggregator(rehydrated *Trip, logf func(format string, a ...any)) *Aggregator {
	if logf == nil {
		logf = func(format string, a ...any) {}
	}
	a := &Aggregator{current: rehydrated, logf: logf}
	if rehydrated != nil {
		logf("trip: resuming %q, last active %v", rehydrated.Description, rehydrated.End)
	}
	return a
}

// Current returns the open trip, nil when none is open yet.
func (a *Aggregator) Current() *Trip { return a.current }

// Fold accounts a status into the open trip, creating a new trip when the
// previous one has been inactive for more than RolloverGap. It returns the
// updated trip, to be persisted atomically with the status.
func (a *Aggregator) Fold(s monitor.VesselStatus) *Trip {
	if a.current == nil || s.Timestamp.Sub(a.current.End) > RolloverGap {
		a.current = &Trip{
			ID:          xid.New().String(),
			Description: "Trip " + s.Timestamp.UTC().Format("2006-01-02"),
			Start:       s.Timestamp,
			End:         s.Timestamp,
		}
		a.logf("trip: started %q", a.current.Description)
	}

	t := a.current
	t.End = s.Timestamp
	switch {
	case s.IsMoored:
		t.MsMoored += s.ElapsedMs
	case s.EngineOn:
		t.MsMotoring += s.ElapsedMs
		t.NmMotoring += s.DistanceNm
	default:
		t.MsSailing += s.ElapsedMs
		t.NmSailed += s.DistanceNm
	}
	return t
}
