package storage

import (
	"time"

	"github.com/seatrack/n2krouter/monitor"
	"github.com/seatrack/n2krouter/trip"
)

const healthCheckInterval = 60 * time.Second

var retryBackoff = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

var maxRetries = len(retryBackoff)

// Persister wraps the store with retry and health handling: transient
// failures are retried with exponential backoff, persistent failures mark the
// store unhealthy and records are dropped with a warning until a periodic
// health check succeeds.
type Persister struct {
	store *Store
	logf  func(format string, a ...any)

	healthy         bool
	nextHealthCheck time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

func NewPersister(store *Store, logf func(format string, a ...any)) *Persister {
	if logf == nil {
		logf = func(format string, a ...any) {}
	}
	return &Persister{
		store:   store,
		logf:    logf,
		healthy: true,
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// PersistStatus writes a status and its trip atomically. It reports whether
// the record was persisted.
func (p *Persister) PersistStatus(status monitor.VesselStatus, t trip.Trip) bool {
	return p.attempt("vessel status", func() error {
		return p.store.InsertVesselStatusAndTrip(status, t)
	})
}

// PersistMetric writes a metric aggregate. It reports whether the record was
// persisted.
func (p *Persister) PersistMetric(m monitor.MetricAggregate) bool {
	return p.attempt("metric aggregate", func() error {
		return p.store.InsertMetric(m)
	})
}

// Healthy reports the last known store state.
func (p *Persister) Healthy() bool { return p.healthy }

func (p *Persister) attempt(what string, op func() error) bool {
	if !p.healthy && !p.recheck() {
		return false
	}

	var err error
	for i := 0; i <= maxRetries; i++ {
		if err = op(); err == nil {
			p.healthy = true
			return true
		}
		if i < maxRetries {
			p.sleep(retryBackoff[i])
		}
	}
	p.healthy = false
	p.nextHealthCheck = p.now().Add(healthCheckInterval)
	p.logf("storage: dropping %s after %d attempts: %v", what, maxRetries+1, err)
	return false
}

// recheck probes the store once per healthCheckInterval while unhealthy.
func (p *Persister) recheck() bool {
	if p.now().Before(p.nextHealthCheck) {
		return false
	}
	if err := p.store.Ping(); err != nil {
		p.nextHealthCheck = p.now().Add(healthCheckInterval)
		p.logf("storage: still unhealthy: %v", err)
		return false
	}
	p.healthy = true
	p.logf("storage: healthy again")
	return true
}
