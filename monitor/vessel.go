package monitor

import (
	"time"
)

const (
	// MooringRadiusMeters is the circle around the mooring-window centroid a
	// sample must fall into to count as stationary.
	MooringRadiusMeters = 30.0

	mooringWindow         = 2 * time.Minute
	mooringMinSamples     = 24
	mooringWithinFraction = 0.9
	// mooringCoverageSlack tolerates the gap between the oldest retained
	// sample and the exact window edge; without it the coverage test would
	// only hold at instants where a sample is aged exactly one full window.
	mooringCoverageSlack = 5 * time.Second

	validationWindow     = 10 * time.Second
	validationMinSamples = 10
	outlierDistanceM     = 100.0
	maxPlausibleSpeedKn  = 25.0

	engineValidity = 10 * time.Second

	// DefaultIntervalMoored and DefaultIntervalUnderway drive the adaptive
	// reporting clock when no interval is configured.
	DefaultIntervalMoored   = 30 * time.Minute
	DefaultIntervalUnderway = 30 * time.Second
)

// PositionSample is an accepted or candidate position fix with the speed over
// ground that was current when it arrived.
type PositionSample struct {
	Position Position
	SogKnots float64
	Time     time.Time
}

// VesselStatus is the periodic navigation report. Immutable once emitted.
type VesselStatus struct {
	Timestamp  time.Time `json:"timestamp"`
	Position   *Position `json:"position,omitempty"`
	AvgSpeedKn float64   `json:"avg_speed_kn"`
	MaxSpeedKn float64   `json:"max_speed_kn"`
	IsMoored   bool      `json:"is_moored"`
	EngineOn   bool      `json:"engine_on"`
	DistanceNm float64   `json:"distance_nm"`
	ElapsedMs  int64     `json:"elapsed_ms"`
}

type VesselConfig struct {
	// IntervalMoored and IntervalUnderway select the reporting interval
	// depending on mooring state. Zero values fall back to the defaults.
	IntervalMoored   time.Duration
	IntervalUnderway time.Duration
	LogFunc          func(format string, a ...any)
}

// Vessel consumes position, COG/SOG, heading and engine messages and emits a
// VesselStatus on an adaptive schedule. Not safe for concurrent use; owned by
// the ingestion goroutine.
type Vessel struct {
	intervalMoored   time.Duration
	intervalUnderway time.Duration
	logf             func(format string, a ...any)

	// validation holds the candidates of the last 10 s, mooring the accepted
	// samples of the last 2 min.
	validation []PositionSample
	mooring    []PositionSample

	current      *Position
	lastAccepted *Position
	lastSogKn    float64
	lastHeading  float64

	speedSum   float64
	speedCount int
	speedMax   float64
	distanceNm float64

	engineRunning bool
	engineSeenAt  time.Time

	moored   bool
	lastEmit time.Time

	rejectedCount uint64
}

func NewVessel(config VesselConfig) *Vessel {
	if config.IntervalMoored <= 0 {
		config.IntervalMoored = DefaultIntervalMoored
	}
	if config.IntervalUnderway <= 0 {
		config.IntervalUnderway = DefaultIntervalUnderway
	}
	logf := config.LogFunc
	if logf == nil {
		logf = func(format string, a ...any) {}
	}
	return &Vessel{
		intervalMoored:   config.IntervalMoored,
		intervalUnderway: config.IntervalUnderway,
		logf:             logf,
	}
}

// OnPosition feeds a candidate position fix. It reports whether the sample
// was accepted as the current position.
func (v *Vessel) OnPosition(latDeg, lonDeg float64, t time.Time) bool {
	if latDeg < -90 || latDeg > 90 || lonDeg < -180 || lonDeg > 180 {
		v.logf("vessel: position out of range, lat: %v, lon: %v", latDeg, lonDeg)
		v.rejectedCount++
		return false
	}
	sample := PositionSample{
		Position: Position{LatitudeDeg: latDeg, LongitudeDeg: lonDeg},
		SogKnots: v.lastSogKn,
		Time:     t,
	}
	if sample.SogKnots > maxPlausibleSpeedKn {
		v.logf("vessel: rejecting sample at implausible speed %.1f kn", sample.SogKnots)
		v.rejectedCount++
		return false
	}

	v.validation = pruneWindow(v.validation, t.Add(-validationWindow))
	accepted := true
	if len(v.validation) >= validationMinSamples {
		ref := medianPosition(v.validation)
		if d := distanceMeters(ref, sample.Position); d > outlierDistanceM {
			v.logf("vessel: rejecting position outlier %.0f m from median", d)
			accepted = false
		}
	}
	// candidates enter the validation window either way so the median can
	// follow a genuine relocation
	v.validation = append(v.validation, sample)
	if !accepted {
		v.rejectedCount++
		return false
	}

	v.mooring = append(v.mooring, sample)
	if v.lastAccepted != nil {
		v.distanceNm += distanceMeters(*v.lastAccepted, sample.Position) / metersPerNauticalMile
	}
	pos := sample.Position
	v.current = &pos
	v.lastAccepted = &pos
	return true
}

// OnCogSog feeds a COG/SOG update. Speed accounting runs on every update with
// an available SOG.
func (v *Vessel) OnCogSog(cogRad, sogMs *float64, t time.Time) {
	if sogMs == nil {
		return
	}
	if *sogMs < 0 {
		v.logf("vessel: discarding negative speed %v", *sogMs)
		return
	}
	kn := *sogMs * MetersPerSecondToKnots
	v.lastSogKn = kn
	v.speedSum += kn
	v.speedCount++
	if kn > v.speedMax {
		v.speedMax = kn
	}
}

// OnHeading latches the most recent heading.
func (v *Vessel) OnHeading(headingRad float64) {
	v.lastHeading = headingRad
}

// OnEngine latches the engine state from an EngineRapidUpdate.
func (v *Vessel) OnEngine(speedRPM float64, t time.Time) {
	v.engineRunning = speedRPM > 0
	v.engineSeenAt = t
}

// Moored reports the current mooring state as of the last Tick.
func (v *Vessel) Moored() bool { return v.moored }

// Position returns the current position, nil while no valid fix is held.
func (v *Vessel) Position() *Position { return v.current }

// RejectedSamples returns the number of discarded candidate samples.
func (v *Vessel) RejectedSamples() uint64 { return v.rejectedCount }

// Tick advances the reporting clock. It returns a status when the adaptive
// interval has elapsed, nil otherwise. The status is emitted on schedule even
// when no position is known.
func (v *Vessel) Tick(now time.Time) *VesselStatus {
	v.moored = v.updateMooring(now)

	if v.lastEmit.IsZero() {
		v.lastEmit = now
		return nil
	}
	interval := v.intervalUnderway
	if v.moored {
		interval = v.intervalMoored
	}
	elapsed := now.Sub(v.lastEmit)
	if elapsed < interval {
		return nil
	}

	status := &VesselStatus{
		Timestamp:  now,
		Position:   v.current,
		MaxSpeedKn: v.speedMax,
		IsMoored:   v.moored,
		EngineOn:   v.engineOn(now),
		DistanceNm: v.distanceNm,
		ElapsedMs:  elapsed.Milliseconds(),
	}
	if v.speedCount > 0 {
		status.AvgSpeedKn = v.speedSum / float64(v.speedCount)
	}

	v.speedSum = 0
	v.speedCount = 0
	v.speedMax = 0
	v.distanceNm = 0
	v.lastEmit = now
	return status
}

func (v *Vessel) engineOn(now time.Time) bool {
	return v.engineRunning && now.Sub(v.engineSeenAt) <= engineValidity
}

// updateMooring evaluates the mooring predicate over the last two minutes of
// accepted samples: enough samples, window covered, and at least 90% of them
// within MooringRadiusMeters of the centroid. The moored->underway transition
// is symmetric: the state flips as soon as the predicate does.
func (v *Vessel) updateMooring(now time.Time) bool {
	v.mooring = pruneWindow(v.mooring, now.Add(-mooringWindow))
	if len(v.mooring) < mooringMinSamples {
		return false
	}
	if now.Sub(v.mooring[0].Time) < mooringWindow-mooringCoverageSlack {
		return false
	}
	center := centroid(v.mooring)
	within := 0
	for _, s := range v.mooring {
		if distanceMeters(center, s.Position) <= MooringRadiusMeters {
			within++
		}
	}
	return float64(within) >= mooringWithinFraction*float64(len(v.mooring))
}

func pruneWindow(samples []PositionSample, cutoff time.Time) []PositionSample {
	idx := 0
	for idx < len(samples) && samples[idx].Time.Before(cutoff) {
		idx++
	}
	if idx == 0 {
		return samples
	}
	return append(samples[:0], samples[idx:]...)
}
