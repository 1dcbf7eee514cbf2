package monitor

import (
	"math"
	"time"

	"github.com/seatrack/n2krouter/pgn"
)

// MetricID identifies one environmental time series.
type MetricID uint8

const (
	MetricPressure      MetricID = 1
	MetricCabinTemp     MetricID = 2
	MetricWaterTemp     MetricID = 3
	MetricHumidity      MetricID = 4
	MetricWindSpeed     MetricID = 5
	MetricWindDirection MetricID = 6
	MetricRoll          MetricID = 7
)

// MetricIDs lists every metric in id order.
var MetricIDs = []MetricID{
	MetricPressure, MetricCabinTemp, MetricWaterTemp, MetricHumidity,
	MetricWindSpeed, MetricWindDirection, MetricRoll,
}

func (m MetricID) String() string {
	switch m {
	case MetricPressure:
		return "pressure"
	case MetricCabinTemp:
		return "cabin_temp"
	case MetricWaterTemp:
		return "water_temp"
	case MetricHumidity:
		return "humidity"
	case MetricWindSpeed:
		return "wind_speed"
	case MetricWindDirection:
		return "wind_direction"
	case MetricRoll:
		return "roll"
	}
	return "unknown"
}

// Unit is the unit the metric's aggregates are reported in.
func (m MetricID) Unit() string {
	switch m {
	case MetricPressure:
		return "Pa"
	case MetricCabinTemp, MetricWaterTemp:
		return "C"
	case MetricHumidity:
		return "%"
	case MetricWindSpeed:
		return "kn"
	case MetricWindDirection, MetricRoll:
		return "deg"
	}
	return ""
}

// DefaultInterval is the emission interval used when none is configured.
func (m MetricID) DefaultInterval() time.Duration {
	switch m {
	case MetricWindSpeed, MetricWindDirection, MetricRoll:
		return 60 * time.Second
	}
	return 300 * time.Second
}

// Sample is a single buffered metric reading.
type Sample struct {
	Value float64
	Time  time.Time
}

// MetricAggregate is the periodic per-metric report. Immutable once emitted.
type MetricAggregate struct {
	Metric    MetricID  `json:"metric_id"`
	Timestamp time.Time `json:"timestamp"`
	Avg       float64   `json:"avg"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	Unit      string    `json:"unit"`
}

type EnvironmentConfig struct {
	// Intervals overrides the per-metric emission interval. Missing entries
	// use the metric default.
	Intervals map[MetricID]time.Duration
	LogFunc   func(format string, a ...any)
}

// Environment buffers environmental readings per metric and aggregates each
// buffer on its own interval. Not safe for concurrent use; owned by the
// ingestion goroutine.
type Environment struct {
	intervals map[MetricID]time.Duration
	buffers   map[MetricID][]Sample
	lastEmit  map[MetricID]time.Time
	logf      func(format string, a ...any)

	// unclassifiedTemps remembers (instance, source) pairs already warned
	// about so the log is not flooded by a misbehaving sensor.
	unclassifiedTemps map[[2]uint8]struct{}
}

func NewEnvironment(config EnvironmentConfig) *Environment {
	logf := config.LogFunc
	if logf == nil {
		logf = func(format string, a ...any) {}
	}
	intervals := make(map[MetricID]time.Duration, len(MetricIDs))
	for _, m := range MetricIDs {
		interval := config.Intervals[m]
		if interval <= 0 {
			interval = m.DefaultInterval()
		}
		intervals[m] = interval
	}
	return &Environment{
		intervals:         intervals,
		buffers:           make(map[MetricID][]Sample, len(MetricIDs)),
		lastEmit:          make(map[MetricID]time.Time, len(MetricIDs)),
		logf:              logf,
		unclassifiedTemps: make(map[[2]uint8]struct{}),
	}
}

// OnWind buffers wind speed in knots and wind direction in degrees [0,360).
func (e *Environment) OnWind(speedMs, angleRad *float64, t time.Time) {
	if speedMs != nil {
		e.add(MetricWindSpeed, *speedMs*MetersPerSecondToKnots, t)
	}
	if angleRad != nil {
		deg := normalizeDegrees(*angleRad * 180 / math.Pi)
		e.add(MetricWindDirection, deg, t)
	}
}

// OnTemperature classifies a reading by its instance/source pair: instance 0
// with the sea source feeds the water series, inside/main-cabin sources feed
// the cabin series. Pairs that fit neither convention are logged once and
// dropped.
func (e *Environment) OnTemperature(instance uint8, source pgn.TemperatureSource, kelvin *float64, t time.Time) {
	if kelvin == nil {
		return
	}
	celsius := *kelvin - 273.15
	if celsius < -100 || celsius > 150 {
		e.logf("environment: discarding out-of-range temperature %.1f C", celsius)
		return
	}
	switch {
	case instance == 0 && source == pgn.TemperatureSourceSea:
		e.add(MetricWaterTemp, celsius, t)
	case source == pgn.TemperatureSourceInside || source == pgn.TemperatureSourceMainCabin:
		e.add(MetricCabinTemp, celsius, t)
	default:
		key := [2]uint8{instance, uint8(source)}
		if _, seen := e.unclassifiedTemps[key]; !seen {
			e.unclassifiedTemps[key] = struct{}{}
			e.logf("environment: unclassified temperature, instance: %d, source: %d", instance, source)
		}
	}
}

// OnHumidity buffers relative humidity, clamped to [0,100] percent.
func (e *Environment) OnHumidity(pct *float64, t time.Time) {
	if pct == nil {
		return
	}
	v := *pct
	if v < -10 || v > 110 {
		e.logf("environment: discarding out-of-range humidity %.1f%%", v)
		return
	}
	e.add(MetricHumidity, math.Min(100, math.Max(0, v)), t)
}

// OnPressure buffers atmospheric pressure in Pascal.
func (e *Environment) OnPressure(pa *float64, t time.Time) {
	if pa == nil {
		return
	}
	if *pa < 0 {
		e.logf("environment: discarding negative pressure %v", *pa)
		return
	}
	e.add(MetricPressure, *pa, t)
}

// OnAttitude buffers vessel roll in degrees.
func (e *Environment) OnAttitude(rollRad *float64, t time.Time) {
	if rollRad == nil {
		return
	}
	deg := *rollRad * 180 / math.Pi
	if deg < -180 || deg > 180 {
		e.logf("environment: discarding out-of-range roll %.1f deg", deg)
		return
	}
	e.add(MetricRoll, deg, t)
}

func (e *Environment) add(m MetricID, value float64, t time.Time) {
	e.buffers[m] = append(e.buffers[m], Sample{Value: value, Time: t})
}

// Tick emits an aggregate for every metric whose interval has elapsed and
// whose buffer is non-empty. Emission clears the buffer.
func (e *Environment) Tick(now time.Time) []MetricAggregate {
	var out []MetricAggregate
	for _, m := range MetricIDs {
		last, ok := e.lastEmit[m]
		if !ok {
			e.lastEmit[m] = now
			continue
		}
		if now.Sub(last) < e.intervals[m] {
			continue
		}
		samples := e.buffers[m]
		if len(samples) == 0 {
			continue
		}
		out = append(out, aggregate(m, samples, now))
		e.buffers[m] = samples[:0]
		e.lastEmit[m] = now
	}
	return out
}

func aggregate(m MetricID, samples []Sample, now time.Time) MetricAggregate {
	agg := MetricAggregate{
		Metric:    m,
		Timestamp: now,
		Min:       samples[0].Value,
		Max:       samples[0].Value,
		Unit:      m.Unit(),
	}
	var sum float64
	for _, s := range samples {
		sum += s.Value
		if s.Value < agg.Min {
			agg.Min = s.Value
		}
		if s.Value > agg.Max {
			agg.Max = s.Value
		}
	}
	if m == MetricWindDirection {
		agg.Avg = circularMeanDegrees(samples)
	} else {
		agg.Avg = sum / float64(len(samples))
	}
	return agg
}

// circularMeanDegrees averages angles as the vector mean of (sin, cos) to
// avoid the 359/1 degree discontinuity.
func circularMeanDegrees(samples []Sample) float64 {
	var sinSum, cosSum float64
	for _, s := range samples {
		rad := s.Value * math.Pi / 180
		sinSum += math.Sin(rad)
		cosSum += math.Cos(rad)
	}
	return normalizeDegrees(math.Atan2(sinSum, cosSum) * 180 / math.Pi)
}

func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
