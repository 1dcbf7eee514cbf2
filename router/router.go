// Package router runs the ingestion loop: it drains CAN frames from a
// device, reassembles fast-packets, decodes and filters messages, updates the
// monitors and hands emissions off to the persistence and broadcast
// consumers over bounded queues.
package router

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	n2k "github.com/seatrack/n2krouter"
	"github.com/seatrack/n2krouter/broadcast"
	"github.com/seatrack/n2krouter/monitor"
	"github.com/seatrack/n2krouter/pgn"
	"github.com/seatrack/n2krouter/stats"
	"github.com/seatrack/n2krouter/storage"
	"github.com/seatrack/n2krouter/trip"
)

const (
	// deviceRetryInterval paces reopen attempts while the CAN device is
	// absent.
	deviceRetryInterval = 10 * time.Second
	queueCapacity       = 64
)

type Config struct {
	Filter      *SourceFilter
	Gate        *monitor.TimeSyncGate
	Vessel      *monitor.Vessel
	Environment *monitor.Environment
	Trips       *trip.Aggregator
	Persister   *storage.Persister
	Sinks       []broadcast.Sink
	LogFunc     func(format string, a ...any)
}

// statusRecord pairs a status with the trip it was folded into so the two
// are persisted in one transaction.
type statusRecord struct {
	Status monitor.VesselStatus
	Trip   trip.Trip
}

// Router owns the reassembly table, monitor state and trip state. Only its
// consumer goroutines touch the store and the broadcast sinks.
type Router struct {
	config    Config
	logf      func(format string, a ...any)
	assembler n2k.Assembler

	statusCh    chan statusRecord
	metricCh    chan monitor.MetricAggregate
	broadcastCh chan pgn.Message

	now func() time.Time
	wg  sync.WaitGroup
}

func New(config Config) *Router {
	logf := config.LogFunc
	if logf == nil {
		logf = func(format string, a ...any) {}
	}
	if config.Filter == nil {
		config.Filter = NewSourceFilter(nil)
	}
	return &Router{
		config:    config,
		logf:      logf,
		assembler: n2k.NewFastPacketAssembler(pgn.FastPacketPGNs()),

		statusCh:    make(chan statusRecord, queueCapacity),
		metricCh:    make(chan monitor.MetricAggregate, queueCapacity),
		broadcastCh: make(chan pgn.Message, queueCapacity),

		now: time.Now,
	}
}

// Run drives the ingestion loop until the context is cancelled or the device
// reaches EOF (file replay). On shutdown the current frame is finished,
// downstream queues are closed and the consumers drain before Run returns.
func (r *Router) Run(ctx context.Context, device n2k.RawFrameReader) error {
	r.wg.Add(2)
	go r.persistLoop()
	go r.broadcastLoop()
	defer func() {
		close(r.statusCh)
		close(r.metricCh)
		close(r.broadcastCh)
		r.wg.Wait()
	}()

	if err := r.openDevice(ctx, device); err != nil {
		return err
	}
	defer device.Close()

	for {
		frame, err := device.ReadRawFrame(ctx)
		now := r.now()
		switch {
		case err == nil:
			stats.FramesRead.Inc()
			r.processFrame(frame)
		case errors.Is(err, n2k.ErrReadTimeout):
			// idle bus, still run the periodic work below
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return ctx.Err()
		case errors.Is(err, io.EOF):
			r.logf("router: device EOF, stopping")
			return nil
		default:
			stats.ReadErrors.Inc()
			r.logf("router: device read failed: %v, reopening", err)
			device.Close()
			if err := r.openDevice(ctx, device); err != nil {
				return err
			}
		}
		r.tick(now)
	}
}

// openDevice initializes the device, retrying every deviceRetryInterval
// while it is absent.
func (r *Router) openDevice(ctx context.Context, device n2k.RawFrameReader) error {
	for {
		err := device.Initialize()
		if err == nil {
			return nil
		}
		r.logf("router: failed to open CAN device: %v, retrying in %v", err, deviceRetryInterval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(deviceRetryInterval):
		}
	}
}

func (r *Router) processFrame(frame n2k.RawFrame) {
	var raw n2k.RawMessage
	complete, err := r.assembler.Assemble(frame, &raw)
	if err != nil {
		stats.ReassemblyErrors.Inc()
		r.logf("router: reassembly reset for PGN %v from %v: %v", frame.Header.PGN, frame.Header.Source, err)
		return
	}
	if !complete {
		return
	}

	msg, err := pgn.Decode(raw)
	if err != nil {
		stats.DecodeErrors.Inc()
		r.logf("router: failed to decode PGN %v from %v: %v", raw.Header.PGN, raw.Header.Source, err)
		return
	}

	// fan-out sees every decoded message; the source filter only gates the
	// monitors
	r.enqueueBroadcast(msg)

	if !r.config.Filter.Admit(raw.Header) {
		stats.FilteredMessages.Inc()
		return
	}
	r.dispatch(msg, raw.Time)
}

// dispatch is the exhaustive case analysis over the supported messages. A
// new PGN variant needs an explicit arm here.
func (r *Router) dispatch(msg pgn.Message, t time.Time) {
	switch m := msg.(type) {
	case pgn.SystemTime:
		if r.config.Gate != nil && m.UTC != nil {
			r.config.Gate.OnSystemTime(*m.UTC, r.now())
		}
	case pgn.PositionRapidUpdate:
		if m.LatitudeDeg != nil && m.LongitudeDeg != nil {
			r.onPosition(*m.LatitudeDeg, *m.LongitudeDeg, t)
		}
	case pgn.GnssPositionData:
		if m.LatitudeDeg != nil && m.LongitudeDeg != nil {
			r.onPosition(*m.LatitudeDeg, *m.LongitudeDeg, t)
		}
	case pgn.CogSogRapidUpdate:
		if r.config.Vessel != nil {
			r.config.Vessel.OnCogSog(m.CogRad, m.SogMs, t)
		}
	case pgn.VesselHeading:
		if r.config.Vessel != nil && m.HeadingRad != nil {
			r.config.Vessel.OnHeading(*m.HeadingRad)
		}
	case pgn.EngineRapidUpdate:
		if r.config.Vessel != nil && m.SpeedRPM != nil {
			r.config.Vessel.OnEngine(*m.SpeedRPM, t)
		}
	case pgn.WindData:
		if r.config.Environment != nil {
			r.config.Environment.OnWind(m.SpeedMs, m.AngleRad, t)
		}
	case pgn.Temperature:
		if r.config.Environment != nil {
			r.config.Environment.OnTemperature(m.Instance, m.Source, m.TemperatureK, t)
		}
	case pgn.Humidity:
		if r.config.Environment != nil {
			r.config.Environment.OnHumidity(m.HumidityPct, t)
		}
	case pgn.ActualPressure:
		if r.config.Environment != nil {
			r.config.Environment.OnPressure(m.PressurePa, t)
		}
	case pgn.Attitude:
		if r.config.Environment != nil {
			r.config.Environment.OnAttitude(m.RollRad, t)
		}
	case pgn.RateOfTurn, pgn.SpeedWaterReferenced, pgn.WaterDepth, pgn.Unknown:
		// broadcast-only
	}
}

func (r *Router) onPosition(latDeg, lonDeg float64, t time.Time) {
	if r.config.Vessel == nil {
		return
	}
	if !r.config.Vessel.OnPosition(latDeg, lonDeg, t) {
		stats.RejectedSamples.Inc()
	}
}

// tick runs the adaptive clocks. A status is folded into the trip before it
// is handed off so both travel to the store together.
func (r *Router) tick(now time.Time) {
	if r.config.Vessel != nil {
		if status := r.config.Vessel.Tick(now); status != nil {
			stats.StatusesEmitted.Inc()
			rec := statusRecord{Status: *status}
			// the trip keeps accounting in memory even while persistence is
			// gated
			if r.config.Trips != nil {
				rec.Trip = *r.config.Trips.Fold(*status)
			}
			if r.gateOpen() {
				enqueue(r.statusCh, rec)
			} else {
				stats.GateClosedSkips.Inc()
			}
		}
	}
	if r.config.Environment != nil {
		for _, agg := range r.config.Environment.Tick(now) {
			stats.MetricsEmitted.Inc()
			if r.gateOpen() {
				enqueue(r.metricCh, agg)
			} else {
				stats.GateClosedSkips.Inc()
			}
		}
	}
}

func (r *Router) enqueueBroadcast(msg pgn.Message) {
	if len(r.config.Sinks) == 0 {
		return
	}
	enqueue(r.broadcastCh, msg)
}

// enqueue never blocks the ingestion loop: when the queue is full the oldest
// record gives way to the newest.
func enqueue[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
		stats.RecordsDropped.Inc()
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

// persistLoop owns the store. It drains both queues and exits when the
// ingestion loop has closed them.
func (r *Router) persistLoop() {
	defer r.wg.Done()
	statusCh, metricCh := r.statusCh, r.metricCh
	for statusCh != nil || metricCh != nil {
		select {
		case rec, ok := <-statusCh:
			if !ok {
				statusCh = nil
				continue
			}
			r.persistStatus(rec)
		case m, ok := <-metricCh:
			if !ok {
				metricCh = nil
				continue
			}
			r.persistMetric(m)
		}
	}
}

func (r *Router) persistStatus(rec statusRecord) {
	if r.config.Persister == nil {
		return
	}
	if !r.gateOpen() {
		stats.GateClosedSkips.Inc()
		return
	}
	if !r.config.Persister.PersistStatus(rec.Status, rec.Trip) {
		stats.RecordsDropped.Inc()
	}
}

func (r *Router) persistMetric(m monitor.MetricAggregate) {
	if r.config.Persister == nil {
		return
	}
	if !r.gateOpen() {
		stats.GateClosedSkips.Inc()
		return
	}
	if !r.config.Persister.PersistMetric(m) {
		stats.RecordsDropped.Inc()
	}
}

func (r *Router) gateOpen() bool {
	return r.config.Gate == nil || r.config.Gate.Open()
}

func (r *Router) broadcastLoop() {
	defer r.wg.Done()
	for msg := range r.broadcastCh {
		for _, sink := range r.config.Sinks {
			sink.Send(msg)
		}
	}
}
