package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	n2k "github.com/seatrack/n2krouter"
	"github.com/seatrack/n2krouter/broadcast"
	"github.com/seatrack/n2krouter/config"
	"github.com/seatrack/n2krouter/monitor"
	"github.com/seatrack/n2krouter/router"
	"github.com/seatrack/n2krouter/serialgw"
	"github.com/seatrack/n2krouter/socketcan"
	"github.com/seatrack/n2krouter/stats"
	"github.com/seatrack/n2krouter/storage"
	"github.com/seatrack/n2krouter/trip"
)

func main() {
	configPath := flag.String("config", "n2krouter.yaml", "path to configuration file")
	canInterface := flag.String("device", "", "override configured can_interface")
	flag.Parse()

	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load(*configPath, log.Printf)
	if err != nil {
		log.Fatal(err)
	}
	if *canInterface != "" {
		cfg.CanInterface = *canInterface
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("could not open database %v: %v", cfg.Database.Path, err)
	}
	defer store.Close()

	openTrip, err := store.LoadOpenTrip()
	if err != nil {
		log.Printf("could not load open trip, starting fresh: %v", err)
		openTrip = nil
	}
	if openTrip != nil && time.Since(openTrip.End) > trip.RolloverGap {
		openTrip = nil
	}
	trips := trip.NewAggregator(openTrip, log.Printf)

	gate := monitor.NewTimeSyncGate(cfg.SkewThreshold(), log.Printf)
	if cfg.Time.SetSystemClock {
		gate.SetClockFunc(setSystemClock)
	}

	intervalMoored, intervalUnderway := cfg.VesselIntervals()
	vessel := monitor.NewVessel(monitor.VesselConfig{
		IntervalMoored:   intervalMoored,
		IntervalUnderway: intervalUnderway,
		LogFunc:          log.Printf,
	})
	environment := monitor.NewEnvironment(monitor.EnvironmentConfig{
		Intervals: cfg.MetricIntervals(),
		LogFunc:   log.Printf,
	})

	var sinks []broadcast.Sink
	if cfg.Broadcast.UDPAddress != "" {
		udp, err := broadcast.NewUDP(cfg.Broadcast.UDPAddress, log.Printf)
		if err != nil {
			log.Printf("UDP fan-out disabled: %v", err)
		} else {
			defer udp.Close()
			sinks = append(sinks, udp)
		}
	}
	if cfg.Broadcast.MQTTBroker != "" {
		clientID := fmt.Sprintf("n2k-router-%d", time.Now().UnixNano())
		mq, err := broadcast.NewMQTT(cfg.Broadcast.MQTTBroker, clientID, cfg.Broadcast.MQTTTopic, log.Printf)
		if err != nil {
			log.Printf("MQTT fan-out disabled: %v", err)
		} else {
			defer mq.Close()
			sinks = append(sinks, mq)
		}
	}

	if cfg.Stats.Listen != "" {
		go func() {
			if err := stats.ListenAndServe(cfg.Stats.Listen); err != nil {
				log.Printf("stats listener stopped: %v", err)
			}
		}()
	}

	device := openDevice(cfg.CanInterface)

	r := router.New(router.Config{
		Filter:      router.NewSourceFilter(cfg.SourceFilter.PGNSourceMap),
		Gate:        gate,
		Vessel:      vessel,
		Environment: environment,
		Trips:       trips,
		Persister:   storage.NewPersister(store, log.Printf),
		Sinks:       sinks,
		LogFunc:     log.Printf,
	})

	log.Printf("starting ingestion on %v", cfg.CanInterface)
	if err := r.Run(ctx, device); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
	log.Printf("stopped")
}

// openDevice selects the frame source: a SocketCAN interface name, or
// serial:<path>[@baud] for a serial gateway.
func openDevice(name string) n2k.RawFrameReader {
	if rest, ok := strings.CutPrefix(name, "serial:"); ok {
		path := rest
		baud := 115200
		if p, b, ok := strings.Cut(rest, "@"); ok {
			path = p
			if parsed, err := strconv.Atoi(b); err == nil {
				baud = parsed
			} else {
				log.Printf("invalid baud rate %q, using %v", b, baud)
			}
		}
		return serialgw.NewPortDevice(path, baud, serialgw.Config{LogFunc: log.Printf})
	}
	return socketcan.NewDevice(socketcan.Config{InterfaceName: name, LogFunc: log.Printf})
}

// setSystemClock writes the wall clock. Needs CAP_SYS_TIME.
func setSystemClock(t time.Time) error {
	tv := unix.NsecToTimeval(t.UnixNano())
	return unix.Settimeofday(&tv)
}
