// Package config loads the router configuration from a YAML file. Recoverable
// problems (out-of-range intervals, bad filter entries) are clamped or
// dropped with a logged warning; only a missing CAN interface is fatal.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/seatrack/n2krouter/monitor"
)

const (
	// MinIntervalSeconds and MaxIntervalSeconds bound every configured
	// reporting interval.
	MinIntervalSeconds = 30
	MaxIntervalSeconds = 600

	minSkewThresholdMs     = 100
	defaultSkewThresholdMs = 500

	// pgn_source_map sanity bounds
	minFilterPGN    = 50000
	maxFilterPGN    = 200000
	minFilterSource = 1
	maxFilterSource = 254
)

// ErrMissingInterface is returned when can_interface is absent.
var ErrMissingInterface = errors.New("config: can_interface is required")

type Config struct {
	// CanInterface is the SocketCAN interface name (for example can0), or
	// serial:<path>[@baud] for a serial gateway.
	CanInterface string             `yaml:"can_interface"`
	Time         TimeConfig         `yaml:"time"`
	Database     DatabaseConfig     `yaml:"database"`
	SourceFilter SourceFilterConfig `yaml:"source_filter"`
	Broadcast    BroadcastConfig    `yaml:"broadcast"`
	Stats        StatsConfig        `yaml:"stats"`
}

type TimeConfig struct {
	SkewThresholdMs uint32 `yaml:"skew_threshold_ms"`
	// SetSystemClock writes the system clock to the bus time on skew.
	// Requires elevated privilege; off by default.
	SetSystemClock bool `yaml:"set_system_clock"`
}

type DatabaseConfig struct {
	Path          string              `yaml:"path"`
	VesselStatus  VesselStatusConfig  `yaml:"vessel_status"`
	Environmental EnvironmentalConfig `yaml:"environmental"`
}

type VesselStatusConfig struct {
	IntervalMooredSeconds   int `yaml:"interval_moored_seconds"`
	IntervalUnderwaySeconds int `yaml:"interval_underway_seconds"`
}

type EnvironmentalConfig struct {
	PressureSeconds      int `yaml:"pressure_seconds"`
	CabinTempSeconds     int `yaml:"cabin_temp_seconds"`
	WaterTempSeconds     int `yaml:"water_temp_seconds"`
	HumiditySeconds      int `yaml:"humidity_seconds"`
	WindSpeedSeconds     int `yaml:"wind_speed_seconds"`
	WindDirectionSeconds int `yaml:"wind_direction_seconds"`
	RollSeconds          int `yaml:"roll_seconds"`
}

type SourceFilterConfig struct {
	PGNSourceMap map[uint32]uint8 `yaml:"pgn_source_map"`
}

type BroadcastConfig struct {
	UDPAddress string `yaml:"udp_address"`
	MQTTBroker string `yaml:"mqtt_broker"`
	MQTTTopic  string `yaml:"mqtt_topic"`
}

type StatsConfig struct {
	Listen string `yaml:"listen"`
}

func Default() Config {
	return Config{
		Time: TimeConfig{SkewThresholdMs: defaultSkewThresholdMs},
		Database: DatabaseConfig{
			Path: "n2krouter.db",
		},
		Broadcast: BroadcastConfig{
			MQTTTopic: "vessel/n2k",
		},
	}
}

// Load reads and normalizes the configuration. Unknown keys are ignored.
func Load(path string, logf func(format string, a ...any)) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: could not read %v: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: could not parse %v: %w", path, err)
	}
	cfg.normalize(logf)
	if cfg.CanInterface == "" {
		return Config{}, ErrMissingInterface
	}
	return cfg, nil
}

func (c *Config) normalize(logf func(format string, a ...any)) {
	if logf == nil {
		logf = func(format string, a ...any) {}
	}
	if c.Time.SkewThresholdMs != 0 && c.Time.SkewThresholdMs < minSkewThresholdMs {
		logf("config: time.skew_threshold_ms %v below minimum, using %v", c.Time.SkewThresholdMs, minSkewThresholdMs)
		c.Time.SkewThresholdMs = minSkewThresholdMs
	}
	if c.Time.SkewThresholdMs == 0 {
		c.Time.SkewThresholdMs = defaultSkewThresholdMs
	}

	c.Database.VesselStatus.IntervalMooredSeconds = clampInterval(
		"database.vessel_status.interval_moored_seconds", c.Database.VesselStatus.IntervalMooredSeconds, logf)
	c.Database.VesselStatus.IntervalUnderwaySeconds = clampInterval(
		"database.vessel_status.interval_underway_seconds", c.Database.VesselStatus.IntervalUnderwaySeconds, logf)

	env := &c.Database.Environmental
	env.PressureSeconds = clampInterval("database.environmental.pressure_seconds", env.PressureSeconds, logf)
	env.CabinTempSeconds = clampInterval("database.environmental.cabin_temp_seconds", env.CabinTempSeconds, logf)
	env.WaterTempSeconds = clampInterval("database.environmental.water_temp_seconds", env.WaterTempSeconds, logf)
	env.HumiditySeconds = clampInterval("database.environmental.humidity_seconds", env.HumiditySeconds, logf)
	env.WindSpeedSeconds = clampInterval("database.environmental.wind_speed_seconds", env.WindSpeedSeconds, logf)
	env.WindDirectionSeconds = clampInterval("database.environmental.wind_direction_seconds", env.WindDirectionSeconds, logf)
	env.RollSeconds = clampInterval("database.environmental.roll_seconds", env.RollSeconds, logf)

	for pgn, source := range c.SourceFilter.PGNSourceMap {
		if pgn < minFilterPGN || pgn > maxFilterPGN || source < minFilterSource || source > maxFilterSource {
			logf("config: dropping invalid source_filter entry %v: %v", pgn, source)
			delete(c.SourceFilter.PGNSourceMap, pgn)
		}
	}
}

// clampInterval clamps a configured interval into [30, 600] seconds. Zero
// means unset and stays zero so the component default applies.
func clampInterval(name string, seconds int, logf func(format string, a ...any)) int {
	if seconds == 0 {
		return 0
	}
	if seconds < MinIntervalSeconds {
		logf("config: %v %v below minimum, using %v", name, seconds, MinIntervalSeconds)
		return MinIntervalSeconds
	}
	if seconds > MaxIntervalSeconds {
		logf("config: %v %v above maximum, using %v", name, seconds, MaxIntervalSeconds)
		return MaxIntervalSeconds
	}
	return seconds
}

// SkewThreshold returns the gate threshold as a duration.
func (c Config) SkewThreshold() time.Duration {
	return time.Duration(c.Time.SkewThresholdMs) * time.Millisecond
}

// VesselIntervals returns the configured status intervals, zero when unset.
func (c Config) VesselIntervals() (moored, underway time.Duration) {
	return time.Duration(c.Database.VesselStatus.IntervalMooredSeconds) * time.Second,
		time.Duration(c.Database.VesselStatus.IntervalUnderwaySeconds) * time.Second
}

// MetricIntervals returns the configured per-metric intervals, skipping
// unset ones.
func (c Config) MetricIntervals() map[monitor.MetricID]time.Duration {
	env := c.Database.Environmental
	seconds := map[monitor.MetricID]int{
		monitor.MetricPressure:      env.PressureSeconds,
		monitor.MetricCabinTemp:     env.CabinTempSeconds,
		monitor.MetricWaterTemp:     env.WaterTempSeconds,
		monitor.MetricHumidity:      env.HumiditySeconds,
		monitor.MetricWindSpeed:     env.WindSpeedSeconds,
		monitor.MetricWindDirection: env.WindDirectionSeconds,
		monitor.MetricRoll:          env.RollSeconds,
	}
	intervals := make(map[monitor.MetricID]time.Duration)
	for metric, s := range seconds {
		if s > 0 {
			intervals[metric] = time.Duration(s) * time.Second
		}
	}
	return intervals
}
