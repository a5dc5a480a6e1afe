// Package config loads the boostd configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/uditkarode/cpu-event-boost/internal/boost"
)

const DefaultPath = "/etc/boostd/config.toml"

// maxRTPriority is the highest SCHED_RR priority a thread can request.
const maxRTPriority = 99

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Boost      BoostConfig      `toml:"boost"`
	Thresholds ThresholdsConfig `toml:"thresholds"`
	Clusters   ClustersConfig   `toml:"clusters"`
	Worker     WorkerConfig     `toml:"worker"`
	CPUFreq    CPUFreqConfig    `toml:"cpufreq"`
	API        APIConfig        `toml:"api"`
}

type BoostConfig struct {
	// CompensateMs is how long a compensate boost lasts after a delay event.
	CompensateMs int `toml:"compensate_ms"`
	// InputBoostMs is the max boost duration used when a request carries none.
	InputBoostMs int `toml:"input_boost_ms"`
}

type ThresholdsConfig struct {
	MediumMs   int `toml:"medium_ms"`
	CriticalMs int `toml:"critical_ms"`
}

type ClustersConfig struct {
	LowPower    ClusterConfig `toml:"low_power"`
	Performance ClusterConfig `toml:"performance"`
}

// ClusterConfig holds the cpu list and frequency floors of one cluster, all
// frequencies in kHz.
type ClusterConfig struct {
	CPUs              string `toml:"cpus"`
	FloorKHz          uint   `toml:"floor_khz"`
	MidCompensateKHz  uint   `toml:"mid_compensate_khz"`
	CritCompensateKHz uint   `toml:"crit_compensate_khz"`
	MaxBoostKHz       uint   `toml:"max_boost_khz"`
}

type WorkerConfig struct {
	Realtime        bool `toml:"realtime"`
	Priority        int  `toml:"priority"`
	RequireRealtime bool `toml:"require_realtime"`
}

type CPUFreqConfig struct {
	DryRun bool `toml:"dry_run"`
}

type APIConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

func DefaultConfig() Config {
	return Config{
		Boost: BoostConfig{
			CompensateMs: 100,
			InputBoostMs: 250,
		},
		Thresholds: ThresholdsConfig{
			MediumMs:   8,
			CriticalMs: 16,
		},
		Clusters: ClustersConfig{
			LowPower: ClusterConfig{
				CPUs:              "0-3",
				FloorKHz:          576000,
				MidCompensateKHz:  1248000,
				CritCompensateKHz: 998400,
				MaxBoostKHz:       1766400,
			},
			Performance: ClusterConfig{
				CPUs:              "4-7",
				FloorKHz:          652800,
				MidCompensateKHz:  1574400,
				CritCompensateKHz: 1267200,
				MaxBoostKHz:       2803200,
			},
		},
		Worker: WorkerConfig{
			Realtime: true,
			Priority: maxRTPriority,
		},
		API: APIConfig{
			Enabled: true,
			Listen:  "127.0.0.1:9876",
		},
	}
}

// Load reads the configuration at path on top of the defaults. A missing file
// is not an error, the defaults are returned as they are.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return cfg, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalidConfig, path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate reports every problem found, not only the first one.
func (c Config) Validate() error {
	var errs []error

	if c.Boost.CompensateMs <= 0 {
		errs = append(errs, fmt.Errorf("boost.compensate_ms must be positive, got %d", c.Boost.CompensateMs))
	}
	if c.Boost.InputBoostMs <= 0 {
		errs = append(errs, fmt.Errorf("boost.input_boost_ms must be positive, got %d", c.Boost.InputBoostMs))
	}
	if c.Thresholds.MediumMs < 0 {
		errs = append(errs, fmt.Errorf("thresholds.medium_ms must not be negative, got %d", c.Thresholds.MediumMs))
	}
	if c.Thresholds.CriticalMs <= c.Thresholds.MediumMs {
		errs = append(errs, fmt.Errorf("thresholds.critical_ms (%d) must be above thresholds.medium_ms (%d)",
			c.Thresholds.CriticalMs, c.Thresholds.MediumMs))
	}

	errs = append(errs, c.Clusters.LowPower.validate("clusters.low_power")...)
	errs = append(errs, c.Clusters.Performance.validate("clusters.performance")...)

	if c.Worker.Realtime && (c.Worker.Priority < 1 || c.Worker.Priority > maxRTPriority) {
		errs = append(errs, fmt.Errorf("worker.priority must be within [1, %d], got %d", maxRTPriority, c.Worker.Priority))
	}
	if c.API.Enabled && c.API.Listen == "" {
		errs = append(errs, errors.New("api.listen must be set when the api is enabled"))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func (c ClusterConfig) validate(section string) []error {
	var errs []error

	if strings.TrimSpace(c.CPUs) == "" {
		errs = append(errs, fmt.Errorf("%s.cpus must not be empty", section))
	}
	if c.FloorKHz == 0 {
		errs = append(errs, fmt.Errorf("%s.floor_khz must be positive", section))
	}
	if c.MaxBoostKHz < c.FloorKHz {
		errs = append(errs, fmt.Errorf("%s.max_boost_khz (%d) must not be below floor_khz (%d)", section, c.MaxBoostKHz, c.FloorKHz))
	}

	return errs
}

func (c ClusterConfig) frequencies() boost.ClusterFrequencies {
	return boost.ClusterFrequencies{
		Floor:          c.FloorKHz,
		MidCompensate:  c.MidCompensateKHz,
		CritCompensate: c.CritCompensateKHz,
		MaxBoost:       c.MaxBoostKHz,
	}
}

func (c Config) Frequencies() boost.FrequencyTable {
	return boost.FrequencyTable{
		LowPower:    c.Clusters.LowPower.frequencies(),
		Performance: c.Clusters.Performance.frequencies(),
	}
}

func (c Config) InputBoostDuration() time.Duration {
	return time.Duration(c.Boost.InputBoostMs) * time.Millisecond
}

// BoostOptions converts the configuration into coordinator options. Clock
// and Hook are left for the caller.
func (c Config) BoostOptions() boost.Options {
	return boost.Options{
		Frequencies: c.Frequencies(),
		Thresholds: boost.Thresholds{
			Medium:   time.Duration(c.Thresholds.MediumMs) * time.Millisecond,
			Critical: time.Duration(c.Thresholds.CriticalMs) * time.Millisecond,
		},
		CompensateDuration: time.Duration(c.Boost.CompensateMs) * time.Millisecond,
		Worker: boost.WorkerOptions{
			Realtime:        c.Worker.Realtime,
			Priority:        c.Worker.Priority,
			RequireRealtime: c.Worker.RequireRealtime,
		},
	}
}
