// Package config loads the simulator configuration from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvConfigPath = "CRYSTALSIM_CONFIG"
	EnvAdminKey   = "CRYSTALSIM_ADMIN_KEY"
	EnvRelayKey   = "CRYSTALSIM_RELAY_KEY"
	EnvDBPath     = "CRYSTALSIM_DB"
	EnvPort       = "CRYSTALSIM_PORT"
	EnvSeed       = "CRYSTALSIM_SEED"
	EnvCORS       = "CRYSTALSIM_CORS_ORIGINS" // comma-separated
)

// Config is the full simulator configuration.
type Config struct {
	Seed    int64   `yaml:"seed"` // 0 = random
	Scene   Scene   `yaml:"scene"`
	Engine  Engine  `yaml:"engine"`
	Storage Storage `yaml:"storage"`
	API     API     `yaml:"api"`
}

// Scene controls the scene size and how rays are placed.
type Scene struct {
	Width         float64   `yaml:"width"`
	Height        float64   `yaml:"height"`
	InitialCount  int       `yaml:"initial_count"`
	Orientations  []float64 `yaml:"orientations"` // radians
	MeanSpeed     float64   `yaml:"mean_speed"`
	SpeedJitter   float64   `yaml:"speed_jitter"` // fraction of MeanSpeed, 0–1
	MeanWidth     float64   `yaml:"mean_width"`
	InitialLength float64   `yaml:"initial_length"`
	NoiseScale    float64   `yaml:"noise_scale"` // noise frequency per scene unit
}

// Engine controls the tick loop.
type Engine struct {
	Interval        time.Duration `yaml:"interval"`
	Speed           float64       `yaml:"speed"`
	CheckpointTicks uint64        `yaml:"checkpoint_ticks"` // autosave period
	ReportTicks     uint64        `yaml:"report_ticks"`     // summary log period
}

// Storage controls persistence.
type Storage struct {
	Path string `yaml:"path"`
}

// API controls the HTTP server. Keys come from the environment only.
type API struct {
	Port         int           `yaml:"port"`
	InsertRate   int           `yaml:"insert_rate"`
	InsertWindow time.Duration `yaml:"insert_window"`
	CORSOrigins  []string      `yaml:"cors_origins"`
	AdminKey     string        `yaml:"-"`
	RelayKey     string        `yaml:"-"`
}

// Default returns the stock configuration: a 500×500 scene with five rays on
// the {−1, 0, 1} radian orientation set.
func Default() Config {
	return Config{
		Scene: Scene{
			Width:         500,
			Height:        500,
			InitialCount:  5,
			Orientations:  []float64{-1, 0, 1},
			MeanSpeed:     1,
			SpeedJitter:   0.3,
			MeanWidth:     10,
			InitialLength: 1,
			NoiseScale:    0.01,
		},
		Engine: Engine{
			Interval:        200 * time.Millisecond,
			Speed:           1,
			CheckpointTicks: 300,
			ReportTicks:     50,
		},
		Storage: Storage{Path: "data/crystals.db"},
		API: API{
			Port:         8080,
			InsertRate:   30,
			InsertWindow: time.Minute,
		},
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.API.AdminKey = os.Getenv(EnvAdminKey)
	c.API.RelayKey = os.Getenv(EnvRelayKey)
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv(EnvCORS); v != "" {
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.API.CORSOrigins = append(c.API.CORSOrigins, origin)
			}
		}
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.API.Port = port
	}
	if v := os.Getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeed, err)
		}
		c.Seed = seed
	}
	return nil
}

// Validate checks ranges and returns every problem found.
func (c Config) Validate() error {
	var errs []error
	s := c.Scene
	if s.Width <= 0 || s.Height <= 0 {
		errs = append(errs, fmt.Errorf("scene size must be positive, got %vx%v", s.Width, s.Height))
	}
	if s.InitialCount < 0 {
		errs = append(errs, fmt.Errorf("initial_count must be >= 0, got %d", s.InitialCount))
	}
	if len(s.Orientations) == 0 {
		errs = append(errs, errors.New("orientations must not be empty"))
	}
	for _, o := range s.Orientations {
		if math.IsNaN(o) || math.IsInf(o, 0) {
			errs = append(errs, fmt.Errorf("orientation %v is not finite", o))
		}
	}
	if s.MeanSpeed <= 0 {
		errs = append(errs, fmt.Errorf("mean_speed must be positive, got %v", s.MeanSpeed))
	}
	if s.SpeedJitter < 0 || s.SpeedJitter >= 1 {
		errs = append(errs, fmt.Errorf("speed_jitter must be in [0, 1), got %v", s.SpeedJitter))
	}
	if s.MeanWidth < 0 || s.InitialLength < 0 {
		errs = append(errs, errors.New("mean_width and initial_length must be >= 0"))
	}
	if c.Engine.Interval <= 0 {
		errs = append(errs, fmt.Errorf("engine interval must be positive, got %v", c.Engine.Interval))
	}
	if c.Engine.Speed < 0 {
		errs = append(errs, fmt.Errorf("engine speed must be >= 0, got %v", c.Engine.Speed))
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api port out of range: %d", c.API.Port))
	}
	if c.API.InsertRate <= 0 || c.API.InsertWindow <= 0 {
		errs = append(errs, errors.New("insert_rate and insert_window must be positive"))
	}
	if c.Storage.Path == "" {
		errs = append(errs, errors.New("storage path must be set"))
	}
	return errors.Join(errs...)
}
