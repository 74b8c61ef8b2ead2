// Package config loads the acquisition driver's settings from YAML, applies
// environment overrides and validates the result.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/auxetic-sensor/internal/logging"
	"github.com/signalsfoundry/auxetic-sensor/internal/observability"
	"github.com/signalsfoundry/auxetic-sensor/model"
)

// Environment variables consulted by ApplyEnv, alongside the logging and
// tracing variables read by their own packages.
const (
	EnvInstrumentAddr = "AUXETIC_INSTRUMENT_ADDR"
	EnvMetricsAddr    = "AUXETIC_METRICS_ADDR"
	EnvTracingEnabled = observability.EnvTracingEnabled
)

// Config is the full driver configuration.
type Config struct {
	// Designs to report on; empty means the catalog defaults.
	Designs    []model.Design `yaml:"designs" validate:"dive"`
	InitialGap float64        `yaml:"initial_gap" validate:"gt=0"` // metres

	Instrument  InstrumentConfig  `yaml:"instrument"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Series      SeriesConfig      `yaml:"series"`

	Logging     logging.Config              `yaml:"logging"`
	Tracing     observability.TracingConfig `yaml:"tracing"`
	MetricsAddr string                      `yaml:"metrics_addr" validate:"omitempty,hostname_port"`

	// Accelerated replaces the wall clock with a virtual one so pacing and
	// settle delays complete instantly.
	Accelerated bool `yaml:"accelerated"`
}

// InstrumentConfig selects and tunes the capacitance source. With no
// Address the simulated meter is used.
type InstrumentConfig struct {
	Address     string        `yaml:"address" validate:"omitempty,host_or_hostport"` // port defaults to 5025
	Timeout     time.Duration `yaml:"timeout" validate:"gte=0"`
	Channel     int           `yaml:"channel" validate:"gte=1"`
	FrequencyHz float64       `yaml:"frequency_hz" validate:"gt=0"`
	Mock        MockConfig    `yaml:"mock"`
}

// MockConfig parameterises the simulated meter. Seed 0 draws a random seed.
type MockConfig struct {
	BaseCapacitance float64 `yaml:"base_capacitance" validate:"gt=0"`
	NoiseLevel      float64 `yaml:"noise_level" validate:"gte=0"`
	Seed            int64   `yaml:"seed"`
}

// CalibrationConfig describes the calibration sweep.
type CalibrationConfig struct {
	Loads       []float64     `yaml:"loads" validate:"min=1"`
	NumSamples  int           `yaml:"num_samples" validate:"gte=1"`
	SettleDelay time.Duration `yaml:"settle_delay" validate:"gte=0"`
}

// SeriesConfig describes the time-series run.
type SeriesConfig struct {
	DurationS    float64 `yaml:"duration_s" validate:"gt=0"`
	RateHz       float64 `yaml:"rate_hz" validate:"gt=0"`
	CSVPath      string  `yaml:"csv_path"`
	SmoothWindow int     `yaml:"smooth_window" validate:"gte=0"`
}

// Default returns the configuration the demo runs with when nothing is set.
func Default() *Config {
	return &Config{
		InitialGap: 1e-3,
		Instrument: InstrumentConfig{
			Timeout:     2 * time.Second,
			Channel:     1,
			FrequencyHz: 1000,
			Mock: MockConfig{
				BaseCapacitance: 10e-12,
				NoiseLevel:      0.01,
			},
		},
		Calibration: CalibrationConfig{
			Loads:       []float64{0, 0.5, 1, 1.5, 2},
			NumSamples:  3,
			SettleDelay: 100 * time.Millisecond,
		},
		Series: SeriesConfig{
			DurationS:    2,
			RateHz:       20,
			SmoothWindow: 5,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "text",
		},
		Tracing: observability.TracingConfig{
			ServiceName: "auxetic-acquisition",
			Exporter:    "stdout",
			SampleRatio: 1,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto c. Unset variables leave
// the current values alone.
func (c *Config) ApplyEnv() {
	if addr := os.Getenv(EnvInstrumentAddr); addr != "" {
		c.Instrument.Address = addr
	}
	if addr := os.Getenv(EnvMetricsAddr); addr != "" {
		c.MetricsAddr = addr
	}

	env := logging.ConfigFromEnv()
	if env.Level != "" {
		c.Logging.Level = env.Level
	}
	if env.Format != "" {
		c.Logging.Format = env.Format
	}

	c.applyTracingEnv()
}

// applyTracingEnv overlays only the tracing variables that are set, so a
// file-configured exporter survives AUXETIC_TRACING_ENABLED alone.
func (c *Config) applyTracingEnv() {
	if os.Getenv(EnvTracingEnabled) != "" {
		c.Tracing.Enabled = strings.EqualFold(os.Getenv(EnvTracingEnabled), "true")
	}
	if v := os.Getenv(observability.EnvTracingExporter); v != "" {
		c.Tracing.Exporter = strings.ToLower(v)
	}
	if v := os.Getenv(observability.EnvTracingServiceName); v != "" {
		c.Tracing.ServiceName = v
	}
	if v := os.Getenv(observability.EnvOTLPEndpoint); v != "" {
		c.Tracing.Endpoint = v
	}
	if v := os.Getenv(observability.EnvTracingSampleRatio); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil {
			c.Tracing.SampleRatio = r
		}
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("host_or_hostport", func(fl validator.FieldLevel) bool {
		return isHostOrHostPort(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// isHostOrHostPort accepts "host", "host:port", an IP literal or a
// bracketed IPv6 literal with a port.
func isHostOrHostPort(addr string) bool {
	host := addr
	if h, port, err := net.SplitHostPort(addr); err == nil {
		p, err := strconv.Atoi(port)
		if err != nil || p < 1 || p > 65535 {
			return false
		}
		host = h
	}
	if net.ParseIP(host) != nil {
		return true
	}
	return isHostname(host)
}

func isHostname(host string) bool {
	host = strings.TrimSuffix(host, ".")
	if host == "" || len(host) > 253 {
		return false
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, r := range label {
			if !(r == '-' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
				return false
			}
		}
	}
	return true
}

// Validate checks every field against its constraints. The error names
// the offending YAML key, e.g. "calibration.num_samples".
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		key := e.Namespace()
		if i := strings.IndexByte(key, '.'); i >= 0 {
			key = key[i+1:]
		}
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s: field is required", key))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s: must have at least %s entries", key, e.Param()))
		case "gt", "gte", "lte":
			msgs = append(msgs, fmt.Sprintf("%s: must be %s %s", key, e.Tag(), e.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s: must be one of [%s]", key, e.Param()))
		case "hostname_port":
			msgs = append(msgs, fmt.Sprintf("%s: must be host:port", key))
		case "host_or_hostport":
			msgs = append(msgs, fmt.Sprintf("%s: must be host or host:port", key))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: validation failed (%s)", key, e.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
