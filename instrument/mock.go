package instrument

import (
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultBaseCapacitance is the mock meter's baseline in farads.
	DefaultBaseCapacitance = 1e-12
	// DefaultNoiseLevel is the fractional standard deviation of mock readings.
	DefaultNoiseLevel = 0.01
	// MockIdentity is the mock meter's *IDN? response.
	MockIdentity = "Mock,LCR-Meter,12345,1.0"

	ackResponse = "OK"
)

// MockLCRMeter stands in for a bench LCR meter. Capacitance queries return
// the baseline perturbed by multiplicative Gaussian noise drawn from the
// meter's own random source; it is safe for concurrent use.
type MockLCRMeter struct {
	mu              sync.Mutex
	baseCapacitance float64
	noiseLevel      float64
	connected       bool
	rng             *rand.Rand
	writes          []string
}

// MockOption customises a MockLCRMeter.
type MockOption func(*MockLCRMeter)

// WithNoiseLevel sets the fractional standard deviation of readings.
func WithNoiseLevel(level float64) MockOption {
	return func(m *MockLCRMeter) { m.noiseLevel = level }
}

// WithSeed seeds the meter's random source for reproducible readings.
func WithSeed(seed int64) MockOption {
	return func(m *MockLCRMeter) { m.rng = rand.New(rand.NewSource(seed)) }
}

// WithRand hands the meter an existing random source. The meter serialises
// its own draws but the caller must not share r with other goroutines.
func WithRand(r *rand.Rand) MockOption {
	return func(m *MockLCRMeter) { m.rng = r }
}

// NewMockLCRMeter returns a connected meter with the given baseline in farads.
// A non-positive baseline selects DefaultBaseCapacitance.
func NewMockLCRMeter(baseCapacitance float64, opts ...MockOption) *MockLCRMeter {
	if baseCapacitance <= 0 {
		baseCapacitance = DefaultBaseCapacitance
	}
	m := &MockLCRMeter{
		baseCapacitance: baseCapacitance,
		noiseLevel:      DefaultNoiseLevel,
		connected:       true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return m
}

// Query answers capacitance and identification queries; anything else is
// acknowledged with "OK".
func (m *MockLCRMeter) Query(command string) (string, error) {
	switch {
	case strings.Contains(command, measurePrefix):
		m.mu.Lock()
		noise := m.rng.NormFloat64() * m.noiseLevel
		value := m.baseCapacitance * (1 + noise)
		m.mu.Unlock()
		return strconv.FormatFloat(value, 'e', 12, 64), nil
	case strings.Contains(command, IdentifyCommand):
		return MockIdentity, nil
	default:
		return ackResponse, nil
	}
}

// Write records the command and otherwise does nothing.
func (m *MockLCRMeter) Write(command string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, command)
	return nil
}

// Close marks the meter disconnected. It is a state flag only: queries keep
// working afterwards.
func (m *MockLCRMeter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

// Connected reports whether Close has not yet been called.
func (m *MockLCRMeter) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// BaseCapacitance returns the baseline in farads.
func (m *MockLCRMeter) BaseCapacitance() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseCapacitance
}

// SetBaseCapacitance moves the baseline, e.g. to follow a simulated load.
func (m *MockLCRMeter) SetBaseCapacitance(f float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseCapacitance = f
}

// NoiseLevel returns the fractional standard deviation of readings.
func (m *MockLCRMeter) NoiseLevel() float64 {
	return m.noiseLevel
}

// Writes returns every command passed to Write, in order.
func (m *MockLCRMeter) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...)
}
