// Package instrument models the command/response contract of an SCPI bench
// instrument and reads capacitance through it.
package instrument

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultChannel is the measurement channel used when none is given.
	DefaultChannel = 1
	// DefaultFrequencyHz is the test-signal frequency used when none is given.
	DefaultFrequencyHz = 1000.0

	// IdentifyCommand asks the instrument for its identity string.
	IdentifyCommand = "*IDN?"

	measurePrefix   = "MEAS:C?"
	frequencyPrefix = "FREQ"
)

// Querier sends a command and returns the instrument's response.
type Querier interface {
	Query(command string) (string, error)
}

// Writer sends a command that needs no response.
type Writer interface {
	Write(command string) error
}

// Closer releases the instrument session.
type Closer interface {
	Close() error
}

var (
	// ErrQueryUnsupported is returned for instruments that cannot answer queries.
	ErrQueryUnsupported = errors.New("instrument does not support queries")
	// ErrInstrumentPanic wraps a panic raised inside an instrument call.
	ErrInstrumentPanic = errors.New("instrument panicked")
	// ErrMalformedResponse reports a response that is not a number.
	ErrMalformedResponse = errors.New("malformed instrument response")
)

// MeasureCapacitanceCommand returns the channel-scoped capacitance query.
func MeasureCapacitanceCommand(channel int) string {
	return fmt.Sprintf("%s (@%d)", measurePrefix, channel)
}

// FrequencyCommand returns the command that sets the test frequency.
func FrequencyCommand(hz float64) string {
	return frequencyPrefix + " " + strconv.FormatFloat(hz, 'g', -1, 64)
}

// Measure takes one capacitance reading from inst.
//
// If inst implements Writer the test frequency is set first; that write is
// best-effort and its error ignored. inst must implement Querier; the
// response is parsed as a float in farads. Panics raised by the instrument
// are recovered and reported as ErrInstrumentPanic.
func Measure(inst any, channel int, frequencyHz float64) (value float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = math.NaN()
			err = fmt.Errorf("%w: %v", ErrInstrumentPanic, r)
		}
	}()

	if w, ok := inst.(Writer); ok {
		_ = w.Write(FrequencyCommand(frequencyHz))
	}

	q, ok := inst.(Querier)
	if !ok {
		return math.NaN(), ErrQueryUnsupported
	}
	resp, err := q.Query(MeasureCapacitanceCommand(channel))
	if err != nil {
		return math.NaN(), fmt.Errorf("query capacitance on channel %d: %w", channel, err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(resp), 64)
	if err != nil {
		return math.NaN(), fmt.Errorf("%w %q: %v", ErrMalformedResponse, resp, err)
	}
	return v, nil
}

// ReadCapacitance is Measure with every failure collapsed to NaN, so callers
// have a single value to filter on regardless of what went wrong.
func ReadCapacitance(inst any, channel int, frequencyHz float64) float64 {
	v, err := Measure(inst, channel, frequencyHz)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Identify returns the instrument's *IDN? response.
func Identify(inst any) (string, error) {
	q, ok := inst.(Querier)
	if !ok {
		return "", ErrQueryUnsupported
	}
	resp, err := q.Query(IdentifyCommand)
	if err != nil {
		return "", fmt.Errorf("identify: %w", err)
	}
	return strings.TrimSpace(resp), nil
}
