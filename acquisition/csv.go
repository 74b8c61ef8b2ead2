package acquisition

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/signalsfoundry/auxetic-sensor/model"
)

// CSV column names; the header line is exactly "timestamp,capacitance".
const (
	ColumnTimestamp   = "timestamp"
	ColumnCapacitance = "capacitance"
)

// ErrBadHeader reports a series file that does not start with the expected header.
var ErrBadHeader = errors.New("series csv: unexpected header")

// WriteCSV writes ts as a header row followed by one row per sample:
// seconds with six decimals, farads in 12-digit exponent form.
func WriteCSV(w io.Writer, ts model.TimeSeries) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColumnTimestamp, ColumnCapacitance}); err != nil {
		return err
	}
	for _, s := range ts {
		row := []string{
			strconv.FormatFloat(s.Timestamp, 'f', 6, 64),
			strconv.FormatFloat(s.Capacitance, 'e', 12, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile creates or truncates path and writes ts to it. The file is
// closed on every path; a failed close is reported like a failed write.
func WriteCSVFile(path string, ts model.TimeSeries) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	if err := WriteCSV(f, ts); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadCSV parses a series written by WriteCSV.
func ReadCSV(r io.Reader) (model.TimeSeries, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrBadHeader
	}
	if err != nil {
		return nil, err
	}
	if header[0] != ColumnTimestamp || header[1] != ColumnCapacitance {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, header)
	}

	var ts model.TimeSeries
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return ts, nil
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		t, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, fmt.Errorf("series csv line %d timestamp: %w", line, err)
		}
		c, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("series csv line %d capacitance: %w", line, err)
		}
		ts = append(ts, model.Sample{Timestamp: t, Capacitance: c})
	}
}

// ReadCSVFile opens path and parses it with ReadCSV.
func ReadCSVFile(path string) (model.TimeSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}
