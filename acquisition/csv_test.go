package acquisition

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/signalsfoundry/auxetic-sensor/model"
)

func TestWriteCSVFormat(t *testing.T) {
	ts := model.TimeSeries{
		{Timestamp: 0, Capacitance: 1e-12},
		{Timestamp: 0.1000004, Capacitance: 1.0123456789012345e-12},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, ts); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "timestamp,capacitance\n" +
		"0.000000,1.000000000000e-12\n" +
		"0.100000,1.012345678901e-12\n"
	if buf.String() != want {
		t.Fatalf("csv =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriteCSVEmptySeriesHasHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if buf.String() != "timestamp,capacitance\n" {
		t.Fatalf("csv = %q, want header only", buf.String())
	}
}

func TestReadCSVRoundTrip(t *testing.T) {
	ts := model.TimeSeries{
		{Timestamp: 0.05, Capacitance: 2.5e-12},
		{Timestamp: 0.15, Capacitance: 2.6e-12},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, ts); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	back, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(back) != 2 || back[0] != ts[0] || back[1] != ts[1] {
		t.Fatalf("round trip = %+v, want %+v", back, ts)
	}
}

func TestReadCSVRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"wrong header":  "time,c\n0,1\n",
		"bad timestamp": "timestamp,capacitance\nabc,1e-12\n",
		"bad value":     "timestamp,capacitance\n0.1,xyz\n",
		"extra column":  "timestamp,capacitance\n0.1,1e-12,7\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadCSV(strings.NewReader(in)); err == nil {
				t.Fatalf("expected error for %q", in)
			}
		})
	}

	if _, err := ReadCSV(strings.NewReader("a,b\n")); !errors.Is(err, ErrBadHeader) {
		t.Fatalf("error = %v, want ErrBadHeader", err)
	}
}
