package acquisition

import (
	"errors"
	"sync"
	"time"

	"github.com/signalsfoundry/auxetic-sensor/timectrl"
)

var epoch = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

// scriptedInstrument replays canned query responses in order; an empty
// entry is answered with an error.
type scriptedInstrument struct {
	mu        sync.Mutex
	responses []string
	next      int
}

func (s *scriptedInstrument) Query(string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.responses) {
		return "", errors.New("script exhausted")
	}
	r := s.responses[s.next]
	s.next++
	if r == "" {
		return "", errors.New("no response")
	}
	return r, nil
}

func newVirtualClock() *timectrl.ManualClock {
	return timectrl.NewManualClock(epoch)
}
