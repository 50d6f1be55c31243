package notify

import (
	"sync"

	"github.com/itohio/aquaprobe/pkg/probe"
)

// Subscribers fans readings out to channels. Slow subscribers miss readings.
type Subscribers struct {
	mu   sync.Mutex
	subs map[chan probe.Reading]struct{}
}

// NewSubscribers creates an empty fan-out.
func NewSubscribers() *Subscribers {
	return &Subscribers{subs: make(map[chan probe.Reading]struct{})}
}

// Subscribe returns a channel of readings and a function that unsubscribes
// and closes it.
func (s *Subscribers) Subscribe() (<-chan probe.Reading, func()) {
	ch := make(chan probe.Reading, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
		})
	}
}

// Len returns the number of subscribers.
func (s *Subscribers) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Notify offers r to every subscriber.
func (s *Subscribers) Notify(r probe.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- r:
		default:
		}
	}
	return nil
}
