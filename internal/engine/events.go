package engine

// MaxEvents caps the in-memory event history.
const MaxEvents = 1000

// subBuffer is the per-subscriber channel depth. Slow subscribers drop events.
const subBuffer = 64

// Event categories.
const (
	CategoryInserted = "inserted"
	CategoryStopped  = "stopped"
	CategorySettled  = "settled"
)

// Event is a notable occurrence in the scene.
type Event struct {
	Tick        uint64 `json:"tick"`
	Description string `json:"description"`
	Category    string `json:"category"`
	RayID       string `json:"ray_id,omitempty"`
}

// emit records e and fans it out to subscribers. Caller holds s.mu.
func (s *Simulation) emit(e Event) {
	s.events = append(s.events, e)
	if len(s.events) > MaxEvents {
		s.events = s.events[len(s.events)-MaxEvents:]
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// RecentEvents returns up to n of the most recent events, oldest first.
func (s *Simulation) RecentEvents(n int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := len(s.events) - n
	if start < 0 {
		start = 0
	}
	out := make([]Event, len(s.events)-start)
	copy(out, s.events[start:])
	return out
}

// Subscribe registers a listener for new events. The returned channel is
// closed by Unsubscribe.
func (s *Simulation) Subscribe() (int, <-chan Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, subBuffer)
	s.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (s *Simulation) Unsubscribe(id int) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

// Preload seeds the history with events from an earlier run without notifying
// subscribers.
func (s *Simulation) Preload(events []Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(append([]Event(nil), events...), s.events...)
	if len(s.events) > MaxEvents {
		s.events = s.events[len(s.events)-MaxEvents:]
	}
}
