package resolve

// State memoizes whether a ray's growth front reaches a crossing.
type State uint8

const (
	Unknown    State = iota // not yet queried
	Reached                 // the front arrives at the crossing
	NotReached              // the front is stopped before the crossing
)

func (s State) String() string {
	switch s {
	case Reached:
		return "reached"
	case NotReached:
		return "not_reached"
	default:
		return "unknown"
	}
}

// Pair is an ordered (ray, crossing) query: does ray Ray reach its crossing
// with ray Crossing.
type Pair struct {
	Ray      int `json:"ray"`
	Crossing int `json:"crossing"`
}
