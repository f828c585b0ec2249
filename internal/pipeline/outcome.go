package pipeline

// Outcome is the result of one successful Step.
type Outcome int

const (
	// Progressed means the head completed one iteration.
	Progressed Outcome = iota + 1
	// Exhausted means the head has no more work. Every later Step returns
	// Exhausted as well.
	Exhausted
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Progressed:
		return "progressed"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}
