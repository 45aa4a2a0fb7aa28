package core

// AnchorKind selects how schedule times are mapped onto the clock.
type AnchorKind int

const (
	AnchorNone   AnchorKind = iota // Times are relative to the start of cooking
	AnchorStart                    // Cooking starts at Clock
	AnchorDinner                   // Dinner is served at Clock
)

// MinutesPerDay is the period of the wall clock.
const MinutesPerDay = 24 * 60

// Anchor fixes a schedule to a time of day.
type Anchor struct {
	Kind  AnchorKind
	Clock int // Minutes after midnight
}

// StartAt anchors the first task at clock.
func StartAt(clock int) Anchor {
	return Anchor{Kind: AnchorStart, Clock: clock}
}

// DinnerAt anchors the end of the schedule at clock.
func DinnerAt(clock int) Anchor {
	return Anchor{Kind: AnchorDinner, Clock: clock}
}

// Offset returns the number of minutes to add to every schedule time.
func (a Anchor) Offset(makespan int) int {
	switch a.Kind {
	case AnchorStart:
		return a.Clock
	case AnchorDinner:
		return a.Clock - makespan
	default:
		return 0
	}
}
