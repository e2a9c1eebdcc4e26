package appointments

import "strings"

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusNoShow    Status = "NO_SHOW"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow}

var transitions = map[Status][]Status{
	StatusScheduled: {StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
	StatusCompleted: nil,
	StatusCancelled: nil,
	StatusNoShow:    nil,
}

// ParseStatus accepts a status name in any case.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// AllowedTransitions returns the statuses reachable from s.
func AllowedTransitions(s Status) []Status {
	return append([]Status(nil), transitions[s]...)
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
// Staying in the same status is not an edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
