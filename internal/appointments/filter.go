package appointments

import (
	"strings"
	"time"
)

// Filter narrows appointment listings. Zero values match everything.
type Filter struct {
	Query      string
	Status     Status
	CustomerID string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// Matches applies every filter criterion to a.
func (f Filter) Matches(a *Appointment) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.CustomerID != "" && a.CustomerID != f.CustomerID {
		return false
	}
	if f.From != nil && a.AppointmentDate.Before(*f.From) {
		return false
	}
	if f.To != nil && !a.AppointmentDate.Before(*f.To) {
		return false
	}
	return MatchesQuery(a, f.Query)
}

// MatchesQuery is a case-insensitive substring match on client name, client
// email, tattoo style and description. An empty query matches.
func MatchesQuery(a *Appointment, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{a.ClientName, a.ClientEmail, a.TattooStyle, a.Description} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Search returns the appointments matching query, preserving order.
func Search(list []*Appointment, query string) []*Appointment {
	out := make([]*Appointment, 0, len(list))
	for _, a := range list {
		if MatchesQuery(a, query) {
			out = append(out, a)
		}
	}
	return out
}
