package appointments

import (
	"errors"
	"testing"
)

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses {
		got, err := ParseStatus(string(s))
		if err != nil || got != s {
			t.Fatalf("ParseStatus(%s) = %s, %v", s, got, err)
		}
	}
	if got, err := ParseStatus(" no_show "); err != nil || got != StatusNoShow {
		t.Fatalf("expected case-insensitive parse, got %s %v", got, err)
	}
	if _, err := ParseStatus("ARCHIVED"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusScheduled, StatusConfirmed, true},
		{StatusScheduled, StatusCompleted, true},
		{StatusScheduled, StatusCancelled, true},
		{StatusScheduled, StatusNoShow, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusScheduled, false},
		{StatusCompleted, StatusScheduled, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusNoShow, StatusCompleted, false},
		{StatusScheduled, StatusScheduled, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusCancelled, StatusNoShow} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
		if len(AllowedTransitions(s)) != 0 {
			t.Errorf("%s should have no outgoing edges", s)
		}
	}
	if StatusConfirmed.IsTerminal() || Status("BOGUS").IsTerminal() {
		t.Fatalf("unexpected terminal status")
	}
}

func TestRoundDuration(t *testing.T) {
	cases := map[int]int{0: 30, 29: 30, 30: 30, 31: 45, 60: 60, 119: 120}
	for in, want := range cases {
		if got := roundDuration(in); got != want {
			t.Errorf("roundDuration(%d) = %d, want %d", in, got, want)
		}
	}
}
