// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Status is a paper's position in the editorial workflow.
type Status string

const (
	StatusNew       Status = "new"
	StatusDeclined  Status = "declined"
	StatusOptioned  Status = "optioned"
	StatusSolicited Status = "solicited"
	StatusAccepted  Status = "accepted"
)

// Statuses lists every workflow status in board order.
var Statuses = []Status{StatusNew, StatusOptioned, StatusSolicited, StatusAccepted, StatusDeclined}

// ActionedStatuses are the statuses that remove a paper from the new column.
var ActionedStatuses = []Status{StatusDeclined, StatusOptioned, StatusSolicited, StatusAccepted}

// transitions maps each status to the statuses it may move to.
var transitions = map[Status][]Status{
	StatusNew:       {StatusDeclined, StatusOptioned},
	StatusOptioned:  {StatusDeclined, StatusSolicited},
	StatusSolicited: {StatusAccepted, StatusDeclined},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseStatus converts a user-supplied string into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q: use one of new, declined, optioned, solicited, accepted", s)
	}
	return st, nil
}

// CanTransition reports whether a paper may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}
