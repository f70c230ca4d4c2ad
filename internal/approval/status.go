package approval

import "strings"

// Status is the review state shared by documents and properties.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	default:
		return false
	}
}

// ParseStatus normalizes raw input into a Status.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// Aggregate derives a property status from its documents' statuses.
// ok is false when there is nothing to derive from.
func Aggregate(statuses []Status) (Status, bool) {
	if len(statuses) == 0 {
		return "", false
	}
	allAccepted, allRejected := true, true
	for _, s := range statuses {
		if s != StatusAccepted {
			allAccepted = false
		}
		if s != StatusRejected {
			allRejected = false
		}
	}
	switch {
	case allAccepted:
		return StatusAccepted, true
	case allRejected:
		return StatusRejected, true
	default:
		return StatusPending, true
	}
}
