// Package domain holds the lead pipeline domain model: the status set with
// its severity order and the pure transition planning rules.
package domain

// Status is one of the fixed lead pipeline statuses.
type Status string

const (
	StatusNew         Status = "new"
	StatusQualified   Status = "qualified"
	StatusInterested  Status = "interested"
	StatusNegotiation Status = "negotiation"
	StatusFollowUp    Status = "follow_up"
	StatusWon         Status = "won"
	StatusLost        Status = "lost"
)

// statusRank is the total order used for retrocession detection only.
// won/lost are terminal in the ordering sense, not reachable from each
// other via this metric.
var statusRank = map[Status]int{
	StatusNew:         0,
	StatusQualified:   1,
	StatusInterested:  2,
	StatusNegotiation: 3,
	StatusFollowUp:    4,
	StatusWon:         5,
	StatusLost:        6,
}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, bool) {
	s := Status(raw)
	_, ok := statusRank[s]
	return s, ok
}

// Valid reports whether s is one of the fixed statuses.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Rank returns the position of s in the severity order. Unknown statuses
// rank as -1.
func (s Status) Rank() int {
	rank, ok := statusRank[s]
	if !ok {
		return -1
	}
	return rank
}

// IsRetrocession reports whether moving from one status to another goes
// backwards in the pipeline order.
func IsRetrocession(from, to Status) bool {
	return to.Rank() < from.Rank()
}

// AllStatuses returns the fixed status set in pipeline order.
func AllStatuses() []Status {
	return []Status{
		StatusNew,
		StatusQualified,
		StatusInterested,
		StatusNegotiation,
		StatusFollowUp,
		StatusWon,
		StatusLost,
	}
}
