package models

import "strings"

type Status string

const (
	StatusDraft        Status = "Draft"
	StatusQueued       Status = "Queued"
	StatusSent         Status = "Sent"
	StatusDelivered    Status = "Delivered"
	StatusRead         Status = "Read"
	StatusFailed       Status = "Failed"
	StatusReceived     Status = "Received"
	StatusMarkedAsSeen Status = "Marked As Seen"
)

// Rank within each direction's lifecycle. Failed sits outside the order.
var statusRank = map[Status]int{
	StatusDraft:     0,
	StatusQueued:    1,
	StatusSent:      2,
	StatusDelivered: 3,
	StatusRead:      4,

	StatusReceived:     0,
	StatusMarkedAsSeen: 1,
}

var outgoingStatuses = map[Status]bool{
	StatusDraft: true, StatusQueued: true, StatusSent: true,
	StatusDelivered: true, StatusRead: true, StatusFailed: true,
}

var incomingStatuses = map[Status]bool{
	StatusReceived: true, StatusMarkedAsSeen: true,
}

// ParseProviderStatus title-cases a webhook status string ("delivered" ->
// Delivered). Unknown values report false.
func ParseProviderStatus(s string) (Status, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	st := Status(strings.ToUpper(s[:1]) + s[1:])
	switch st {
	case StatusSent, StatusDelivered, StatusRead, StatusFailed:
		return st, true
	}
	return "", false
}

// ValidFor reports whether the status belongs to the lifecycle of the direction.
func (s Status) ValidFor(d Direction) bool {
	if d == DirectionIncoming {
		return incomingStatuses[s]
	}
	return outgoingStatuses[s]
}

// CanAdvance reports whether moving from -> to is strictly forward in the
// direction's lifecycle. Failed is terminal and only reachable before delivery.
func CanAdvance(d Direction, from, to Status) bool {
	if !to.ValidFor(d) || !from.ValidFor(d) {
		return false
	}
	if from == StatusFailed {
		return false
	}
	if to == StatusFailed {
		return statusRank[from] <= statusRank[StatusSent]
	}
	return statusRank[to] > statusRank[from]
}

// Dispatchable reports whether an outgoing message may still be sent.
func (s Status) Dispatchable() bool {
	return s == StatusDraft || s == StatusQueued || s == ""
}
