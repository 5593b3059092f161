package fulfillment

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusProducing       Status = "producing"
	StatusProduced        Status = "produced"
	StatusPreparing       Status = "preparing"
	StatusReady           Status = "ready"
	StatusCancelled       Status = "cancelled"
)

// ErrUnknownStatus is returned when a status code is not one of the canonical values.
var ErrUnknownStatus = errors.New("unknown order status")

var statuses = map[Status]struct{}{
	StatusPendingApproval: {},
	StatusProducing:       {},
	StatusProduced:        {},
	StatusPreparing:       {},
	StatusReady:           {},
	StatusCancelled:       {},
}

// ParseStatus converts a canonical status code into a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.TrimSpace(s))
	if _, ok := statuses[status]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return status, nil
}

// Terminal reports whether no further transition may leave this status.
func (s Status) Terminal() bool {
	return s == StatusCancelled
}

func (s Status) String() string {
	return string(s)
}
