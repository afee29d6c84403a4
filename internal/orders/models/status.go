package models

// Status is the lifecycle position of an order.
type Status string

const (
	StatusStarted   Status = "started"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// transitions lists every legal status change. Cancellation is allowed from
// every state that is not terminal, including preparing.
var transitions = map[Status][]Status{
	StatusStarted:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusCompleted, StatusCancelled},
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusStarted, StatusConfirmed, StatusPreparing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus validates a status from external input.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", &DomainError{Kind: KindValidation, Detail: "unknown status " + s}
	}
	return st, nil
}

// KitchenStatuses is the default kitchen queue filter.
var KitchenStatuses = []Status{StatusConfirmed, StatusPreparing}
