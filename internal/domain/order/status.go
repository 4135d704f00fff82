// internal/domain/order/status.go
package order

// transitions lists the only legal status edges.
var transitions = map[Status][]Status{
	StatusPending:        {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusInProduction, StatusCancelled},
	StatusInProduction:   {StatusReadyForPickup, StatusShipped, StatusCancelled},
	StatusReadyForPickup: {StatusDelivered, StatusCancelled},
	StatusShipped:        {StatusDelivered, StatusCancelled},
	StatusDelivered:      {StatusRefunded},
	StatusCancelled:      {},
	StatusRefunded:       {},
}

// AllStatuses returns every order status in lifecycle order
func AllStatuses() []Status {
	return []Status{
		StatusPending,
		StatusConfirmed,
		StatusInProduction,
		StatusReadyForPickup,
		StatusShipped,
		StatusDelivered,
		StatusCancelled,
		StatusRefunded,
	}
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s
func (s Status) IsTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// AllowedTransitions returns the statuses reachable from s in one step
func AllowedTransitions(from Status) []Status {
	next := transitions[from]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether from -> to is a legal edge
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// promotionPath returns the steps auto-promotion takes from current given the
// items' production progress. Only CONFIRMED and IN_PRODUCTION orders move.
func promotionPath(current Status, items []OrderItem) []Status {
	if current != StatusConfirmed && current != StatusInProduction {
		return nil
	}
	if len(items) == 0 {
		return nil
	}

	allCompleted := true
	anyInProgress := false
	for _, item := range items {
		if item.ProductionStatus != ProductionCompleted {
			allCompleted = false
		}
		if item.ProductionStatus == ProductionInProgress {
			anyInProgress = true
		}
	}

	switch {
	case allCompleted && current == StatusConfirmed:
		return []Status{StatusInProduction, StatusReadyForPickup}
	case allCompleted:
		return []Status{StatusReadyForPickup}
	case anyInProgress && current == StatusConfirmed:
		return []Status{StatusInProduction}
	}
	return nil
}
