package orders

import "github.com/freshlane/freshlane-backend/pkg/enums"

// transitions is the single source of truth for the order lifecycle.
// The happy path is linear; cancelled is reachable only from the two
// pre-fulfillment states and only through Cancel, never Advance.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed:  {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
// Terminal states have no outgoing edges.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Cancellable reports whether an order in this status may still be
// cancelled with stock compensation.
func Cancellable(status enums.OrderStatus) bool {
	return CanTransition(status, enums.OrderStatusCancelled)
}
