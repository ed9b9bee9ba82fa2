package enum

import "strings"

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "PENDING"
	OrderStatusPaid      = "PAID"
	OrderStatusCancelled = "CANCELLED"
	OrderStatusRefunded  = "REFUNDED"
)

const (
	ItemReadinessPending = "PENDING"
	ItemReadinessReady   = "READY"
)

// ── Group B: Routing / configurable labels (no DB constraint) ──

// RoutingSentToKitchen marks an order that the order-entry flow has
// handed to the kitchen/bar production queue.
const RoutingSentToKitchen = "SENT_TO_KITCHEN"

const (
	StationKitchen = "KITCHEN"
	StationBar     = "BAR"
)

const (
	PrintJobReceipt       = "RECEIPT"
	PrintJobRefundReceipt = "REFUND_RECEIPT"
	PrintJobKitchenTicket = "KITCHEN_TICKET"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleOwner   = "OWNER"
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
	UserRoleKitchen = "KITCHEN"
)

// statusSynonyms folds the spellings upstream systems emit into the
// canonical set. Keys must be upper case.
var statusSynonyms = map[string]string{
	"PENDING":   OrderStatusPending,
	"UNPAID":    OrderStatusPending,
	"PAID":      OrderStatusPaid,
	"COMPLETED": OrderStatusPaid,
	"CANCELLED": OrderStatusCancelled,
	"CANCELED":  OrderStatusCancelled,
	"VOID":      OrderStatusCancelled,
	"REFUNDED":  OrderStatusRefunded,
}

// NormalizeOrderStatus maps an upstream status string to its canonical
// form, case-insensitively. The second return reports whether the
// input was recognized; unrecognized inputs come back upper-cased so
// callers can still log or display them.
func NormalizeOrderStatus(s string) (string, bool) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	if canonical, ok := statusSynonyms[upper]; ok {
		return canonical, true
	}
	return upper, false
}

// DisplayStatus returns the label shown to operators for a canonical
// status. CANCELLED is surfaced as "Refunded" because the upstream
// order-entry flow records till-side refunds as cancellations. Display
// only: the stored status is never rewritten, and refund eligibility
// always checks the stored status.
func DisplayStatus(canonical string) string {
	switch canonical {
	case OrderStatusPending:
		return "Pending"
	case OrderStatusPaid:
		return "Paid"
	case OrderStatusCancelled, OrderStatusRefunded:
		return "Refunded"
	default:
		return canonical
	}
}

// IsValidOrderStatus reports whether s is one of the canonical order
// statuses.
func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// IsTerminalOrderStatus reports whether no further transition is
// allowed out of s.
func IsTerminalOrderStatus(s string) bool {
	return s == OrderStatusCancelled || s == OrderStatusRefunded
}

// IsValidStation reports whether s names a production station.
func IsValidStation(s string) bool {
	return s == StationKitchen || s == StationBar
}
