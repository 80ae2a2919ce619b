package enum

// ── Line units ──

const (
	UnitWeight = "KG"   // weight-based, fractional quantities
	UnitCount  = "UNIT" // count-based
)

// ── Selection sets (two per table) ──

const (
	SelectionKitchen = "kitchen"
	SelectionPayment = "payment"
)

// ── Derived line states ──

const (
	LineStateNew              = "NEW"
	LineStateQueuedForKitchen = "QUEUED_FOR_KITCHEN"
	LineStateDispatched       = "DISPATCHED"
	LineStateQueuedForPayment = "QUEUED_FOR_PAYMENT"
)

// ── Batch statuses (first row of a persisted batch only) ──

const (
	KitchenStatusPending = "pending"
	KitchenStatusDone    = "done"
	OrderStatusPaid      = "paid"
)

const (
	PaymentMethodCash     = "CASH"
	PaymentMethodDebit    = "DEBIT"
	PaymentMethodTransfer = "TRANSFER"
)

// ── Engine policies ──

const (
	WritePolicyOptimistic  = "optimistic"
	WritePolicyPessimistic = "pessimistic"
)

const (
	SettlementGuardGlobal = "global"
	SettlementGuardTable  = "table"
)

// ── Change-feed collections ──

const (
	CollectionTables       = "table_config"
	CollectionLines        = "working_order_lines"
	CollectionKitchenQueue = "kitchen_queue"
	CollectionSettled      = "settled_orders"
)

func IsValidUnit(s string) bool {
	return s == UnitWeight || s == UnitCount
}

func IsValidSelection(s string) bool {
	return s == SelectionKitchen || s == SelectionPayment
}

func IsValidPaymentMethod(s string) bool {
	switch s {
	case PaymentMethodCash, PaymentMethodDebit, PaymentMethodTransfer:
		return true
	}
	return false
}
