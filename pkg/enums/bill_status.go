package enums

// BillStatus is the single source of truth for an order's lifecycle stage.
type BillStatus string

const (
	BillStatusPending   BillStatus = "PENDING"
	BillStatusDone      BillStatus = "DONE"
	BillStatusCancelled BillStatus = "CANCELLED"
	BillStatusRefunded  BillStatus = "REFUNDED"
	BillStatusFailed    BillStatus = "FAILED"
)

// IsValid reports whether the status is one of the known lifecycle states.
func (s BillStatus) IsValid() bool {
	switch s {
	case BillStatusPending, BillStatusDone, BillStatusCancelled, BillStatusRefunded, BillStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status can no longer transition.
func (s BillStatus) IsTerminal() bool {
	return s.IsValid() && s != BillStatusPending
}
