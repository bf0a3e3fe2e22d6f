package enums

// BillType classifies the direction of money movement on a bill.
type BillType string

const (
	BillTypeMoneyIn  BillType = "MONEY_IN"
	BillTypeMoneyOut BillType = "MONEY_OUT"
)
