package enums

// OrderSource records where an order item was staged from.
type OrderSource string

const (
	OrderSourceDirect OrderSource = "DIRECT"
	OrderSourceCart   OrderSource = "CART"
)
