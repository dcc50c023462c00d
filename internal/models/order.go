package models

import "time"

// Order statuses. pending_payment is the only non-terminal state; once an
// order reaches paid or failed it never transitions again.
const (
	OrderStatusPending = "pending_payment"
	OrderStatusPaid    = "paid"
	OrderStatusFailed  = "failed"
)

// Order maps to the `orders` table. It is created by checkout in
// pending_payment and transitioned exactly once by the notification
// verifier. Prices are a snapshot taken at checkout time.
type Order struct {
	ID        uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Reference string `gorm:"column:reference;uniqueIndex;size:64" json:"reference"`
	Email     string `gorm:"column:email;size:255" json:"email"`
	BuyerName string `gorm:"column:buyer_name;size:255" json:"buyer_name"`
	// Amount is the server-computed total, never the client's number.
	Amount float64 `gorm:"column:amount;type:decimal(12,2)" json:"amount"`
	Status string  `gorm:"column:status;size:32;index;default:pending_payment" json:"status"`
	// Gateway correlation fields, written on transition to a terminal state.
	GatewayTxID     string      `gorm:"column:gateway_tx_id;size:128" json:"gateway_tx_id"`
	RawNotification string      `gorm:"column:raw_notification;type:text" json:"raw_notification"`
	PaidAt          *time.Time  `gorm:"column:paid_at" json:"paid_at"`
	CreatedAt       time.Time   `gorm:"column:created_at" json:"created_at"`
	Items           []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem maps to the `order_items` table.
type OrderItem struct {
	ID          uint    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrderID     uint    `gorm:"column:order_id;index" json:"order_id"`
	ProductCode string  `gorm:"column:product_code;size:100" json:"product_code"`
	ProductName string  `gorm:"column:product_name;size:255" json:"product_name"`
	UnitPrice   float64 `gorm:"column:unit_price;type:decimal(12,2)" json:"unit_price"`
	Quantity    int     `gorm:"column:quantity" json:"quantity"`
	LineTotal   float64 `gorm:"column:line_total;type:decimal(12,2)" json:"line_total"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
