package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus is the fulfillment axis of an order. The only legal path
// is PENDING -> CONFIRMED -> SHIPPED -> COMPLETED; CANCELLED is reachable
// from PENDING or CONFIRMED through the cancel operation only.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderShipped   OrderStatus = "SHIPPED"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// PaymentStatus is the money axis, shared by Order and Payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentUnpaid    PaymentStatus = "UNPAID"
	PaymentPaid      PaymentStatus = "PAID"
	PaymentCancelled PaymentStatus = "CANCELLED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// IsTerminal reports whether no further automatic transition is expected
// from this payment status.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentPaid, PaymentFailed, PaymentCancelled, PaymentRefunded:
		return true
	}
	return false
}

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodCreditCard   PaymentMethod = "CREDIT_CARD"
	MethodEWallet      PaymentMethod = "E_WALLET"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

type Order struct {
	BaseModel
	UserID        uuid.UUID      `gorm:"type:uuid;index" json:"user_id"`
	User          *User          `json:"user,omitempty"`
	OrderNumber   string         `gorm:"uniqueIndex" json:"order_number"`
	Status        OrderStatus    `gorm:"type:varchar(16);index" json:"status"`
	PaymentStatus PaymentStatus  `gorm:"type:varchar(16)" json:"payment_status"`
	PaymentMethod PaymentMethod  `gorm:"type:varchar(16)" json:"payment_method"`
	TotalAmount   int64          `json:"total_amount"`
	Currency      string         `json:"currency"`
	Recipient     string         `json:"recipient"`
	Phone         string         `json:"phone"`
	AddressLine   string         `json:"address_line"`
	Ward          string         `json:"ward"`
	District      string         `json:"district"`
	City          string         `json:"city"`
	Note          string         `json:"note"`
	PlacedAt      time.Time      `json:"placed_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	Items         []OrderItem    `json:"items,omitempty"`
	Payment       *Payment       `json:"payment,omitempty"`
}

type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID  `gorm:"type:uuid;index" json:"order_id"`
	ProductID   *uuid.UUID `gorm:"type:uuid" json:"product_id"`
	ProductName string     `json:"product_name"`
	SizeName    string     `json:"size_name"`
	ColorName   string     `json:"color_name"`
	Quantity    int        `json:"quantity"`
	UnitPrice   int64      `json:"unit_price"`
	LineTotal   int64      `json:"line_total"`
}

// OrderStatusLog is the append-only audit trail. One row per accepted
// transition on either status axis; rows are never updated or deleted.
// ChangedBy is null for system/gateway originated changes.
type OrderStatusLog struct {
	BaseModel
	OrderID   uuid.UUID  `gorm:"type:uuid;index" json:"order_id"`
	OldStatus string     `json:"old_status"`
	NewStatus string     `json:"new_status"`
	ChangedBy *uuid.UUID `gorm:"type:uuid" json:"changed_by"`
	Note      string     `json:"note"`
}
