package models

import "github.com/google/uuid"

// Payment is the 1:1 money record for an order. It is created in PENDING
// alongside the order and is the only entity a gateway callback may
// mutate. TransactionCode is assigned by the gateway and acts as the
// idempotency key: at most one payment ever binds to a given code.
type Payment struct {
	BaseModel
	OrderID         uuid.UUID     `gorm:"type:uuid;uniqueIndex" json:"order_id"`
	Order           *Order        `json:"order,omitempty"`
	Status          PaymentStatus `gorm:"type:varchar(16)" json:"status"`
	Amount          int64         `json:"amount"`
	TransactionCode *string       `gorm:"uniqueIndex" json:"transaction_code"`
	AccountNumber   string        `json:"account_number"`
	BankCode        string        `json:"bank_code"`
	Gateway         string        `json:"gateway"`
}
