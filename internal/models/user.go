package models

import "github.com/google/uuid"

// User represents a customer account. Staff accounts carry IsStaff and
// unlock the admin surface.
type User struct {
	BaseModel
	FirstName    string        `json:"first_name"`
	LastName     string        `json:"last_name"`
	Email        string        `gorm:"uniqueIndex" json:"email"`
	Phone        string        `json:"phone"`
	PasswordHash string        `json:"-"`
	IsStaff      bool          `json:"is_staff"`
	Addresses    []UserAddress `json:"addresses,omitempty"`
	Orders       []Order       `json:"orders,omitempty"`
}

// UserAddress is a saved delivery address; checkout copies a snapshot of
// it onto the order.
type UserAddress struct {
	BaseModel
	UserID      uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Recipient   string    `json:"recipient"`
	Phone       string    `json:"phone"`
	AddressLine string    `json:"address_line"`
	Ward        string    `json:"ward"`
	District    string    `json:"district"`
	City        string    `json:"city"`
	IsDefault   bool      `json:"is_default"`
}
