package models

import "github.com/google/uuid"

type Product struct {
	BaseModel
	Slug          string         `gorm:"uniqueIndex" json:"slug"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Price         int64          `json:"price"`
	Currency      string         `json:"currency"`
	StockQuantity int            `json:"stock_quantity"`
	IsActive      bool           `json:"is_active"`
	RatingAverage float64        `json:"rating_average"`
	RatingCount   int            `json:"rating_count"`
	CategoryID    *uuid.UUID     `gorm:"type:uuid" json:"category_id"`
	Category      *Category      `json:"category,omitempty"`
	Images        []ProductImage `json:"images,omitempty"`
	Sizes         []Size         `gorm:"many2many:product_sizes;" json:"sizes,omitempty"`
	Colors        []Color        `gorm:"many2many:product_colors;" json:"colors,omitempty"`
	Reviews       []Review       `json:"reviews,omitempty"`
}

type ProductImage struct {
	BaseModel
	ProductID    uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	URL          string    `json:"url"`
	AltText      string    `json:"alt_text"`
	DisplayOrder int       `json:"display_order"`
}

// Review is a customer product review. Moderation happens outside this
// service; rows are stored as submitted.
type Review struct {
	BaseModel
	ProductID uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	UserID    uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User      *User     `json:"user,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
}
