package models

type Category struct {
	BaseModel
	Name        string    `json:"name"`
	Slug        string    `gorm:"uniqueIndex" json:"slug"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	Products    []Product `json:"products,omitempty"`
}

type Size struct {
	BaseModel
	Name     string    `json:"name"`
	SortRank int       `json:"sort_rank"`
	Products []Product `gorm:"many2many:product_sizes;" json:"products,omitempty"`
}

type Color struct {
	BaseModel
	Name     string    `json:"name"`
	HexCode  string    `json:"hex_code"`
	Products []Product `gorm:"many2many:product_colors;" json:"products,omitempty"`
}
