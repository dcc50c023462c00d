package models

// Product maps to the `products` table.
type Product struct {
	ID    uint    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Code  string  `gorm:"column:code;uniqueIndex;size:100" json:"code"`
	Name  string  `gorm:"column:name;size:255" json:"name"`
	Price float64 `gorm:"column:price;type:decimal(12,2)" json:"price"`
	Stock int     `gorm:"column:stock" json:"stock"`
}

func (Product) TableName() string {
	return "products"
}
