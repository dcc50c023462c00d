package repository

import (
	"gorm.io/gorm"

	"shopgate/internal/models"
)

// ProductRepository handles product database operations.
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// FindByCode returns a product by code.
func (r *ProductRepository) FindByCode(code string) (*models.Product, error) {
	var product models.Product
	if err := r.db.Where("code = ?", code).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindAll returns products with pagination and search.
func (r *ProductRepository) FindAll(limit, page int, query string) ([]models.Product, int64, error) {
	var products []models.Product
	var total int64

	db := r.db.Model(&models.Product{})

	if query != "" {
		search := "%" + query + "%"
		db = db.Where("name LIKE ? OR code LIKE ?", search, search)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	if err := db.Limit(limit).Offset(offset).Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// Create creates a new product.
func (r *ProductRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

// DecrementStock atomically reduces stock for a product, refusing to go
// negative. Returns false when the product is missing or stock is short.
func (r *ProductRepository) DecrementStock(code string, quantity int) (bool, error) {
	res := r.db.Model(&models.Product{}).
		Where("code = ? AND stock >= ?", code, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	return res.RowsAffected > 0, res.Error
}
