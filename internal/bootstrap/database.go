package bootstrap

import (
	"fmt"

	"gorm.io/gorm"

	"shopgate/internal/models"
)

// Migrate ensures the required tables exist.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}

// SeedDemoProducts inserts a small demo catalog when the products table is
// empty. Intended for development environments only.
func SeedDemoProducts(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	demo := []models.Product{
		{Code: "sku1", Name: "Gift Card 50", Price: 50.00, Stock: 100},
		{Code: "sku2", Name: "Gift Card 100", Price: 100.00, Stock: 100},
		{Code: "sku3", Name: "Sticker Pack", Price: 4.95, Stock: 500},
	}
	return db.Create(&demo).Error
}
