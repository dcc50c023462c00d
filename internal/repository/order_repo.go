package repository

import (
	"time"

	"gorm.io/gorm"

	"shopgate/internal/models"
)

// OrderRepository handles order database operations.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists a new order together with its item snapshot.
func (r *OrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// FindByReference returns an order and its items by payment reference.
func (r *OrderRepository) FindByReference(reference string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").Where("reference = ?", reference).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindAll returns orders with pagination and search.
func (r *OrderRepository) FindAll(limit, page int, query string) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	db := r.db.Model(&models.Order{})

	if query != "" {
		search := "%" + query + "%"
		db = db.Where("reference LIKE ? OR email LIKE ? OR status LIKE ?",
			search, search, search)
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

	if err := db.Preload("Items").Limit(limit).Offset(offset).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// MarkPaid transitions a pending order to paid, recording the gateway
// correlation fields. The WHERE clause on status makes this a
// compare-and-set: concurrent or redelivered notifications race here and
// exactly one wins. Zero affected rows means another call already moved the
// order out of pending_payment; that is the idempotent-success case, not an
// error.
func (r *OrderRepository) MarkPaid(reference, gatewayTxID, rawNotification string, paidAt time.Time) (bool, error) {
	res := r.db.Model(&models.Order{}).
		Where("reference = ? AND status = ?", reference, models.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":           models.OrderStatusPaid,
			"gateway_tx_id":    gatewayTxID,
			"raw_notification": rawNotification,
			"paid_at":          paidAt,
		})
	return res.RowsAffected > 0, res.Error
}

// MarkFailed transitions a pending order to failed with the same
// compare-and-set semantics as MarkPaid.
func (r *OrderRepository) MarkFailed(reference, gatewayTxID, rawNotification string) (bool, error) {
	res := r.db.Model(&models.Order{}).
		Where("reference = ? AND status = ?", reference, models.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":           models.OrderStatusFailed,
			"gateway_tx_id":    gatewayTxID,
			"raw_notification": rawNotification,
		})
	return res.RowsAffected > 0, res.Error
}

// FindStalePending returns pending orders created before the cutoff,
// oldest first. Used by the audit cron job.
func (r *OrderRepository) FindStalePending(before time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Where("status = ? AND created_at < ?", models.OrderStatusPending, before).
		Order("created_at ASC").Find(&orders).Error
	return orders, err
}
