package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"shopgate/internal/repository"
)

// OrdersHandler serves the admin orders API.
type OrdersHandler struct {
	orders *repository.OrderRepository
	logger *zap.Logger
}

func NewOrdersHandler(orders *repository.OrderRepository, logger *zap.Logger) *OrdersHandler {
	return &OrdersHandler{orders: orders, logger: logger}
}

// Handle routes orders API requests.
// POST /api/orders
func (h *OrdersHandler) Handle(c echo.Context) error {
	action, body, err := parseBodyAction(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}

	switch action {
	case "orders":
		return h.listOrders(c, body)
	case "order":
		return h.getOrder(c, body)
	default:
		return errorResponse(c, http.StatusBadRequest, "Unknown action: "+action)
	}
}

func (h *OrdersHandler) listOrders(c echo.Context, body map[string]interface{}) error {
	limit := getIntField(body, "limit", 50)
	page := getIntField(body, "page", 1)
	q := getStringField(body, "q")
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	if page <= 0 {
		page = 1
	}

	orders, total, err := h.orders.FindAll(limit, page, q)
	if err != nil {
		h.logger.Error("Failed to list orders", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "Failed to retrieve orders")
	}

	return successResponse(c, "Successful", map[string]interface{}{
		"orders": orders,
		"pagination": map[string]interface{}{
			"total_record": total,
			"total_pages":  totalPages(total, limit),
			"current_page": page,
			"per_page":     limit,
		},
	})
}

func (h *OrdersHandler) getOrder(c echo.Context, body map[string]interface{}) error {
	reference := getStringField(body, "reference")
	if reference == "" {
		return errorResponse(c, http.StatusBadRequest, "reference is required")
	}

	order, err := h.orders.FindByReference(reference)
	if err != nil {
		return errorResponse(c, http.StatusNotFound, "Order not found")
	}

	return successResponse(c, "Successful", order)
}
