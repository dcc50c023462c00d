package checkout

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shopgate/internal/gateway"
	"shopgate/internal/models"
	"shopgate/internal/pkg/utils"
)

// Client-diagnosable checkout failures. Handlers map these to 4xx; anything
// else is a server fault.
var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrMissingEmail      = errors.New("email is required")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTotal      = errors.New("order total must be positive")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderNotPending   = errors.New("order is not awaiting payment")
)

// CartItem is one requested line in a checkout request. The input schema is
// strict: only product_code and quantity are accepted.
type CartItem struct {
	ProductCode string `json:"product_code"`
	Quantity    int    `json:"quantity"`
}

// Request is the checkout input. Name is optional and descriptive only;
// nothing the client sends influences the amount.
type Request struct {
	Items []CartItem `json:"items"`
	Email string     `json:"email"`
	Name  string     `json:"name"`
}

// Result is the checkout output: the created order's reference and the
// redirect payload for the browser form post.
type Result struct {
	Reference string                  `json:"reference"`
	Amount    string                  `json:"amount"`
	Redirect  gateway.RedirectPayload `json:"redirect"`
}

// Catalog supplies current product pricing and stock.
type Catalog interface {
	FindByCode(code string) (*models.Product, error)
}

// OrderStore persists and loads orders.
type OrderStore interface {
	Create(order *models.Order) error
	FindByReference(reference string) (*models.Order, error)
}

// Service validates carts, computes authoritative totals, persists pending
// orders and builds the signed gateway redirect.
type Service struct {
	catalog   Catalog
	orders    OrderStore
	gateway   *gateway.Client
	publicURL string
	logger    *zap.Logger
}

func NewService(catalog Catalog, orders OrderStore, gw *gateway.Client, publicURL string, logger *zap.Logger) *Service {
	return &Service{
		catalog:   catalog,
		orders:    orders,
		gateway:   gw,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}
}

// Checkout runs the full initiation flow. The parameter set is built and
// signed before the insert, so the order insert is the last fallible step
// and no pending order is left behind by a failed request.
func (s *Service) Checkout(req Request) (*Result, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return nil, ErrMissingEmail
	}

	var items []models.OrderItem
	var total float64
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidQuantity, line.ProductCode)
		}
		product, err := s.catalog.FindByCode(line.ProductCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrProductNotFound, line.ProductCode)
			}
			return nil, fmt.Errorf("catalog lookup for %s failed: %w", line.ProductCode, err)
		}
		if product.Stock < line.Quantity {
			return nil, fmt.Errorf("%w: %s has %d left", ErrInsufficientStock, product.Code, product.Stock)
		}

		lineTotal := utils.Round2(product.Price * float64(line.Quantity))
		items = append(items, models.OrderItem{
			ProductCode: product.Code,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    line.Quantity,
			LineTotal:   lineTotal,
		})
		total += lineTotal
	}
	total = utils.Round2(total)
	if total <= 0 {
		return nil, ErrInvalidTotal
	}

	reference := utils.GenerateOrderReference()

	order := &models.Order{
		Reference: reference,
		Email:     email,
		BuyerName: strings.TrimSpace(req.Name),
		Amount:    total,
		Status:    models.OrderStatusPending,
		Items:     items,
	}

	payload := s.gateway.BuildRedirect(s.redirectRequest(order))

	if err := s.orders.Create(order); err != nil {
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	s.logger.Info("checkout order created",
		zap.String("reference", reference),
		zap.String("amount", utils.FormatAmount(total)),
		zap.Int("items", len(items)))

	return &Result{
		Reference: reference,
		Amount:    utils.FormatAmount(total),
		Redirect:  payload,
	}, nil
}

// RedirectFor rebuilds the signed redirect payload for an existing pending
// order from its persisted snapshot. Signing is deterministic, so the
// result is identical to the one produced at checkout time.
func (s *Service) RedirectFor(reference string) (*gateway.RedirectPayload, error) {
	order, err := s.orders.FindByReference(reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, reference)
		}
		return nil, fmt.Errorf("order lookup failed: %w", err)
	}
	if order.Status != models.OrderStatusPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrOrderNotPending, reference, order.Status)
	}

	payload := s.gateway.BuildRedirect(s.redirectRequest(order))
	return &payload, nil
}

func (s *Service) redirectRequest(order *models.Order) gateway.RedirectRequest {
	return gateway.RedirectRequest{
		Reference:  order.Reference,
		Amount:     utils.FormatAmount(order.Amount),
		ItemName:   itemDescription(order.Items),
		BuyerName:  order.BuyerName,
		BuyerEmail: order.Email,
		ReturnURL:  s.publicURL + "/payment/return",
		CancelURL:  s.publicURL + "/payment/cancel",
		NotifyURL:  s.publicURL + "/payment/notify",
	}
}

func itemDescription(items []models.OrderItem) string {
	if len(items) == 0 {
		return "Order"
	}
	if len(items) == 1 {
		return items[0].ProductName
	}
	return fmt.Sprintf("%s and %d more", items[0].ProductName, len(items)-1)
}
