package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shopgate/internal/gateway"
	"shopgate/internal/models"
	"shopgate/internal/pkg/utils"
)

var (
	// ErrBadSignature means the recomputed signature did not match the
	// claimed one. No order state is touched in that case.
	ErrBadSignature = errors.New("notification signature mismatch")
	// ErrMissingReference means the notification carried no payment
	// reference to correlate with.
	ErrMissingReference = errors.New("notification has no payment reference")
	// ErrUnknownReference means no order exists for the reference.
	ErrUnknownReference = errors.New("no order for payment reference")
	// ErrValidateRejected means the gateway's validation endpoint refused
	// to confirm the notification.
	ErrValidateRejected = errors.New("gateway rejected notification validation")
)

// Orders is the subset of order persistence the verifier drives. MarkPaid
// and MarkFailed are compare-and-set updates: false with a nil error means
// another call already won the transition.
type Orders interface {
	FindByReference(reference string) (*models.Order, error)
	MarkPaid(reference, gatewayTxID, rawNotification string, paidAt time.Time) (bool, error)
	MarkFailed(reference, gatewayTxID, rawNotification string) (bool, error)
}

// Stock decrements reserved stock once a payment completes.
type Stock interface {
	DecrementStock(code string, quantity int) (bool, error)
}

// Validator confirms a notification with the gateway's own validation
// endpoint.
type Validator interface {
	Validate(ctx context.Context, reference string) (bool, error)
}

// Alerter posts operator-facing payment reports.
type Alerter interface {
	PaymentReceived(order *models.Order, gatewayTxID string) error
}

// Outcome reports what processing a notification did. Transitioned is
// false for idempotent replays, lost races and unrecognized outcome codes.
// AuxErr records a failed best-effort side effect; it is surfaced for
// observability only and never turns the acknowledgement into a failure.
type Outcome struct {
	Reference    string
	Status       string
	Transitioned bool
	AuxErr       error
}

// Verifier is the sole trusted entry point for order state transitions. It
// is stateless per call; all state lives in the order store.
type Verifier struct {
	orders     Orders
	stock      Stock
	validator  Validator
	alerter    Alerter
	passphrase string
	validate   bool
	logger     *zap.Logger
}

func NewVerifier(orders Orders, stock Stock, validator Validator, passphrase string, validate bool, logger *zap.Logger) *Verifier {
	return &Verifier{
		orders:     orders,
		stock:      stock,
		validator:  validator,
		passphrase: passphrase,
		validate:   validate,
		logger:     logger,
	}
}

// WithAlerter attaches an optional operator alert channel.
func (v *Verifier) WithAlerter(a Alerter) *Verifier {
	v.alerter = a
	return v
}

// Process authenticates an inbound notification and applies its outcome to
// the order exactly once. The claimed signature is removed from the field
// set before recomputing, so it is never part of its own input.
func (v *Verifier) Process(ctx context.Context, fields gateway.Params) (*Outcome, error) {
	claimed := fields["signature"]
	params := make(gateway.Params, len(fields))
	for k, val := range fields {
		if k == "signature" {
			continue
		}
		params[k] = val
	}

	if !gateway.VerifySignature(params, v.passphrase, claimed) {
		// Log the field set used for the recompute, never the secret.
		v.logger.Warn("notification signature mismatch",
			zap.Strings("fields", fieldNames(params)),
			zap.String("m_payment_id", params["m_payment_id"]))
		return nil, ErrBadSignature
	}

	reference := params["m_payment_id"]
	if reference == "" {
		return nil, ErrMissingReference
	}

	if v.validate {
		ok, err := v.validator.Validate(ctx, reference)
		if err != nil {
			// Unreachable validation endpoint is a failure, not a silent
			// pass; the gateway will redeliver.
			return nil, fmt.Errorf("notification validation unreachable: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrValidateRejected, reference)
		}
	}

	order, err := v.orders.FindByReference(reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownReference, reference)
		}
		return nil, fmt.Errorf("order lookup failed: %w", err)
	}

	// Terminal states absorb redelivery as a no-op success.
	if order.Status != models.OrderStatusPending {
		v.logger.Info("notification replay for settled order",
			zap.String("reference", reference),
			zap.String("status", order.Status))
		return &Outcome{Reference: reference, Status: order.Status}, nil
	}

	gatewayTxID := params["pf_payment_id"]
	raw := encodeRaw(params)

	switch params["payment_status"] {
	case gateway.StatusComplete:
		return v.applyComplete(order, params, gatewayTxID, raw)

	case gateway.StatusFailed, gateway.StatusCancelled:
		won, err := v.orders.MarkFailed(reference, gatewayTxID, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to record failed payment: %w", err)
		}
		if won {
			v.logger.Info("order marked failed",
				zap.String("reference", reference),
				zap.String("payment_status", params["payment_status"]))
		}
		return &Outcome{Reference: reference, Status: models.OrderStatusFailed, Transitioned: won}, nil

	default:
		// Unknown outcome codes are not guessed at; the order stays
		// pending for manual follow-up.
		v.logger.Warn("unrecognized payment outcome, order left pending",
			zap.String("reference", reference),
			zap.String("payment_status", params["payment_status"]))
		return &Outcome{Reference: reference, Status: models.OrderStatusPending}, nil
	}
}

func (v *Verifier) applyComplete(order *models.Order, params gateway.Params, gatewayTxID, raw string) (*Outcome, error) {
	reference := order.Reference

	// The signature already proved origin; a gross amount that disagrees
	// with the stored total still points at a data problem, so the order is
	// held for manual follow-up instead of being settled.
	if gross := params["amount_gross"]; gross != "" {
		amount, err := strconv.ParseFloat(gross, 64)
		if err != nil || !utils.AmountEquals(amount, order.Amount) {
			v.logger.Warn("notification amount disagrees with order, order left pending",
				zap.String("reference", reference),
				zap.String("amount_gross", gross),
				zap.Float64("order_amount", order.Amount))
			return &Outcome{Reference: reference, Status: models.OrderStatusPending}, nil
		}
	}

	won, err := v.orders.MarkPaid(reference, gatewayTxID, raw, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to record paid order: %w", err)
	}
	if !won {
		// A concurrent delivery beat us to the transition.
		v.logger.Info("lost transition race, order already settled",
			zap.String("reference", reference))
		return &Outcome{Reference: reference, Status: models.OrderStatusPaid}, nil
	}

	out := &Outcome{Reference: reference, Status: models.OrderStatusPaid, Transitioned: true}

	// Post-payment side effects are best effort: their failure is logged
	// and recorded on the outcome, never escalated back to the gateway.
	for _, item := range order.Items {
		ok, err := v.stock.DecrementStock(item.ProductCode, item.Quantity)
		if err != nil || !ok {
			v.logger.Error("stock decrement failed after payment",
				zap.String("reference", reference),
				zap.String("product", item.ProductCode),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
			out.AuxErr = fmt.Errorf("stock decrement failed for %s", item.ProductCode)
		}
	}

	if v.alerter != nil {
		if err := v.alerter.PaymentReceived(order, gatewayTxID); err != nil {
			v.logger.Warn("payment alert failed", zap.String("reference", reference), zap.Error(err))
		}
	}

	v.logger.Info("order marked paid",
		zap.String("reference", reference),
		zap.String("gateway_tx_id", gatewayTxID))

	return out, nil
}

// encodeRaw renders the verified field set in a stable form for the audit
// archive on the order row.
func encodeRaw(params gateway.Params) string {
	values := make(url.Values, len(params))
	for k, v := range params {
		values.Set(k, v)
	}
	return values.Encode()
}

func fieldNames(params gateway.Params) []string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
