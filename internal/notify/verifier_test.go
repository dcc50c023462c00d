package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shopgate/internal/gateway"
	"shopgate/internal/models"
)

const passphrase = "secret"

type fakeOrders struct {
	orders   map[string]*models.Order
	paidErr  error
	loseRace bool
	markPaid int
}

func (f *fakeOrders) FindByReference(reference string) (*models.Order, error) {
	o, ok := f.orders[reference]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *o
	return &clone, nil
}

func (f *fakeOrders) MarkPaid(reference, gatewayTxID, raw string, paidAt time.Time) (bool, error) {
	if f.paidErr != nil {
		return false, f.paidErr
	}
	if f.loseRace {
		return false, nil
	}
	f.markPaid++
	o := f.orders[reference]
	if o.Status != models.OrderStatusPending {
		return false, nil
	}
	o.Status = models.OrderStatusPaid
	o.GatewayTxID = gatewayTxID
	o.RawNotification = raw
	o.PaidAt = &paidAt
	return true, nil
}

func (f *fakeOrders) MarkFailed(reference, gatewayTxID, raw string) (bool, error) {
	o := f.orders[reference]
	if o.Status != models.OrderStatusPending {
		return false, nil
	}
	o.Status = models.OrderStatusFailed
	o.GatewayTxID = gatewayTxID
	o.RawNotification = raw
	return true, nil
}

type fakeStock struct {
	decremented map[string]int
	failErr     error
}

func (f *fakeStock) DecrementStock(code string, quantity int) (bool, error) {
	if f.failErr != nil {
		return false, f.failErr
	}
	if f.decremented == nil {
		f.decremented = make(map[string]int)
	}
	f.decremented[code] += quantity
	return true, nil
}

type fakeValidator struct {
	ok  bool
	err error
}

func (f *fakeValidator) Validate(ctx context.Context, reference string) (bool, error) {
	return f.ok, f.err
}

func pendingOrder() *models.Order {
	return &models.Order{
		Reference: "ORD-1",
		Email:     "buyer@example.com",
		Amount:    100.00,
		Status:    models.OrderStatusPending,
		Items: []models.OrderItem{
			{ProductCode: "sku1", Quantity: 2},
		},
	}
}

// signedNotification builds a notification field set with a valid signature
// over everything except the signature field itself.
func signedNotification(overrides gateway.Params) gateway.Params {
	fields := gateway.Params{
		"m_payment_id":   "ORD-1",
		"pf_payment_id":  "1089250",
		"payment_status": gateway.StatusComplete,
		"amount_gross":   "100.00",
	}
	for k, v := range overrides {
		if v == "" {
			delete(fields, k)
			continue
		}
		fields[k] = v
	}
	fields["signature"] = gateway.Sign(fields, passphrase)
	return fields
}

func newTestVerifier(orders Orders, stock Stock, validator Validator, validate bool) *Verifier {
	return NewVerifier(orders, stock, validator, passphrase, validate, zap.NewNop())
}

func TestProcessComplete(t *testing.T) {
	orders := &fakeOrders{orders: map[string]*models.Order{"ORD-1": pendingOrder()}}
	stock := &fakeStock{}
	v := newTestVerifier(orders, stock, &fakeValidator{ok: true}, true)

	out, err := v.Process(context.Background(), signedNotification(nil))
	require.NoError(t, err)
	require.True(t, out.Transitioned)
	require.Equal(t, models.OrderStatusPaid, out.Status)
	require.NoError(t, out.AuxErr)

	order := orders.orders["ORD-1"]
	require.Equal(t, models.OrderStatusPaid, order.Status)
	require.Equal(t, "1089250", order.GatewayTxID)
	require.NotEmpty(t, order.RawNotification)
	require.NotNil(t, order.PaidAt)
	require.Equal(t, 2, stock.decremented["sku1"])
}

func TestProcessIdempotentReplay(t *testing.T) {
	orders := &fakeOrders{orders: map[string]*models.Order{"ORD-1": pendingOrder()}}
	stock := &fakeStock{}
	v := newTestVerifier(orders, stock, &fakeValidator{ok: true}, false)
	fields := signedNotification(nil)

	out, err := v.Process(context.Background(), fields)
	require.NoError(t, err)
	require.True(t, out.Transitioned)

	// Same valid notification again: success, no second transition, no
	// duplicate side effects.
	out, err = v.Process(context.Background(), fields)
	require.NoError(t, err)
	require.False(t, out.Transitioned)
	require.Equal(t, models.OrderStatusPaid, out.Status)
	require.Equal(t, 1, orders.markPaid)
	require.Equal(t, 2, stock.decremented["sku1"])
}

func TestProcessBadSignature(t *testing.T) {
	orders := &fakeOrders{orders: map[string]*models.Order{"ORD-1": pendingOrder()}}
	v := newTestVerifier(orders, &fakeStock{}, &fakeValidator{ok: true}, false)

	fields := signedNotification(nil)
	fields["signature"] = "00000000000000000000000000000000"

	_, err := v.Process(context.Background(), fields)
	require.ErrorIs(t, err, ErrBadSignature)
	require.Equal(t, models.OrderStatusPending, orders.orders["ORD-1"].Status)
}

func TestProcessTamperedAmount(t *testing.T) {
	orders := &fakeOrders{orders: map[string]*models.Order{"ORD-1": pendingOrder()}}
	v := newTestVerifier(orders, &fakeStock{}, &fakeValidator{ok: true}, false)

	// Signature computed over the original fields, then the amount changed.
	fields := signedNotification(nil)
	fields["amount_gross"] = "1.00"

	_, err := v.Process(context.Background(), fields)
	require.ErrorIs(t, err, ErrBadSignature)
	require.Equal(t, models.OrderStatusPending, orders.orders["ORD-1"].Status)
}

func TestProcessUnknownReference(t *testing.T) {
	orders := &fakeOrders{orders: map[string]*models.Order{}}
	v := newTestVerifier(orders, &fakeStock{}, &fakeValidator{ok: true}, false)

	_, err := v.Process(context.Background(), signedNotification(nil))
	require.ErrorIs(t, err, ErrUnknownReference)
}

func TestProcessMissingReference(t *testing.T) {
	v := newTestVerifier(&fakeOrders{}, &fakeStock{}, &fakeValidator{ok: true}, false)

	_, err := v.Process(context.Background(), signedNotification(gateway.Params{"m_payment_id": ""}))
	require.ErrorIs(t, err, ErrMissingReference)
}

func TestProcessValidateRejected(t *testing.T) {
	orders := &fakeOrders{orders: map[string]*models.Order{"ORD-1": pendingOrder()}}
	v := newTestVerifier(orders, &fakeStock{}, &fakeValidator{ok: false}, true)

	_, err := v.Process(context.Background(), signedNotification(nil))
	require.ErrorIs(t, err, ErrValidateRejected)
	require.Equal(t, models.OrderStatusPending, orders.orders["ORD-1"].Status)
}

func TestProcessValidateUnreachable(t *testing.T) {
	orders := &fakeOrders{orders: map[string]*models.Order{"ORD-1": pendingOrder()}}
	v := newTestVerifier(orders, &fakeStock{}, &fakeValidator{err: errors.New("connection refused")}, true)

	_, err := v.Process(context.Background(), signedNotification(nil))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrValidateRejected)
	require.Equal(t, models.OrderStatusPending, orders.orders["ORD-1"].Status)
}

func TestProcessFailedAndCancelled(t *testing.T) {
	for _, status := range []string{gateway.StatusFailed, gateway.StatusCancelled} {
		orders := &fakeOrders{orders: map[string]*models.Order{"ORD-1": pendingOrder()}}
		v := newTestVerifier(orders, &fakeStock{}, &fakeValidator{ok: true}, false)

		out, err := v.Process(context.Background(), signedNotification(gateway.Params{"payment_status": status}))
		require.NoError(t, err)
		require.True(t, out.Transitioned)
		require.Equal(t, models.OrderStatusFailed, orders.orders["ORD-1"].Status)
	}
}

func TestProcessUnknownOutcomeLeavesPending(t *testing.T) {
	orders := &fakeOrders{orders: map[string]*models.Order{"ORD-1": pendingOrder()}}
	v := newTestVerifier(orders, &fakeStock{}, &fakeValidator{ok: true}, false)

	out, err := v.Process(context.Background(), signedNotification(gateway.Params{"payment_status": "PENDING"}))
	require.NoError(t, err)
	require.False(t, out.Transitioned)
	require.Equal(t, models.OrderStatusPending, out.Status)
	require.Equal(t, models.OrderStatusPending, orders.orders["ORD-1"].Status)
}

func TestProcessAmountMismatchLeavesPending(t *testing.T) {
	orders := &fakeOrders{orders: map[string]*models.Order{"ORD-1": pendingOrder()}}
	stock := &fakeStock{}
	v := newTestVerifier(orders, stock, &fakeValidator{ok: true}, false)

	out, err := v.Process(context.Background(), signedNotification(gateway.Params{"amount_gross": "90.00"}))
	require.NoError(t, err)
	require.False(t, out.Transitioned)
	require.Equal(t, models.OrderStatusPending, orders.orders["ORD-1"].Status)
	require.Empty(t, stock.decremented)
}

func TestProcessLostRaceIsSuccess(t *testing.T) {
	// The order still reads as pending but the guarded update reports zero
	// rows changed, as when a concurrent delivery commits first.
	orders := &fakeOrders{orders: map[string]*models.Order{"ORD-1": pendingOrder()}, loseRace: true}
	stock := &fakeStock{}
	v := newTestVerifier(orders, stock, &fakeValidator{ok: true}, false)

	out, err := v.Process(context.Background(), signedNotification(nil))
	require.NoError(t, err)
	require.False(t, out.Transitioned)
	require.Equal(t, models.OrderStatusPaid, out.Status)
	require.Empty(t, stock.decremented)
}

func TestProcessStockFailureIsAuxiliary(t *testing.T) {
	orders := &fakeOrders{orders: map[string]*models.Order{"ORD-1": pendingOrder()}}
	stock := &fakeStock{failErr: errors.New("stock service down")}
	v := newTestVerifier(orders, stock, &fakeValidator{ok: true}, false)

	out, err := v.Process(context.Background(), signedNotification(nil))
	require.NoError(t, err, "best-effort side effect failure must not fail the acknowledgement")
	require.True(t, out.Transitioned)
	require.Error(t, out.AuxErr)
	require.Equal(t, models.OrderStatusPaid, orders.orders["ORD-1"].Status)
}

func TestProcessUpstreamWriteFailure(t *testing.T) {
	orders := &fakeOrders{
		orders:  map[string]*models.Order{"ORD-1": pendingOrder()},
		paidErr: errors.New("db gone"),
	}
	v := newTestVerifier(orders, &fakeStock{}, &fakeValidator{ok: true}, false)

	_, err := v.Process(context.Background(), signedNotification(nil))
	require.Error(t, err)
}
