package handler

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"shopgate/internal/checkout"
)

// CheckoutHandler exposes cart checkout and the browser-facing redirect
// pages.
type CheckoutHandler struct {
	svc    *checkout.Service
	logger *zap.Logger
}

func NewCheckoutHandler(svc *checkout.Service, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{svc: svc, logger: logger}
}

// Checkout handles POST /api/checkout.
func (h *CheckoutHandler) Checkout(c echo.Context) error {
	var req checkout.Request
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}

	result, err := h.svc.Checkout(req)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrEmptyCart),
			errors.Is(err, checkout.ErrMissingEmail),
			errors.Is(err, checkout.ErrInvalidQuantity),
			errors.Is(err, checkout.ErrInvalidTotal):
			return errorResponse(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, checkout.ErrProductNotFound):
			return errorResponse(c, http.StatusNotFound, err.Error())
		case errors.Is(err, checkout.ErrInsufficientStock):
			return errorResponse(c, http.StatusConflict, err.Error())
		default:
			h.logger.Error("checkout failed", zap.Error(err))
			return errorResponse(c, http.StatusInternalServerError, "Checkout failed")
		}
	}

	return successResponse(c, "Successful", result)
}

// PayForm handles GET /pay/:reference. It rebuilds the signed parameter set
// from the persisted pending order and renders a self-submitting form that
// posts the buyer to the gateway.
func (h *CheckoutHandler) PayForm(c echo.Context) error {
	reference := c.Param("reference")
	if reference == "" {
		return c.String(http.StatusNotFound, "Not found")
	}

	payload, err := h.svc.RedirectFor(reference)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrOrderNotFound):
			return c.String(http.StatusNotFound, "Order not found")
		case errors.Is(err, checkout.ErrOrderNotPending):
			return c.String(http.StatusConflict, "Order is not awaiting payment")
		default:
			h.logger.Error("pay form failed", zap.String("reference", reference), zap.Error(err))
			return c.String(http.StatusInternalServerError, "Internal error")
		}
	}

	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	return payFormTemplate.Execute(c.Response().Writer, payload)
}

// ReturnPage handles the buyer landing back after a successful gateway
// flow. The authoritative outcome arrives on the notify endpoint; this page
// is presentation only.
func (h *CheckoutHandler) ReturnPage(c echo.Context) error {
	return renderResultPage(c, "Payment received", "Thank you! Your payment is being confirmed.")
}

// CancelPage handles the buyer cancelling at the gateway.
func (h *CheckoutHandler) CancelPage(c echo.Context) error {
	return renderResultPage(c, "Payment cancelled", "Your payment was cancelled. No money has moved.")
}

func renderResultPage(c echo.Context, title, message string) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	return resultPageTemplate.Execute(c.Response().Writer, map[string]string{
		"Title":   title,
		"Message": message,
	})
}

var payFormTemplate = template.Must(template.New("payform").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Redirecting to payment</title>
</head>
<body onload="document.forms[0].submit()">
    <p>Redirecting to the payment page&hellip;</p>
    <form action="{{.URL}}" method="post">
        {{range .Fields}}<input type="hidden" name="{{.Name}}" value="{{.Value}}">
        {{end}}<noscript><button type="submit">Pay now</button></noscript>
    </form>
</body>
</html>`))

var resultPageTemplate = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <style>
        body { font-family: sans-serif; background: #f2f2f2; margin: 0; padding: 20px; display: flex; justify-content: center; align-items: center; min-height: 100vh; }
        .box { background: #fff; border-radius: 8px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); padding: 40px; text-align: center; max-width: 400px; width: 100%; }
        h1 { color: #333; margin-bottom: 20px; }
        p { color: #666; margin-bottom: 10px; }
    </style>
</head>
<body>
    <div class="box">
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>`))
