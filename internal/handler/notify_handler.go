package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"shopgate/internal/gateway"
	"shopgate/internal/notify"
)

// NotifyHandler accepts the gateway's asynchronous payment notifications.
type NotifyHandler struct {
	verifier *notify.Verifier
	logger   *zap.Logger
}

func NewNotifyHandler(verifier *notify.Verifier, logger *zap.Logger) *NotifyHandler {
	return &NotifyHandler{verifier: verifier, logger: logger}
}

// Notify handles POST /payment/notify. The gateway delivers at least once
// and only needs a 2xx to stop; any non-2xx makes it redeliver, which is
// exactly what we want for upstream failures and never for settled orders.
func (h *NotifyHandler) Notify(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid form payload")
	}

	params := make(gateway.Params, len(form))
	for k, v := range form {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}

	outcome, err := h.verifier.Process(c.Request().Context(), params)
	if err != nil {
		switch {
		case errors.Is(err, notify.ErrBadSignature),
			errors.Is(err, notify.ErrMissingReference),
			errors.Is(err, notify.ErrValidateRejected):
			return errorResponse(c, http.StatusBadRequest, "Notification rejected")
		case errors.Is(err, notify.ErrUnknownReference):
			return errorResponse(c, http.StatusNotFound, "Unknown payment reference")
		default:
			// Upstream failure: withhold the acknowledgement so the
			// gateway retries.
			h.logger.Error("notification processing failed", zap.Error(err))
			return errorResponse(c, http.StatusInternalServerError, "Processing failed")
		}
	}

	if outcome.AuxErr != nil {
		h.logger.Warn("notification side effect incomplete",
			zap.String("reference", outcome.Reference),
			zap.Error(outcome.AuxErr))
	}

	return c.String(http.StatusOK, "OK")
}
