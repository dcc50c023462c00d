package alert

import (
	"fmt"

	"github.com/go-resty/resty/v2"

	"shopgate/internal/models"
	"shopgate/internal/pkg/utils"
)

// Notifier posts operator reports to a Telegram channel through the Bot
// API. Everything here is best effort: callers log failures and move on.
type Notifier struct {
	chatID string
	client *resty.Client
}

// New creates a channel notifier. Returns nil when the token or chat is not
// configured; callers must treat a nil Notifier as "alerts disabled".
func New(botToken, chatID string) *Notifier {
	if botToken == "" || chatID == "" {
		return nil
	}
	return &Notifier{
		chatID: chatID,
		client: resty.New().SetBaseURL("https://api.telegram.org/bot" + botToken),
	}
}

// Send posts a text message to the report channel.
func (n *Notifier) Send(text string) error {
	resp, err := n.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"chat_id":    n.chatID,
			"text":       text,
			"parse_mode": "HTML",
		}).
		Post("/sendMessage")
	if err != nil {
		return fmt.Errorf("telegram sendMessage failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("telegram sendMessage returned %s", resp.Status())
	}
	return nil
}

// PaymentReceived reports a completed payment.
func (n *Notifier) PaymentReceived(order *models.Order, gatewayTxID string) error {
	text := fmt.Sprintf(
		"💵 Payment received\n\nReference: %s\nAmount: %s\nBuyer: %s\nGateway tx: %s",
		order.Reference, utils.FormatAmount(order.Amount), order.Email, gatewayTxID,
	)
	return n.Send(text)
}

// StalePendingOrders reports orders stuck in pending_payment.
func (n *Notifier) StalePendingOrders(count int, oldest string) error {
	text := fmt.Sprintf(
		"⏳ %d order(s) stuck in pending_payment\nOldest reference: %s",
		count, oldest,
	)
	return n.Send(text)
}
