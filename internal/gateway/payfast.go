package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shopgate/internal/config"
	"shopgate/internal/pkg/httpclient"
)

// Payment outcome codes carried in the notification's payment_status field.
const (
	StatusComplete  = "COMPLETE"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

// Client implements the merchant side of the PayFast contract: building the
// signed redirect and re-validating inbound notifications.
type Client struct {
	merchantID  string
	merchantKey string
	passphrase  string
	sandbox     bool
	baseURL     string
	client      *httpclient.Client
}

func NewClient(cfg config.PayFastConfig) *Client {
	return &Client{
		merchantID:  cfg.MerchantID,
		merchantKey: cfg.MerchantKey,
		passphrase:  cfg.Passphrase,
		sandbox:     cfg.Sandbox,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		client:      httpclient.New().WithTimeout(10 * time.Second),
	}
}

func (c *Client) host() string {
	if c.baseURL != "" {
		return c.baseURL
	}
	if c.sandbox {
		return "https://sandbox.payfast.co.za"
	}
	return "https://www.payfast.co.za"
}

// ProcessURL is the endpoint the buyer's browser posts the redirect form to.
func (c *Client) ProcessURL() string {
	return c.host() + "/eng/process"
}

func (c *Client) validateURL() string {
	return c.host() + "/eng/query/validate"
}

// Passphrase exposes the shared secret for notification verification.
func (c *Client) Passphrase() string {
	return c.passphrase
}

// Field is one named form field. The redirect form is posted in slice
// order, which is the gateway's documented field order, independent of the
// sorted order used for signing.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RedirectRequest carries the per-order values of the outbound parameter
// set. Amount must already be formatted with exactly two decimals.
type RedirectRequest struct {
	Reference  string
	Amount     string
	ItemName   string
	BuyerName  string
	BuyerEmail string
	ReturnURL  string
	CancelURL  string
	NotifyURL  string
}

// RedirectPayload is everything a client needs to perform the one-shot
// browser form post to the gateway.
type RedirectPayload struct {
	URL    string  `json:"url"`
	Fields []Field `json:"fields"`
}

// BuildRedirect assembles the outbound parameter set, signs it and appends
// the signature as the last field. Empty optional fields are left out of
// both the signature and the form.
func (c *Client) BuildRedirect(req RedirectRequest) RedirectPayload {
	ordered := []Field{
		{"merchant_id", c.merchantID},
		{"merchant_key", c.merchantKey},
		{"return_url", req.ReturnURL},
		{"cancel_url", req.CancelURL},
		{"notify_url", req.NotifyURL},
		{"name_first", req.BuyerName},
		{"email_address", req.BuyerEmail},
		{"m_payment_id", req.Reference},
		{"amount", req.Amount},
		{"item_name", req.ItemName},
	}

	params := make(Params, len(ordered))
	fields := make([]Field, 0, len(ordered)+1)
	for _, f := range ordered {
		if f.Value == "" {
			continue
		}
		params[f.Name] = f.Value
		fields = append(fields, f)
	}

	fields = append(fields, Field{"signature", Sign(params, c.passphrase)})

	return RedirectPayload{
		URL:    c.ProcessURL(),
		Fields: fields,
	}
}

// Validate performs the synchronous server-to-server re-validation of a
// notification: it posts the merchant identity and payment reference to the
// gateway's validation endpoint and requires the affirmative token. An
// unreachable endpoint is an error, never a silent pass.
func (c *Client) Validate(ctx context.Context, reference string) (bool, error) {
	resp, err := c.client.Request().
		SetContext(ctx).
		SetFormData(map[string]string{
			"merchant_id":  c.merchantID,
			"m_payment_id": reference,
		}).
		Post(c.validateURL())
	if err != nil {
		return false, fmt.Errorf("payfast validate request failed: %w", err)
	}

	body := strings.TrimSpace(resp.String())
	return strings.HasPrefix(body, "VALID") && !strings.HasPrefix(body, "INVALID"), nil
}
