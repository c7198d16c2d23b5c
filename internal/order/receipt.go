package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"bakery-storefront/internal/domain"
	"bakery-storefront/internal/pricing"
	"bakery-storefront/internal/storage"
)

// ErrNoReceipt means there is no displayable last order; send the shopper to the cart
var ErrNoReceipt = errors.New("no receipt available")

// Receipt returns the session's last order. Missing identifiers are filled in
// for display.
func (c *Controller) Receipt(ctx context.Context, session string) (*domain.Order, error) {
	data, err := c.store.Get(ctx, session, storage.KeyLastOrder)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoReceipt
		}
		return nil, fmt.Errorf("failed to read last order: %w", err)
	}

	var o domain.Order
	if err := json.Unmarshal(data, &o); err != nil {
		c.logger.Debug("Discarding corrupt last order",
			zap.String("session_id", session),
			zap.Error(err),
		)
		return nil, ErrNoReceipt
	}
	if len(o.Items) == 0 {
		return nil, ErrNoReceipt
	}

	EnsureIdentifiers(&o, c.now())
	return &o, nil
}

// MailtoLink builds a mailto: URL carrying the receipt as a plain text e-mail
func MailtoLink(o *domain.Order) string {
	if o == nil {
		return ""
	}

	ref := o.Code
	if ref == "" {
		ref = o.ID
	}

	body := []string{
		fmt.Sprintf("Hola %s,", o.Customer.Name),
		"",
		fmt.Sprintf("Adjuntamos el detalle de tu compra %s.", ref),
		"",
	}
	for _, item := range o.Items {
		body = append(body, fmt.Sprintf("• %s x%d = %s",
			item.Name, item.Quantity, pricing.FormatCurrency(pricing.LineSubtotal(item))))
	}
	body = append(body, "", "Total pagado: "+pricing.FormatCurrency(o.Total))

	return "mailto:" + o.Customer.Email +
		"?subject=" + encodeComponent("Boleta de compra "+ref) +
		"&body=" + encodeComponent(strings.Join(body, "\r\n"))
}

func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
