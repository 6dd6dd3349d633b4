package payment

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// carrierURLTemplates maps a normalised carrier name to its tracking page.
var carrierURLTemplates = map[string]string{
	"usps":  "https://tools.usps.com/go/TrackConfirmAction?tLabels=%s",
	"ups":   "https://www.ups.com/track?tracknum=%s",
	"fedex": "https://www.fedex.com/fedextrack/?trknbr=%s",
	"dhl":   "https://www.dhl.com/us-en/home/tracking.html?tracking-id=%s",
}

// TrackingURL derives the carrier's tracking page URL for a tracking number.
// Unknown carriers fall back to a generic search URL.
func TrackingURL(carrier, trackingNumber string) string {
	template, ok := carrierURLTemplates[strings.ToLower(strings.TrimSpace(carrier))]
	if !ok {
		query := url.QueryEscape(carrier + " tracking " + trackingNumber)
		return "https://www.google.com/search?q=" + query
	}
	return fmt.Sprintf(template, url.QueryEscape(trackingNumber))
}

// Notifier mirrors shipment tracking details onto the processor's payment
// record so the buyer's payment receipt links to the carrier. The push is
// best-effort: the order's own tracking fields stay authoritative and a
// failure here never rolls back a committed ship transition.
type Notifier struct {
	client Client
	logger zerolog.Logger
}

// NewNotifier creates a shipment tracking notifier.
func NewNotifier(client Client, logger zerolog.Logger) *Notifier {
	return &Notifier{
		client: client,
		logger: logger.With().Str("component", "tracking-notifier").Logger(),
	}
}

// NotifyShipment pushes carrier, tracking number, and the derived tracking
// URL into the payment record. The existing payment is retrieved first so
// its shipping address fields are preserved through the update.
func (n *Notifier) NotifyShipment(ctx context.Context, paymentID, carrier, trackingNumber string) error {
	intent, err := n.client.GetPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("failed to retrieve payment for tracking update: %w", err)
	}

	shipping := intent.Shipping
	if shipping == nil {
		shipping = &ShippingDetails{}
	}
	shipping.Carrier = carrier
	shipping.TrackingNumber = trackingNumber

	trackingURL := TrackingURL(carrier, trackingNumber)
	update := &UpdatePaymentRequest{
		Metadata: map[string]string{
			"carrier":         carrier,
			"tracking_number": trackingNumber,
			"tracking_url":    trackingURL,
		},
		Shipping: shipping,
	}

	if _, err := n.client.UpdatePayment(ctx, paymentID, update); err != nil {
		return fmt.Errorf("failed to push tracking update: %w", err)
	}

	n.logger.Info().
		Str("payment_id", paymentID).
		Str("carrier", carrier).
		Str("tracking_number", trackingNumber).
		Str("tracking_url", trackingURL).
		Msg("tracking details mirrored to payment processor")

	return nil
}
