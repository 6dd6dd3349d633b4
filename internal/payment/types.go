package payment

// PaymentStatusPaid is the processor's settled state for a checkout session.
const PaymentStatusPaid = "paid"

// MetadataOrderIDKey is the metadata key carrying the local order identifier
// on checkout sessions and payments, set at session-creation time and read
// back by the webhook handler and the return-trip verifier.
const MetadataOrderIDKey = "order_id"

// LineItem is one processor-side line on a hosted checkout page. Amounts are
// integer minor units (cents).
type LineItem struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	UnitAmountCents int64  `json:"unit_amount_minor"`
	Quantity        int    `json:"quantity"`
}

// CreateSessionRequest asks the processor for a hosted checkout page.
type CreateSessionRequest struct {
	LineItems     []LineItem        `json:"line_items"`
	SuccessURL    string            `json:"success_url"`
	CancelURL     string            `json:"cancel_url"`
	CustomerEmail string            `json:"customer_email"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// CheckoutSession is the processor's record of a hosted checkout page.
type CheckoutSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url,omitempty"`
	PaymentStatus string            `json:"payment_status"`
	PaymentID     string            `json:"payment_id,omitempty"`
	PaymentMethod string            `json:"payment_method,omitempty"`
	CustomerEmail string            `json:"customer_email,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Paid reports whether the processor considers the session settled.
func (s *CheckoutSession) Paid() bool {
	return s.PaymentStatus == PaymentStatusPaid
}

// PaymentIntent is the processor's record of a payment attempt, delivered in
// payment-failure webhook events and retrieved for tracking updates.
type PaymentIntent struct {
	ID            string            `json:"id"`
	Status        string            `json:"status"`
	PaymentMethod string            `json:"payment_method,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Shipping      *ShippingDetails  `json:"shipping,omitempty"`
}

// ShippingDetails mirrors the processor's shipping block on a payment.
// Address fields are preserved verbatim on retrieve-then-update so a
// tracking push never clobbers what the buyer entered at checkout.
type ShippingDetails struct {
	Name           string            `json:"name,omitempty"`
	Address        map[string]string `json:"address,omitempty"`
	Carrier        string            `json:"carrier,omitempty"`
	TrackingNumber string            `json:"tracking_number,omitempty"`
}

// UpdatePaymentRequest is a partial update of a payment record.
type UpdatePaymentRequest struct {
	Metadata map[string]string `json:"metadata,omitempty"`
	Shipping *ShippingDetails  `json:"shipping,omitempty"`
}
