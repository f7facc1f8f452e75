package types

// Query parameters the checkout provider appends to the return URL
const (
	QueryCheckout  = "checkout"
	QuerySessionID = "session_id"
)

// CheckoutOutcome is the value of the checkout query parameter
type CheckoutOutcome string

const (
	CheckoutOutcomeNone      CheckoutOutcome = ""
	CheckoutOutcomeSuccess   CheckoutOutcome = "success"
	CheckoutOutcomeCancelled CheckoutOutcome = "cancelled"
)

// ParseCheckoutOutcome treats anything unrecognised as no outcome
func ParseCheckoutOutcome(raw string) CheckoutOutcome {
	switch CheckoutOutcome(raw) {
	case CheckoutOutcomeSuccess:
		return CheckoutOutcomeSuccess
	case CheckoutOutcomeCancelled:
		return CheckoutOutcomeCancelled
	}
	return CheckoutOutcomeNone
}

// PaymentStatusPaid is the only checkout payment status that grants entitlement
const PaymentStatusPaid = "paid"

const (
	HeaderRequestID     = "X-Request-ID"
	HeaderAuthorization = "Authorization"
)

// Checkout session metadata keys
const (
	MetadataUID  = "uid"
	MetadataPlan = "plan"
)
