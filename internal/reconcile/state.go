package reconcile

// State is where the controller stands in the checkout round trip
type State string

const (
	StateIdle State = "idle"
	// StateAwaitingAuth holds a checkout outcome until the signed-in user is known
	StateAwaitingAuth State = "awaiting_auth"
	// StateConfirming has a confirm request in flight
	StateConfirming State = "confirming"
	StateGranted    State = "granted"
	StateDenied     State = "denied"
	StateCancelled  State = "cancelled"
)

// DownloadResult tells the caller what a download request led to
type DownloadResult string

const (
	DownloadExported       DownloadResult = "exported"
	DownloadSignInRequired DownloadResult = "sign_in_required"
	DownloadPlanRequired   DownloadResult = "plan_required"
)

// User-facing messages
const (
	MsgValidating        = "Validating your payment…"
	MsgActivated         = "Subscription activated, thank you!"
	MsgCancelled         = "Subscription cancelled"
	MsgConfirmFailed     = "Could not validate the Stripe session"
	MsgPaymentIncomplete = "Payment not completed"
	MsgSignIn            = "Please sign in to continue."
	MsgRedirecting       = "Redirecting to Stripe…"
	MsgRedirectFailed    = "Stripe redirect failed"
	MsgGenerating        = "Generating PDF…"
	MsgDownloaded        = "Invoice downloaded successfully!"
	MsgExportFailed      = "PDF generation failed. Please try again."
)
