package entities

// PaymentStatus is tracked on the booking
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentCaptured   PaymentStatus = "captured"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
)

// PayoutStatus is tracked on the transaction
type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "pending"
	PayoutProcessing PayoutStatus = "processing"
	PayoutPaid       PayoutStatus = "paid"
	PayoutFailed     PayoutStatus = "failed"
)

// A capture may settle a payment that was never separately authorized.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:    {PaymentAuthorized, PaymentCaptured, PaymentFailed},
	PaymentAuthorized: {PaymentCaptured, PaymentFailed},
	PaymentCaptured:   {PaymentRefunded},
}

var payoutTransitions = map[PayoutStatus][]PayoutStatus{
	PayoutPending:    {PayoutProcessing, PayoutFailed},
	PayoutProcessing: {PayoutPaid, PayoutFailed},
}

// CanTransitionTo reports whether the payment lifecycle allows s → next.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the payout lifecycle allows s → next.
func (s PayoutStatus) CanTransitionTo(next PayoutStatus) bool {
	for _, allowed := range payoutTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// payoutByPayment is the reconciliation rule between the booking's payment
// status and its transaction's payout status. A payment with no entry has no
// transaction yet.
var payoutByPayment = map[PaymentStatus][]PayoutStatus{
	PaymentFailed:   {PayoutFailed},
	PaymentCaptured: {PayoutPending, PayoutProcessing, PayoutPaid, PayoutFailed},
	PaymentRefunded: {PayoutFailed},
}

// PayoutAllowed reports whether a transaction may carry payout while the booking's payment is payment.
func PayoutAllowed(payment PaymentStatus, payout PayoutStatus) bool {
	for _, allowed := range payoutByPayment[payment] {
		if allowed == payout {
			return true
		}
	}
	return false
}

// HasTransaction reports whether a payment status implies a transaction record exists.
func (s PaymentStatus) HasTransaction() bool {
	_, ok := payoutByPayment[s]
	return ok
}
