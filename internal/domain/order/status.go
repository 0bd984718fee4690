package order

// validTransitions defines the documented lifecycle graph. Writing the
// current status again is always allowed and is not listed here.
var validTransitions = map[Status][]Status{
	StatusPending: {
		StatusConfirmed,
		StatusCancelledByBusiness, StatusCancelledByDelivery, StatusRejectedByBusiness,
	},
	StatusConfirmed: {
		StatusReadyForCustomerPickup, StatusOutForDelivery,
		StatusCancelledByBusiness, StatusCancelledByDelivery, StatusRejectedByBusiness,
	},
	StatusReadyForCustomerPickup: {
		StatusOutForDelivery, StatusDelivered,
		StatusCancelledByBusiness, StatusCancelledByDelivery, StatusRejectedByBusiness,
	},
	StatusOutForDelivery: {
		StatusDelivered,
		StatusCancelledByBusiness, StatusCancelledByDelivery, StatusRejectedByBusiness,
	},
	StatusDelivered:           {}, // terminal state
	StatusCancelledByBusiness: {}, // terminal state
	StatusCancelledByDelivery: {}, // terminal state
	StatusRejectedByBusiness:  {}, // terminal state
}

// Valid reports whether s is a known order status.
func (s Status) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// Terminal reports whether no further transition leaves s.
func (s Status) Terminal() bool {
	allowed, ok := validTransitions[s]
	return ok && len(allowed) == 0
}

// CanTransition checks if an order in status from may move to status to.
func CanTransition(from, to Status) bool {
	if from == to {
		return to.Valid()
	}
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanTransitionTo checks if the order can transition to the target status
func (o *Order) CanTransitionTo(target Status) bool {
	return CanTransition(o.Status, target)
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentInProgress, PaymentConfirmed, PaymentRejected:
		return true
	}
	return false
}

// Final reports whether the payment can no longer change through the
// payment status machine.
func (s PaymentStatus) Final() bool {
	return s == PaymentConfirmed || s == PaymentRejected
}

// StatusAfterPayment returns the order status implied by a new payment
// status. Payment states other than CONFIRMED and REJECTED keep current.
func StatusAfterPayment(current Status, payment PaymentStatus) Status {
	switch payment {
	case PaymentConfirmed:
		return StatusConfirmed
	case PaymentRejected:
		return StatusRejectedByBusiness
	default:
		return current
	}
}

// PaymentAcknowledged is the cash/transfer rule: cash orders are actionable
// immediately, transfer orders only once their payment left PENDING.
func PaymentAcknowledged(method PaymentMethod, status PaymentStatus) bool {
	switch method {
	case MethodCash:
		return true
	case MethodTransfer:
		return status != PaymentPending
	}
	return false
}

// NotifiesBusiness reports whether the business should hear about the
// order as soon as it exists.
func (o *Order) NotifiesBusiness() bool {
	return PaymentAcknowledged(o.PaymentMethod, o.PaymentStatus)
}

// NeedsMerchantAttention reports whether the order is pending and ready for
// the business to act on.
func (o *Order) NeedsMerchantAttention() bool {
	return o.Status == StatusPending && o.NotifiesBusiness()
}
