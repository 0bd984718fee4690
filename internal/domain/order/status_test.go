package order

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================
// Status Transition Tests
// ============================================

func TestCanTransition_LifecycleGraph(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusConfirmed, StatusReadyForCustomerPickup, true},
		{StatusConfirmed, StatusOutForDelivery, true},
		{StatusReadyForCustomerPickup, StatusDelivered, true},
		{StatusReadyForCustomerPickup, StatusOutForDelivery, true},
		{StatusOutForDelivery, StatusDelivered, true},
		{StatusPending, StatusDelivered, false},
		{StatusPending, StatusOutForDelivery, false},
		{StatusOutForDelivery, StatusConfirmed, false},
		{StatusDelivered, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestCanTransition_CancellationFromNonTerminal(t *testing.T) {
	nonTerminal := []Status{StatusPending, StatusConfirmed, StatusReadyForCustomerPickup, StatusOutForDelivery}
	cancellations := []Status{StatusCancelledByBusiness, StatusCancelledByDelivery, StatusRejectedByBusiness}

	for _, from := range nonTerminal {
		for _, to := range cancellations {
			assert.True(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCanTransition_TerminalStatesAreFinal(t *testing.T) {
	terminal := []Status{StatusDelivered, StatusCancelledByBusiness, StatusCancelledByDelivery, StatusRejectedByBusiness}

	for _, from := range terminal {
		assert.True(t, from.Terminal())
		assert.False(t, CanTransition(from, StatusConfirmed))
		assert.True(t, CanTransition(from, from), "rewriting the same status is allowed")
	}
}

func TestCanTransition_UnknownStatus(t *testing.T) {
	assert.False(t, CanTransition(StatusPending, Status("LOST")))
	assert.False(t, CanTransition(Status("LOST"), Status("LOST")))
}

// ============================================
// Payment Coupling Tests
// ============================================

func TestStatusAfterPayment(t *testing.T) {
	assert.Equal(t, StatusConfirmed, StatusAfterPayment(StatusPending, PaymentConfirmed))
	assert.Equal(t, StatusRejectedByBusiness, StatusAfterPayment(StatusPending, PaymentRejected))
	assert.Equal(t, StatusPending, StatusAfterPayment(StatusPending, PaymentInProgress))
	assert.Equal(t, StatusConfirmed, StatusAfterPayment(StatusConfirmed, PaymentPending))
}

func TestPaymentStatus_Final(t *testing.T) {
	assert.False(t, PaymentPending.Final())
	assert.False(t, PaymentInProgress.Final())
	assert.True(t, PaymentConfirmed.Final())
	assert.True(t, PaymentRejected.Final())
}

func TestPaymentAcknowledged(t *testing.T) {
	assert.True(t, PaymentAcknowledged(MethodCash, PaymentPending))
	assert.False(t, PaymentAcknowledged(MethodTransfer, PaymentPending))
	assert.True(t, PaymentAcknowledged(MethodTransfer, PaymentInProgress))
	assert.True(t, PaymentAcknowledged(MethodTransfer, PaymentConfirmed))
}

func TestOrder_NeedsMerchantAttention(t *testing.T) {
	o := &Order{Status: StatusPending, PaymentMethod: MethodCash, PaymentStatus: PaymentPending}
	assert.True(t, o.NeedsMerchantAttention())

	o.Status = StatusConfirmed
	assert.False(t, o.NeedsMerchantAttention())

	o = &Order{Status: StatusPending, PaymentMethod: MethodTransfer, PaymentStatus: PaymentPending}
	assert.False(t, o.NeedsMerchantAttention())
}

// ============================================
// Error Kind Tests
// ============================================

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{fmt.Errorf("%w: items: required", ErrValidation), KindValidation},
		{fmt.Errorf("%w: p-1", ErrUnknownProduct), KindCatalogInconsistency},
		{ErrModuleDisabled, KindCatalogInconsistency},
		{ErrOrderNotFound, KindNotFound},
		{ErrUnknownDeliveryCompany, KindNotFound},
		{ErrPaymentAlreadyFinalized, KindIllegalStateTransition},
		{ErrMissingTransferProof, KindBusinessRuleViolation},
		{errors.New("connection reset"), KindUnexpected},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), tt.err.Error())
	}
}
