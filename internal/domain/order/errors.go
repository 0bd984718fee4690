package order

import "errors"

var (
	ErrValidation = errors.New("validation failed")

	ErrModuleDisabled           = errors.New("ordering module is disabled for business")
	ErrUnknownProduct           = errors.New("unknown product")
	ErrInvalidOptionGroup       = errors.New("option group does not belong to product")
	ErrInvalidOption            = errors.New("option does not belong to option group")
	ErrOptionQuantityOutOfRange = errors.New("selected option quantity out of range")

	ErrOrderNotFound          = errors.New("order not found")
	ErrUnknownDeliveryCompany = errors.New("unknown delivery company")

	ErrPaymentAlreadyFinalized = errors.New("payment is already finalized")
	ErrIllegalStatusTransition = errors.New("invalid order status transition")

	ErrMissingTransferProof = errors.New("transfer payment requires holder name or receipt url")
	ErrBusinessRule         = errors.New("business rule violation")

	ErrUnexpected = errors.New("unexpected error")
)

// Kind groups errors by how callers should react to them.
type Kind string

const (
	KindValidation             Kind = "ValidationError"
	KindCatalogInconsistency   Kind = "CatalogInconsistency"
	KindNotFound               Kind = "NotFound"
	KindIllegalStateTransition Kind = "IllegalStateTransition"
	KindBusinessRuleViolation  Kind = "BusinessRuleViolation"
	KindUnexpected             Kind = "Unexpected"
)

var kinds = []struct {
	kind Kind
	errs []error
}{
	{KindValidation, []error{ErrValidation}},
	{KindCatalogInconsistency, []error{ErrModuleDisabled, ErrUnknownProduct, ErrInvalidOptionGroup, ErrInvalidOption, ErrOptionQuantityOutOfRange}},
	{KindNotFound, []error{ErrOrderNotFound, ErrUnknownDeliveryCompany}},
	{KindIllegalStateTransition, []error{ErrPaymentAlreadyFinalized, ErrIllegalStatusTransition}},
	{KindBusinessRuleViolation, []error{ErrMissingTransferProof, ErrBusinessRule}},
}

// KindOf classifies err. Anything not recognised is Unexpected.
func KindOf(err error) Kind {
	for _, k := range kinds {
		for _, target := range k.errs {
			if errors.Is(err, target) {
				return k.kind
			}
		}
	}
	return KindUnexpected
}
