package order

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	moneyPlaces      = 2
	coordinatePlaces = 7
)

func (m PaymentMethod) Valid() bool  { return m == MethodCash || m == MethodTransfer }
func (p Payer) Valid() bool          { return p == PayerClient || p == PayerBusiness }
func (t DeliveryType) Valid() bool   { return t == DeliveryTypeDelivery || t == DeliveryTypePickup }
func (t QuantityType) Valid() bool   { return t == QuantityFixed || t == QuantityRange }
func (t LedgerItemType) Valid() bool { return t == LedgerOrder || t == LedgerDelivery || t == LedgerDiscount }
func (p Party) Valid() bool          { return p == PartyBusiness || p == PartyCadet || p == PartySystem }

func (t PriceModifierType) Valid() bool {
	return t == PriceNoChange || t == PriceIncrease
}

func (t DiscountType) Valid() bool {
	return t == DiscountFixed || t == DiscountPercentage || t == DiscountPromotion
}

func invalid(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrValidation, field, fmt.Sprintf(format, args...))
}

// IsMoney reports whether d is a non-negative amount with at most two
// fractional digits.
func IsMoney(d decimal.Decimal) bool {
	return !d.IsNegative() && d.Equal(d.Round(moneyPlaces))
}

func isCoordinate(d decimal.NullDecimal) bool {
	return !d.Valid || d.Decimal.Equal(d.Decimal.Round(coordinatePlaces))
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, "is required")
	}
	return nil
}

// ValidateNew checks the structure of an order before any catalog or
// storage access. requireItems is set for the full creation path.
func ValidateNew(o *Order, requireItems bool) error {
	for _, f := range []struct{ name, value string }{
		{"userId", o.UserID},
		{"businessId", o.BusinessID},
		{"customerName", o.Customer.Name},
		{"customerPhone", o.Customer.Phone},
		{"businessName", o.Business.Name},
		{"businessPhone", o.Business.Phone},
		{"businessAddress", o.Business.Address},
	} {
		if err := required(f.name, f.value); err != nil {
			return err
		}
	}

	if !IsMoney(o.Total) {
		return invalid("total", "must be a non-negative amount with at most %d decimals", moneyPlaces)
	}
	if !IsMoney(o.TotalDeliveryCost) {
		return invalid("totalDeliveryCost", "must be a non-negative amount with at most %d decimals", moneyPlaces)
	}
	for _, c := range []struct {
		name  string
		value decimal.NullDecimal
	}{
		{"customerLatitude", o.Customer.Latitude},
		{"customerLongitude", o.Customer.Longitude},
		{"businessLatitude", o.Business.Latitude},
		{"businessLongitude", o.Business.Longitude},
	} {
		if !isCoordinate(c.value) {
			return invalid(c.name, "at most %d decimals allowed", coordinatePlaces)
		}
	}

	if !o.PaymentMethod.Valid() {
		return invalid("orderPaymentMethod", "unknown method %q", o.PaymentMethod)
	}
	if !o.PaymentStatus.Valid() {
		return invalid("paymentStatus", "unknown status %q", o.PaymentStatus)
	}
	if !o.CadetPaymentPayer.Valid() {
		return invalid("cadetPaymentPayer", "unknown payer %q", o.CadetPaymentPayer)
	}
	if o.CadetPaymentMethod != "" && !o.CadetPaymentMethod.Valid() {
		return invalid("cadetPaymentMethod", "unknown method %q", o.CadetPaymentMethod)
	}
	if !o.DeliveryType.Valid() {
		return invalid("deliveryType", "unknown delivery type %q", o.DeliveryType)
	}
	if !o.Status.Valid() {
		return invalid("status", "unknown status %q", o.Status)
	}
	if err := ValidateLedger("paymentExpected", o.PaymentExpected); err != nil {
		return err
	}
	if err := ValidateLedger("paymentReceived", o.PaymentReceived); err != nil {
		return err
	}

	if requireItems && len(o.Items) == 0 {
		return invalid("items", "at least one item is required")
	}
	for i, item := range o.Items {
		if err := validateItem(fmt.Sprintf("items[%d]", i), item); err != nil {
			return err
		}
	}
	return nil
}

// ValidateLedger checks a payment breakdown sequence.
func ValidateLedger(field string, entries []PaymentEntry) error {
	if len(entries) == 0 {
		return invalid(field, "at least one entry is required")
	}
	for i, e := range entries {
		name := fmt.Sprintf("%s[%d]", field, i)
		switch {
		case !IsMoney(e.Amount):
			return invalid(name+".amount", "must be a non-negative amount with at most %d decimals", moneyPlaces)
		case !e.Method.Valid():
			return invalid(name+".method", "unknown method %q", e.Method)
		case !e.ItemType.Valid():
			return invalid(name+".itemType", "unknown item type %q", e.ItemType)
		case !e.Target.Valid():
			return invalid(name+".target", "unknown target %q", e.Target)
		}
	}
	return nil
}

func validateItem(field string, item Item) error {
	if err := required(field+".menuProductId", item.MenuProductID); err != nil {
		return err
	}
	if err := required(field+".productName", item.ProductName); err != nil {
		return err
	}
	if item.Quantity < 1 {
		return invalid(field+".quantity", "must be at least 1")
	}
	if !IsMoney(item.PriceAtPurchase) {
		return invalid(field+".priceAtPurchase", "must be a non-negative amount with at most %d decimals", moneyPlaces)
	}
	for i, group := range item.OptionGroups {
		name := fmt.Sprintf("%s.optionGroups[%d]", field, i)
		if err := required(name+".groupName", group.GroupName); err != nil {
			return err
		}
		if group.MinQuantity < 0 || group.MaxQuantity < group.MinQuantity {
			return invalid(name, "maxQuantity must be >= minQuantity >= 0")
		}
		if !group.QuantityType.Valid() {
			return invalid(name+".quantityType", "unknown quantity type %q", group.QuantityType)
		}
		for j, opt := range group.Options {
			if err := validateOption(fmt.Sprintf("%s.options[%d]", name, j), opt); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateOption(field string, opt Option) error {
	if err := required(field+".optionName", opt.OptionName); err != nil {
		return err
	}
	if !opt.PriceModifierType.Valid() {
		return invalid(field+".priceModifierType", "unknown modifier %q", opt.PriceModifierType)
	}
	if opt.Quantity < 1 {
		return invalid(field+".quantity", "must be at least 1")
	}
	for _, p := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"priceFinal", opt.PriceFinal},
		{"priceWithoutTaxes", opt.PriceWithoutTaxes},
		{"taxesAmount", opt.TaxesAmount},
	} {
		if !IsMoney(p.value) {
			return invalid(field+"."+p.name, "must be a non-negative amount with at most %d decimals", moneyPlaces)
		}
	}
	return nil
}

// ValidateDiscount checks a discount before it is attached to an order.
func ValidateDiscount(d Discount) error {
	if !IsMoney(d.Amount) {
		return invalid("amount", "must be a non-negative amount with at most %d decimals", moneyPlaces)
	}
	if !d.Type.Valid() {
		return invalid("discountType", "unknown discount type %q", d.Type)
	}
	if d.AbsorbedBy != "" && !d.AbsorbedBy.Valid() {
		return invalid("absorbedBy", "unknown party %q", d.AbsorbedBy)
	}
	return nil
}
