package order

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// moneyScale is the number of fractional digits every amount is written
// with.
const moneyScale = 2

// money renders an amount as a fixed-point string, so 20 goes out as
// "20.00". Decoding accepts strings and numbers through decimal.Decimal.
type money decimal.Decimal

func (m money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + decimal.Decimal(m).StringFixed(moneyScale) + `"`), nil
}

func (e PaymentEntry) MarshalJSON() ([]byte, error) {
	type plain PaymentEntry
	return json.Marshal(struct {
		plain
		Amount money `json:"amount"`
	}{plain(e), money(e.Amount)})
}

func (o Order) MarshalJSON() ([]byte, error) {
	type plain Order
	return json.Marshal(struct {
		plain
		Total             money `json:"total"`
		TotalDeliveryCost money `json:"totalDeliveryCost"`
	}{plain(o), money(o.Total), money(o.TotalDeliveryCost)})
}

func (i Item) MarshalJSON() ([]byte, error) {
	type plain Item
	return json.Marshal(struct {
		plain
		PriceAtPurchase money `json:"priceAtPurchase"`
	}{plain(i), money(i.PriceAtPurchase)})
}

func (o Option) MarshalJSON() ([]byte, error) {
	type plain Option
	return json.Marshal(struct {
		plain
		PriceFinal        money `json:"priceFinal"`
		PriceWithoutTaxes money `json:"priceWithoutTaxes"`
		TaxesAmount       money `json:"taxesAmount"`
	}{plain(o), money(o.PriceFinal), money(o.PriceWithoutTaxes), money(o.TaxesAmount)})
}

func (d Discount) MarshalJSON() ([]byte, error) {
	type plain Discount
	return json.Marshal(struct {
		plain
		Amount money `json:"amount"`
	}{plain(d), money(d.Amount)})
}
