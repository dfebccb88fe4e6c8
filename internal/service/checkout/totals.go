package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
)

// Тарифы доставки в KES.
const (
	ShippingStandardRate int64 = 350
	ShippingExpressRate  int64 = 850
)

var shippingRates = map[domain.ShippingMethod]int64{
	domain.ShippingStandard: ShippingStandardRate,
	domain.ShippingExpress:  ShippingExpressRate,
}

// TotalsInput содержит данные для расчёта итогов.
type TotalsInput struct {
	Items          []domain.CartItem
	ShippingMethod domain.ShippingMethod
	PointsToRedeem int64
}

// ComputeTotals считает подытог, налог, доставку, скидку баллами и итог.
// Округление половин идёт от нуля; итог не бывает отрицательным.
func ComputeTotals(input TotalsInput, pointValueKES float64) domain.Totals {
	subtotal := domain.SumItems(input.Items)
	tax := decimal.NewFromInt(subtotal).
		Mul(decimal.NewFromFloat(domain.TaxRate)).
		Round(0).
		IntPart()

	shipping, ok := shippingRates[input.ShippingMethod]
	if !ok {
		shipping = ShippingStandardRate
	}

	totals := domain.Totals{
		Subtotal: subtotal,
		Tax:      tax,
		TaxRate:  domain.TaxRate,
		Shipping: shipping,
	}

	var discount int64
	if input.PointsToRedeem > 0 {
		discount = decimal.NewFromInt(input.PointsToRedeem).
			Mul(decimal.NewFromFloat(pointValueKES)).
			Round(0).
			IntPart()
		totals.PointsDiscount = &discount
		redeemed := input.PointsToRedeem
		totals.PointsRedeemed = &redeemed
	}

	totals.Total = subtotal + tax + shipping - discount
	if totals.Total < 0 {
		totals.Total = 0
	}
	return totals
}
