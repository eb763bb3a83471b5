// Package fees computes transaction fees and cross-currency conversions
// for wallet and payment-link operations. GNF is the home currency; every
// conversion pivots through it using a static rate table.
package fees

import (
	"errors"
	"fmt"
	"math"
)

// Platform fee: 1% of the amount plus a fixed 1000 GNF component,
// expressed in the transaction currency.
const (
	PercentageRate = 0.01
	FixedFeeGNF    = 1000.0
)

// gnfPerUnit holds how many GNF one unit of each currency is worth.
var gnfPerUnit = map[string]float64{
	"GNF": 1,
	"USD": 8500,
	"EUR": 9200,
	"XOF": 14,
	"XAF": 14,
	"GBP": 10700,
	"JPY": 57,
	"CNY": 1180,
	"CAD": 6200,
	"AUD": 5600,
}

var ErrUnknownCurrency = errors.New("unknown currency code")

// FeeCalculation is the breakdown of fees for a single amount.
type FeeCalculation struct {
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	PercentageFee  float64 `json:"percentage_fee"`
	FixedFee       float64 `json:"fixed_fee"`
	TotalFee       float64 `json:"total_fee"`
	AmountAfterFee float64 `json:"amount_after_fee"`
}

// CrossCurrencyFees composes a fee deduction in the source currency with a
// conversion of the remainder into the target currency.
type CrossCurrencyFees struct {
	Fees              FeeCalculation `json:"fees"`
	TargetCurrency    string         `json:"target_currency"`
	RecipientReceives float64        `json:"recipient_receives"`
}

func rate(currency string) (float64, error) {
	r, ok := gnfPerUnit[currency]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, currency)
	}
	return r, nil
}

// round2 rounds half-up to two decimal places.
func round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// Calculate returns the fee breakdown for amount in the given currency.
// The fixed component is 1000 GNF converted into that currency.
func Calculate(amount float64, currency string) (FeeCalculation, error) {
	r, err := rate(currency)
	if err != nil {
		return FeeCalculation{}, err
	}

	percentage := round2(amount * PercentageRate)
	fixed := round2(FixedFeeGNF / r)
	total := round2(percentage + fixed)

	return FeeCalculation{
		Amount:         amount,
		Currency:       currency,
		PercentageFee:  percentage,
		FixedFee:       fixed,
		TotalFee:       total,
		AmountAfterFee: round2(amount - total),
	}, nil
}

// Convert changes amount from one currency to another, pivoting through GNF.
func Convert(amount float64, from, to string) (float64, error) {
	fromRate, err := rate(from)
	if err != nil {
		return 0, err
	}
	toRate, err := rate(to)
	if err != nil {
		return 0, err
	}
	return round2(amount * fromRate / toRate), nil
}

// CalculateCross deducts fees in the source currency and converts what
// remains into the target currency.
func CalculateCross(amount float64, from, to string) (CrossCurrencyFees, error) {
	calc, err := Calculate(amount, from)
	if err != nil {
		return CrossCurrencyFees{}, err
	}
	received, err := Convert(calc.AmountAfterFee, from, to)
	if err != nil {
		return CrossCurrencyFees{}, err
	}
	return CrossCurrencyFees{
		Fees:              calc,
		TargetCurrency:    to,
		RecipientReceives: received,
	}, nil
}

// Supported reports whether the currency is in the rate table.
func Supported(currency string) bool {
	_, ok := gnfPerUnit[currency]
	return ok
}
