/*
charge.go - Charge computation

The charge for a booking is its weighted shift count times the
per-shift rate the rate table quotes for (resource, subject). Rates
are decimals; float arithmetic never touches money.
*/
package booking

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// ChargeFor prices a booking. A zero shift count, or a rate table
// quoting zero, yields a zero charge.
func ChargeFor(ctx context.Context, rates RateTable, resource ResourceID, subject UserID, shiftCount float64) (decimal.Decimal, error) {
	if shiftCount == 0 {
		return decimal.Zero, nil
	}
	rate, err := rates.Rate(ctx, resource, subject)
	if err != nil {
		return decimal.Zero, fmt.Errorf("looking up rate for %s on %s: %w", subject, resource, err)
	}
	return rate.Mul(decimal.NewFromFloat(shiftCount)), nil
}
