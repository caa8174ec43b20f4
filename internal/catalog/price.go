package catalog

import (
	"errors"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a major unit price into cents. Any fractional
// cent is rejected instead of rounded.
func ToMinorUnits(unitPrice decimal.Decimal) (int64, error) {
	if !unitPrice.IsPositive() {
		return 0, &DataIntegrityError{Field: "unitPrice", Value: unitPrice.String(), Err: errors.New("must be positive")}
	}

	minor := unitPrice.Mul(hundred)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, &DataIntegrityError{Field: "unitPrice", Value: unitPrice.String(), Err: errors.New("fractional minor units")}
	}

	return minor.IntPart(), nil
}
