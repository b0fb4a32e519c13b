package entity

import "github.com/shopspring/decimal"

const defaultCurrencyDigits int32 = 2

type Currency struct {
	Code   string
	Digits int32
}

func (c Currency) digits() int32 {
	if c.Digits < 0 {
		return defaultCurrencyDigits
	}
	return c.Digits
}

// Round applies the currency precision. Amounts are rounded before they are
// sent to a gateway or stored on a transaction.
func (c Currency) Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(c.digits())
}

// MinorUnits converts an amount to the smallest currency unit (cents for USD).
func (c Currency) MinorUnits(amount decimal.Decimal) int64 {
	return c.Round(amount).Shift(c.digits()).IntPart()
}

func (c Currency) FromMinorUnits(units int64) decimal.Decimal {
	return decimal.New(units, -c.digits())
}
