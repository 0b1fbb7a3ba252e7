package model

import (
	"fmt"
	"strings"

	"fitpay-billing/internal/domain"
)

// CurrencyDecimals returns the ISO 4217 minor-unit exponent for a currency
// code. The gateway settles GCC currencies with three decimals.
func CurrencyDecimals(code string) int {
	switch strings.ToUpper(code) {
	case "KWD", "BHD", "OMR", "IQD", "JOD", "LYD", "TND":
		return 3
	case "JPY", "KRW", "VND", "CLP":
		return 0
	default:
		return 2
	}
}

// FormatAmount renders a minor-unit amount the way the gateway prints it,
// e.g. 25000 KWD minor units -> "25.000". This exact rendering feeds the
// signature canonical string and must stay byte-stable.
func FormatAmount(minor int64, currency string) string {
	dec := CurrencyDecimals(currency)
	if dec == 0 {
		return fmt.Sprintf("%d", minor)
	}
	neg := minor < 0
	if neg {
		minor = -minor
	}
	pow := int64(1)
	for i := 0; i < dec; i++ {
		pow *= 10
	}
	s := fmt.Sprintf("%d.%0*d", minor/pow, dec, minor%pow)
	if neg {
		return "-" + s
	}
	return s
}

// ParseAmountMinor converts a decimal amount string ("25.000", "25", "25.5")
// into minor units for the given currency. Excess fractional digits are an
// error rather than silently rounded; money is never approximated here.
func ParseAmountMinor(amount, currency string) (int64, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return 0, domain.ErrInvalidArgument
	}
	neg := false
	if strings.HasPrefix(amount, "-") {
		neg = true
		amount = amount[1:]
	}
	dec := CurrencyDecimals(currency)
	whole, frac := amount, ""
	if i := strings.IndexByte(amount, '.'); i >= 0 {
		whole, frac = amount[:i], amount[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > dec {
		// Trailing zeros beyond the currency precision are tolerated.
		extra := frac[dec:]
		if strings.Trim(extra, "0") != "" {
			return 0, domain.ErrInvalidArgument
		}
		frac = frac[:dec]
	}
	for len(frac) < dec {
		frac += "0"
	}
	var minor int64
	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return 0, domain.ErrInvalidArgument
		}
		minor = minor*10 + int64(r-'0')
	}
	if neg {
		minor = -minor
	}
	return minor, nil
}
