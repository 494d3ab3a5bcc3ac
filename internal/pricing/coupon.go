package pricing

import (
	"errors"
	"strings"
)

// CouponLength is the exact length of a teacher discount code.
const CouponLength = 6

// ErrInvalidCoupon is returned when a discount code is not six alphanumeric characters.
var ErrInvalidCoupon = errors.New("coupon must be 6 alphanumeric characters")

// ValidateCoupon reports whether code is syntactically applicable. Eligibility
// is decided by format alone; there is no server-side lookup.
func ValidateCoupon(code string) bool {
	if len(code) != CouponLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// NormalizeCoupon trims and uppercases raw input and validates the result.
// An empty input yields "" with a nil error, meaning no coupon was supplied.
func NormalizeCoupon(raw string) (string, error) {
	code := strings.TrimSpace(raw)
	if code == "" {
		return "", nil
	}
	if !ValidateCoupon(code) {
		return "", ErrInvalidCoupon
	}
	return strings.ToUpper(code), nil
}
