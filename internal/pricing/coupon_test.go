package pricing

import (
	"errors"
	"testing"
)

func TestValidateCoupon(t *testing.T) {
	cases := map[string]bool{
		"ABC123":   true,
		"abcdef":   true,
		"a1B2c3":   true,
		"ABC12":    false,
		"ABC1234":  false,
		"ABC-123":  false,
		"ABC 12":   false,
		"":         false,
		" ABC123 ": false,
		"ÄBC123":   false,
		"12345６":   false,
	}
	for code, want := range cases {
		if got := ValidateCoupon(code); got != want {
			t.Fatalf("ValidateCoupon(%q): expected %v, got %v", code, want, got)
		}
	}
}

func TestNormalizeCoupon(t *testing.T) {
	code, err := NormalizeCoupon("  abc123 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != "ABC123" {
		t.Fatalf("expected ABC123, got %q", code)
	}

	code, err = NormalizeCoupon("   ")
	if err != nil || code != "" {
		t.Fatalf("expected empty coupon without error, got %q, %v", code, err)
	}

	_, err = NormalizeCoupon("ABC-12")
	if !errors.Is(err, ErrInvalidCoupon) {
		t.Fatalf("expected ErrInvalidCoupon, got %v", err)
	}
}
