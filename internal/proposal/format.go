package proposal

import (
	"strconv"
	"strings"

	"github.com/divan/num2words"

	"github.com/remotehive-dev/Spark-Configurator/internal/pricing"
)

// GroupIndian formats n with Indian digit grouping: the last three digits,
// then pairs (1,68,000).
func GroupIndian(n pricing.Money) string {
	neg := n < 0
	if neg {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	if len(digits) <= 3 {
		if neg {
			return "-" + digits
		}
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	groups = append([]string{head}, groups...)
	out := strings.Join(groups, ",") + "," + tail
	if neg {
		return "-" + out
	}
	return out
}

// Rupees prefixes the grouped amount with the rupee sign.
func Rupees(n pricing.Money) string {
	return "₹" + GroupIndian(n)
}

// AmountInWords spells out a rupee amount, e.g. "Rupees Fifty-Two Thousand Three Hundred Twenty Only".
func AmountInWords(n pricing.Money) string {
	words := num2words.Convert(int(n))
	return "Rupees " + titleWords(words) + " Only"
}

func titleWords(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		parts := strings.Split(f, "-")
		for j, p := range parts {
			if p != "" {
				parts[j] = strings.ToUpper(p[:1]) + p[1:]
			}
		}
		fields[i] = strings.Join(parts, "-")
	}
	return strings.Join(fields, " ")
}
