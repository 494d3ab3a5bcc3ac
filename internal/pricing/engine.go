package pricing

// Money represents a monetary value in whole rupees, inclusive of taxes.
type Money = int64

const (
	// ListRatePerLearnClass is the displayed list price of a single Learn class.
	ListRatePerLearnClass Money = 3500
	// SAPAnchorPerLearnClass is the per Learn class anchor of the SAP-discounted price.
	SAPAnchorPerLearnClass Money = 1500
	// CouponAnchorPerLearnClass is the per Learn class anchor of the coupon-discounted price.
	CouponAnchorPerLearnClass Money = 1090

	// MinDurationMonths and MaxDurationMonths bound the counsellor duration control.
	MinDurationMonths = 3
	MaxDurationMonths = 24

	// BaselineClassesPerWeek is the cadence the per-tenure class counts are defined for.
	BaselineClassesPerWeek = 3
	// IntensiveClassesPerWeek is the only other supported cadence.
	IntensiveClassesPerWeek = 5

	monthsPerTenureUnit = 3
	learnPerUnit        = 12
	practicePerUnit     = 24
	performPerUnit      = 24
)

// Selection captures the curriculum parameters a quote is priced from.
type Selection struct {
	DurationMonths int
	ClassesPerWeek int
}

// Clamp forces the selection into the supported domain: duration within
// [MinDurationMonths, MaxDurationMonths] and a cadence of 3 or 5 classes per week.
func (s Selection) Clamp() Selection {
	if s.DurationMonths < MinDurationMonths {
		s.DurationMonths = MinDurationMonths
	}
	if s.DurationMonths > MaxDurationMonths {
		s.DurationMonths = MaxDurationMonths
	}
	if s.ClassesPerWeek != IntensiveClassesPerWeek {
		s.ClassesPerWeek = BaselineClassesPerWeek
	}
	return s
}

// SessionCounts holds the Learn/Practice/Perform breakdown for a selection.
type SessionCounts struct {
	TenureUnits int
	Learn       int
	Practice    int
	Perform     int
	Total       int
}

// Discounts is the outcome of applying the SAP and coupon anchors, in that order.
type Discounts struct {
	SAPTarget      Money
	SAPDiscount    Money
	Subtotal       Money
	CouponTarget   Money
	CouponDiscount Money
	FinalPrice     Money
}

// Quote aggregates everything needed to display or print a price proposal.
type Quote struct {
	Selection             Selection
	Counts                SessionCounts
	BaseFee               Money
	SAPEnabled            bool
	SAPTarget             Money
	SAPDiscount           Money
	SAPDiscountPercent    int
	Subtotal              Money
	Coupon                string
	CouponTarget          Money
	CouponDiscount        Money
	CouponDiscountPercent int
	FinalPrice            Money
	TotalDiscount         Money
	SavingsPercentage     int
}

// CouponApplied reports whether a coupon contributed to the quote.
func (q Quote) CouponApplied() bool {
	return q.Coupon != ""
}

// TenureUnits returns the number of 3-month blocks in the duration, never less than one.
func TenureUnits(durationMonths int) int {
	units := int(roundDiv(int64(durationMonths), monthsPerTenureUnit))
	if units < 1 {
		return 1
	}
	return units
}

// FrequencyFactor returns the ratio of the weekly cadence to the baseline cadence.
func FrequencyFactor(classesPerWeek int) float64 {
	return float64(classesPerWeek) / BaselineClassesPerWeek
}

// ComputeSessionCounts derives class counts from the duration and weekly cadence.
// Each category is rounded on its own, so Total may differ from rounding the sum.
func ComputeSessionCounts(durationMonths, classesPerWeek int) SessionCounts {
	units := TenureUnits(durationMonths)
	scale := int64(units) * int64(classesPerWeek)
	learn := int(roundDiv(learnPerUnit*scale, BaselineClassesPerWeek))
	practice := int(roundDiv(practicePerUnit*scale, BaselineClassesPerWeek))
	perform := int(roundDiv(performPerUnit*scale, BaselineClassesPerWeek))
	return SessionCounts{
		TenureUnits: units,
		Learn:       learn,
		Practice:    practice,
		Perform:     perform,
		Total:       learn + practice + perform,
	}
}

// BaseFee returns the list price for the given number of Learn classes.
func BaseFee(learn int) Money {
	if learn <= 0 {
		return 0
	}
	return Money(learn) * ListRatePerLearnClass
}

// ComputeDiscounts applies the SAP anchor against baseFee and then the coupon
// anchor against the resulting subtotal. Both anchors are reported whether or
// not they apply; the flags only pick the subtotal, final price and discount
// amounts. Amounts are floored at zero and a non-positive learn count zeroes
// every figure.
func ComputeDiscounts(baseFee Money, learn int, sapEnabled bool, coupon string) Discounts {
	if learn <= 0 || baseFee <= 0 {
		return Discounts{}
	}
	d := Discounts{Subtotal: baseFee}
	d.SAPTarget = clamp(Money(learn)*SAPAnchorPerLearnClass, 0, baseFee)
	if sapEnabled {
		d.SAPDiscount = nonNegative(baseFee - d.SAPTarget)
		d.Subtotal = d.SAPTarget
	}
	d.CouponTarget = clamp(Money(learn)*CouponAnchorPerLearnClass, 0, d.Subtotal)
	d.FinalPrice = d.Subtotal
	if coupon != "" {
		d.CouponDiscount = nonNegative(d.Subtotal - d.CouponTarget)
		d.FinalPrice = d.CouponTarget
	}
	return d
}

// BuildQuote prices a selection. The selection is used as given; callers at
// the edge are expected to Clamp it first.
func BuildQuote(sel Selection, sapEnabled bool, coupon string) Quote {
	counts := ComputeSessionCounts(sel.DurationMonths, sel.ClassesPerWeek)
	base := BaseFee(counts.Learn)
	d := ComputeDiscounts(base, counts.Learn, sapEnabled, coupon)
	total := nonNegative(base - d.FinalPrice)
	return Quote{
		Selection:             sel,
		Counts:                counts,
		BaseFee:               base,
		SAPEnabled:            sapEnabled,
		SAPTarget:             d.SAPTarget,
		SAPDiscount:           d.SAPDiscount,
		SAPDiscountPercent:    percentOf(d.SAPDiscount, base),
		Subtotal:              d.Subtotal,
		Coupon:                coupon,
		CouponTarget:          d.CouponTarget,
		CouponDiscount:        d.CouponDiscount,
		CouponDiscountPercent: percentOf(d.CouponDiscount, d.Subtotal),
		FinalPrice:            d.FinalPrice,
		TotalDiscount:         total,
		SavingsPercentage:     percentOf(total, base),
	}
}

func percentOf(part, whole Money) int {
	if whole <= 0 || part <= 0 {
		return 0
	}
	return int(roundDiv(part*100, whole))
}

// roundDiv divides n by d (d > 0) rounding halves toward positive infinity.
func roundDiv(n, d int64) int64 {
	num := 2*n + d
	den := 2 * d
	q := num / den
	if num%den != 0 && num < 0 {
		q--
	}
	return q
}

func nonNegative(v Money) Money {
	if v < 0 {
		return 0
	}
	return v
}

func clamp(v, lo, hi Money) Money {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
