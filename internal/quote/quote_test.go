package quote_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/remotehive-dev/Spark-Configurator/internal/common"
	"github.com/remotehive-dev/Spark-Configurator/internal/curriculum"
	"github.com/remotehive-dev/Spark-Configurator/internal/proposal"
	"github.com/remotehive-dev/Spark-Configurator/internal/quote"
	"github.com/remotehive-dev/Spark-Configurator/internal/student"
)

type fixture struct {
	svc        *quote.Service
	students   *student.Service
	curriculum *curriculum.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	students, err := student.NewService(student.ServiceConfig{Store: student.NewMemoryStore()})
	require.NoError(t, err)
	store := curriculum.NewMemoryStore()
	cur, err := curriculum.NewService(curriculum.ServiceConfig{Files: store, Customizations: store})
	require.NoError(t, err)
	renderer, err := proposal.NewRenderer(proposal.Config{
		BrandName: "PlanetSpark",
		Now:       func() time.Time { return time.UnixMilli(1_700_000_000_000) },
	})
	require.NoError(t, err)
	return fixture{
		svc:        quote.NewService(quote.ServiceConfig{Students: students, Customizations: cur, Renderer: renderer}),
		students:   students,
		curriculum: cur,
	}
}

func TestQuoteClampsSelection(t *testing.T) {
	f := newFixture(t)
	q, err := f.svc.Quote(quote.Request{DurationMonths: 48, ClassesPerWeek: 4})
	require.NoError(t, err)
	require.Equal(t, 24, q.Selection.DurationMonths)
	require.Equal(t, 3, q.Selection.ClassesPerWeek)
	require.Equal(t, 8, q.Counts.TenureUnits)
}

func TestQuoteNormalizesCoupon(t *testing.T) {
	f := newFixture(t)
	q, err := f.svc.Quote(quote.Request{DurationMonths: 12, ClassesPerWeek: 3, SAPEnabled: true, CouponCode: " abc123 "})
	require.NoError(t, err)
	require.Equal(t, "ABC123", q.Coupon)
	require.EqualValues(t, 52_320, q.FinalPrice)

	resp := quote.ToResponse("L-1", q)
	require.True(t, resp.CouponApplied)
	require.Equal(t, 69, resp.SavingsPercentage)
}

func TestQuoteRejectsMalformedCoupon(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Quote(quote.Request{DurationMonths: 12, ClassesPerWeek: 3, CouponCode: "AB-12"})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "INVALID_COUPON", appErr.Code)
	require.Equal(t, 422, appErr.HTTPStatus)
}

func TestValidateCoupon(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, quote.CouponResult{Valid: true, Code: "XYZ789"}, f.svc.ValidateCoupon("xyz789"))
	require.Equal(t, quote.CouponResult{Valid: false, Code: "nope"}, f.svc.ValidateCoupon(" nope "))
	require.False(t, f.svc.ValidateCoupon("").Valid)
}

func TestProposalUsesLatestCustomization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.students.Create(ctx, student.Input{ID: "L-5", Name: "Meera", Grade: "7"})
	require.NoError(t, err)
	_, err = f.curriculum.AddCustomization(ctx, curriculum.CustomizationInput{StudentID: "L-5", SelectedTopics: []string{"Linear Equations"}})
	require.NoError(t, err)

	page, receipt, err := f.svc.Proposal(ctx, quote.ProposalRequest{StudentID: "L-5", DurationMonths: 12, ClassesPerWeek: 3})
	require.NoError(t, err)
	require.Equal(t, "PS-L-5-1700000000000", receipt)
	require.Contains(t, string(page), "Linear Equations")
	require.Contains(t, string(page), "Meera")
}

func TestProposalWithoutCustomizationOrStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.students.Create(ctx, student.Input{ID: "L-6", Name: "Kiran"})
	require.NoError(t, err)

	page, _, err := f.svc.Proposal(ctx, quote.ProposalRequest{StudentID: "L-6", DurationMonths: 6, ClassesPerWeek: 5})
	require.NoError(t, err)
	require.NotContains(t, string(page), "Selected Topics")

	_, _, err = f.svc.Proposal(ctx, quote.ProposalRequest{StudentID: "missing"})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)

	bare := quote.NewService(quote.ServiceConfig{})
	_, _, err = bare.Proposal(ctx, quote.ProposalRequest{StudentID: "L-6"})
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "PROPOSALS_UNAVAILABLE", appErr.Code)
}
