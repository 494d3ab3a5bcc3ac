// Package quote prices curriculum selections at the HTTP boundary and turns
// them into printable proposals.
package quote

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/remotehive-dev/Spark-Configurator/internal/common"
	"github.com/remotehive-dev/Spark-Configurator/internal/curriculum"
	"github.com/remotehive-dev/Spark-Configurator/internal/obs"
	"github.com/remotehive-dev/Spark-Configurator/internal/pricing"
	"github.com/remotehive-dev/Spark-Configurator/internal/proposal"
	"github.com/remotehive-dev/Spark-Configurator/internal/student"
)

// Request is the pricing input sent by the configurator.
type Request struct {
	StudentID      string `json:"studentId" validate:"max=64"`
	DurationMonths int    `json:"durationMonths"`
	ClassesPerWeek int    `json:"classesPerWeek"`
	SAPEnabled     bool   `json:"sapEnabled"`
	CouponCode     string `json:"couponCode" validate:"max=32"`
}

// ProposalRequest prices a selection for a known student and prints it.
// Unlike quoting, a malformed coupon is rejected as a field error.
type ProposalRequest struct {
	StudentID      string   `json:"studentId" validate:"notblank,max=64"`
	DurationMonths int      `json:"durationMonths"`
	ClassesPerWeek int      `json:"classesPerWeek"`
	SAPEnabled     bool     `json:"sapEnabled"`
	CouponCode     string   `json:"couponCode" validate:"coupon"`
	Methodology    string   `json:"methodology" validate:"max=32"`
	Topics         []string `json:"topics" validate:"omitempty,dive,notblank"`
}

func (p ProposalRequest) quoteRequest() Request {
	return Request{
		StudentID:      p.StudentID,
		DurationMonths: p.DurationMonths,
		ClassesPerWeek: p.ClassesPerWeek,
		SAPEnabled:     p.SAPEnabled,
		CouponCode:     p.CouponCode,
	}
}

// Counts mirrors pricing.SessionCounts for JSON output.
type Counts struct {
	TenureUnits int `json:"tenureUnits"`
	Learn       int `json:"learn"`
	Practice    int `json:"practice"`
	Perform     int `json:"perform"`
	Total       int `json:"total"`
}

// Response is the priced quote returned to clients.
type Response struct {
	StudentID             string        `json:"studentId,omitempty"`
	DurationMonths        int           `json:"durationMonths"`
	ClassesPerWeek        int           `json:"classesPerWeek"`
	Counts                Counts        `json:"sessionCounts"`
	BaseFee               pricing.Money `json:"baseFee"`
	SAPEnabled            bool          `json:"sapEnabled"`
	SAPTarget             pricing.Money `json:"sapTarget"`
	SAPDiscount           pricing.Money `json:"sapDiscount"`
	SAPDiscountPercent    int           `json:"sapDiscountPercent"`
	Subtotal              pricing.Money `json:"subtotal"`
	CouponCode            string        `json:"couponCode,omitempty"`
	CouponApplied         bool          `json:"couponApplied"`
	CouponTarget          pricing.Money `json:"couponTarget"`
	CouponDiscount        pricing.Money `json:"couponDiscount"`
	CouponDiscountPercent int           `json:"couponDiscountPercent"`
	FinalPrice            pricing.Money `json:"finalPrice"`
	TotalDiscount         pricing.Money `json:"totalDiscount"`
	SavingsPercentage     int           `json:"savingsPercentage"`
}

// CouponResult reports whether a code can be applied.
type CouponResult struct {
	Valid bool   `json:"valid"`
	Code  string `json:"code"`
}

// StudentLookup resolves leads.
type StudentLookup interface {
	Get(ctx context.Context, id string) (student.Student, error)
}

// CustomizationLookup resolves the latest topic selection for a lead.
type CustomizationLookup interface {
	LatestCustomization(ctx context.Context, studentID string) (curriculum.Customization, error)
}

// ServiceConfig configures the Service.
type ServiceConfig struct {
	Students       StudentLookup
	Customizations CustomizationLookup
	Renderer       *proposal.Renderer
}

// Service builds quotes and proposals.
type Service struct {
	students       StudentLookup
	customizations CustomizationLookup
	renderer       *proposal.Renderer
}

// NewService constructs a Service. Without a renderer and student lookup,
// proposals are unavailable but quoting still works.
func NewService(cfg ServiceConfig) *Service {
	return &Service{students: cfg.Students, customizations: cfg.Customizations, renderer: cfg.Renderer}
}

var errInvalidCoupon = common.NewAppError("INVALID_COUPON", "coupon must be 6 alphanumeric characters", http.StatusUnprocessableEntity, pricing.ErrInvalidCoupon)

// Quote clamps the selection, validates the coupon and prices it.
func (s *Service) Quote(req Request) (pricing.Quote, error) {
	coupon, err := pricing.NormalizeCoupon(req.CouponCode)
	if err != nil {
		obs.RecordCouponValidation(false)
		return pricing.Quote{}, errInvalidCoupon
	}
	if coupon != "" {
		obs.RecordCouponValidation(true)
	}
	sel := pricing.Selection{DurationMonths: req.DurationMonths, ClassesPerWeek: req.ClassesPerWeek}.Clamp()
	q := pricing.BuildQuote(sel, req.SAPEnabled, coupon)
	obs.RecordQuote(q.SAPEnabled, q.CouponApplied())
	return q, nil
}

// ValidateCoupon never fails; malformed codes report valid=false.
func (s *Service) ValidateCoupon(raw string) CouponResult {
	code, err := pricing.NormalizeCoupon(raw)
	valid := err == nil && code != ""
	obs.RecordCouponValidation(valid)
	if !valid {
		return CouponResult{Valid: false, Code: strings.TrimSpace(raw)}
	}
	return CouponResult{Valid: true, Code: code}
}

// Proposal renders the HTML proposal for a student. Topics come from the
// request or, when absent, the student's latest customization.
func (s *Service) Proposal(ctx context.Context, req ProposalRequest) ([]byte, string, error) {
	if s.renderer == nil || s.students == nil {
		return nil, "", common.NewAppError("PROPOSALS_UNAVAILABLE", "proposal rendering not configured", http.StatusServiceUnavailable, nil)
	}
	st, err := s.students.Get(ctx, req.StudentID)
	if err != nil {
		return nil, "", err
	}
	q, err := s.Quote(req.quoteRequest())
	if err != nil {
		return nil, "", err
	}

	topics := req.Topics
	if len(topics) == 0 && s.customizations != nil {
		c, err := s.customizations.LatestCustomization(ctx, st.ID)
		var appErr *common.AppError
		switch {
		case err == nil:
			topics = c.SelectedTopics
		case errors.As(err, &appErr) && appErr.HTTPStatus == http.StatusNotFound:
		default:
			return nil, "", err
		}
	}

	var buf bytes.Buffer
	receipt, err := s.renderer.Render(&buf, proposal.Document{
		Student:     proposal.Student{ID: st.ID, Name: st.Name, Grade: st.Grade},
		Methodology: req.Methodology,
		Topics:      topics,
		Quote:       q,
	})
	if err != nil {
		return nil, "", err
	}
	obs.RecordProposal()
	return buf.Bytes(), receipt, nil
}

// ToResponse flattens a quote for JSON output.
func ToResponse(studentID string, q pricing.Quote) Response {
	return Response{
		StudentID:      strings.TrimSpace(studentID),
		DurationMonths: q.Selection.DurationMonths,
		ClassesPerWeek: q.Selection.ClassesPerWeek,
		Counts: Counts{
			TenureUnits: q.Counts.TenureUnits,
			Learn:       q.Counts.Learn,
			Practice:    q.Counts.Practice,
			Perform:     q.Counts.Perform,
			Total:       q.Counts.Total,
		},
		BaseFee:               q.BaseFee,
		SAPEnabled:            q.SAPEnabled,
		SAPTarget:             q.SAPTarget,
		SAPDiscount:           q.SAPDiscount,
		SAPDiscountPercent:    q.SAPDiscountPercent,
		Subtotal:              q.Subtotal,
		CouponCode:            q.Coupon,
		CouponApplied:         q.CouponApplied(),
		CouponTarget:          q.CouponTarget,
		CouponDiscount:        q.CouponDiscount,
		CouponDiscountPercent: q.CouponDiscountPercent,
		FinalPrice:            q.FinalPrice,
		TotalDiscount:         q.TotalDiscount,
		SavingsPercentage:     q.SavingsPercentage,
	}
}
