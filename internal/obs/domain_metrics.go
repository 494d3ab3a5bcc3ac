package obs

import (
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Domain holds the business counters. The Record helpers write to the
// instance installed by RegisterDomain and do nothing before that.
type Domain struct {
	Quotes           *prometheus.CounterVec
	Coupons          *prometheus.CounterVec
	Proposals        prometheus.Counter
	TopicSubscribers prometheus.Gauge
	Logins           *prometheus.CounterVec
	ImportedRows     *prometheus.CounterVec
}

var domain atomic.Pointer[Domain]

// RegisterDomain registers the business collectors on reg and makes them
// the target of the Record helpers.
func RegisterDomain(namespace string, reg prometheus.Registerer) *Domain {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels))
	}
	d := &Domain{
		Quotes:  counterVec("quotes_built_total", "Quotes priced, by whether the SAP discount and a coupon applied.", "sap", "coupon"),
		Coupons: counterVec("coupon_validation_total", "Coupon code checks by result.", "result"),
		Proposals: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "proposals_rendered_total", Help: "Printable proposals produced.",
		})),
		TopicSubscribers: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "topic_stream_subscribers", Help: "Open topic change streams.",
		})),
		Logins:       counterVec("login_attempts_total", "Login attempts by outcome.", "result"),
		ImportedRows: counterVec("imported_rows_total", "Rows written by bulk imports, by kind.", "kind"),
	}
	domain.Store(d)
	return d
}

func RecordQuote(sap, coupon bool) {
	if d := domain.Load(); d != nil {
		d.Quotes.WithLabelValues(strconv.FormatBool(sap), strconv.FormatBool(coupon)).Inc()
	}
}

func RecordCouponValidation(valid bool) {
	d := domain.Load()
	if d == nil {
		return
	}
	result := "invalid"
	if valid {
		result = "valid"
	}
	d.Coupons.WithLabelValues(result).Inc()
}

func RecordProposal() {
	if d := domain.Load(); d != nil {
		d.Proposals.Inc()
	}
}

// AddTopicSubscribers moves the open stream gauge by delta.
func AddTopicSubscribers(delta float64) {
	if d := domain.Load(); d != nil {
		d.TopicSubscribers.Add(delta)
	}
}

// RecordLogin takes success, failure, error or limited.
func RecordLogin(result string) {
	if d := domain.Load(); d != nil {
		d.Logins.WithLabelValues(result).Inc()
	}
}

// RecordImport counts rows written by a bulk import of kind "students" or "topics".
func RecordImport(kind string, rows int) {
	if d := domain.Load(); d != nil && rows > 0 {
		d.ImportedRows.WithLabelValues(kind).Add(float64(rows))
	}
}
