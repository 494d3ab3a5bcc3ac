// Package proposal renders the printable proposal receipt handed to parents.
// It formats an already priced quote and never recomputes amounts.
package proposal

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/remotehive-dev/Spark-Configurator/internal/pricing"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// DefaultMethodology is the Learn, Practice, Perform class structure.
const DefaultMethodology = "LPP"

// Student identifies who the proposal is for.
type Student struct {
	ID    string
	Name  string
	Grade string
}

// Document is everything printed on one proposal.
type Document struct {
	Student     Student
	Methodology string
	Topics      []string
	Quote       pricing.Quote
}

// Config configures a Renderer.
type Config struct {
	BrandName string
	Tagline   string
	Location  *time.Location
	Now       func() time.Time
}

// Renderer produces HTML proposals.
type Renderer struct {
	tmpl     *template.Template
	brand    string
	tagline  string
	location *time.Location
	now      func() time.Time
}

type view struct {
	Brand       string
	Tagline     string
	IssuedAt    string
	ReceiptID   string
	Student     Student
	Methodology string
	Topics      []string
	Quote       pricing.Quote
	InWords     string
}

// NewRenderer parses the embedded template.
func NewRenderer(cfg Config) (*Renderer, error) {
	tmpl, err := template.New("proposal.html.tmpl").Funcs(template.FuncMap{
		"rupees": Rupees,
	}).ParseFS(templateFS, "templates/proposal.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse proposal template: %w", err)
	}
	brand := strings.TrimSpace(cfg.BrandName)
	if brand == "" {
		brand = "PlanetSpark"
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Renderer{tmpl: tmpl, brand: brand, tagline: strings.TrimSpace(cfg.Tagline), location: loc, now: now}, nil
}

// ReceiptID builds the receipt identifier for a student at a point in time.
func ReceiptID(studentID string, at time.Time) string {
	return fmt.Sprintf("PS-%s-%d", studentID, at.UnixMilli())
}

// Render writes doc as a standalone HTML page and returns its receipt id.
func (r *Renderer) Render(w io.Writer, doc Document) (string, error) {
	if strings.TrimSpace(doc.Student.ID) == "" {
		return "", errors.New("proposal: student id is required")
	}
	methodology := strings.TrimSpace(doc.Methodology)
	if methodology == "" {
		methodology = DefaultMethodology
	}
	issued := r.now()
	v := view{
		Brand:       r.brand,
		Tagline:     r.tagline,
		IssuedAt:    issued.In(r.location).Format("02 Jan 2006 15:04"),
		ReceiptID:   ReceiptID(doc.Student.ID, issued),
		Student:     doc.Student,
		Methodology: methodology,
		Topics:      doc.Topics,
		Quote:       doc.Quote,
		InWords:     AmountInWords(doc.Quote.FinalPrice),
	}
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("render proposal: %w", err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return "", err
	}
	return v.ReceiptID, nil
}
