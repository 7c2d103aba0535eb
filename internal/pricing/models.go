// Package pricing reads the plans table, projects rows into the public plan
// shape and loads the landing page pricing section.
package pricing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

type ButtonTone string

const (
	ToneNeutral   ButtonTone = "neutral"
	ToneSecondary ButtonTone = "secondary"
	ToneInverted  ButtonTone = "inverted"
	TonePrimary   ButtonTone = "primary"
)

const DefaultFeatureHeading = "Get started today:"

// Plan is the public projection served by GET /api/pricing.
type Plan struct {
	ID             string     `json:"id"`
	Slug           string     `json:"slug"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	MonthlyPrice   float64    `json:"monthlyPrice"`
	AnnualPrice    float64    `json:"annualPrice"`
	Currency       string     `json:"currency"`
	Features       []string   `json:"features"`
	FeatureHeading string     `json:"featureHeading"`
	CTALabel       string     `json:"ctaLabel"`
	CTAHref        *string    `json:"ctaHref"`
	Highlight      bool       `json:"highlight"`
	BadgeLabel     *string    `json:"badgeLabel"`
	ButtonTone     ButtonTone `json:"buttonTone"`
}

// Row mirrors a pricing_plans record. Prices are numeric columns and arrive
// as decimal strings.
type Row struct {
	ID             string   `json:"id"`
	Slug           string   `json:"slug"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	MonthlyPrice   Decimal  `json:"monthly_price"`
	AnnualPrice    Decimal  `json:"annual_price"`
	CurrencyCode   string   `json:"currency_code"`
	Features       []string `json:"features"`
	FeatureHeading *string  `json:"feature_heading"`
	CTALabel       string   `json:"cta_label"`
	CTAHref        *string  `json:"cta_href"`
	Highlight      bool     `json:"highlight"`
	BadgeLabel     *string  `json:"badge_label"`
	ButtonTone     *string  `json:"button_tone"`
	SortOrder      int      `json:"sort_order"`
}

// Columns selected from pricing_plans, in Row order.
var Columns = []string{
	"id", "slug", "name", "description", "monthly_price", "annual_price",
	"currency_code", "features", "feature_heading", "cta_label", "cta_href",
	"highlight", "badge_label", "button_tone", "sort_order",
}

// Plan applies the column defaults.
func (r Row) Plan() Plan {
	p := Plan{
		ID:             r.ID,
		Slug:           r.Slug,
		Name:           r.Name,
		Description:    r.Description,
		MonthlyPrice:   float64(r.MonthlyPrice),
		AnnualPrice:    float64(r.AnnualPrice),
		Currency:       r.CurrencyCode,
		Features:       r.Features,
		FeatureHeading: DefaultFeatureHeading,
		CTALabel:       r.CTALabel,
		CTAHref:        r.CTAHref,
		Highlight:      r.Highlight,
		BadgeLabel:     r.BadgeLabel,
		ButtonTone:     ToneNeutral,
	}
	if p.Features == nil {
		p.Features = []string{}
	}
	if r.FeatureHeading != nil {
		p.FeatureHeading = *r.FeatureHeading
	}
	if r.ButtonTone != nil {
		p.ButtonTone = ButtonTone(*r.ButtonTone)
	}
	return p
}

// Decimal accepts a JSON string ("19.00") or number.
type Decimal float64

func (d *Decimal) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		*d = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("decode decimal %q: %w", s, err)
	}
	*d = Decimal(f)
	return nil
}

// Repository returns plan rows ordered by sort_order ascending.
type Repository interface {
	ListPlans(ctx context.Context) ([]Row, error)
}
