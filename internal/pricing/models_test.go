package pricing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowPlanDefaults(t *testing.T) {
	raw := `{
		"id": "p1", "slug": "free", "name": "Free", "description": "Start here",
		"monthly_price": "0.00", "annual_price": "0", "currency_code": "USD",
		"features": null, "feature_heading": null, "cta_label": "Get started",
		"cta_href": null, "highlight": false, "badge_label": null,
		"button_tone": null, "sort_order": 1
	}`
	var row Row
	require.NoError(t, json.Unmarshal([]byte(raw), &row))

	plan := row.Plan()
	assert.Equal(t, []string{}, plan.Features)
	assert.Equal(t, DefaultFeatureHeading, plan.FeatureHeading)
	assert.Equal(t, ToneNeutral, plan.ButtonTone)
	assert.Nil(t, plan.CTAHref)
	assert.Nil(t, plan.BadgeLabel)

	out, err := json.Marshal(plan)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "p1", "slug": "free", "name": "Free", "description": "Start here",
		"monthlyPrice": 0, "annualPrice": 0, "currency": "USD",
		"features": [], "featureHeading": "Get started today:",
		"ctaLabel": "Get started", "ctaHref": null, "highlight": false,
		"badgeLabel": null, "buttonTone": "neutral"
	}`, string(out))
}

func TestRowPlanKeepsValues(t *testing.T) {
	heading, tone, href, badge := "Everything in Free, plus:", "inverted", "/contact", "Popular"
	row := Row{
		MonthlyPrice:   Decimal(24),
		AnnualPrice:    Decimal(19.5),
		Features:       []string{"Unlimited projects"},
		FeatureHeading: &heading,
		ButtonTone:     &tone,
		CTAHref:        &href,
		BadgeLabel:     &badge,
	}

	plan := row.Plan()
	assert.Equal(t, heading, plan.FeatureHeading)
	assert.Equal(t, ToneInverted, plan.ButtonTone)
	assert.Equal(t, 19.5, plan.AnnualPrice)
	assert.Equal(t, &href, plan.CTAHref)
}

func TestDecimalUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    Decimal
		wantErr bool
	}{
		{in: `"19.99"`, want: 19.99},
		{in: `20`, want: 20},
		{in: `null`, want: 0},
		{in: `"abc"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Decimal
			err := json.Unmarshal([]byte(tt.in), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}
}
