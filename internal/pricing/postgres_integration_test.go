//go:build integration

package pricing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointer/pkg/testutil/containers"
)

const pricingSchema = `
CREATE TABLE pricing_plans (
	id              uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	slug            text NOT NULL UNIQUE,
	name            text NOT NULL,
	description     text NOT NULL DEFAULT '',
	monthly_price   numeric(10,2) NOT NULL,
	annual_price    numeric(10,2) NOT NULL,
	currency_code   text NOT NULL DEFAULT 'USD',
	features        text[] NOT NULL DEFAULT '{}',
	feature_heading text,
	cta_label       text NOT NULL,
	cta_href        text,
	highlight       boolean NOT NULL DEFAULT false,
	badge_label     text,
	button_tone     text,
	sort_order      integer NOT NULL
)`

const pricingSeed = `
INSERT INTO pricing_plans
	(slug, name, monthly_price, annual_price, features, feature_heading, cta_label, cta_href, highlight, badge_label, button_tone, sort_order)
VALUES
	('pro', 'Pro', 19.50, 195.00, ARRAY['Unlimited projects','Priority support'], 'Everything in Free, plus:', 'Go Pro', '/checkout/pro', true, 'Popular', 'primary', 2),
	('free', 'Free', 0, 0, '{}', NULL, 'Start free', NULL, false, NULL, NULL, 1)`

func TestPostgresRepositoryListPlans(t *testing.T) {
	pg := containers.NewPostgresContainer(t, pricingSchema, pricingSeed)
	repo := NewPostgresRepository(pg.Pool)

	rows, err := repo.ListPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "free", rows[0].Slug, "rows come back in sort_order")
	assert.Nil(t, rows[0].CTAHref)
	assert.Empty(t, rows[0].Features)

	pro := rows[1]
	assert.Equal(t, Decimal(19.5), pro.MonthlyPrice)
	assert.Equal(t, Decimal(195), pro.AnnualPrice)
	assert.Equal(t, []string{"Unlimited projects", "Priority support"}, pro.Features)
	require.NotNil(t, pro.BadgeLabel)
	assert.Equal(t, "Popular", *pro.BadgeLabel)

	plan := rows[0].Plan()
	assert.Equal(t, DefaultFeatureHeading, plan.FeatureHeading)
	assert.Equal(t, ToneNeutral, plan.ButtonTone)
}
