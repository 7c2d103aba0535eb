package pricing

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const listPlansSQL = `
SELECT id::text, slug, name, description, monthly_price::text, annual_price::text,
       currency_code, features, feature_heading, cta_label, cta_href,
       highlight, badge_label, button_tone, sort_order
FROM pricing_plans
ORDER BY sort_order ASC`

// PostgresRepository reads pricing_plans directly when a database URL is
// configured.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) ListPlans(ctx context.Context) ([]Row, error) {
	rows, err := r.pool.Query(ctx, listPlansSQL)
	if err != nil {
		return nil, fmt.Errorf("query pricing plans: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanRow)
	if err != nil {
		return nil, fmt.Errorf("scan pricing plans: %w", err)
	}
	return out, nil
}

func scanRow(row pgx.CollectableRow) (Row, error) {
	var r Row
	var monthly, annual string
	err := row.Scan(
		&r.ID, &r.Slug, &r.Name, &r.Description, &monthly, &annual,
		&r.CurrencyCode, &r.Features, &r.FeatureHeading, &r.CTALabel, &r.CTAHref,
		&r.Highlight, &r.BadgeLabel, &r.ButtonTone, &r.SortOrder,
	)
	if err != nil {
		return Row{}, err
	}
	m, err := strconv.ParseFloat(monthly, 64)
	if err != nil {
		return Row{}, fmt.Errorf("monthly_price %q: %w", monthly, err)
	}
	a, err := strconv.ParseFloat(annual, 64)
	if err != nil {
		return Row{}, fmt.Errorf("annual_price %q: %w", annual, err)
	}
	r.MonthlyPrice, r.AnnualPrice = Decimal(m), Decimal(a)
	return r, nil
}
