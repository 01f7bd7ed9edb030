package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/models"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/ticketing"

	"github.com/jackc/pgx/v5"
)

var (
	ErrBulkDiscountNotFound = errors.New("bulk discount not found")
	ErrBulkTierExists       = errors.New("bulk discount tier already exists for this quantity")
	ErrTaxRuleNotFound      = errors.New("tax rule not found")
	ErrTaxRuleExists        = errors.New("tax rule already exists for this locale")
	ErrInvalidTaxRate       = errors.New("tax rate is not a valid decimal")
)

func (r *Repository) CreateBulkDiscount(ctx context.Context, in models.BulkDiscountInput) (models.BulkDiscount, error) {
	var out models.BulkDiscount
	err := r.pool.QueryRow(ctx, `
INSERT INTO bulk_discounts (event_id, min_quantity, discount_type, discount_value)
VALUES ($1, $2, $3, $4)
RETURNING id, event_id, min_quantity, discount_type, discount_value, created_at;`,
		in.EventID, in.MinQuantity, in.DiscountType, in.DiscountValue,
	).Scan(&out.ID, &out.EventID, &out.MinQuantity, &out.DiscountType, &out.DiscountValue, &out.CreatedAt)
	if isUniqueViolation(err) {
		return models.BulkDiscount{}, ErrBulkTierExists
	}
	return out, err
}

func (r *Repository) ListBulkDiscounts(ctx context.Context, eventID int64) ([]models.BulkDiscount, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, event_id, min_quantity, discount_type, discount_value, created_at
FROM bulk_discounts
WHERE event_id = $1
ORDER BY min_quantity;`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tiers := make([]models.BulkDiscount, 0)
	for rows.Next() {
		var tier models.BulkDiscount
		if err := rows.Scan(&tier.ID, &tier.EventID, &tier.MinQuantity, &tier.DiscountType, &tier.DiscountValue, &tier.CreatedAt); err != nil {
			return nil, err
		}
		tiers = append(tiers, tier)
	}
	return tiers, rows.Err()
}

func (r *Repository) DeleteBulkDiscount(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM bulk_discounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrBulkDiscountNotFound
	}
	return nil
}

// bulkTiersForEvent loads an event's tiers in pipeline form.
func bulkTiersForEvent(ctx context.Context, q queryRunner, eventID int64) ([]ticketing.BulkTier, error) {
	rows, err := q.Query(ctx, `
SELECT id, min_quantity, discount_type, discount_value
FROM bulk_discounts
WHERE event_id = $1
ORDER BY min_quantity;`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiers []ticketing.BulkTier
	for rows.Next() {
		var tier ticketing.BulkTier
		if err := rows.Scan(&tier.ID, &tier.MinQuantity, &tier.DiscountType, &tier.DiscountValue); err != nil {
			return nil, err
		}
		tiers = append(tiers, tier)
	}
	return tiers, rows.Err()
}

func (r *Repository) CreateTaxRule(ctx context.Context, in models.TaxRuleInput) (models.TaxRule, error) {
	if _, err := ticketing.ParseRate(in.TaxRate); err != nil {
		return models.TaxRule{}, ErrInvalidTaxRate
	}
	var out models.TaxRule
	err := r.pool.QueryRow(ctx, `
INSERT INTO tax_rules (country, state, tax_type, tax_rate)
VALUES (upper($1), upper($2), $3, $4::numeric)
RETURNING id, country, state, tax_type, tax_rate::text, created_at;`,
		strings.TrimSpace(in.Country), strings.TrimSpace(in.State), in.TaxType, in.TaxRate,
	).Scan(&out.ID, &out.Country, &out.State, &out.TaxType, &out.TaxRate, &out.CreatedAt)
	if isUniqueViolation(err) {
		return models.TaxRule{}, ErrTaxRuleExists
	}
	return out, err
}

func (r *Repository) ListTaxRules(ctx context.Context) ([]models.TaxRule, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, country, state, tax_type, tax_rate::text, created_at
FROM tax_rules
ORDER BY country, state;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := make([]models.TaxRule, 0)
	for rows.Next() {
		var rule models.TaxRule
		if err := rows.Scan(&rule.ID, &rule.Country, &rule.State, &rule.TaxType, &rule.TaxRate, &rule.CreatedAt); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *Repository) DeleteTaxRule(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tax_rules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTaxRuleNotFound
	}
	return nil
}

// taxRuleByID reloads the rule an order was priced with, for
// repricing. A nil or vanished id falls back to the zero-rate default.
func taxRuleByID(ctx context.Context, q queryRunner, id *int64) (*ticketing.TaxRule, error) {
	if id == nil {
		return nil, nil
	}
	var (
		taxType string
		rateRaw string
	)
	err := q.QueryRow(ctx, `
SELECT tax_type, tax_rate::text
FROM tax_rules
WHERE id = $1;`, *id).Scan(&taxType, &rateRaw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rate, err := ticketing.ParseRate(rateRaw)
	if err != nil {
		return nil, err
	}
	ruleID := *id
	return &ticketing.TaxRule{ID: &ruleID, TaxType: taxType, Rate: rate}, nil
}

// lookupTaxRule resolves the rule for a locale: exact (country, state)
// first, then the country-level row at state = '', then the zero-rate
// default (nil rule).
func lookupTaxRule(ctx context.Context, q queryRunner, country, state string) (*ticketing.TaxRule, error) {
	country = strings.ToUpper(strings.TrimSpace(country))
	state = strings.ToUpper(strings.TrimSpace(state))
	if country == "" {
		return nil, nil
	}

	var (
		id      int64
		taxType string
		rateRaw string
	)
	err := q.QueryRow(ctx, `
SELECT id, tax_type, tax_rate::text
FROM tax_rules
WHERE country = $1 AND state IN ($2, '')
ORDER BY state DESC
LIMIT 1;`, country, state).Scan(&id, &taxType, &rateRaw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	rate, err := ticketing.ParseRate(rateRaw)
	if err != nil {
		return nil, err
	}
	return &ticketing.TaxRule{ID: &id, TaxType: taxType, Rate: rate}, nil
}
