package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/models"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/ticketing"

	"github.com/jackc/pgx/v5"
)

var ErrPromoCodeExists = errors.New("promo code already exists")

const promoColumns = `id::text, code, event_id, discount_type, discount_value, max_uses, current_uses, valid_from, valid_until, min_purchase_cents, is_active, created_at, updated_at`

func (r *Repository) CreatePromoCode(ctx context.Context, in models.PromoCodeInput) (models.PromoCode, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO promo_codes (code, event_id, discount_type, discount_value, max_uses, valid_from, valid_until, min_purchase_cents)
VALUES (upper($1), $2, $3, $4, $5, $6, $7, $8)
RETURNING `+promoColumns+`;`,
		strings.TrimSpace(in.Code),
		nullInt64Ptr(in.EventID),
		in.DiscountType,
		in.DiscountValue,
		in.MaxUses,
		in.ValidFrom,
		in.ValidUntil,
		in.MinPurchaseCents,
	)
	promo, err := scanPromo(row)
	if isUniqueViolation(err) {
		return models.PromoCode{}, ErrPromoCodeExists
	}
	return promo, err
}

func (r *Repository) GetPromoCode(ctx context.Context, code string) (models.PromoCode, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE code = upper($1)`, strings.TrimSpace(code))
	promo, err := scanPromo(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return promo, ErrPromoNotFound
	}
	return promo, err
}

func (r *Repository) ListPromoCodes(ctx context.Context, eventID *int64) ([]models.PromoCode, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+promoColumns+`
FROM promo_codes
WHERE ($1::bigint IS NULL OR event_id = $1 OR event_id IS NULL)
ORDER BY created_at DESC;`, nullInt64Ptr(eventID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	codes := make([]models.PromoCode, 0)
	for rows.Next() {
		promo, err := scanPromo(rows)
		if err != nil {
			return nil, err
		}
		codes = append(codes, promo)
	}
	return codes, rows.Err()
}

func (r *Repository) DeactivatePromoCode(ctx context.Context, code string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE promo_codes
SET is_active = false, updated_at = now()
WHERE code = upper($1);`, strings.TrimSpace(code))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPromoNotFound
	}
	return nil
}

// ValidatePromoCode checks a code against an order amount without
// redeeming it. The usage counter is untouched; redemption happens only
// inside order creation.
func (r *Repository) ValidatePromoCode(ctx context.Context, code string, eventID int64, subtotalCents int64) (models.PromoValidation, error) {
	promo, err := r.GetPromoCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrPromoNotFound) {
			return models.PromoValidation{
				Code:   strings.ToUpper(strings.TrimSpace(code)),
				Reason: "not_found",
			}, nil
		}
		return models.PromoValidation{}, err
	}

	result := ticketing.ValidatePromo(promoToRule(promo), ticketing.PromoInput{
		EventID:       eventID,
		SubtotalCents: subtotalCents,
	})
	out := models.PromoValidation{
		Valid:  result.Valid,
		Code:   promo.Code,
		Reason: result.Reason,
	}
	if result.Valid {
		out.DiscountCents = result.DiscountCents
		out.DiscountAmount = ticketing.FormatCents(result.DiscountCents)
		out.FinalAmount = ticketing.FormatCents(result.TotalCents)
	}
	return out, nil
}

// getPromoForUpdate locks the promo row so concurrent orders racing for
// the last redemption serialize on it.
func getPromoForUpdate(ctx context.Context, tx pgx.Tx, code string) (models.PromoCode, error) {
	row := tx.QueryRow(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE code = upper($1) FOR UPDATE`, strings.TrimSpace(code))
	promo, err := scanPromo(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return promo, ErrPromoNotFound
	}
	return promo, err
}

// redeemPromo increments current_uses behind the max_uses guard. Zero
// rows means another order took the last use since validation.
func redeemPromo(ctx context.Context, tx pgx.Tx, promoID string) error {
	cmd, err := tx.Exec(ctx, `
UPDATE promo_codes
SET current_uses = current_uses + 1, updated_at = now()
WHERE id = $1::uuid AND (max_uses = 0 OR current_uses < max_uses);`, promoID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPromoExhausted
	}
	return nil
}

// unredeemPromo returns a use when a pending order is cancelled or
// expires before payment.
func unredeemPromo(ctx context.Context, tx pgx.Tx, promoID string) error {
	_, err := tx.Exec(ctx, `
UPDATE promo_codes
SET current_uses = current_uses - 1, updated_at = now()
WHERE id = $1::uuid AND current_uses > 0;`, promoID)
	return err
}

func promoToRule(promo models.PromoCode) ticketing.PromoRule {
	return ticketing.PromoRule{
		Code:             promo.Code,
		DiscountType:     promo.DiscountType,
		DiscountValue:    promo.DiscountValue,
		MaxUses:          promo.MaxUses,
		CurrentUses:      promo.CurrentUses,
		ValidFrom:        promo.ValidFrom,
		ValidUntil:       promo.ValidUntil,
		EventID:          promo.EventID,
		MinPurchaseCents: promo.MinPurchaseCents,
		IsActive:         promo.IsActive,
	}
}

func scanPromo(row pgx.Row) (models.PromoCode, error) {
	var (
		out        models.PromoCode
		eventID    sql.NullInt64
		validFrom  sql.NullTime
		validUntil sql.NullTime
	)
	err := row.Scan(
		&out.ID,
		&out.Code,
		&eventID,
		&out.DiscountType,
		&out.DiscountValue,
		&out.MaxUses,
		&out.CurrentUses,
		&validFrom,
		&validUntil,
		&out.MinPurchaseCents,
		&out.IsActive,
		&out.CreatedAt,
		&out.UpdatedAt,
	)
	if err != nil {
		return out, err
	}
	out.EventID = nullInt64ToPtr(eventID)
	out.ValidFrom = nullTimeToPtr(validFrom)
	out.ValidUntil = nullTimeToPtr(validUntil)
	return out, nil
}
