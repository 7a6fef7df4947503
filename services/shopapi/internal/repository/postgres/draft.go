package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/database"
	apperrors "github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/errors"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/domain"
)

const draftColumns = `id, user_id, payment_intent_id, items, shipping_address, subtotal, shipping, total, status, created_at, consumed_at`

// DraftRepository implements repository.DraftRepository using PostgreSQL.
type DraftRepository struct {
	pool database.DBTX
}

// NewDraftRepository creates a new PostgreSQL-backed checkout draft repository.
func NewDraftRepository(pool database.DBTX) *DraftRepository {
	return &DraftRepository{pool: pool}
}

// Create inserts a checkout draft.
func (r *DraftRepository) Create(ctx context.Context, d *domain.CheckoutDraft) error {
	itemsJSON, err := json.Marshal(d.Items)
	if err != nil {
		return fmt.Errorf("marshal draft items: %w", err)
	}
	addressJSON, err := json.Marshal(d.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}

	query := `
		INSERT INTO checkout_drafts (` + draftColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.pool.Exec(ctx, query,
		d.ID,
		d.UserID,
		d.PaymentIntentID,
		itemsJSON,
		addressJSON,
		d.Subtotal,
		d.Shipping,
		d.Total,
		d.Status,
		d.CreatedAt,
		d.ConsumedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("checkout draft", "payment_intent_id", d.PaymentIntentID)
		}
		return fmt.Errorf("insert checkout draft: %w", err)
	}
	return nil
}

// GetByPaymentIntent retrieves the draft recorded for a payment intent.
func (r *DraftRepository) GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*domain.CheckoutDraft, error) {
	query := `SELECT ` + draftColumns + ` FROM checkout_drafts WHERE payment_intent_id = $1`

	d, err := scanDraft(r.pool.QueryRow(ctx, query, paymentIntentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("checkout draft", paymentIntentID)
		}
		return nil, err
	}
	return d, nil
}

func scanDraft(row pgx.Row) (*domain.CheckoutDraft, error) {
	var (
		d           domain.CheckoutDraft
		itemsJSON   []byte
		addressJSON []byte
	)
	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.PaymentIntentID,
		&itemsJSON,
		&addressJSON,
		&d.Subtotal,
		&d.Shipping,
		&d.Total,
		&d.Status,
		&d.CreatedAt,
		&d.ConsumedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan checkout draft: %w", err)
	}
	if err := json.Unmarshal(itemsJSON, &d.Items); err != nil {
		return nil, fmt.Errorf("unmarshal draft items: %w", err)
	}
	if err := json.Unmarshal(addressJSON, &d.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	return &d, nil
}
