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
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/repository"
)

const orderColumns = `id, order_number, user_id, payment_intent_id, status, items, shipping_address, subtotal, shipping, total, created_at`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateFromDraft materializes the order for a paid draft atomically.
func (r *OrderRepository) CreateFromDraft(
	ctx context.Context,
	paymentIntentID string,
	newOrder func(*domain.CheckoutDraft) *domain.Order,
) (order *domain.Order, err error) {
	ctx, end := database.TraceQuery(ctx, "CreateOrderFromDraft", "checkout_drafts -> orders")
	defer func() { end(err) }()

	err = database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		lockQuery := `SELECT ` + draftColumns + ` FROM checkout_drafts WHERE payment_intent_id = $1 FOR UPDATE`
		draft, err := scanDraft(tx.QueryRow(ctx, lockQuery, paymentIntentID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("checkout draft", paymentIntentID)
			}
			return err
		}
		if draft.Consumed() {
			return repository.ErrDraftConsumed
		}

		order = newOrder(draft)
		if err := insertOrder(ctx, tx, order); err != nil {
			return err
		}

		stockQuery := `UPDATE products SET stock = GREATEST(stock - $2, 0) WHERE id = $1`
		for _, item := range order.Items {
			if _, err := tx.Exec(ctx, stockQuery, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("decrement stock for %s: %w", item.ProductID, err)
			}
		}

		consumeQuery := `UPDATE checkout_drafts SET status = $1, consumed_at = $2 WHERE id = $3`
		if _, err := tx.Exec(ctx, consumeQuery, domain.DraftStatusConsumed, order.CreatedAt, draft.ID); err != nil {
			return fmt.Errorf("mark draft consumed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func insertOrder(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}
	addressJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = tx.Exec(ctx, query,
		o.ID,
		o.OrderNumber,
		o.UserID,
		o.PaymentIntentID,
		o.Status,
		itemsJSON,
		addressJSON,
		o.Subtotal,
		o.Shipping,
		o.Total,
		o.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDraftConsumed
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByPaymentIntent retrieves the order paid by a payment intent.
func (r *OrderRepository) GetByPaymentIntent(ctx context.Context, paymentIntentID string) (order *domain.Order, err error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE payment_intent_id = $1`

	ctx, end := database.TraceQuery(ctx, "GetOrderByPaymentIntent", query)
	defer func() { end(err) }()

	order, err = scanOrder(r.pool.QueryRow(ctx, query, paymentIntentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", paymentIntentID)
		}
		return nil, err
	}
	return order, nil
}

// ListByUser returns one page of the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, total, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o           domain.Order
		itemsJSON   []byte
		addressJSON []byte
	)
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.PaymentIntentID,
		&o.Status,
		&itemsJSON,
		&addressJSON,
		&o.Subtotal,
		&o.Shipping,
		&o.Total,
		&o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(addressJSON, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	return &o, nil
}
