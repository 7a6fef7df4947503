package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/errors"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/domain"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/repository"
)

func seededStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	n, err := s.Seed(context.Background(), []domain.Product{
		{ID: "pocky-fresa", Name: "Pocky Fresa", Price: 9000, Category: "snacks", Stock: 3},
		{ID: "peluche-kuromi", Name: "Peluche Kuromi", Price: 50000, Category: "peluches", Stock: 10},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	return s
}

func TestUsers(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	user := &domain.User{ID: "u1", Email: "ana@example.com"}

	require.NoError(t, s.Create(ctx, user))
	err := s.Create(ctx, user)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.Contains(t, err.Error(), `email "ana@example.com"`)

	got, err := s.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	_, err = s.GetByEmail(ctx, "nadie@example.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProducts(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Peluche Kuromi", all[0].Name)

	snacks, err := s.List(ctx, "snacks")
	require.NoError(t, err)
	assert.Len(t, snacks, 1)

	none, err := s.List(ctx, "ropa")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	found, err := s.GetMany(ctx, []string{"pocky-fresa", "missing"})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	n, err := s.Seed(ctx, []domain.Product{{ID: "pocky-fresa", Name: "Otro"}})
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = s.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCreateFromDraft(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	drafts := s.Drafts()

	require.NoError(t, drafts.Create(ctx, &domain.CheckoutDraft{
		ID:              "d1",
		UserID:          "u1",
		PaymentIntentID: "pi_1",
		Items:           []domain.OrderItem{{ProductID: "pocky-fresa", UnitPrice: 9000, Quantity: 5}},
		Total:           55000,
		Status:          domain.DraftStatusPending,
	}))

	build := func(d *domain.CheckoutDraft) *domain.Order {
		return domain.NewOrderFromDraft("o1", d, time.Now().UTC())
	}
	order, err := s.CreateFromDraft(ctx, "pi_1", build)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessed, order.Status)

	p, err := s.GetByID(ctx, "pocky-fresa")
	require.NoError(t, err)
	assert.Zero(t, p.Stock, "stock never goes negative")

	draft, err := drafts.GetByPaymentIntent(ctx, "pi_1")
	require.NoError(t, err)
	assert.True(t, draft.Consumed())
	assert.NotNil(t, draft.ConsumedAt)

	_, err = s.CreateFromDraft(ctx, "pi_1", build)
	assert.ErrorIs(t, err, repository.ErrDraftConsumed)

	_, err = s.CreateFromDraft(ctx, "pi_missing", build)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err := s.GetByPaymentIntent(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, got.OrderNumber)
}

func TestListByUser(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, pi := range []string{"pi_a", "pi_b", "pi_c"} {
		require.NoError(t, s.Drafts().Create(ctx, &domain.CheckoutDraft{ID: pi, UserID: "u1", PaymentIntentID: pi}))
		_, err := s.CreateFromDraft(ctx, pi, func(d *domain.CheckoutDraft) *domain.Order {
			return domain.NewOrderFromDraft(pi, d, base.Add(time.Duration(i)*time.Hour))
		})
		require.NoError(t, err)
	}

	page, total, err := s.ListByUser(ctx, "u1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "pi_c", page[0].PaymentIntentID)

	page, _, err = s.ListByUser(ctx, "u1", 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "pi_a", page[0].PaymentIntentID)

	page, total, err = s.ListByUser(ctx, "u2", 2, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, page)
}

func TestDrafts_DuplicateIntent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	draft := &domain.CheckoutDraft{ID: "d1", PaymentIntentID: "pi_1", Status: domain.DraftStatusPending}

	require.NoError(t, s.Drafts().Create(ctx, draft))
	err := s.Drafts().Create(ctx, draft)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.Contains(t, appErr.Message, `payment_intent_id "pi_1"`)
}
