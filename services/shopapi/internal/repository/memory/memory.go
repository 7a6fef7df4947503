package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/errors"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/domain"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/repository"
)

// Store keeps users, products, drafts and orders in process memory. It
// backs local development without Postgres. Drafts are reached through
// Drafts.
type Store struct {
	mu       sync.RWMutex
	users    map[string]domain.User // by email
	products map[string]domain.Product
	drafts   map[string]domain.CheckoutDraft // by payment intent
	orders   map[string]domain.Order         // by payment intent
}

var (
	_ repository.UserRepository    = (*Store)(nil)
	_ repository.ProductRepository = (*Store)(nil)
	_ repository.OrderRepository   = (*Store)(nil)
	_ repository.DraftRepository   = draftView{}
)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:    make(map[string]domain.User),
		products: make(map[string]domain.Product),
		drafts:   make(map[string]domain.CheckoutDraft),
		orders:   make(map[string]domain.Order),
	}
}

// --- Users ---

func (s *Store) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; ok {
		return apperrors.AlreadyExists("user", "email", user.Email)
	}
	s.users[user.Email] = *user
	return nil
}

func (s *Store) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[email]
	if !ok {
		return nil, apperrors.NotFound("user", email)
	}
	return &user, nil
}

// --- Products ---

func (s *Store) List(_ context.Context, category string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if category == "" || p.Category == category {
			products = append(products, p)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (s *Store) GetByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	return &p, nil
}

func (s *Store) GetMany(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			found[id] = p
		}
	}
	return found, nil
}

func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products), nil
}

func (s *Store) Seed(_ context.Context, products []domain.Product) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, p := range products {
		if _, ok := s.products[p.ID]; ok {
			continue
		}
		s.products[p.ID] = p
		inserted++
	}
	return inserted, nil
}

// --- Drafts ---

// Drafts exposes the draft methods, whose GetByPaymentIntent collides with
// the order lookup on Store.
func (s *Store) Drafts() repository.DraftRepository {
	return draftView{s}
}

type draftView struct{ s *Store }

func (v draftView) Create(_ context.Context, draft *domain.CheckoutDraft) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.drafts[draft.PaymentIntentID]; ok {
		return apperrors.AlreadyExists("checkout draft", "payment_intent_id", draft.PaymentIntentID)
	}
	d := *draft
	d.Items = append([]domain.OrderItem(nil), draft.Items...)
	v.s.drafts[draft.PaymentIntentID] = d
	return nil
}

func (v draftView) GetByPaymentIntent(_ context.Context, paymentIntentID string) (*domain.CheckoutDraft, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	d, ok := v.s.drafts[paymentIntentID]
	if !ok {
		return nil, apperrors.NotFound("checkout draft", paymentIntentID)
	}
	return &d, nil
}

// --- Orders ---

func (s *Store) CreateFromDraft(_ context.Context, paymentIntentID string, newOrder func(*domain.CheckoutDraft) *domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[paymentIntentID]
	if !ok {
		return nil, apperrors.NotFound("checkout draft", paymentIntentID)
	}
	if draft.Consumed() {
		return nil, repository.ErrDraftConsumed
	}

	order := newOrder(&draft)
	for _, item := range order.Items {
		if p, ok := s.products[item.ProductID]; ok {
			p.Stock = max(p.Stock-item.Quantity, 0)
			s.products[item.ProductID] = p
		}
	}
	now := time.Now().UTC()
	draft.Status = domain.DraftStatusConsumed
	draft.ConsumedAt = &now
	s.drafts[paymentIntentID] = draft
	s.orders[paymentIntentID] = *order
	return order, nil
}

func (s *Store) GetByPaymentIntent(_ context.Context, paymentIntentID string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[paymentIntentID]
	if !ok {
		return nil, apperrors.NotFound("order", paymentIntentID)
	}
	return &o, nil
}

func (s *Store) ListByUser(_ context.Context, userID string, limit, offset int) ([]domain.Order, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []domain.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			all = append(all, o)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if offset >= total {
		return []domain.Order{}, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}
