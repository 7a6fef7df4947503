package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/domain"
)

func TestSeedIfEmpty_SeedsEmptyCatalog(t *testing.T) {
	repo := new(mockProductRepository)
	svc := NewCatalogService(repo, newTestLogger())
	products := []domain.Product{kuromi(), pocky()}

	repo.On("Count", mock.Anything).Return(0, nil)
	repo.On("Seed", mock.Anything, products).Return(2, nil)

	n, err := svc.SeedIfEmpty(context.Background(), products)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	repo.AssertExpectations(t)
}

func TestSeedIfEmpty_SkipsPopulatedCatalog(t *testing.T) {
	repo := new(mockProductRepository)
	svc := NewCatalogService(repo, newTestLogger())
	repo.On("Count", mock.Anything).Return(5, nil)

	n, err := svc.SeedIfEmpty(context.Background(), []domain.Product{kuromi()})
	require.NoError(t, err)
	assert.Zero(t, n)
	repo.AssertNotCalled(t, "Seed", mock.Anything, mock.Anything)
}

func TestSeedIfEmpty_CountError(t *testing.T) {
	repo := new(mockProductRepository)
	svc := NewCatalogService(repo, newTestLogger())
	repo.On("Count", mock.Anything).Return(0, errors.New("relation does not exist"))

	_, err := svc.SeedIfEmpty(context.Background(), []domain.Product{kuromi()})
	assert.Error(t, err)
}

func TestCatalogList(t *testing.T) {
	repo := new(mockProductRepository)
	svc := NewCatalogService(repo, newTestLogger())
	repo.On("List", mock.Anything, "peluches").Return([]domain.Product{kuromi()}, nil)

	got, err := svc.List(context.Background(), "peluches")
	require.NoError(t, err)
	assert.Equal(t, []domain.Product{kuromi()}, got)
}
