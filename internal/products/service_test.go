package products

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/checkout-backend/pkg/db/dbtest"
	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc, repo
}

func mustCreate(t *testing.T, repo Repository, name, category, price string, inventory int, active bool, createdAt time.Time) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:      name,
		Category:  category,
		Price:     decimal.RequireFromString(price),
		Inventory: inventory,
		IsActive:  active,
		CreatedAt: createdAt,
		Variants: []models.ProductVariant{
			{Type: enums.VariantTypeColor, Name: "Black", Value: "black", Stock: inventory},
		},
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestListFiltersAndOrdering(t *testing.T) {
	svc, repo := newTestService(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	older := mustCreate(t, repo, "Aurora Headphones", "Audio", "149.99", 5, true, base)
	newer := mustCreate(t, repo, "Pocket Speaker", "audio", "49.50", 0, true, base.Add(time.Hour))
	mustCreate(t, repo, "Retired Cable", "audio", "9.99", 10, false, base.Add(2*time.Hour))
	mustCreate(t, repo, "Desk Lamp", "home", "29.00", 3, true, base.Add(3*time.Hour))
	ctx := context.Background()

	res, err := svc.List(ctx, Filter{Category: "AUDIO"})
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)
	assert.Equal(t, newer.ID, res.Products[0].ID, "newest first")
	assert.Equal(t, older.ID, res.Products[1].ID)
	assert.Len(t, res.Products[1].Variants, 1)

	res, err = svc.List(ctx, Filter{Category: "audio", InStock: true})
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, older.ID, res.Products[0].ID)

	min := decimal.RequireFromString("30")
	max := decimal.RequireFromString("150")
	res, err = svc.List(ctx, Filter{MinPrice: &min, MaxPrice: &max})
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)
	assert.Equal(t, newer.ID, res.Products[0].ID)

	_, err = svc.List(ctx, Filter{MinPrice: &max, MaxPrice: &min})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetHidesInactiveProducts(t *testing.T) {
	svc, repo := newTestService(t)
	now := time.Now().UTC()
	active := mustCreate(t, repo, "Aurora Headphones", "audio", "149.99", 5, true, now)
	inactive := mustCreate(t, repo, "Retired Cable", "audio", "9.99", 10, false, now)
	ctx := context.Background()

	got, err := svc.Get(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, "Aurora Headphones", got.Name)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("149.99")))

	_, err = svc.Get(ctx, inactive.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = svc.Get(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

type failingRepo struct{ Repository }

func (failingRepo) List(context.Context, Filter) ([]models.Product, error) {
	return nil, errors.New("db down")
}

func TestListWrapsStoreFailure(t *testing.T) {
	svc, err := NewService(failingRepo{})
	require.NoError(t, err)
	_, err = svc.List(context.Background(), Filter{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestNewServiceRequiresRepo(t *testing.T) {
	_, err := NewService(nil)
	assert.Error(t, err)
}
