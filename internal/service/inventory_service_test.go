package service

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iamyinka/reliefproj/internal/config"
	"github.com/iamyinka/reliefproj/internal/domain"
	"github.com/iamyinka/reliefproj/internal/events"
	"github.com/iamyinka/reliefproj/internal/repository"
	"github.com/iamyinka/reliefproj/internal/store"
)

func setupCachedFixture(t *testing.T) (*miniredis.Miniredis, *fixture) {
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })
	return mr, newFixtureWith(t, fixtureOptions{cache: store.NewRedisKV(c)})
}

func TestListAvailable_CachesActivePackages(t *testing.T) {
	mr, f := setupCachedFixture(t)

	views, err := f.inventory.ListAvailable(f.ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, domain.PackageSmallBasic, views[0].PackageType)
	assert.True(t, views[0].IsAvailable)
	assert.False(t, views[0].IsLowStock)
	assert.Equal(t, "5kg Rice, 2kg Beans, ₦5,000 Cash", views[0].Contents)
	assert.True(t, mr.Exists(packagesCacheKey))

	// served from cache: a direct store write is not visible until invalidation
	_, err = f.store.Restock(f.ctx, f.smallPackageID, 5)
	require.NoError(t, err)
	cached, err := f.inventory.ListAvailable(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, cached[0].AvailableQuantity)
	assert.Equal(t, views[0].Name, cached[0].Name)
}

func TestRestock_InvalidatesCacheAndPublishes(t *testing.T) {
	mr, f := setupCachedFixture(t)
	_, err := f.inventory.ListAvailable(f.ctx)
	require.NoError(t, err)

	available, err := f.inventory.Restock(f.ctx, f.smallPackageID, 10, "staff-1")
	require.NoError(t, err)
	assert.Equal(t, 60, available)
	assert.False(t, mr.Exists(packagesCacheKey))
	assert.Equal(t, []string{events.PackageRestocked}, f.publisher.types())

	views, err := f.inventory.ListAvailable(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 60, views[0].AvailableQuantity)
	assert.Equal(t, 60, views[0].TotalQuantity)
}

func TestRestock_RejectsNonPositiveQuantity(t *testing.T) {
	f := newFixture(t)

	_, err := f.inventory.Restock(f.ctx, f.smallPackageID, 0, "staff-1")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "quantity")

	_, err = f.inventory.Restock(f.ctx, 999, 3, "staff-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAllocate_StopsAtZero(t *testing.T) {
	f := newFixture(t)
	id, err := f.store.CreatePackage(f.ctx, &domain.Package{
		Name: "Emergency Relief", Type: domain.PackageEmergency, IsActive: true,
		TotalQuantity: 2, AvailableQuantity: 2,
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		ok, err := f.inventory.Allocate(f.ctx, id)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := f.inventory.Allocate(f.ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := f.inventory.ListAll(f.ctx)
	require.NoError(t, err)
	var emergency PackageView
	for _, v := range all {
		if v.ID == id {
			emergency = v
		}
	}
	assert.False(t, emergency.IsAvailable)
	assert.True(t, emergency.IsLowStock)
	assert.Equal(t, 0, emergency.AvailableQuantity)
}

func TestContents_FallsBackWhenPackageMissing(t *testing.T) {
	f := newFixture(t)

	name, contents := f.inventory.Contents(f.ctx, domain.PackageLargeBasic)
	assert.Equal(t, "Large Family Basic", name)
	assert.Equal(t, domain.FallbackContents(domain.PackageLargeBasic), contents)
}

func TestListAll_IncludesInactive(t *testing.T) {
	f := newFixture(t)

	all, err := f.inventory.ListAll(f.ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCreate_InvalidatesCacheAndPublishes(t *testing.T) {
	mr, f := setupCachedFixture(t)
	_, err := f.inventory.ListAvailable(f.ctx)
	require.NoError(t, err)

	view, err := f.inventory.Create(f.ctx, PackageRequest{
		Name:          " Emergency Relief ",
		PackageType:   domain.PackageEmergency,
		CashAmount:    decimal.NewFromInt(10000),
		TotalQuantity: 20,
		Items:         []domain.PackageItem{{Name: "Rice", Quantity: "10kg"}},
	}, "staff-1")
	require.NoError(t, err)
	assert.Equal(t, "Emergency Relief", view.Name)
	assert.Equal(t, 20, view.AvailableQuantity)
	assert.True(t, view.IsActive)
	assert.Equal(t, 1, view.Items[0].Order)
	assert.False(t, mr.Exists(packagesCacheKey))
	assert.Equal(t, []string{events.PackageCreated}, f.publisher.types())

	views, err := f.inventory.ListAvailable(f.ctx)
	require.NoError(t, err)
	assert.Len(t, views, 2)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.inventory.Create(f.ctx, PackageRequest{Name: "Small again", PackageType: domain.PackageSmallBasic}, "staff-1")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "package_type")

	_, err = f.inventory.Create(f.ctx, PackageRequest{
		Name: "Large", PackageType: domain.PackageLargeBasic, TotalQuantity: -1,
	}, "staff-1")
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "total_quantity")

	_, err = f.inventory.Create(f.ctx, PackageRequest{
		Name: "Large", PackageType: domain.PackageLargeBasic,
		Items: []domain.PackageItem{{Quantity: "5kg"}},
	}, "staff-1")
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "items")
	assert.Empty(t, f.publisher.types())
}

func TestUpdate_DeactivateRemovesFromPublicList(t *testing.T) {
	mr, f := setupCachedFixture(t)
	_, err := f.inventory.ListAvailable(f.ctx)
	require.NoError(t, err)

	inactive := false
	view, err := f.inventory.Update(f.ctx, f.smallPackageID, domain.PackageUpdate{IsActive: &inactive}, "staff-1")
	require.NoError(t, err)
	assert.False(t, view.IsActive)
	assert.Equal(t, 50, view.AvailableQuantity)
	assert.False(t, mr.Exists(packagesCacheKey))
	assert.Equal(t, []string{events.PackageUpdated}, f.publisher.types())

	views, err := f.inventory.ListAvailable(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, views)
	_, err = f.inventory.ActivePackage(f.ctx, domain.PackageSmallBasic)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.inventory.Update(f.ctx, f.smallPackageID, domain.PackageUpdate{}, "staff-1")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = f.inventory.Update(f.ctx, 999, domain.PackageUpdate{IsActive: &inactive}, "staff-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNewInventoryService_Defaults(t *testing.T) {
	s := NewInventoryService(repository.NewMemoryStore(), nil, config.InventoryConfig{}, nil, zap.NewNop())
	assert.Equal(t, domain.DefaultLowStockThreshold, s.lowStockThreshold)
	assert.Equal(t, DefaultPackagesCacheTTL, s.cacheTTL)

	s = NewInventoryService(repository.NewMemoryStore(), nil, config.InventoryConfig{LowStockThreshold: 3, CacheTTL: time.Minute}, nil, zap.NewNop())
	assert.Equal(t, 3, s.lowStockThreshold)
	assert.Equal(t, time.Minute, s.cacheTTL)
}
