package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamyinka/reliefproj/internal/domain"
)

func TestSamplePackages(t *testing.T) {
	seen := map[domain.PackageType]bool{}
	for _, p := range SamplePackages() {
		assert.True(t, p.Type.Valid(), p.Type)
		assert.False(t, seen[p.Type], "duplicate %s", p.Type)
		seen[p.Type] = true
		assert.Positive(t, p.TotalQuantity)
		assert.NotEmpty(t, p.Items)
		assert.NotContains(t, domain.FormatContents(p), "not specified")
	}
	assert.Len(t, seen, 4)
}

func TestSeedPackages_SkipsExistingTypes(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, err := s.CreatePackage(ctx, &domain.Package{Name: "Retired Small", Type: domain.PackageSmallBasic})
	require.NoError(t, err)

	outcomes, err := SeedPackages(ctx, s)
	require.NoError(t, err)
	require.Len(t, outcomes, 4)
	assert.False(t, outcomes[0].Created)
	assert.Equal(t, domain.PackageSmallBasic, outcomes[0].Type)

	active, err := s.ListPackages(ctx, true)
	require.NoError(t, err)
	assert.Len(t, active, 3)
	for _, p := range active {
		assert.Equal(t, p.TotalQuantity, p.AvailableQuantity)
	}

	again, err := SeedPackages(ctx, s)
	require.NoError(t, err)
	for _, o := range again {
		assert.False(t, o.Created, o.Type)
	}
}
