package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/iamyinka/reliefproj/internal/domain"

	"github.com/shopspring/decimal"
)

func sampleItem(name, qty string, order int) domain.PackageItem {
	return domain.PackageItem{Name: name, Quantity: qty, Order: order}
}

// SamplePackages is the starter catalog for a fresh database or a memory-mode run.
func SamplePackages() []*domain.Package {
	return []*domain.Package{
		{
			Name:          "Small Family Basic",
			Type:          domain.PackageSmallBasic,
			Description:   "For households of 1-3 people",
			CashAmount:    decimal.NewFromInt(5000),
			TotalQuantity: 100,
			Items: []domain.PackageItem{
				sampleItem("Rice", "5kg", 1),
				sampleItem("Beans", "2kg", 2),
				sampleItem("Vegetable Oil", "1L", 3),
				sampleItem("Salt", "1kg", 4),
			},
		},
		{
			Name:          "Medium Family Basic",
			Type:          domain.PackageMediumBasic,
			Description:   "For households of 4-6 people",
			CashAmount:    decimal.NewFromInt(8000),
			TotalQuantity: 80,
			Items: []domain.PackageItem{
				sampleItem("Rice", "10kg", 1),
				sampleItem("Beans", "5kg", 2),
				sampleItem("Vegetable Oil", "2L", 3),
				sampleItem("Salt", "1kg", 4),
				sampleItem("Sugar", "1kg", 5),
			},
		},
		{
			Name:          "Emergency Relief",
			Type:          domain.PackageEmergency,
			Description:   "Immediate support for urgent cases",
			CashAmount:    decimal.NewFromInt(10000),
			TotalQuantity: 30,
			Items: []domain.PackageItem{
				sampleItem("Rice", "5kg", 1),
				sampleItem("Noodles", "1 carton", 2),
				sampleItem("Bottled Water", "12 bottles", 3),
			},
		},
		{
			Name:          "Senior Care Package",
			Type:          domain.PackageSenior,
			Description:   "For applicants aged 65 and above",
			CashAmount:    decimal.NewFromInt(6000),
			TotalQuantity: 40,
			Items: []domain.PackageItem{
				sampleItem("Oats", "1kg", 1),
				sampleItem("Milk Powder", "900g", 2),
				sampleItem("Rice", "5kg", 3),
			},
		},
	}
}

// SeedOutcome one catalog entry handled by SeedPackages.
type SeedOutcome struct {
	Type    domain.PackageType
	ID      int64
	Created bool
}

// SeedPackages creates each sample package whose type has no row yet.
// Existing rows, active or not, are left alone.
func SeedPackages(ctx context.Context, repo PackagesRepository) ([]SeedOutcome, error) {
	var out []SeedOutcome
	for _, p := range SamplePackages() {
		existing, err := repo.GetPackageByType(ctx, p.Type)
		if err == nil {
			out = append(out, SeedOutcome{Type: p.Type, ID: existing.ID})
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return out, fmt.Errorf("failed to look up %s: %w", p.Type, err)
		}
		p.AvailableQuantity = p.TotalQuantity
		p.IsActive = true
		id, err := repo.CreatePackage(ctx, p)
		if err != nil {
			return out, fmt.Errorf("failed to create %s: %w", p.Type, err)
		}
		out = append(out, SeedOutcome{Type: p.Type, ID: id, Created: true})
	}
	return out, nil
}
