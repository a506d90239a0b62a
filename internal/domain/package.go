package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PackageType is the fixed category code an Application refers to.
type PackageType string

const (
	PackageSmallBasic  PackageType = "small_basic"
	PackageMediumBasic PackageType = "medium_basic"
	PackageLargeBasic  PackageType = "large_basic"
	PackageEmergency   PackageType = "emergency"
	PackageSenior      PackageType = "senior"
)

var packageTypeNames = map[PackageType]string{
	PackageSmallBasic:  "Small Family Basic",
	PackageMediumBasic: "Medium Family Basic",
	PackageLargeBasic:  "Large Family Basic",
	PackageEmergency:   "Emergency Relief",
	PackageSenior:      "Senior Citizen Special",
}

// fallbackContents is shown at the pickup desk when the catalog row is gone.
var fallbackContents = map[PackageType]string{
	PackageSmallBasic:  "5kg Rice, 2kg Beans, 1L Vegetable Oil, 1kg Salt, ₦5,000 Cash",
	PackageMediumBasic: "10kg Rice, 5kg Beans, 2L Vegetable Oil, 1kg Salt, 1kg Sugar, ₦8,000 Cash",
	PackageLargeBasic:  "25kg Rice, 10kg Beans, 3L Vegetable Oil, 2kg Salt, 2kg Sugar, ₦15,000 Cash",
	PackageEmergency:   "Emergency Relief Package + ₦10,000 Cash",
	PackageSenior:      "Senior Citizen Special Package + ₦6,000 Cash",
}

// Valid reports whether t is one of the known categories.
func (t PackageType) Valid() bool {
	_, ok := packageTypeNames[t]
	return ok
}

// DisplayName falls back to the raw code for unknown types.
func (t PackageType) DisplayName() string {
	if name, ok := packageTypeNames[t]; ok {
		return name
	}
	return string(t)
}

// PackageItem is one line of a package's contents, e.g. {Rice, 5kg}.
type PackageItem struct {
	Name     string `db:"item_name" json:"item_name"`
	Quantity string `db:"quantity" json:"quantity"`
	Order    int    `db:"item_order" json:"order"`
}

// Package maps to the packages table; Items are loaded from package_items.
type Package struct {
	ID                int64           `db:"id"`
	Name              string          `db:"name"`
	Type              PackageType     `db:"package_type"`
	Description       string          `db:"description"`
	CashAmount        decimal.Decimal `db:"cash_amount"`
	Items             []PackageItem   `db:"-"`
	TotalQuantity     int             `db:"total_quantity"`
	AvailableQuantity int             `db:"available_quantity"`
	IsActive          bool            `db:"is_active"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

// DefaultLowStockThreshold applies when no threshold is configured.
const DefaultLowStockThreshold = 10

// IsAvailable is true for active packages with stock left.
func (p *Package) IsAvailable() bool {
	return p.IsActive && p.AvailableQuantity > 0
}

// IsLowStock is true when available stock is at or below threshold.
func (p *Package) IsLowStock(threshold int) bool {
	return p.AvailableQuantity <= threshold
}

// Allocate takes one unit if any is left.
func (p *Package) Allocate() bool {
	if p.AvailableQuantity > 0 {
		p.AvailableQuantity--
		return true
	}
	return false
}

// Restock adds quantity to both counters; quantity must be >= 1.
func (p *Package) Restock(quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("restock quantity must be greater than 0, got %d", quantity)
	}
	p.AvailableQuantity += quantity
	p.TotalQuantity += quantity
	return nil
}

// Validate checks the stock invariant 0 <= available <= total.
func (p *Package) Validate() error {
	v := NewValidationError()
	if strings.TrimSpace(p.Name) == "" {
		v.Add("name", "This field is required.")
	}
	if !p.Type.Valid() {
		v.Add("package_type", fmt.Sprintf("%q is not a valid package type.", p.Type))
	}
	if p.CashAmount.IsNegative() {
		v.Add("cash_amount", "Cash amount cannot be negative.")
	}
	if p.AvailableQuantity < 0 || p.AvailableQuantity > p.TotalQuantity {
		v.Add("available_quantity", "Available quantity must be between 0 and total quantity.")
	}
	for i, item := range p.Items {
		if strings.TrimSpace(item.Name) == "" {
			v.Add("items", fmt.Sprintf("Item %d: item_name is required.", i+1))
		}
	}
	return v.OrNil()
}

// ActiveTypeTakenError is returned when another active package already uses the type.
func ActiveTypeTakenError() error {
	v := NewValidationError()
	v.Add("package_type", "An active package of this type already exists.")
	return v
}

// PackageUpdate is a partial staff edit; nil fields are left unchanged.
// Stock counters are not editable here, restock covers them.
type PackageUpdate struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	CashAmount  *decimal.Decimal `json:"cash_amount"`
	Items       *[]PackageItem   `json:"items"`
	IsActive    *bool            `json:"is_active"`
}

// Empty reports whether the update changes nothing.
func (u PackageUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.CashAmount == nil && u.Items == nil && u.IsActive == nil
}

// Apply copies the set fields onto p. Replacement items are renumbered in the given order.
func (u PackageUpdate) Apply(p *Package) {
	if u.Name != nil {
		p.Name = strings.TrimSpace(*u.Name)
	}
	if u.Description != nil {
		p.Description = strings.TrimSpace(*u.Description)
	}
	if u.CashAmount != nil {
		p.CashAmount = *u.CashAmount
	}
	if u.Items != nil {
		items := make([]PackageItem, len(*u.Items))
		for i, item := range *u.Items {
			items[i] = PackageItem{Name: strings.TrimSpace(item.Name), Quantity: strings.TrimSpace(item.Quantity), Order: i + 1}
		}
		p.Items = items
	}
	if u.IsActive != nil {
		p.IsActive = *u.IsActive
	}
}

// FormatContents renders the items and cash for display at the pickup desk:
// "5kg Rice, 2kg Beans, ₦5,000 Cash". Storage order is preserved.
func FormatContents(p *Package) string {
	if p == nil {
		return "Package contents not specified"
	}
	parts := make([]string, 0, len(p.Items)+1)
	for _, item := range p.Items {
		parts = append(parts, strings.TrimSpace(item.Quantity+" "+item.Name))
	}
	if p.CashAmount.IsPositive() {
		parts = append(parts, FormatNaira(p.CashAmount)+" Cash")
	}
	if len(parts) == 0 {
		if p.Description != "" {
			return p.Description
		}
		return FallbackContents(p.Type)
	}
	return strings.Join(parts, ", ")
}

// FallbackContents is the hard-coded description for a package type.
func FallbackContents(t PackageType) string {
	if c, ok := fallbackContents[t]; ok {
		return c
	}
	return "Package contents not specified"
}

// FormatNaira renders an amount as whole naira with thousands separators.
func FormatNaira(amount decimal.Decimal) string {
	s := amount.Round(0).StringFixed(0)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-₦" + b.String()
	}
	return "₦" + b.String()
}
