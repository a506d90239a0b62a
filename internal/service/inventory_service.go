package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iamyinka/reliefproj/internal/config"
	"github.com/iamyinka/reliefproj/internal/domain"
	"github.com/iamyinka/reliefproj/internal/events"
	"github.com/iamyinka/reliefproj/internal/repository"
	"github.com/iamyinka/reliefproj/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultPackagesCacheTTL applies when no cache TTL is configured.
const DefaultPackagesCacheTTL = 5 * time.Minute

const (
	packagesCacheKey     = "relief:packages:available"
	packagesCachePattern = "relief:packages:*"
)

// InventoryService package catalog and stock counters
type InventoryService struct {
	packages          repository.PackagesRepository
	cache             store.KV
	cacheTTL          time.Duration
	lowStockThreshold int
	publisher         events.Publisher
	logger            *zap.Logger
	now               Clock
}

func NewInventoryService(packages repository.PackagesRepository, cache store.KV, cfg config.InventoryConfig, publisher events.Publisher, logger *zap.Logger) *InventoryService {
	if cache == nil {
		cache = store.NopKV{}
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	lowStockThreshold := cfg.LowStockThreshold
	if lowStockThreshold <= 0 {
		lowStockThreshold = domain.DefaultLowStockThreshold
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = DefaultPackagesCacheTTL
	}
	return &InventoryService{
		packages:          packages,
		cache:             cache,
		cacheTTL:          cacheTTL,
		lowStockThreshold: lowStockThreshold,
		publisher:         publisher,
		logger:            logger,
		now:               systemClock,
	}
}

func (s *InventoryService) SetClock(c Clock) { s.now = c }

// PackageView package as shown on the application form and staff dashboard
type PackageView struct {
	ID                int64                `json:"id"`
	Name              string               `json:"name"`
	PackageType       domain.PackageType   `json:"package_type"`
	Description       string               `json:"description"`
	CashAmount        decimal.Decimal      `json:"cash_amount"`
	Items             []domain.PackageItem `json:"items"`
	Contents          string               `json:"contents"`
	TotalQuantity     int                  `json:"total_quantity"`
	AvailableQuantity int                  `json:"available_quantity"`
	IsActive          bool                 `json:"is_active"`
	IsAvailable       bool                 `json:"is_available"`
	IsLowStock        bool                 `json:"is_low_stock"`
}

func (s *InventoryService) toView(p *domain.Package) PackageView {
	items := p.Items
	if items == nil {
		items = []domain.PackageItem{}
	}
	return PackageView{
		ID:                p.ID,
		Name:              p.Name,
		PackageType:       p.Type,
		Description:       p.Description,
		CashAmount:        p.CashAmount,
		Items:             items,
		Contents:          domain.FormatContents(p),
		TotalQuantity:     p.TotalQuantity,
		AvailableQuantity: p.AvailableQuantity,
		IsActive:          p.IsActive,
		IsAvailable:       p.IsAvailable(),
		IsLowStock:        p.IsLowStock(s.lowStockThreshold),
	}
}

// ListAvailable active packages, served from the cache when possible.
func (s *InventoryService) ListAvailable(ctx context.Context) ([]PackageView, error) {
	if raw, err := s.cache.Get(ctx, packagesCacheKey); err == nil {
		var cached []PackageView
		if jerr := json.Unmarshal([]byte(raw), &cached); jerr == nil {
			return cached, nil
		}
		s.logger.Warn("Discarding unreadable package cache entry")
	} else if !errors.Is(err, store.ErrMiss) {
		s.logger.Warn("Package cache read failed", zap.Error(err))
	}

	pkgs, err := s.packages.ListPackages(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	views := make([]PackageView, 0, len(pkgs))
	for _, p := range pkgs {
		views = append(views, s.toView(p))
	}

	if data, err := json.Marshal(views); err == nil {
		if err := s.cache.Set(ctx, packagesCacheKey, string(data), s.cacheTTL); err != nil {
			s.logger.Warn("Package cache write failed", zap.Error(err))
		}
	}
	return views, nil
}

// ListAll every package including inactive ones, never cached.
func (s *InventoryService) ListAll(ctx context.Context) ([]PackageView, error) {
	pkgs, err := s.packages.ListPackages(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	views := make([]PackageView, 0, len(pkgs))
	for _, p := range pkgs {
		views = append(views, s.toView(p))
	}
	return views, nil
}

// ActivePackage returns the active package of type t or domain.ErrNotFound.
func (s *InventoryService) ActivePackage(ctx context.Context, t domain.PackageType) (*domain.Package, error) {
	p, err := s.packages.GetPackageByType(ctx, t)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, fmt.Errorf("%w: package %s is not active", domain.ErrNotFound, t)
	}
	return p, nil
}

// Contents display string for a package type, with the built-in fallback
// when the catalog has no row for it.
func (s *InventoryService) Contents(ctx context.Context, t domain.PackageType) (name, contents string) {
	p, err := s.packages.GetPackageByType(ctx, t)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("Failed to load package contents", zap.String("package_type", string(t)), zap.Error(err))
		}
		return t.DisplayName(), domain.FallbackContents(t)
	}
	return p.Name, domain.FormatContents(p)
}

// Allocate takes one unit; false means the package is out of stock.
func (s *InventoryService) Allocate(ctx context.Context, id int64) (bool, error) {
	ok, err := s.packages.Allocate(ctx, id)
	if err != nil {
		return false, err
	}
	if ok {
		s.invalidate(ctx)
	}
	return ok, nil
}

// PackageRequest staff payload for a new catalog entry. The whole
// total_quantity starts out available.
type PackageRequest struct {
	Name          string               `json:"name"`
	PackageType   domain.PackageType   `json:"package_type"`
	Description   string               `json:"description"`
	CashAmount    decimal.Decimal      `json:"cash_amount"`
	Items         []domain.PackageItem `json:"items"`
	TotalQuantity int                  `json:"total_quantity"`
	IsActive      *bool                `json:"is_active"` // default true
}

// Create adds a package to the catalog.
func (s *InventoryService) Create(ctx context.Context, req PackageRequest, actor string) (PackageView, error) {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	p := &domain.Package{
		Type:              req.PackageType,
		CashAmount:        req.CashAmount,
		TotalQuantity:     req.TotalQuantity,
		AvailableQuantity: req.TotalQuantity,
		IsActive:          active,
	}
	name, description, items := req.Name, req.Description, req.Items
	domain.PackageUpdate{Name: &name, Description: &description, Items: &items}.Apply(p)
	if req.TotalQuantity < 0 {
		v := domain.NewValidationError()
		v.Add("total_quantity", "Total quantity cannot be negative.")
		return PackageView{}, v
	}
	if err := p.Validate(); err != nil {
		return PackageView{}, err
	}

	if _, err := s.packages.CreatePackage(ctx, p); err != nil {
		return PackageView{}, err
	}
	s.invalidate(ctx)
	s.publish(ctx, events.PackageCreated, p.ID, actor)
	s.logger.Info("Package created",
		zap.Int64("package_id", p.ID),
		zap.String("package_type", string(p.Type)),
		zap.Int("total_quantity", p.TotalQuantity),
		zap.String("actor", actor))
	return s.toView(p), nil
}

// Update applies a partial edit. Deactivating a package takes it off the
// public list and makes submissions for its type fail.
func (s *InventoryService) Update(ctx context.Context, id int64, upd domain.PackageUpdate, actor string) (PackageView, error) {
	if upd.Empty() {
		v := domain.NewValidationError()
		v.Add("non_field_errors", "No changes supplied.")
		return PackageView{}, v
	}
	p, err := s.packages.UpdatePackage(ctx, id, func(p *domain.Package) error {
		upd.Apply(p)
		return nil
	})
	if err != nil {
		return PackageView{}, err
	}
	s.invalidate(ctx)
	s.publish(ctx, events.PackageUpdated, id, actor)
	s.logger.Info("Package updated",
		zap.Int64("package_id", id),
		zap.Bool("is_active", p.IsActive),
		zap.String("actor", actor))
	return s.toView(p), nil
}

// Get one package by id, active or not.
func (s *InventoryService) Get(ctx context.Context, id int64) (PackageView, error) {
	p, err := s.packages.GetPackage(ctx, id)
	if err != nil {
		return PackageView{}, err
	}
	return s.toView(p), nil
}

func (s *InventoryService) publish(ctx context.Context, eventType string, id int64, actor string) {
	if err := s.publisher.Publish(ctx, events.Event{
		Type:      eventType,
		PackageID: id,
		Actor:     actor,
		At:        s.now(),
	}); err != nil {
		s.logger.Warn("Failed to publish package event", zap.String("type", eventType), zap.Int64("package_id", id), zap.Error(err))
	}
}

// Restock adds qty units and returns the new available quantity.
func (s *InventoryService) Restock(ctx context.Context, id int64, qty int, actor string) (int, error) {
	if qty < 1 {
		v := domain.NewValidationError()
		v.Add("quantity", "Quantity must be at least 1.")
		return 0, v
	}
	available, err := s.packages.Restock(ctx, id, qty)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx)
	s.publish(ctx, events.PackageRestocked, id, actor)
	s.logger.Info("Package restocked", zap.Int64("package_id", id), zap.Int("quantity", qty), zap.Int("available", available))
	return available, nil
}

func (s *InventoryService) invalidate(ctx context.Context) {
	if err := store.DeletePattern(ctx, s.cache, packagesCachePattern); err != nil {
		s.logger.Warn("Package cache invalidation failed", zap.Error(err))
	}
}
