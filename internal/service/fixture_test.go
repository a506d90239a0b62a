package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iamyinka/reliefproj/internal/config"
	"github.com/iamyinka/reliefproj/internal/domain"
	"github.com/iamyinka/reliefproj/internal/events"
	"github.com/iamyinka/reliefproj/internal/render"
	"github.com/iamyinka/reliefproj/internal/repository"
	"github.com/iamyinka/reliefproj/internal/store"
)

var wat = time.FixedZone("WAT", 60*60)

// scriptedCodes hands out queued codes first, then random ones.
type scriptedCodes struct {
	mu      sync.Mutex
	refs    []string
	pickups []string
}

func (c *scriptedCodes) ReferenceNumber(now time.Time) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.refs) > 0 {
		r := c.refs[0]
		c.refs = c.refs[1:]
		return r
	}
	return domain.RandomCodes{}.ReferenceNumber(now)
}

func (c *scriptedCodes) PickupCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pickups) > 0 {
		p := c.pickups[0]
		c.pickups = c.pickups[1:]
		return p
	}
	return domain.RandomCodes{}.PickupCode()
}

type sentSMS struct {
	To      string
	Message string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentSMS
	err  error
}

func (s *recordingSender) Send(_ context.Context, to, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentSMS{To: to, Message: message})
	return s.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type failingRenderer struct{}

func (failingRenderer) Render(domain.QRPayload) ([]byte, error) {
	return nil, errors.New("renderer offline")
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	now   time.Time
	store *repository.MemoryStore

	codes     *scriptedCodes
	sender    *recordingSender
	publisher *recordingPublisher

	eligibility *EligibilityPolicy
	inventory   *InventoryService
	notifier    *NotificationService
	vouchers    *VoucherService
	apps        *ApplicationService
	stats       *StatsService
	reports     *ReportService

	smallPackageID int64
}

type fixtureOptions struct {
	cache       store.KV
	renderer    render.Renderer
	maxAttempts int
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, fixtureOptions{})
}

func newFixtureWith(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()
	f := &fixture{
		t:         t,
		ctx:       context.Background(),
		now:       time.Date(2025, 10, 6, 10, 0, 0, 0, wat),
		store:     repository.NewMemoryStore(),
		codes:     &scriptedCodes{},
		sender:    &recordingSender{},
		publisher: &recordingPublisher{},
	}
	if opts.renderer == nil {
		opts.renderer = render.NewQRRenderer()
	}
	clock := func() time.Time { return f.now }
	logger := zap.NewNop()
	expiry := domain.ExpiryPolicy{GraceDays: 1, MinValidityDays: 7, Location: wat}

	f.eligibility = NewEligibilityPolicy(f.store, f.store, config.EligibilityConfig{RestrictionDays: 21}, expiry)
	f.eligibility.SetClock(clock)
	f.inventory = NewInventoryService(f.store, opts.cache, config.InventoryConfig{LowStockThreshold: 10, CacheTTL: time.Minute}, f.publisher, logger)
	f.inventory.SetClock(clock)
	f.notifier = NewNotificationService(f.store, f.sender, logger)
	f.notifier.SetClock(clock)
	f.vouchers = NewVoucherService(f.store, f.store, f.inventory, f.notifier, opts.renderer, f.publisher, expiry, logger)
	f.vouchers.SetClock(clock)
	f.apps = NewApplicationService(ApplicationServiceDeps{
		Applications: f.store,
		Vouchers:     f.store,
		Eligibility:  f.eligibility,
		Inventory:    f.inventory,
		VoucherSvc:   f.vouchers,
		Notifier:     f.notifier,
		Publisher:    f.publisher,
		Codes:        f.codes,
		MaxAttempts:  opts.maxAttempts,
		Expiry:       expiry,
		Logger:       logger,
	})
	f.apps.SetClock(clock)
	f.stats = NewStatsService(f.store, wat, logger)
	f.stats.SetClock(clock)
	f.reports = NewReportService(f.store, f.store, wat, logger)

	id, err := f.store.CreatePackage(f.ctx, &domain.Package{
		Name:        "Small Family Basic",
		Type:        domain.PackageSmallBasic,
		Description: "For families of 1-3",
		CashAmount:  decimal.NewFromInt(5000),
		Items: []domain.PackageItem{
			{Name: "Rice", Quantity: "5kg"},
			{Name: "Beans", Quantity: "2kg"},
		},
		TotalQuantity:     50,
		AvailableQuantity: 50,
		IsActive:          true,
	})
	require.NoError(t, err)
	f.smallPackageID = id

	_, err = f.store.CreatePackage(f.ctx, &domain.Package{
		Name:              "Senior Citizen Special",
		Type:              domain.PackageSenior,
		CashAmount:        decimal.NewFromInt(6000),
		TotalQuantity:     5,
		AvailableQuantity: 5,
		IsActive:          false,
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) request(phone string) SubmitRequest {
	return SubmitRequest{
		FirstName:       "Ada",
		LastName:        "Obi",
		Phone:           phone,
		Email:           "ada@example.com",
		Address:         "12 Allen Avenue, Ikeja",
		FamilySize:      4,
		ChildrenCount:   2,
		ChurchMember:    "yes",
		SelectedPackage: string(domain.PackageSmallBasic),
		PreferredDate:   domain.DateString(f.now.AddDate(0, 0, 3)),
		PreferredTime:   "morning",
		TermsAgreement:  true,
	}
}

func (f *fixture) submit(phone string) *SubmitResponse {
	f.t.Helper()
	resp, err := f.apps.Submit(f.ctx, f.request(phone))
	require.NoError(f.t, err)
	return resp
}

func (f *fixture) approve(id string) *ReviewResponse {
	f.t.Helper()
	resp, err := f.apps.Approve(f.ctx, ReviewRequest{ApplicationID: id, Reviewer: "reviewer-1", Notes: "ok"})
	require.NoError(f.t, err)
	return resp
}
