package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iamyinka/reliefproj/internal/domain"

	"github.com/shopspring/decimal"
)

// MemoryStore backs every repository interface when the DB is disabled
// (local runs, service tests). One mutex covers all tables so multi-row
// operations such as approve and complete stay atomic.
type MemoryStore struct {
	mu sync.RWMutex

	packages      map[int64]*domain.Package
	applications  map[string]*domain.Application
	vouchers      map[int64]*domain.Voucher
	notifications map[int64]*domain.Notification
	stats         map[string]*domain.DailyStats // keyed by YYYY-MM-DD

	nextPackageID      int64
	nextVoucherID      int64
	nextNotificationID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		packages:      map[int64]*domain.Package{},
		applications:  map[string]*domain.Application{},
		vouchers:      map[int64]*domain.Voucher{},
		notifications: map[int64]*domain.Notification{},
		stats:         map[string]*domain.DailyStats{},
	}
}

var (
	_ PackagesRepository      = (*MemoryStore)(nil)
	_ ApplicationsRepository  = (*MemoryStore)(nil)
	_ VouchersRepository      = (*MemoryStore)(nil)
	_ NotificationsRepository = (*MemoryStore)(nil)
	_ StatsRepository         = (*MemoryStore)(nil)
)

func copyPackage(p *domain.Package) *domain.Package {
	c := *p
	c.Items = append([]domain.PackageItem(nil), p.Items...)
	return &c
}

func copyApplication(a *domain.Application) *domain.Application {
	c := *a
	if a.AlternativeDate != nil {
		t := *a.AlternativeDate
		c.AlternativeDate = &t
	}
	if a.ReviewedAt != nil {
		t := *a.ReviewedAt
		c.ReviewedAt = &t
	}
	return &c
}

func copyVoucher(v *domain.Voucher) *domain.Voucher {
	c := *v
	if v.CompletedAt != nil {
		t := *v.CompletedAt
		c.CompletedAt = &t
	}
	c.QRImage = append([]byte(nil), v.QRImage...)
	if len(c.QRImage) == 0 {
		c.QRImage = nil
	}
	return &c
}

// ---- packages ----

func (s *MemoryStore) ListPackages(_ context.Context, activeOnly bool) ([]*domain.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*domain.Package{}
	for _, p := range s.packages {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, copyPackage(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].CashAmount.Cmp(out[j].CashAmount); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetPackage(_ context.Context, id int64) (*domain.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.packages[id]
	if !ok {
		return nil, fmt.Errorf("package %d: %w", id, domain.ErrNotFound)
	}
	return copyPackage(p), nil
}

func (s *MemoryStore) GetPackageByType(_ context.Context, t domain.PackageType) (*domain.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best := s.packageByTypeLocked(t)
	if best == nil {
		return nil, fmt.Errorf("package type %s: %w", t, domain.ErrNotFound)
	}
	return copyPackage(best), nil
}

func (s *MemoryStore) CreatePackage(_ context.Context, p *domain.Package) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.IsActive && s.activeTypeTakenLocked(p.Type, 0) {
		return 0, domain.ActiveTypeTakenError()
	}
	s.nextPackageID++
	p.ID = s.nextPackageID
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	c := copyPackage(p)
	for i := range c.Items {
		if c.Items[i].Order == 0 {
			c.Items[i].Order = i + 1
		}
	}
	s.packages[p.ID] = c
	return p.ID, nil
}

func (s *MemoryStore) UpdatePackage(_ context.Context, id int64, mutate func(p *domain.Package) error) (*domain.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.packages[id]
	if !ok {
		return nil, fmt.Errorf("package %d: %w", id, domain.ErrNotFound)
	}
	p := copyPackage(stored)
	if err := mutate(p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.IsActive && s.activeTypeTakenLocked(p.Type, id) {
		return nil, domain.ActiveTypeTakenError()
	}
	for i := range p.Items {
		if p.Items[i].Order == 0 {
			p.Items[i].Order = i + 1
		}
	}
	p.UpdatedAt = time.Now()
	s.packages[id] = p
	return copyPackage(p), nil
}

// activeTypeTakenLocked reports whether a package other than except is active with type t.
func (s *MemoryStore) activeTypeTakenLocked(t domain.PackageType, except int64) bool {
	for _, p := range s.packages {
		if p.ID != except && p.Type == t && p.IsActive {
			return true
		}
	}
	return false
}

func (s *MemoryStore) Allocate(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.packages[id]
	if !ok {
		return false, fmt.Errorf("package %d: %w", id, domain.ErrNotFound)
	}
	if !p.Allocate() {
		return false, nil
	}
	p.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemoryStore) Restock(_ context.Context, id int64, qty int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.packages[id]
	if !ok {
		return 0, fmt.Errorf("package %d: %w", id, domain.ErrNotFound)
	}
	if err := p.Restock(qty); err != nil {
		return 0, err
	}
	p.UpdatedAt = time.Now()
	return p.AvailableQuantity, nil
}

// ---- applications ----

func (s *MemoryStore) CreateApplication(_ context.Context, a *domain.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.applications {
		if existing.ReferenceNumber == a.ReferenceNumber {
			return fmt.Errorf("reference number %s: %w", a.ReferenceNumber, domain.ErrCodeCollision)
		}
	}
	if _, ok := s.applications[a.ID]; ok {
		return fmt.Errorf("application %s already exists", a.ID)
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	s.applications[a.ID] = copyApplication(a)
	return nil
}

func (s *MemoryStore) GetApplication(_ context.Context, id string) (*domain.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.applications[id]
	if !ok {
		return nil, fmt.Errorf("application %s: %w", id, domain.ErrNotFound)
	}
	return copyApplication(a), nil
}

func (s *MemoryStore) GetApplicationByReference(_ context.Context, ref string) (*domain.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref = strings.ToUpper(strings.TrimSpace(ref))
	for _, a := range s.applications {
		if a.ReferenceNumber == ref {
			return copyApplication(a), nil
		}
	}
	return nil, fmt.Errorf("application %s: %w", ref, domain.ErrNotFound)
}

func (s *MemoryStore) LatestApplicationByPhone(_ context.Context, phone string) (*domain.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.Application
	for _, a := range s.applications {
		if a.Phone != phone {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("application for %s: %w", phone, domain.ErrNotFound)
	}
	return copyApplication(latest), nil
}

func (s *MemoryStore) ListApplications(_ context.Context, filter ApplicationsFilter, page, size int) ([]*domain.Application, int, error) {
	page, size = normalizePage(page, size)
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := []*domain.Application{}
	for _, a := range s.applications {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(a.ReferenceNumber), search) &&
			!strings.Contains(a.Phone, search) &&
			!strings.Contains(strings.ToLower(a.FullName()), search) {
			continue
		}
		matched = append(matched, a)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	out := make([]*domain.Application, 0, end-start)
	for _, a := range matched[start:end] {
		out = append(out, copyApplication(a))
	}
	return out, total, nil
}

func (s *MemoryStore) ApproveApplication(_ context.Context, id string, review domain.Review, voucher *domain.Voucher) (*domain.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.applications[id]
	if !ok {
		return nil, fmt.Errorf("application %s: %w", id, domain.ErrNotFound)
	}
	a := copyApplication(stored)
	if err := a.Approve(review); err != nil {
		return nil, err
	}
	for _, v := range s.vouchers {
		if v.PickupCode == voucher.PickupCode {
			return nil, fmt.Errorf("pickup code %s: %w", voucher.PickupCode, domain.ErrCodeCollision)
		}
		if v.ApplicationID == id {
			return nil, fmt.Errorf("%w: application %s already has a pickup", domain.ErrInvalidTransition, a.ReferenceNumber)
		}
	}

	s.nextVoucherID++
	voucher.ID = s.nextVoucherID
	voucher.ApplicationID = id
	voucher.UpdatedAt = voucher.CreatedAt
	s.vouchers[voucher.ID] = copyVoucher(voucher)
	s.applications[id] = a
	return copyApplication(a), nil
}

func (s *MemoryStore) RejectApplication(_ context.Context, id string, review domain.Review) (*domain.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.applications[id]
	if !ok {
		return nil, fmt.Errorf("application %s: %w", id, domain.ErrNotFound)
	}
	a := copyApplication(stored)
	if err := a.Reject(review); err != nil {
		return nil, err
	}
	s.applications[id] = a
	return copyApplication(a), nil
}

// ---- vouchers ----

func (s *MemoryStore) GetVoucher(_ context.Context, id int64) (*domain.Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vouchers[id]
	if !ok {
		return nil, fmt.Errorf("pickup %d: %w", id, domain.ErrNotFound)
	}
	return copyVoucher(v), nil
}

func (s *MemoryStore) GetVoucherByCode(_ context.Context, code string) (*domain.Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.vouchers {
		if v.PickupCode == code {
			return copyVoucher(v), nil
		}
	}
	return nil, fmt.Errorf("pickup %s: %w", code, domain.ErrNotFound)
}

func (s *MemoryStore) VoucherForApplication(_ context.Context, applicationID string) (VoucherLookup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.vouchers {
		if v.ApplicationID == applicationID {
			return VoucherLookup{Voucher: copyVoucher(v), Found: true}, nil
		}
	}
	return VoucherLookup{}, nil
}

func (s *MemoryStore) CompleteVoucher(_ context.Context, id int64, guard VoucherGuard, c domain.Completion) (*domain.Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.vouchers[id]
	if !ok {
		return nil, fmt.Errorf("pickup %d: %w", id, domain.ErrNotFound)
	}
	v := copyVoucher(stored)
	if guard != nil {
		if err := guard(v); err != nil {
			return nil, err
		}
	}
	storedApp, ok := s.applications[v.ApplicationID]
	if !ok {
		return nil, fmt.Errorf("application %s: %w", v.ApplicationID, domain.ErrNotFound)
	}
	a := copyApplication(storedApp)
	if err := v.Complete(c); err != nil {
		return nil, err
	}
	if err := a.MarkPickedUp(c.At); err != nil {
		return nil, err
	}
	s.vouchers[id] = v
	s.applications[a.ID] = a
	return copyVoucher(v), nil
}

func (s *MemoryStore) UpdateVoucher(_ context.Context, id int64, mutate VoucherGuard) (*domain.Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.vouchers[id]
	if !ok {
		return nil, fmt.Errorf("pickup %d: %w", id, domain.ErrNotFound)
	}
	v := copyVoucher(stored)
	if err := mutate(v); err != nil {
		return nil, err
	}
	s.vouchers[id] = v
	return copyVoucher(v), nil
}

func (s *MemoryStore) SaveVoucherImage(_ context.Context, id int64, png []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vouchers[id]
	if !ok {
		return fmt.Errorf("pickup %d: %w", id, domain.ErrNotFound)
	}
	v.QRImage = append([]byte(nil), png...)
	return nil
}

var slotOrder = map[string]int{"morning": 1, "afternoon": 2, "evening": 3}

func slotRank(slot string) int {
	if r, ok := slotOrder[slot]; ok {
		return r
	}
	return 4
}

func (s *MemoryStore) ListVouchersForDate(_ context.Context, day time.Time, statuses []domain.VoucherStatus) ([]*domain.Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := map[domain.VoucherStatus]bool{}
	for _, st := range statuses {
		want[st] = true
	}
	target := domain.DateString(day)
	out := []*domain.Voucher{}
	for _, v := range s.vouchers {
		if domain.DateString(v.ScheduledDate) != target || !want[v.Status] {
			continue
		}
		c := copyVoucher(v)
		c.QRImage = nil
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if ri, rj := slotRank(out[i].ScheduledTime), slotRank(out[j].ScheduledTime); ri != rj {
			return ri < rj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) ListRecentlyCompleted(_ context.Context, limit int) ([]*domain.Voucher, error) {
	if limit <= 0 {
		limit = 10
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*domain.Voucher{}
	for _, v := range s.vouchers {
		if v.Status != domain.VoucherCompleted || v.CompletedAt == nil {
			continue
		}
		c := copyVoucher(v)
		c.QRImage = nil
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CompletedAt.After(*out[j].CompletedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- notifications ----

func (s *MemoryStore) CreateNotification(_ context.Context, n *domain.Notification) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextNotificationID++
	n.ID = s.nextNotificationID
	c := *n
	s.notifications[n.ID] = &c
	return n.ID, nil
}

func (s *MemoryStore) MarkNotification(_ context.Context, id int64, status domain.NotificationStatus, errMsg string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok {
		return fmt.Errorf("notification %d: %w", id, domain.ErrNotFound)
	}
	n.Status = status
	n.Error = errMsg
	n.SentAt = nil
	if status == domain.NotificationSent {
		t := at
		n.SentAt = &t
	}
	return nil
}

func (s *MemoryStore) ListNotifications(_ context.Context, applicationID string) ([]*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*domain.Notification{}
	for _, n := range s.notifications {
		if n.ApplicationID == applicationID {
			c := *n
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// ---- stats ----

func within(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func (s *MemoryStore) ComputeDailyStats(_ context.Context, from, to time.Time) (*domain.DailyStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &domain.DailyStats{Date: from, TotalCashDistributed: decimal.Zero, UpdatedAt: time.Now()}
	for _, a := range s.applications {
		if within(a.CreatedAt, from, to) {
			st.ApplicationsSubmitted++
		}
		if a.ReviewedAt == nil || !within(*a.ReviewedAt, from, to) {
			continue
		}
		switch a.Status {
		case domain.ApplicationApproved, domain.ApplicationPickedUp:
			st.ApplicationsApproved++
		case domain.ApplicationRejected:
			st.ApplicationsRejected++
		}
	}
	for _, v := range s.vouchers {
		if v.Status != domain.VoucherCompleted || v.CompletedAt == nil || !within(*v.CompletedAt, from, to) {
			continue
		}
		st.PackagesPickedUp++
		a, ok := s.applications[v.ApplicationID]
		if !ok {
			continue
		}
		if p := s.packageByTypeLocked(a.SelectedPackage); p != nil {
			st.TotalCashDistributed = st.TotalCashDistributed.Add(p.CashAmount)
		}
	}
	return st, nil
}

func (s *MemoryStore) packageByTypeLocked(t domain.PackageType) *domain.Package {
	var best *domain.Package
	for _, p := range s.packages {
		if p.Type != t {
			continue
		}
		if best == nil || (p.IsActive && !best.IsActive) || (p.IsActive == best.IsActive && p.ID < best.ID) {
			best = p
		}
	}
	return best
}

func (s *MemoryStore) UpsertDailyStats(_ context.Context, st *domain.DailyStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *st
	s.stats[domain.DateString(st.Date)] = &c
	return nil
}

func (s *MemoryStore) GetDailyStats(_ context.Context, day time.Time) (*domain.DailyStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stats[domain.DateString(day)]
	if !ok {
		return nil, fmt.Errorf("daily stats %s: %w", domain.DateString(day), domain.ErrNotFound)
	}
	c := *st
	return &c, nil
}
