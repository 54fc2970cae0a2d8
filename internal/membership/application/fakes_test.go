package application

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	catalogapp "github.com/wyfcoding/wealthservice/internal/catalog/application"
	catalogdomain "github.com/wyfcoding/wealthservice/internal/catalog/domain"
	kycapp "github.com/wyfcoding/wealthservice/internal/kyc/application"
	kycdomain "github.com/wyfcoding/wealthservice/internal/kyc/domain"
	"github.com/wyfcoding/wealthservice/internal/membership/domain"
)

// 内存仓储，测试内共享一个递增时钟保证 created_at 严格有序
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fakeSubscriptionRepo struct {
	mu    sync.Mutex
	clock *fakeClock
	subs  []*domain.ServiceSubscription
	links []*domain.ServiceUsageLink
}

func (r *fakeSubscriptionRepo) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (r *fakeSubscriptionRepo) Save(ctx context.Context, sub *domain.ServiceSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.subs {
		if existing.SubscriptionID == sub.SubscriptionID {
			r.subs[i] = sub
			return nil
		}
	}
	sub.CreatedAt = r.clock.next()
	r.subs = append(r.subs, sub)
	return nil
}

func (r *fakeSubscriptionRepo) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.ServiceSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		if sub.SubscriptionID == subscriptionID {
			return sub, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeSubscriptionRepo) GetWithLock(ctx context.Context, subscriptionID string) (*domain.ServiceSubscription, error) {
	return r.GetBySubscriptionID(ctx, subscriptionID)
}

func (r *fakeSubscriptionRepo) FindByCustomerAndType(ctx context.Context, customerID string, serviceType catalogdomain.ServiceType) (*domain.ServiceSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.subs) - 1; i >= 0; i-- {
		sub := r.subs[i]
		if sub.CustomerID == customerID && sub.ServiceType == serviceType {
			return sub, nil
		}
	}
	return nil, nil
}

func (r *fakeSubscriptionRepo) FindActiveByCustomerAndType(ctx context.Context, customerID string, serviceType catalogdomain.ServiceType) (*domain.ServiceSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.subs) - 1; i >= 0; i-- {
		sub := r.subs[i]
		if sub.CustomerID == customerID && sub.ServiceType == serviceType && sub.Active {
			return sub, nil
		}
	}
	return nil, nil
}

func (r *fakeSubscriptionRepo) FindActiveOthers(ctx context.Context, customerID string, serviceType catalogdomain.ServiceType, excludeID string) ([]*domain.ServiceSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ServiceSubscription
	for _, sub := range r.subs {
		if sub.CustomerID == customerID && sub.ServiceType == serviceType && sub.Active && sub.SubscriptionID != excludeID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) FindExpired(ctx context.Context, now time.Time) ([]*domain.ServiceSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ServiceSubscription
	for _, sub := range r.subs {
		if sub.Active && sub.ExpiresAt != nil && sub.ExpiresAt.Before(now) {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) ListByCustomer(ctx context.Context, customerID string) ([]*domain.ServiceSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ServiceSubscription
	for i := len(r.subs) - 1; i >= 0; i-- {
		if r.subs[i].CustomerID == customerID {
			out = append(out, r.subs[i])
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) SaveUsageLink(ctx context.Context, link *domain.ServiceUsageLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links = append(r.links, link)
	return nil
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	clock    *fakeClock
	payments []*domain.Payment
}

func (r *fakePaymentRepo) Save(ctx context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.payments {
		if existing.PaymentID == payment.PaymentID {
			r.payments[i] = payment
			return nil
		}
	}
	payment.CreatedAt = r.clock.next()
	r.payments = append(r.payments, payment)
	return nil
}

func (r *fakePaymentRepo) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.PaymentID == paymentID {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakePaymentRepo) GetWithLock(ctx context.Context, paymentID string) (*domain.Payment, error) {
	return r.GetByPaymentID(ctx, paymentID)
}

func (r *fakePaymentRepo) FindSucceededBySubscription(ctx context.Context, subscriptionID string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.payments) - 1; i >= 0; i-- {
		p := r.payments[i]
		if p.SubscriptionID == subscriptionID && p.Status == domain.PaymentSucceeded {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakePaymentRepo) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Payment
	for i := len(r.payments) - 1; i >= 0; i-- {
		if r.payments[i].CustomerID == customerID {
			out = append(out, r.payments[i])
		}
	}
	return out, nil
}

type fakeAddressRepo struct {
	mu        sync.Mutex
	addresses map[string]*domain.Address
}

func (r *fakeAddressRepo) UpsertPrimary(ctx context.Context, addr *domain.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addresses[addr.CustomerID] = addr
	return nil
}

func (r *fakeAddressRepo) GetPrimary(ctx context.Context, customerID string) (*domain.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addresses[customerID], nil
}

type fakeVerificationRepo struct {
	mu      sync.Mutex
	clock   *fakeClock
	records []*kycdomain.VerificationRecord
}

func (r *fakeVerificationRepo) Save(ctx context.Context, record *kycdomain.VerificationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.records {
		if existing.RecordID == record.RecordID {
			r.records[i] = record
			return nil
		}
	}
	record.CreatedAt = r.clock.next()
	r.records = append(r.records, record)
	return nil
}

func (r *fakeVerificationRepo) GetByRecordID(ctx context.Context, recordID string) (*kycdomain.VerificationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range r.records {
		if record.RecordID == recordID {
			return record, nil
		}
	}
	return nil, kycdomain.ErrRecordNotFound
}

func (r *fakeVerificationRepo) GetWithLock(ctx context.Context, recordID string) (*kycdomain.VerificationRecord, error) {
	return r.GetByRecordID(ctx, recordID)
}

func (r *fakeVerificationRepo) FindApprovedByCustomer(ctx context.Context, customerID string) ([]*kycdomain.VerificationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*kycdomain.VerificationRecord
	for i := len(r.records) - 1; i >= 0; i-- {
		record := r.records[i]
		if record.CustomerID == customerID && record.Status == kycdomain.StatusApproved {
			out = append(out, record)
		}
	}
	return out, nil
}

func (r *fakeVerificationRepo) FindLatestPendingByCustomer(ctx context.Context, customerID string) (*kycdomain.VerificationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.records) - 1; i >= 0; i-- {
		record := r.records[i]
		if record.CustomerID == customerID && record.Status == kycdomain.StatusPending {
			return record, nil
		}
	}
	return nil, nil
}

func (r *fakeVerificationRepo) ListByCustomer(ctx context.Context, customerID string) ([]*kycdomain.VerificationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*kycdomain.VerificationRecord
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].CustomerID == customerID {
			out = append(out, r.records[i])
		}
	}
	return out, nil
}

type fakeDocumentRepo struct {
	mu   sync.Mutex
	docs []*kycdomain.Document
}

func (r *fakeDocumentRepo) Save(ctx context.Context, doc *kycdomain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, doc)
	return nil
}

func (r *fakeDocumentRepo) SaveBatch(ctx context.Context, docs []*kycdomain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, docs...)
	return nil
}

func (r *fakeDocumentRepo) FindByRecord(ctx context.Context, recordID string) ([]*kycdomain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*kycdomain.Document
	for _, doc := range r.docs {
		if doc.RecordID == recordID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (r *fakeDocumentRepo) FindByCustomer(ctx context.Context, customerID string) ([]*kycdomain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*kycdomain.Document
	for _, doc := range r.docs {
		if doc.CustomerID == customerID {
			out = append(out, doc)
		}
	}
	return out, nil
}

type fakeCatalogRepo struct {
	policies []*catalogdomain.ServicePolicy
	packages []*catalogdomain.PricingPackage
}

func (r *fakeCatalogRepo) LoadPolicies(ctx context.Context) ([]*catalogdomain.ServicePolicy, error) {
	return r.policies, nil
}

func (r *fakeCatalogRepo) SavePolicy(ctx context.Context, policy *catalogdomain.ServicePolicy) error {
	r.policies = append(r.policies, policy)
	return nil
}

func (r *fakeCatalogRepo) ListActivePackages(ctx context.Context) ([]*catalogdomain.PricingPackage, error) {
	return r.packages, nil
}

func (r *fakeCatalogRepo) GetPackageByID(ctx context.Context, packageID string) (*catalogdomain.PricingPackage, error) {
	for _, pkg := range r.packages {
		if pkg.PackageID == packageID && pkg.Active {
			return pkg, nil
		}
	}
	return nil, catalogdomain.ErrPackageNotFound
}

func (r *fakeCatalogRepo) SavePackage(ctx context.Context, pkg *catalogdomain.PricingPackage) error {
	r.packages = append(r.packages, pkg)
	return nil
}

type recordedEvent struct {
	Type           string
	SubscriptionID string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) Publish(ctx context.Context, event *domain.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: event.Type, SubscriptionID: event.SubscriptionID})
	return nil
}

// testEnv 测试装配：内存仓储 + 真实应用服务
type testEnv struct {
	svc      *Service
	subs     *fakeSubscriptionRepo
	payments *fakePaymentRepo
	records  *fakeVerificationRepo
	docs     *fakeDocumentRepo
	catalog  *fakeCatalogRepo
	events   *fakePublisher
}

func newTestEnv() *testEnv {
	clock := newFakeClock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	subs := &fakeSubscriptionRepo{clock: clock}
	payments := &fakePaymentRepo{clock: clock}
	addresses := &fakeAddressRepo{addresses: make(map[string]*domain.Address)}
	records := &fakeVerificationRepo{clock: clock}
	docs := &fakeDocumentRepo{}
	catalog := &fakeCatalogRepo{
		policies: []*catalogdomain.ServicePolicy{
			{
				ServiceType:           catalogdomain.ServiceMembership,
				RequiresPayment:       true,
				RequiresAdminApproval: true,
				SubscriptionBased:     true,
			},
			{
				ServiceType:           catalogdomain.ServiceStockPicks,
				RequiredLevel:         "ADVANCED",
				RequiredDocsJSON:      `["ID_FRONT","ID_BACK"]`,
				RequiresAdminApproval: true,
			},
			{
				ServiceType:           catalogdomain.ServiceGuaranteed,
				RequiredLevel:         "BROKERAGE",
				RequiresAdminApproval: true,
			},
		},
		packages: []*catalogdomain.PricingPackage{
			{
				PackageID:      "PKG-MEM-6M",
				ServiceType:    catalogdomain.ServiceMembership,
				Name:           "高级会员半年付",
				DurationMonths: 6,
				Fee:            decimal.RequireFromString("549.99"),
				Currency:       "USD",
				Active:         true,
			},
		},
	}
	events := &fakePublisher{}

	kycSvc := kycapp.NewService(records, docs, logger)
	catalogSvc := catalogapp.NewService(catalog, logger)
	svc := NewService(subs, payments, addresses, kycSvc, catalogSvc, nil, events, nil, nil, logger)

	return &testEnv{
		svc:      svc,
		subs:     subs,
		payments: payments,
		records:  records,
		docs:     docs,
		catalog:  catalog,
		events:   events,
	}
}
