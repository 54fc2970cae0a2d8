package application

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/wyfcoding/wealthservice/internal/catalog/domain"
	"github.com/wyfcoding/wealthservice/internal/investment/domain"
	membershipdomain "github.com/wyfcoding/wealthservice/internal/membership/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

type fakeConfigRepo struct {
	mu      sync.Mutex
	configs []*domain.InterestRateConfig
}

func (r *fakeConfigRepo) ListActive(ctx context.Context) ([]*domain.InterestRateConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.InterestRateConfig
	for _, cfg := range r.configs {
		if cfg.Active {
			out = append(out, cfg)
		}
	}
	return out, nil
}

func (r *fakeConfigRepo) GetByConfigID(ctx context.Context, configID string) (*domain.InterestRateConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cfg := range r.configs {
		if cfg.ConfigID == configID && cfg.Active {
			return cfg, nil
		}
	}
	return nil, nil
}

func (r *fakeConfigRepo) Save(ctx context.Context, cfg *domain.InterestRateConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.configs {
		if existing.ConfigID == cfg.ConfigID {
			r.configs[i] = cfg
			return nil
		}
	}
	r.configs = append(r.configs, cfg)
	return nil
}

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests []*domain.InvestmentRequest
}

func (r *fakeRequestRepo) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (r *fakeRequestRepo) Save(ctx context.Context, req *domain.InvestmentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.requests {
		if existing.RequestID == req.RequestID {
			r.requests[i] = req
			return nil
		}
	}
	r.requests = append(r.requests, req)
	return nil
}

func (r *fakeRequestRepo) GetByRequestID(ctx context.Context, requestID string) (*domain.InvestmentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.RequestID == requestID {
			return req, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeRequestRepo) GetWithLock(ctx context.Context, requestID string) (*domain.InvestmentRequest, error) {
	return r.GetByRequestID(ctx, requestID)
}

func (r *fakeRequestRepo) ListByCustomer(ctx context.Context, customerID string) ([]*domain.InvestmentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.InvestmentRequest
	for i := len(r.requests) - 1; i >= 0; i-- {
		if r.requests[i].CustomerID == customerID {
			out = append(out, r.requests[i])
		}
	}
	return out, nil
}

type fakeLedgerRepo struct {
	mu   sync.Mutex
	txns []*domain.FundTransaction
}

func (r *fakeLedgerRepo) Append(ctx context.Context, txn *domain.FundTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txns = append(r.txns, txn)
	return nil
}

func (r *fakeLedgerRepo) UpdatePosition(ctx context.Context, position *domain.FundTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, txn := range r.txns {
		if txn.TxnID == position.TxnID {
			r.txns[i] = position
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakeLedgerRepo) GetByTxnID(ctx context.Context, txnID string) (*domain.FundTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, txn := range r.txns {
		if txn.TxnID == txnID {
			return txn, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeLedgerRepo) GetPositionWithLock(ctx context.Context, txnID string) (*domain.FundTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, txn := range r.txns {
		if txn.TxnID == txnID && txn.Type == domain.TxnFund {
			return txn, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeLedgerRepo) ListByCustomer(ctx context.Context, customerID string) ([]*domain.FundTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.FundTransaction
	for i := len(r.txns) - 1; i >= 0; i-- {
		if r.txns[i].CustomerID == customerID {
			out = append(out, r.txns[i])
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) ListPositionsByCustomer(ctx context.Context, customerID string) ([]*domain.FundTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.FundTransaction
	for i := len(r.txns) - 1; i >= 0; i-- {
		if r.txns[i].CustomerID == customerID && r.txns[i].Type == domain.TxnFund {
			out = append(out, r.txns[i])
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) countByType(txnType domain.TxnType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, txn := range r.txns {
		if txn.Type == txnType {
			n++
		}
	}
	return n
}

type fakeReturnRepo struct {
	mu       sync.Mutex
	requests []*domain.ReturnRequest
}

func (r *fakeReturnRepo) Save(ctx context.Context, req *domain.ReturnRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.requests {
		if existing.ReturnID == req.ReturnID {
			r.requests[i] = req
			return nil
		}
	}
	r.requests = append(r.requests, req)
	return nil
}

func (r *fakeReturnRepo) GetByReturnID(ctx context.Context, returnID string) (*domain.ReturnRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.ReturnID == returnID {
			return req, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeReturnRepo) GetWithLock(ctx context.Context, returnID string) (*domain.ReturnRequest, error) {
	return r.GetByReturnID(ctx, returnID)
}

func (r *fakeReturnRepo) ListByCustomer(ctx context.Context, customerID string) ([]*domain.ReturnRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ReturnRequest
	for i := len(r.requests) - 1; i >= 0; i-- {
		if r.requests[i].CustomerID == customerID {
			out = append(out, r.requests[i])
		}
	}
	return out, nil
}

type fakeSummaryRepo struct {
	mu        sync.Mutex
	summaries map[string]*domain.CustomerInvestmentSummary
}

func (r *fakeSummaryRepo) GetOrCreate(ctx context.Context, customerID string) (*domain.CustomerInvestmentSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if summary, ok := r.summaries[customerID]; ok {
		return summary, nil
	}
	summary := &domain.CustomerInvestmentSummary{CustomerID: customerID}
	r.summaries[customerID] = summary
	return summary, nil
}

func (r *fakeSummaryRepo) Save(ctx context.Context, summary *domain.CustomerInvestmentSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries[summary.CustomerID] = summary
	return nil
}

type fakeSubscriptionGateway struct {
	mu   sync.Mutex
	subs []*membershipdomain.ServiceSubscription
}

func (g *fakeSubscriptionGateway) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (g *fakeSubscriptionGateway) FindActiveByCustomerAndType(ctx context.Context, customerID string, serviceType catalogdomain.ServiceType) (*membershipdomain.ServiceSubscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.subs) - 1; i >= 0; i-- {
		sub := g.subs[i]
		if sub.CustomerID == customerID && sub.ServiceType == serviceType && sub.Active {
			return sub, nil
		}
	}
	return nil, nil
}

func (g *fakeSubscriptionGateway) GetWithLock(ctx context.Context, subscriptionID string) (*membershipdomain.ServiceSubscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, sub := range g.subs {
		if sub.SubscriptionID == subscriptionID {
			return sub, nil
		}
	}
	return nil, membershipdomain.ErrNotFound
}

func (g *fakeSubscriptionGateway) Save(ctx context.Context, sub *membershipdomain.ServiceSubscription) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, existing := range g.subs {
		if existing.SubscriptionID == sub.SubscriptionID {
			g.subs[i] = sub
			return nil
		}
	}
	g.subs = append(g.subs, sub)
	return nil
}

type notifiedApproval struct {
	CustomerID string
	RequestID  string
}

type fakeNotifier struct {
	mu        sync.Mutex
	approvals []notifiedApproval
}

func (n *fakeNotifier) InvestmentApproved(ctx context.Context, customerID, requestID string, amount, rate decimal.Decimal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.approvals = append(n.approvals, notifiedApproval{CustomerID: customerID, RequestID: requestID})
}

// testEnv 测试装配：内存仓储 + 真实应用服务
type testEnv struct {
	svc       *Service
	configs   *fakeConfigRepo
	requests  *fakeRequestRepo
	ledger    *fakeLedgerRepo
	returns   *fakeReturnRepo
	summaries *fakeSummaryRepo
	subs      *fakeSubscriptionGateway
	notifier  *fakeNotifier
}

func newTestEnv() *testEnv {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	configs := &fakeConfigRepo{
		configs: []*domain.InterestRateConfig{
			{
				ConfigID:     "TIER-BRONZE",
				Name:         "bronze",
				MinAmount:    dec("1000"),
				MaxAmount:    decPtr("24999.99"),
				BaseRate:     dec("0.08"),
				AdjustLow:    dec("0.01"),
				AdjustMedium: dec("0.02"),
				AdjustHigh:   dec("0.03"),
				SortOrder:    1,
				Active:       true,
			},
			{
				ConfigID:     "TIER-SILVER",
				Name:         "silver",
				MinAmount:    dec("25000"),
				MaxAmount:    decPtr("99999.99"),
				BaseRate:     dec("0.15"),
				AdjustLow:    dec("0.02"),
				AdjustMedium: dec("0.04"),
				AdjustHigh:   dec("0.06"),
				SortOrder:    2,
				Active:       true,
			},
			{
				ConfigID:  "TIER-PLATINUM",
				Name:      "platinum",
				MinAmount: dec("500000"),
				BaseRate:  dec("0.22"),
				AdjustLow: dec("0.02"),
				SortOrder: 4,
				Active:    true,
			},
		},
	}
	requests := &fakeRequestRepo{}
	ledger := &fakeLedgerRepo{}
	returns := &fakeReturnRepo{}
	summaries := &fakeSummaryRepo{summaries: make(map[string]*domain.CustomerInvestmentSummary)}
	subs := &fakeSubscriptionGateway{}
	notifier := &fakeNotifier{}

	svc := NewService(configs, requests, ledger, returns, summaries, subs, notifier, nil, logger)

	return &testEnv{
		svc:       svc,
		configs:   configs,
		requests:  requests,
		ledger:    ledger,
		returns:   returns,
		summaries: summaries,
		subs:      subs,
		notifier:  notifier,
	}
}

// seedSubscription 向网关塞入一条订阅
func (e *testEnv) seedSubscription(subscriptionID, customerID string, serviceType catalogdomain.ServiceType, active bool, balance decimal.Decimal) *membershipdomain.ServiceSubscription {
	sub := &membershipdomain.ServiceSubscription{
		SubscriptionID: subscriptionID,
		CustomerID:     customerID,
		ServiceType:    serviceType,
		Active:         active,
		Currency:       "USD",
		Balance:        balance,
		AppliedAt:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	e.subs.subs = append(e.subs.subs, sub)
	return sub
}
