// Package application 投资账本应用层
// 每个变更操作都在单个数据库事务内完成，对申请/回款行的审批
// 使用行级悲观锁，重复审批被观测为幂等空操作而非重复记账。
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/idgen"
	catalogdomain "github.com/wyfcoding/wealthservice/internal/catalog/domain"
	"github.com/wyfcoding/wealthservice/internal/investment/domain"
	"github.com/wyfcoding/wealthservice/pkg/metrics"
	"github.com/wyfcoding/wealthservice/pkg/utils"
)

// Notifier 通知端口，尽力而为
type Notifier interface {
	InvestmentApproved(ctx context.Context, customerID, requestID string, amount, rate decimal.Decimal)
}

// Service 投资账本应用服务
type Service struct {
	configs       domain.RateConfigRepository
	requests      domain.RequestRepository
	ledger        domain.LedgerRepository
	returns       domain.ReturnRepository
	summaries     domain.SummaryRepository
	subscriptions domain.SubscriptionGateway
	notifier      Notifier
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// NewService 创建投资账本应用服务
// notifier/metrics 可为 nil。
func NewService(
	configs domain.RateConfigRepository,
	requests domain.RequestRepository,
	ledger domain.LedgerRepository,
	returns domain.ReturnRepository,
	summaries domain.SummaryRepository,
	subscriptions domain.SubscriptionGateway,
	notifier Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		configs:       configs,
		requests:      requests,
		ledger:        ledger,
		returns:       returns,
		summaries:     summaries,
		subscriptions: subscriptions,
		notifier:      notifier,
		metrics:       m,
		logger:        logger,
	}
}

// ResolveTier 按金额与风险偏好解析利率档位
func (s *Service) ResolveTier(ctx context.Context, amount decimal.Decimal, risk domain.RiskTolerance) (*domain.TierResolution, error) {
	configs, err := s.configs.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return domain.ResolveTier(configs, amount, risk)
}

// CreateRequestCommand 投资申请命令
type CreateRequestCommand struct {
	CustomerID      string
	Amount          decimal.Decimal
	RiskTolerance   domain.RiskTolerance
	RequestedPeriod string
}

// CreateInvestmentRequest 创建投资申请
// 前置条件：客户持有激活的保本理财订阅。档位与利率在提交时
// 解析并固化到申请行上。
func (s *Service) CreateInvestmentRequest(ctx context.Context, cmd CreateRequestCommand) (*domain.InvestmentRequest, error) {
	if !cmd.RiskTolerance.Valid() {
		return nil, fmt.Errorf("invalid risk tolerance: %s", cmd.RiskTolerance)
	}
	if !cmd.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}

	sub, err := s.subscriptions.FindActiveByCustomerAndType(ctx, cmd.CustomerID, catalogdomain.ServiceGuaranteed)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrNoActiveService
	}

	resolution, err := s.ResolveTier(ctx, cmd.Amount, cmd.RiskTolerance)
	if err != nil {
		return nil, err
	}

	req := &domain.InvestmentRequest{
		RequestID:       fmt.Sprintf("INV-%d", idgen.GenID()),
		CustomerID:      cmd.CustomerID,
		SubscriptionID:  sub.SubscriptionID,
		Amount:          cmd.Amount,
		RiskTolerance:   cmd.RiskTolerance,
		RequestedPeriod: cmd.RequestedPeriod,
		TierName:        resolution.TierName,
		Rate:            resolution.Rate,
		ConfigID:        resolution.Config.ConfigID,
		Status:          domain.RequestPendingReview,
	}

	err = s.requests.Transaction(ctx, func(ctx context.Context) error {
		if err := s.requests.Save(ctx, req); err != nil {
			return err
		}
		summary, err := s.summaries.GetOrCreate(ctx, cmd.CustomerID)
		if err != nil {
			return err
		}
		summary.TotalRequests++
		return s.summaries.Save(ctx, summary)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.InvestmentsTotal.Inc()
	}
	s.logger.InfoContext(ctx, "investment request created",
		"request_id", req.RequestID,
		"customer_id", cmd.CustomerID,
		"amount", cmd.Amount,
		"tier", resolution.TierName,
		"rate", resolution.Rate)
	return req, nil
}

// ApprovalResult 投资审批结果
// AlreadyApproved 为 true 时是幂等空操作，Position 为既有持仓。
type ApprovalResult struct {
	Request         *domain.InvestmentRequest
	Position        *domain.FundTransaction
	AlreadyApproved bool
}

// ApproveInvestmentRequest 审批通过投资申请
// 对申请行持悲观锁防止并发双重审批；固化的配置已消失时按
// 原风险偏好从当前配置重算利率。
func (s *Service) ApproveInvestmentRequest(ctx context.Context, requestID, reviewerID string) (*ApprovalResult, error) {
	var result *ApprovalResult
	err := s.requests.Transaction(ctx, func(ctx context.Context) error {
		req, err := s.requests.GetWithLock(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status == domain.RequestApproved {
			result = &ApprovalResult{Request: req, AlreadyApproved: true}
			return nil
		}

		rate := req.Rate
		tierName := req.TierName
		cfg, err := s.configs.GetByConfigID(ctx, req.ConfigID)
		if err != nil {
			return err
		}
		if cfg == nil {
			resolution, err := s.ResolveTier(ctx, req.Amount, req.RiskTolerance)
			if err != nil {
				return err
			}
			rate = resolution.Rate
			tierName = resolution.TierName
			req.Rate = rate
			req.TierName = tierName
			req.ConfigID = resolution.Config.ConfigID
		}

		term := domain.ParseTermMonths(req.RequestedPeriod)
		if err := req.Approve(reviewerID, term); err != nil {
			return err
		}
		if err := s.requests.Save(ctx, req); err != nil {
			return err
		}

		now := time.Now()
		position := domain.NewFundPosition(
			fmt.Sprintf("TXN-%d", idgen.GenID()),
			req.CustomerID,
			req.SubscriptionID,
			req.RequestID,
			req.Amount,
			rate,
			term,
			"USD",
			now,
		)
		position.CreatedBy = reviewerID
		if err := s.ledger.Append(ctx, position); err != nil {
			return err
		}

		sub, err := s.subscriptions.GetWithLock(ctx, req.SubscriptionID)
		if err != nil {
			return err
		}
		sub.InvestedAmount = sub.InvestedAmount.Add(req.Amount)
		if err := s.subscriptions.Save(ctx, sub); err != nil {
			return err
		}

		summary, err := s.summaries.GetOrCreate(ctx, req.CustomerID)
		if err != nil {
			return err
		}
		summary.ApprovedCount++
		summary.ActiveCount++
		summary.OriginalBalance = summary.OriginalBalance.Add(req.Amount)
		summary.CurrentBalance = summary.CurrentBalance.Add(req.Amount)
		if err := s.summaries.Save(ctx, summary); err != nil {
			return err
		}

		result = &ApprovalResult{Request: req, Position: position}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyApproved {
		if s.metrics != nil {
			s.metrics.PositionsActive.Inc()
		}
		if s.notifier != nil {
			s.notifier.InvestmentApproved(ctx, result.Request.CustomerID, requestID, result.Request.Amount, result.Request.Rate)
		}
		s.logger.InfoContext(ctx, "investment request approved",
			"request_id", requestID,
			"reviewer_id", reviewerID,
			"position_txn_id", result.Position.TxnID,
			"rate", result.Request.Rate,
			"term_months", result.Request.TermMonths)
	}
	return result, nil
}

// RejectInvestmentRequest 审批拒绝投资申请，终态
func (s *Service) RejectInvestmentRequest(ctx context.Context, requestID, reviewerID, reason string) (*domain.InvestmentRequest, error) {
	if reason == "" {
		return nil, fmt.Errorf("rejection reason is required")
	}
	reason = utils.TruncateString(reason, 255)

	var req *domain.InvestmentRequest
	err := s.requests.Transaction(ctx, func(ctx context.Context) error {
		locked, err := s.requests.GetWithLock(ctx, requestID)
		if err != nil {
			return err
		}
		if err := locked.Reject(reviewerID, reason); err != nil {
			return err
		}
		if err := s.requests.Save(ctx, locked); err != nil {
			return err
		}
		req = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "investment request rejected",
		"request_id", requestID, "reviewer_id", reviewerID, "reason", reason)
	return req, nil
}

// GetSummary 查询客户投资汇总
func (s *Service) GetSummary(ctx context.Context, customerID string) (*domain.CustomerInvestmentSummary, error) {
	return s.summaries.GetOrCreate(ctx, customerID)
}

// ListRequests 查询客户全部投资申请
func (s *Service) ListRequests(ctx context.Context, customerID string) ([]*domain.InvestmentRequest, error) {
	return s.requests.ListByCustomer(ctx, customerID)
}

// ListTransactions 查询客户全部资金流水
func (s *Service) ListTransactions(ctx context.Context, customerID string) ([]*domain.FundTransaction, error) {
	return s.ledger.ListByCustomer(ctx, customerID)
}

// ListPositions 查询客户全部持仓
func (s *Service) ListPositions(ctx context.Context, customerID string) ([]*domain.FundTransaction, error) {
	return s.ledger.ListPositionsByCustomer(ctx, customerID)
}

// ListReturnRequests 查询客户全部回款申请
func (s *Service) ListReturnRequests(ctx context.Context, customerID string) ([]*domain.ReturnRequest, error) {
	return s.returns.ListByCustomer(ctx, customerID)
}
