// Package application 服务订阅申请编排应用层
// 申请、审批、支付、续期、到期清理均在单个数据库事务内完成；
// 事件发布与通知只在提交后尽力而为地执行。
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/idgen"
	catalogapp "github.com/wyfcoding/wealthservice/internal/catalog/application"
	catalogdomain "github.com/wyfcoding/wealthservice/internal/catalog/domain"
	kycapp "github.com/wyfcoding/wealthservice/internal/kyc/application"
	kycdomain "github.com/wyfcoding/wealthservice/internal/kyc/domain"
	"github.com/wyfcoding/wealthservice/internal/membership/domain"
	"github.com/wyfcoding/wealthservice/pkg/metrics"
	"github.com/wyfcoding/wealthservice/pkg/utils"
)

// Notifier 通知端口，失败由实现方记录日志，永不向上传播
type Notifier interface {
	ServiceActivated(ctx context.Context, customerID string, serviceType string)
	PaymentApproved(ctx context.Context, customerID, paymentID string, amount decimal.Decimal)
}

// Service 服务订阅应用服务
type Service struct {
	subscriptions domain.SubscriptionRepository
	payments      domain.PaymentRepository
	addresses     domain.AddressRepository
	kyc           *kycapp.Service
	catalog       *catalogapp.Service
	provider      domain.PaymentProvider
	publisher     domain.EventPublisher
	notifier      Notifier
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// NewService 创建服务订阅应用服务
// provider/publisher/notifier/metrics 均可为 nil，对应能力降级为跳过。
func NewService(
	subscriptions domain.SubscriptionRepository,
	payments domain.PaymentRepository,
	addresses domain.AddressRepository,
	kyc *kycapp.Service,
	catalog *catalogapp.Service,
	provider domain.PaymentProvider,
	publisher domain.EventPublisher,
	notifier Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		subscriptions: subscriptions,
		payments:      payments,
		addresses:     addresses,
		kyc:           kyc,
		catalog:       catalog,
		provider:      provider,
		publisher:     publisher,
		notifier:      notifier,
		metrics:       m,
		logger:        logger,
	}
}

// AddressInput 客户主地址输入
type AddressInput struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// ApplyCommand 服务申请命令
type ApplyCommand struct {
	CustomerID  string
	ServiceType catalogdomain.ServiceType
	// 新鲜提交的身份资料，nil 表示未提交
	KYC       *kycdomain.Profile
	Documents []kycapp.AttachmentInput
	Address   *AddressInput
	// 订阅经济属性，仅 subscription_based 服务使用
	DurationMonths int
	Fee            *decimal.Decimal
	Currency       string
	PackageID      string
}

// Apply 申请服务
// 快速幂等检查在事务外，事务内立即复查同一条件，封堵
// 快速检查与写入之间的竞态窗口；两次检查都需保留。
func (s *Service) Apply(ctx context.Context, cmd ApplyCommand) (*domain.ApplicationResult, error) {
	existing, err := s.subscriptions.FindByCustomerAndType(ctx, cmd.CustomerID, cmd.ServiceType)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &domain.ApplicationResult{Status: domain.StatusAlreadyActive, Subscription: existing}, nil
	}

	policy, err := s.catalog.Resolve(ctx, cmd.ServiceType)
	if err != nil {
		return nil, err
	}

	var result *domain.ApplicationResult
	err = s.subscriptions.Transaction(ctx, func(ctx context.Context) error {
		r, err := s.applyInTx(ctx, cmd, policy)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Status != domain.StatusAlreadyActive {
		if s.metrics != nil {
			s.metrics.ApplicationsTotal.Inc()
		}
		s.publish(ctx, s.newEvent(domain.EventServiceApplied, result.Subscription))
		if result.Status == domain.StatusActivated {
			s.afterActivation(ctx, result.Subscription)
		}
		s.logger.InfoContext(ctx, "service application processed",
			"customer_id", cmd.CustomerID,
			"service_type", cmd.ServiceType,
			"subscription_id", result.Subscription.SubscriptionID,
			"status", result.Status)
	}
	return result, nil
}

// applyInTx 在调用方事务内执行申请的全部步骤
func (s *Service) applyInTx(ctx context.Context, cmd ApplyCommand, policy *catalogdomain.ServicePolicy) (*domain.ApplicationResult, error) {
	existing, err := s.subscriptions.FindByCustomerAndType(ctx, cmd.CustomerID, cmd.ServiceType)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &domain.ApplicationResult{Status: domain.StatusAlreadyActive, Subscription: existing}, nil
	}

	var record *kycdomain.VerificationRecord
	switch {
	case cmd.KYC != nil:
		// 新鲜提交：按策略要求的等级创建新审核记录
		level := policy.Level()
		if !policy.NeedsVerification() {
			level = kycdomain.LevelBasic
		}
		record, err = s.kyc.Submit(ctx, kycapp.SubmitCommand{
			CustomerID:  cmd.CustomerID,
			Level:       level,
			Profile:     *cmd.KYC,
			AutoApprove: policy.AutoApprove,
		})
		if err != nil {
			return nil, err
		}
	case policy.NeedsVerification() && !policy.RequiresPayment:
		// 复用历史：克隆最合适的已通过记录开启新审核周期，
		// 调用方已显式提交文件时不再克隆文件
		record, err = s.kyc.CloneFromHistory(ctx, cmd.CustomerID, policy.Level(), policy.RequiredDocs(), len(cmd.Documents) == 0)
		if err != nil {
			return nil, err
		}
		if record == nil {
			return nil, domain.ErrMissingKYC
		}
	}

	if cmd.Address != nil {
		addr := &domain.Address{
			CustomerID: cmd.CustomerID,
			Line1:      cmd.Address.Line1,
			Line2:      cmd.Address.Line2,
			City:       cmd.Address.City,
			State:      cmd.Address.State,
			PostalCode: cmd.Address.PostalCode,
			Country:    cmd.Address.Country,
		}
		if err := s.addresses.UpsertPrimary(ctx, addr); err != nil {
			return nil, err
		}
	}

	recordID := ""
	if record != nil {
		recordID = record.RecordID
	}
	if len(cmd.Documents) > 0 {
		if _, err := s.kyc.AttachDocuments(ctx, cmd.CustomerID, recordID, cmd.Documents); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	currency := cmd.Currency
	if currency == "" {
		currency = "USD"
	}
	sub := &domain.ServiceSubscription{
		SubscriptionID:       fmt.Sprintf("SUB-%d", idgen.GenID()),
		CustomerID:           cmd.CustomerID,
		ServiceType:          cmd.ServiceType,
		VerificationRecordID: recordID,
		RequiresPayment:      policy.RequiresPayment,
		Currency:             currency,
		PackageID:            cmd.PackageID,
		Balance:              decimal.Zero,
		InvestedAmount:       decimal.Zero,
		AppliedAt:            now,
	}
	if policy.SubscriptionBased && cmd.DurationMonths > 0 {
		sub.DurationMonths = cmd.DurationMonths
		expiry := now.AddDate(0, cmd.DurationMonths, 0)
		sub.ExpiresAt = &expiry
		if cmd.Fee != nil {
			sub.Fee = *cmd.Fee
		} else {
			fee, err := s.catalog.DefaultFee(ctx, cmd.ServiceType, cmd.DurationMonths)
			if err != nil {
				return nil, err
			}
			sub.Fee = fee
		}
	}

	kycPending := record != nil && record.Status == kycdomain.StatusPending
	sub.Active = !policy.RequiresPayment && !policy.RequiresAdminApproval && !kycPending
	if err := s.subscriptions.Save(ctx, sub); err != nil {
		return nil, err
	}

	status := domain.StatusActivated
	switch {
	case policy.RequiresPayment:
		status = domain.StatusPendingPayment
	case policy.RequiresAdminApproval:
		status = domain.StatusPendingAdminApproval
	case kycPending:
		status = domain.StatusPendingReview
	}
	return &domain.ApplicationResult{Status: status, Subscription: sub, Verification: record}, nil
}

// ApproveService 审批通过服务申请
// 已激活订阅为幂等空操作，返回 already_active。
func (s *Service) ApproveService(ctx context.Context, subscriptionID, reviewerID string) (*domain.ApplicationResult, error) {
	var result *domain.ApplicationResult
	err := s.subscriptions.Transaction(ctx, func(ctx context.Context) error {
		r, err := s.approveInTx(ctx, subscriptionID, reviewerID)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Status == domain.StatusActivated {
		s.afterActivation(ctx, result.Subscription)
		s.logger.InfoContext(ctx, "service approved",
			"subscription_id", subscriptionID, "reviewer_id", reviewerID)
	}
	return result, nil
}

// approveInTx 在调用方事务内执行审批分支
func (s *Service) approveInTx(ctx context.Context, subscriptionID, reviewerID string) (*domain.ApplicationResult, error) {
	sub, err := s.subscriptions.GetWithLock(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Active {
		return &domain.ApplicationResult{Status: domain.StatusAlreadyActive, Subscription: sub}, nil
	}

	policy, err := s.catalog.Resolve(ctx, sub.ServiceType)
	if err != nil {
		return nil, err
	}

	var payment *domain.Payment
	var record *kycdomain.VerificationRecord
	switch {
	case policy.RequiresPayment:
		payment, err = s.payments.FindSucceededBySubscription(ctx, sub.SubscriptionID)
		if err != nil {
			return nil, err
		}
		if payment == nil {
			return nil, domain.ErrPaymentIncomplete
		}
		// 机会性关联最新已通过审核记录，缺失不阻塞
		record, err = s.kyc.LatestApproved(ctx, sub.CustomerID)
		if err != nil {
			return nil, err
		}
		if record != nil {
			sub.VerificationRecordID = record.RecordID
		}
	case policy.NeedsVerification():
		pending, err := s.kyc.LatestPending(ctx, sub.CustomerID)
		if err != nil {
			return nil, err
		}
		if pending == nil {
			return nil, domain.ErrNoPendingReview
		}
		record, err = s.kyc.Approve(ctx, pending.RecordID, reviewerID)
		if err != nil {
			return nil, err
		}
		sub.VerificationRecordID = record.RecordID
	}

	sub.ComputeExpiry()
	sub.Activate()
	if err := s.subscriptions.Save(ctx, sub); err != nil {
		return nil, err
	}
	link := &domain.ServiceUsageLink{
		SubscriptionID:       sub.SubscriptionID,
		VerificationRecordID: sub.VerificationRecordID,
		CustomerID:           sub.CustomerID,
		ReviewerID:           reviewerID,
	}
	if err := s.subscriptions.SaveUsageLink(ctx, link); err != nil {
		return nil, err
	}
	return &domain.ApplicationResult{Status: domain.StatusActivated, Subscription: sub, Payment: payment, Verification: record}, nil
}

// RejectService 审批拒绝服务申请，原因必填
// 审核分支将待审核记录置为终态；支付分支把拒绝记入支付审计备注。
func (s *Service) RejectService(ctx context.Context, subscriptionID, reviewerID, reason string) (*domain.ServiceSubscription, error) {
	if reason == "" {
		return nil, fmt.Errorf("rejection reason is required")
	}
	reason = utils.TruncateString(reason, 255)

	var sub *domain.ServiceSubscription
	err := s.subscriptions.Transaction(ctx, func(ctx context.Context) error {
		locked, err := s.subscriptions.GetWithLock(ctx, subscriptionID)
		if err != nil {
			return err
		}
		policy, err := s.catalog.Resolve(ctx, locked.ServiceType)
		if err != nil {
			return err
		}

		switch {
		case policy.RequiresPayment:
			payment, err := s.payments.FindSucceededBySubscription(ctx, locked.SubscriptionID)
			if err != nil {
				return err
			}
			if payment != nil {
				payment.AdminNotes = utils.TruncateString(fmt.Sprintf("service rejected by %s: %s", reviewerID, reason), 512)
				if err := s.payments.Save(ctx, payment); err != nil {
					return err
				}
			}
		case policy.NeedsVerification():
			pending, err := s.kyc.LatestPending(ctx, locked.CustomerID)
			if err != nil {
				return err
			}
			if pending == nil {
				return domain.ErrNoPendingReview
			}
			if _, err := s.kyc.Reject(ctx, pending.RecordID, reviewerID, reason); err != nil {
				return err
			}
		}

		locked.Deactivate()
		if err := s.subscriptions.Save(ctx, locked); err != nil {
			return err
		}
		sub = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "service rejected",
		"subscription_id", subscriptionID, "reviewer_id", reviewerID, "reason", reason)
	return sub, nil
}

// GetSubscription 查询订阅
func (s *Service) GetSubscription(ctx context.Context, subscriptionID string) (*domain.ServiceSubscription, error) {
	return s.subscriptions.GetBySubscriptionID(ctx, subscriptionID)
}

// ListSubscriptions 查询客户全部订阅
func (s *Service) ListSubscriptions(ctx context.Context, customerID string) ([]*domain.ServiceSubscription, error) {
	return s.subscriptions.ListByCustomer(ctx, customerID)
}

// ListPayments 查询客户全部支付记录
func (s *Service) ListPayments(ctx context.Context, customerID string) ([]*domain.Payment, error) {
	return s.payments.ListByCustomer(ctx, customerID)
}

// afterActivation 提交后的激活副作用：事件与通知，尽力而为
func (s *Service) afterActivation(ctx context.Context, sub *domain.ServiceSubscription) {
	s.publish(ctx, s.newEvent(domain.EventServiceActivated, sub))
	if s.notifier != nil {
		s.notifier.ServiceActivated(ctx, sub.CustomerID, string(sub.ServiceType))
	}
}

// publish 发布领域事件，失败仅记日志
func (s *Service) publish(ctx context.Context, event *domain.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "domain event publish failed",
			"event_type", event.Type, "subscription_id", event.SubscriptionID, "error", err)
	}
}

func (s *Service) newEvent(eventType string, sub *domain.ServiceSubscription) *domain.DomainEvent {
	return &domain.DomainEvent{
		EventID:        fmt.Sprintf("EVT-%d", idgen.GenID()),
		Type:           eventType,
		CustomerID:     sub.CustomerID,
		SubscriptionID: sub.SubscriptionID,
		ServiceType:    string(sub.ServiceType),
		OccurredAt:     time.Now(),
	}
}
