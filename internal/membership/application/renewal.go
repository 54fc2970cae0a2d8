package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/pkg/idgen"
	catalogdomain "github.com/wyfcoding/wealthservice/internal/catalog/domain"
	"github.com/wyfcoding/wealthservice/internal/membership/domain"
)

// RenewCommand 订阅续期命令
type RenewCommand struct {
	CustomerID string
	PackageID  string
	ReturnURL  string
	CancelURL  string
}

// Renew 网关支付续期
// 客户名下须已存在该服务实例（激活或已过期均可），否则 ErrNothingToRenew；
// 续期产生独立的未激活新行与新支付，原行在续期审批前保持不动。
func (s *Service) Renew(ctx context.Context, cmd RenewCommand) (*domain.ApplicationResult, error) {
	pkg, err := s.catalog.GetPackage(ctx, cmd.PackageID)
	if err != nil {
		return nil, err
	}

	var intent *domain.PaymentIntent
	if s.provider != nil {
		intent, err = s.provider.CreatePaymentIntent(ctx, pkg.Fee, pkg.Currency, map[string]string{
			"customer_id": cmd.CustomerID,
			"package_id":  pkg.PackageID,
			"renewal":     "true",
		}, cmd.ReturnURL, cmd.CancelURL)
		if err != nil {
			return nil, err
		}
	}

	var result *domain.ApplicationResult
	err = s.subscriptions.Transaction(ctx, func(ctx context.Context) error {
		sub, payment, err := s.renewInTx(ctx, cmd.CustomerID, pkg, domain.MethodGateway)
		if err != nil {
			return err
		}
		if intent != nil {
			payment.GatewayIntentID = intent.ID
			if err := s.payments.Save(ctx, payment); err != nil {
				return err
			}
		}
		result = &domain.ApplicationResult{Status: domain.StatusPendingPayment, Subscription: sub, Payment: payment}
		if intent != nil {
			result.PaymentURL = intent.PaymentURL
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "renewal created",
		"customer_id", cmd.CustomerID,
		"package_id", cmd.PackageID,
		"subscription_id", result.Subscription.SubscriptionID)
	return result, nil
}

// RenewWithSlip 人工凭证续期，凭证金额与套餐费用须在容差内一致
func (s *Service) RenewWithSlip(ctx context.Context, cmd RenewCommand, slip PaymentSlip) (*domain.ApplicationResult, error) {
	pkg, err := s.catalog.GetPackage(ctx, cmd.PackageID)
	if err != nil {
		return nil, err
	}
	if err := domain.AmountWithinTolerance(slip.Amount, pkg.Fee); err != nil {
		return nil, err
	}

	var result *domain.ApplicationResult
	err = s.subscriptions.Transaction(ctx, func(ctx context.Context) error {
		sub, payment, err := s.renewInTx(ctx, cmd.CustomerID, pkg, domain.MethodManualSlip)
		if err != nil {
			return err
		}
		payment.ReferenceID = fmt.Sprintf("MANUAL-%d", idgen.GenID())
		payment.AttachSlip(slip.Reference, slip.Filename, time.Now())
		if err := s.payments.Save(ctx, payment); err != nil {
			return err
		}
		result = &domain.ApplicationResult{Status: domain.StatusPendingPayment, Subscription: sub, Payment: payment}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "renewal with slip created",
		"customer_id", cmd.CustomerID,
		"package_id", cmd.PackageID,
		"subscription_id", result.Subscription.SubscriptionID)
	return result, nil
}

// renewInTx 在调用方事务内创建续期行与续期支付
func (s *Service) renewInTx(ctx context.Context, customerID string, pkg *catalogdomain.PricingPackage, method domain.PaymentMethod) (*domain.ServiceSubscription, *domain.Payment, error) {
	predecessor, err := s.subscriptions.FindByCustomerAndType(ctx, customerID, pkg.ServiceType)
	if err != nil {
		return nil, nil, err
	}
	if predecessor == nil {
		return nil, nil, domain.ErrNothingToRenew
	}

	sub := &domain.ServiceSubscription{
		SubscriptionID:  fmt.Sprintf("SUB-%d", idgen.GenID()),
		CustomerID:      customerID,
		ServiceType:     pkg.ServiceType,
		Active:          false,
		RequiresPayment: true,
		DurationMonths:  pkg.DurationMonths,
		Fee:             pkg.Fee,
		Currency:        pkg.Currency,
		PackageID:       pkg.PackageID,
		AppliedAt:       time.Now(),
	}
	if err := s.subscriptions.Save(ctx, sub); err != nil {
		return nil, nil, err
	}

	payment := domain.NewPayment(
		fmt.Sprintf("PAY-%d", idgen.GenID()),
		customerID,
		sub.SubscriptionID,
		domain.PaymentTypeRenewal,
		method,
		pkg.Fee,
		pkg.Currency,
	)
	if err := s.payments.Save(ctx, payment); err != nil {
		return nil, nil, err
	}
	return sub, payment, nil
}

// ApproveRenewal 审批通过续期
// 走常规审批路径激活续期行，并在同一事务内停用同客户同类型的
// 其余激活行，续期换代对外原子可见。
func (s *Service) ApproveRenewal(ctx context.Context, subscriptionID, reviewerID string) (*domain.ApplicationResult, error) {
	var result *domain.ApplicationResult
	err := s.subscriptions.Transaction(ctx, func(ctx context.Context) error {
		r, err := s.approveInTx(ctx, subscriptionID, reviewerID)
		if err != nil {
			return err
		}
		if r.Status == domain.StatusAlreadyActive {
			result = r
			return nil
		}

		others, err := s.subscriptions.FindActiveOthers(ctx, r.Subscription.CustomerID, r.Subscription.ServiceType, r.Subscription.SubscriptionID)
		if err != nil {
			return err
		}
		for _, other := range others {
			other.Deactivate()
			if err := s.subscriptions.Save(ctx, other); err != nil {
				return err
			}
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Status == domain.StatusActivated {
		s.publish(ctx, s.newEvent(domain.EventSubscriptionRenewed, result.Subscription))
		s.afterActivation(ctx, result.Subscription)
		s.logger.InfoContext(ctx, "renewal approved",
			"subscription_id", subscriptionID, "reviewer_id", reviewerID)
	}
	return result, nil
}

// ExpirySweep 到期清理，由外部调度器周期触发
// 幂等：重复执行不产生额外效果；空结果不是错误。
func (s *Service) ExpirySweep(ctx context.Context, now time.Time) (*domain.SweepResult, error) {
	result := &domain.SweepResult{SubscriptionIDs: []string{}}
	err := s.subscriptions.Transaction(ctx, func(ctx context.Context) error {
		expired, err := s.subscriptions.FindExpired(ctx, now)
		if err != nil {
			return err
		}
		for _, sub := range expired {
			sub.Deactivate()
			if err := s.subscriptions.Save(ctx, sub); err != nil {
				return err
			}
			result.SubscriptionIDs = append(result.SubscriptionIDs, sub.SubscriptionID)
		}
		result.ExpiredCount = len(result.SubscriptionIDs)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, id := range result.SubscriptionIDs {
		s.publish(ctx, &domain.DomainEvent{
			EventID:        fmt.Sprintf("EVT-%d", idgen.GenID()),
			Type:           domain.EventSubscriptionExpired,
			SubscriptionID: id,
			OccurredAt:     now,
		})
	}
	if result.ExpiredCount > 0 {
		s.logger.InfoContext(ctx, "expiry sweep completed",
			"expired_count", result.ExpiredCount, "subscription_ids", result.SubscriptionIDs)
	}
	return result, nil
}
