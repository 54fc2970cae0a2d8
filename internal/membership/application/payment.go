package application

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/wealthservice/internal/membership/domain"
	"github.com/wyfcoding/wealthservice/pkg/utils"
)

// PaymentSlip 客户提交的支付凭证
type PaymentSlip struct {
	Amount    decimal.Decimal
	Reference string
	Filename  string
}

// SlipApplyCommand 携带支付凭证的订阅申请命令
type SlipApplyCommand struct {
	CustomerID string
	PackageID  string
	Slip       PaymentSlip
	Address    *AddressInput
}

// ApplyWithPaymentSlip 人工凭证申请流程
// 同服务已有激活实例时直接返回 already_active；凭证金额与套餐
// 费用须在 1 分钱容差内一致；申请与支付记录落在同一事务。
func (s *Service) ApplyWithPaymentSlip(ctx context.Context, cmd SlipApplyCommand) (*domain.ApplicationResult, error) {
	pkg, err := s.catalog.GetPackage(ctx, cmd.PackageID)
	if err != nil {
		return nil, err
	}

	active, err := s.subscriptions.FindActiveByCustomerAndType(ctx, cmd.CustomerID, pkg.ServiceType)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return &domain.ApplicationResult{Status: domain.StatusAlreadyActive, Subscription: active}, nil
	}

	if err := domain.AmountWithinTolerance(cmd.Slip.Amount, pkg.Fee); err != nil {
		return nil, err
	}

	policy, err := s.catalog.Resolve(ctx, pkg.ServiceType)
	if err != nil {
		return nil, err
	}

	var result *domain.ApplicationResult
	err = s.subscriptions.Transaction(ctx, func(ctx context.Context) error {
		r, err := s.applyInTx(ctx, ApplyCommand{
			CustomerID:     cmd.CustomerID,
			ServiceType:    pkg.ServiceType,
			Address:        cmd.Address,
			DurationMonths: pkg.DurationMonths,
			Fee:            &pkg.Fee,
			Currency:       pkg.Currency,
			PackageID:      pkg.PackageID,
		}, policy)
		if err != nil {
			return err
		}
		if r.Status == domain.StatusAlreadyActive {
			result = r
			return nil
		}

		payment := domain.NewPayment(
			fmt.Sprintf("PAY-%d", idgen.GenID()),
			cmd.CustomerID,
			r.Subscription.SubscriptionID,
			domain.PaymentTypeSubscription,
			domain.MethodManualSlip,
			cmd.Slip.Amount,
			pkg.Currency,
		)
		payment.ReferenceID = fmt.Sprintf("MANUAL-%d", idgen.GenID())
		payment.AttachSlip(cmd.Slip.Reference, cmd.Slip.Filename, time.Now())
		if err := s.payments.Save(ctx, payment); err != nil {
			return err
		}

		r.Payment = payment
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
		s.logger.InfoContext(ctx, "slip application created",
			"customer_id", cmd.CustomerID,
			"package_id", cmd.PackageID,
			"subscription_id", result.Subscription.SubscriptionID,
			"payment_id", result.Payment.PaymentID)
	}
	return result, nil
}

// SubmitPaymentSlip 独立的凭证补交步骤
func (s *Service) SubmitPaymentSlip(ctx context.Context, paymentID, reference, filename string) (*domain.Payment, error) {
	var payment *domain.Payment
	err := s.subscriptions.Transaction(ctx, func(ctx context.Context) error {
		locked, err := s.payments.GetWithLock(ctx, paymentID)
		if err != nil {
			return err
		}
		if err := locked.SubmitSlip(reference, filename, time.Now()); err != nil {
			return err
		}
		if err := s.payments.Save(ctx, locked); err != nil {
			return err
		}
		payment = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "payment slip submitted",
		"payment_id", paymentID, "reference", reference)
	return payment, nil
}

// ApprovePayment 审批通过支付
// pending 与 slip_submitted 均可审批：凭证既可申请时内联提交，
// 也可事后补交。金额容差对应付费用复核；到期时间未设置时按
// 申请时间加订阅时长推算；订阅随之激活。已成功支付为幂等空操作。
func (s *Service) ApprovePayment(ctx context.Context, paymentID, adminID, notes string) (*domain.Payment, error) {
	var payment *domain.Payment
	var sub *domain.ServiceSubscription
	var noop bool
	err := s.subscriptions.Transaction(ctx, func(ctx context.Context) error {
		locked, err := s.payments.GetWithLock(ctx, paymentID)
		if err != nil {
			return err
		}
		if locked.Status == domain.PaymentSucceeded {
			payment = locked
			noop = true
			return nil
		}

		lockedSub, err := s.subscriptions.GetWithLock(ctx, locked.SubscriptionID)
		if err != nil {
			return err
		}

		if err := locked.Approve(adminID, notes, lockedSub.Fee, time.Now()); err != nil {
			return err
		}
		// 续期支付只记成功，激活与前代停用由续期审批原子完成，
		// 避免出现同类型两行同时激活的可观测窗口
		if locked.Type != domain.PaymentTypeRenewal {
			lockedSub.ComputeExpiry()
			lockedSub.Activate()
		}

		if err := s.payments.Save(ctx, locked); err != nil {
			return err
		}
		if err := s.subscriptions.Save(ctx, lockedSub); err != nil {
			return err
		}
		payment = locked
		sub = lockedSub
		return nil
	})
	if err != nil {
		return nil, err
	}
	if noop {
		return payment, nil
	}

	if s.metrics != nil {
		s.metrics.PaymentsApproved.Inc()
	}
	event := s.newEvent(domain.EventPaymentApproved, sub)
	event.PaymentID = payment.PaymentID
	s.publish(ctx, event)
	if sub.Active {
		s.afterActivation(ctx, sub)
	}
	if s.notifier != nil {
		s.notifier.PaymentApproved(ctx, payment.CustomerID, payment.PaymentID, payment.Amount)
	}

	s.logger.InfoContext(ctx, "payment approved",
		"payment_id", paymentID, "admin_id", adminID, "subscription_id", sub.SubscriptionID)
	return payment, nil
}

// RejectPayment 审批拒绝支付，原因必填，不自动重试
func (s *Service) RejectPayment(ctx context.Context, paymentID, adminID, reason string) (*domain.Payment, error) {
	reason = utils.TruncateString(reason, 512)
	var payment *domain.Payment
	err := s.subscriptions.Transaction(ctx, func(ctx context.Context) error {
		locked, err := s.payments.GetWithLock(ctx, paymentID)
		if err != nil {
			return err
		}
		if err := locked.Reject(adminID, reason, time.Now()); err != nil {
			return err
		}
		if err := s.payments.Save(ctx, locked); err != nil {
			return err
		}
		payment = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "payment rejected",
		"payment_id", paymentID, "admin_id", adminID, "reason", reason)
	return payment, nil
}

// GatewayApplyCommand 网关支付申请命令
type GatewayApplyCommand struct {
	CustomerID string
	PackageID  string
	Address    *AddressInput
	ReturnURL  string
	CancelURL  string
}

// ApplyWithGateway 网关支付申请流程
// 支付意向在事务开启前创建，避免持锁期间做网络 I/O。
func (s *Service) ApplyWithGateway(ctx context.Context, cmd GatewayApplyCommand) (*domain.ApplicationResult, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("payment provider not configured")
	}

	pkg, err := s.catalog.GetPackage(ctx, cmd.PackageID)
	if err != nil {
		return nil, err
	}

	active, err := s.subscriptions.FindActiveByCustomerAndType(ctx, cmd.CustomerID, pkg.ServiceType)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return &domain.ApplicationResult{Status: domain.StatusAlreadyActive, Subscription: active}, nil
	}

	policy, err := s.catalog.Resolve(ctx, pkg.ServiceType)
	if err != nil {
		return nil, err
	}

	intent, err := s.provider.CreatePaymentIntent(ctx, pkg.Fee, pkg.Currency, map[string]string{
		"customer_id": cmd.CustomerID,
		"package_id":  pkg.PackageID,
	}, cmd.ReturnURL, cmd.CancelURL)
	if err != nil {
		return nil, err
	}

	var result *domain.ApplicationResult
	err = s.subscriptions.Transaction(ctx, func(ctx context.Context) error {
		r, err := s.applyInTx(ctx, ApplyCommand{
			CustomerID:     cmd.CustomerID,
			ServiceType:    pkg.ServiceType,
			Address:        cmd.Address,
			DurationMonths: pkg.DurationMonths,
			Fee:            &pkg.Fee,
			Currency:       pkg.Currency,
			PackageID:      pkg.PackageID,
		}, policy)
		if err != nil {
			return err
		}
		if r.Status == domain.StatusAlreadyActive {
			result = r
			return nil
		}

		payment := domain.NewPayment(
			fmt.Sprintf("PAY-%d", idgen.GenID()),
			cmd.CustomerID,
			r.Subscription.SubscriptionID,
			domain.PaymentTypeSubscription,
			domain.MethodGateway,
			pkg.Fee,
			pkg.Currency,
		)
		payment.GatewayIntentID = intent.ID
		if err := s.payments.Save(ctx, payment); err != nil {
			return err
		}

		r.Payment = payment
		r.PaymentURL = intent.PaymentURL
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
	}
	return result, nil
}

// ConfirmGatewayPayment 回查网关意向状态，已成功则走支付审批路径
// 网关确认在事务外完成。
func (s *Service) ConfirmGatewayPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("payment provider not configured")
	}

	payment, err := s.payments.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status == domain.PaymentSucceeded {
		return payment, nil
	}

	intent, err := s.provider.ConfirmPayment(ctx, payment.GatewayIntentID)
	if err != nil {
		return nil, err
	}
	if intent.Status != "succeeded" {
		return nil, fmt.Errorf("gateway intent %s not succeeded: %s", intent.ID, intent.Status)
	}

	return s.ApprovePayment(ctx, paymentID, "gateway", "confirmed via payment gateway")
}
