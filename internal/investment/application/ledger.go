package application

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/idgen"
	catalogdomain "github.com/wyfcoding/wealthservice/internal/catalog/domain"
	"github.com/wyfcoding/wealthservice/internal/investment/domain"
	"github.com/wyfcoding/wealthservice/pkg/utils"
)

// CreateReturnCommand 回款申请命令
type CreateReturnCommand struct {
	CustomerID    string
	PositionTxnID string
	Type          domain.ReturnType
	Amount        decimal.Decimal
}

// CreateReturnRequest 创建回款申请
// 本金类申请校验请求金额不超过剩余本金；仅利息类跳过校验。
// 创建阶段不移动任何资金。
func (s *Service) CreateReturnRequest(ctx context.Context, cmd CreateReturnCommand) (*domain.ReturnRequest, error) {
	if !cmd.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}

	position, err := s.ledger.GetByTxnID(ctx, cmd.PositionTxnID)
	if err != nil {
		return nil, err
	}
	if !position.IsPosition() || position.CustomerID != cmd.CustomerID {
		return nil, domain.ErrNotFound
	}
	if cmd.Type.AffectsPrincipal() && cmd.Amount.GreaterThan(position.PrincipalRemaining) {
		return nil, fmt.Errorf("%w: requested %s exceeds remaining %s",
			domain.ErrInsufficientPrincipal, cmd.Amount, position.PrincipalRemaining)
	}

	req := &domain.ReturnRequest{
		ReturnID:        fmt.Sprintf("RET-%d", idgen.GenID()),
		CustomerID:      cmd.CustomerID,
		PositionTxnID:   cmd.PositionTxnID,
		Type:            cmd.Type,
		RequestedAmount: cmd.Amount,
		Status:          domain.ReturnPending,
	}
	if err := s.returns.Save(ctx, req); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "return request created",
		"return_id", req.ReturnID,
		"position_txn_id", cmd.PositionTxnID,
		"type", cmd.Type,
		"amount", cmd.Amount)
	return req, nil
}

// ApproveReturnCommand 回款审批命令
type ApproveReturnCommand struct {
	ReturnID   string
	ReviewerID string
	// 管理员调整后的实际放款金额，nil 表示按申请金额放款
	ApprovedAmount   *decimal.Decimal
	PaymentMethod    string
	PaymentReference string
}

// ReturnApprovalResult 回款审批结果
type ReturnApprovalResult struct {
	Request         *domain.ReturnRequest
	Payout          *domain.FundTransaction
	AlreadyApproved bool
}

// ApproveReturnRequest 审批通过回款申请
// 对回款行与持仓行持悲观锁；本金类申请以（可能被调整过的）
// 放款金额再次校验并单调扣减剩余本金；放款流水携带支付方式。
func (s *Service) ApproveReturnRequest(ctx context.Context, cmd ApproveReturnCommand) (*ReturnApprovalResult, error) {
	var result *ReturnApprovalResult
	err := s.requests.Transaction(ctx, func(ctx context.Context) error {
		ret, err := s.returns.GetWithLock(ctx, cmd.ReturnID)
		if err != nil {
			return err
		}
		if ret.Status == domain.ReturnApproved || ret.Status == domain.ReturnPaid {
			result = &ReturnApprovalResult{Request: ret, AlreadyApproved: true}
			return nil
		}

		amount := ret.RequestedAmount
		if cmd.ApprovedAmount != nil {
			amount = *cmd.ApprovedAmount
		}
		if !amount.IsPositive() {
			return fmt.Errorf("approved amount must be positive")
		}

		position, err := s.ledger.GetPositionWithLock(ctx, ret.PositionTxnID)
		if err != nil {
			return err
		}

		payoutType := domain.TxnPayoutInterest
		if ret.Type.AffectsPrincipal() {
			if err := position.ReducePrincipal(amount); err != nil {
				return err
			}
			if err := s.ledger.UpdatePosition(ctx, position); err != nil {
				return err
			}
			payoutType = domain.TxnPayoutPrincipal
		}

		if err := ret.Approve(cmd.ReviewerID, amount, cmd.PaymentMethod, cmd.PaymentReference); err != nil {
			return err
		}
		if err := s.returns.Save(ctx, ret); err != nil {
			return err
		}

		payout := &domain.FundTransaction{
			TxnID:                fmt.Sprintf("TXN-%d", idgen.GenID()),
			CustomerID:           ret.CustomerID,
			SourceSubscriptionID: position.DestSubscriptionID,
			Type:                 payoutType,
			Amount:               amount,
			Currency:             position.Currency,
			EffectiveAt:          time.Now(),
			CorrelationID:        ret.ReturnID,
			CreatedBy:            cmd.ReviewerID,
		}
		if err := s.ledger.Append(ctx, payout); err != nil {
			return err
		}

		summary, err := s.summaries.GetOrCreate(ctx, ret.CustomerID)
		if err != nil {
			return err
		}
		if ret.Type.AffectsPrincipal() {
			summary.PrincipalReturned = summary.PrincipalReturned.Add(amount)
			summary.CurrentBalance = summary.CurrentBalance.Sub(amount)
			if position.Closed() {
				summary.ActiveCount--
			}
		} else {
			summary.InterestPaid = summary.InterestPaid.Add(amount)
		}
		if err := s.summaries.Save(ctx, summary); err != nil {
			return err
		}

		result = &ReturnApprovalResult{Request: ret, Payout: payout}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyApproved {
		if s.metrics != nil && result.Request.Type.AffectsPrincipal() {
			// 持仓可能因本金清零而关闭
			position, err := s.ledger.GetByTxnID(ctx, result.Request.PositionTxnID)
			if err == nil && position.Closed() {
				s.metrics.PositionsActive.Dec()
			}
		}
		s.logger.InfoContext(ctx, "return request approved",
			"return_id", cmd.ReturnID,
			"reviewer_id", cmd.ReviewerID,
			"amount", result.Request.ApprovedAmount,
			"payout_txn_id", result.Payout.TxnID)
	}
	return result, nil
}

// RejectReturnRequest 审批拒绝回款申请，终态
func (s *Service) RejectReturnRequest(ctx context.Context, returnID, reviewerID, reason string) (*domain.ReturnRequest, error) {
	if reason == "" {
		return nil, fmt.Errorf("rejection reason is required")
	}
	reason = utils.TruncateString(reason, 255)

	var ret *domain.ReturnRequest
	err := s.requests.Transaction(ctx, func(ctx context.Context) error {
		locked, err := s.returns.GetWithLock(ctx, returnID)
		if err != nil {
			return err
		}
		if err := locked.Reject(reviewerID, reason); err != nil {
			return err
		}
		if err := s.returns.Save(ctx, locked); err != nil {
			return err
		}
		ret = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// MarkReturnPaid 放款终态登记
// 审批与放款解耦：approved 未 paid 是可观测状态。
func (s *Service) MarkReturnPaid(ctx context.Context, returnID string) (*domain.ReturnRequest, error) {
	var ret *domain.ReturnRequest
	err := s.requests.Transaction(ctx, func(ctx context.Context) error {
		locked, err := s.returns.GetWithLock(ctx, returnID)
		if err != nil {
			return err
		}
		if err := locked.MarkPaid(time.Now()); err != nil {
			return err
		}
		if err := s.returns.Save(ctx, locked); err != nil {
			return err
		}
		ret = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "return request marked paid", "return_id", returnID)
	return ret, nil
}

// TopupCommand 券商余额充值命令
type TopupCommand struct {
	SubscriptionID string
	Amount         decimal.Decimal
	CreatedBy      string
}

// Topup 券商余额充值
// 目标须为激活的跨境券商订阅；余额变更与流水在同一事务。
func (s *Service) Topup(ctx context.Context, cmd TopupCommand) (*domain.FundTransaction, error) {
	if !cmd.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}

	var txn *domain.FundTransaction
	err := s.subscriptions.Transaction(ctx, func(ctx context.Context) error {
		sub, err := s.subscriptions.GetWithLock(ctx, cmd.SubscriptionID)
		if err != nil {
			return err
		}
		if sub.ServiceType != catalogdomain.ServiceIntlBrokerage || !sub.Active {
			return domain.ErrInvalidServiceTarget
		}

		sub.Credit(cmd.Amount)
		if err := s.subscriptions.Save(ctx, sub); err != nil {
			return err
		}

		txn = &domain.FundTransaction{
			TxnID:              fmt.Sprintf("TXN-%d", idgen.GenID()),
			CustomerID:         sub.CustomerID,
			DestSubscriptionID: sub.SubscriptionID,
			Type:               domain.TxnTopup,
			Amount:             cmd.Amount,
			Currency:           sub.Currency,
			EffectiveAt:        time.Now(),
			CreatedBy:          cmd.CreatedBy,
		}
		return s.ledger.Append(ctx, txn)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "brokerage balance topup",
		"subscription_id", cmd.SubscriptionID, "amount", cmd.Amount)
	return txn, nil
}

// TransferCommand 余额划转命令
type TransferCommand struct {
	SourceSubscriptionID string
	DestSubscriptionID   string
	Amount               decimal.Decimal
	CreatedBy            string
}

// Transfer 券商余额划转至保本理财
// 源须为激活的跨境券商订阅，目标须为激活的保本理财订阅；
// 余额校验在任何写入前完成，两侧余额变更与流水同事务提交。
func (s *Service) Transfer(ctx context.Context, cmd TransferCommand) (*domain.FundTransaction, error) {
	if !cmd.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}

	var txn *domain.FundTransaction
	err := s.subscriptions.Transaction(ctx, func(ctx context.Context) error {
		source, err := s.subscriptions.GetWithLock(ctx, cmd.SourceSubscriptionID)
		if err != nil {
			return err
		}
		if source.ServiceType != catalogdomain.ServiceIntlBrokerage || !source.Active {
			return domain.ErrInvalidServiceTarget
		}
		dest, err := s.subscriptions.GetWithLock(ctx, cmd.DestSubscriptionID)
		if err != nil {
			return err
		}
		if dest.ServiceType != catalogdomain.ServiceGuaranteed || !dest.Active {
			return domain.ErrInvalidServiceTarget
		}

		if err := source.Debit(cmd.Amount); err != nil {
			return err
		}
		dest.Credit(cmd.Amount)

		if err := s.subscriptions.Save(ctx, source); err != nil {
			return err
		}
		if err := s.subscriptions.Save(ctx, dest); err != nil {
			return err
		}

		txn = &domain.FundTransaction{
			TxnID:                fmt.Sprintf("TXN-%d", idgen.GenID()),
			CustomerID:           source.CustomerID,
			SourceSubscriptionID: source.SubscriptionID,
			DestSubscriptionID:   dest.SubscriptionID,
			Type:                 domain.TxnTransfer,
			Amount:               cmd.Amount,
			Currency:             source.Currency,
			EffectiveAt:          time.Now(),
			CreatedBy:            cmd.CreatedBy,
		}
		return s.ledger.Append(ctx, txn)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "balance transfer completed",
		"source", cmd.SourceSubscriptionID,
		"dest", cmd.DestSubscriptionID,
		"amount", cmd.Amount)
	return txn, nil
}
