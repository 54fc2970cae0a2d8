package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	catalogdomain "github.com/wyfcoding/wealthservice/internal/catalog/domain"
	"github.com/wyfcoding/wealthservice/internal/investment/domain"
	membershipdomain "github.com/wyfcoding/wealthservice/internal/membership/domain"
)

func TestResolveTier(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// 75000 落入白银档，中风险 = 0.15 + 0.04
	resolution, err := env.svc.ResolveTier(ctx, dec("75000"), domain.RiskMedium)
	require.NoError(t, err)
	assert.Equal(t, "silver", resolution.TierName)
	assert.True(t, resolution.Rate.Equal(dec("0.19")), "rate = %s", resolution.Rate)

	// 区间下界含边界
	resolution, err = env.svc.ResolveTier(ctx, dec("25000"), domain.RiskLow)
	require.NoError(t, err)
	assert.Equal(t, "silver", resolution.TierName)
	assert.True(t, resolution.Rate.Equal(dec("0.17")))

	// 无上界档位
	resolution, err = env.svc.ResolveTier(ctx, dec("2000000"), domain.RiskLow)
	require.NoError(t, err)
	assert.Equal(t, "platinum", resolution.TierName)

	// 低于全部档位硬失败，不静默兜底
	_, err = env.svc.ResolveTier(ctx, dec("500"), domain.RiskMedium)
	assert.ErrorIs(t, err, domain.ErrNoTierForAmount)
}

func TestCreateInvestmentRequestRequiresActiveService(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.svc.CreateInvestmentRequest(ctx, CreateRequestCommand{
		CustomerID:    "CUST-1",
		Amount:        dec("75000"),
		RiskTolerance: domain.RiskMedium,
	})
	assert.ErrorIs(t, err, domain.ErrNoActiveService)

	// 已失效的订阅同样不行
	env.seedSubscription("SUB-OLD", "CUST-1", catalogdomain.ServiceGuaranteed, false, dec("0"))
	_, err = env.svc.CreateInvestmentRequest(ctx, CreateRequestCommand{
		CustomerID:    "CUST-1",
		Amount:        dec("75000"),
		RiskTolerance: domain.RiskMedium,
	})
	assert.ErrorIs(t, err, domain.ErrNoActiveService)
}

func TestCreateInvestmentRequestPinsTier(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.seedSubscription("SUB-G1", "CUST-1", catalogdomain.ServiceGuaranteed, true, dec("0"))

	req, err := env.svc.CreateInvestmentRequest(ctx, CreateRequestCommand{
		CustomerID:      "CUST-1",
		Amount:          dec("75000"),
		RiskTolerance:   domain.RiskMedium,
		RequestedPeriod: "1 year",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestPendingReview, req.Status)
	assert.Equal(t, "SUB-G1", req.SubscriptionID)
	assert.Equal(t, "silver", req.TierName)
	assert.Equal(t, "TIER-SILVER", req.ConfigID)
	assert.True(t, req.Rate.Equal(dec("0.19")))

	summary, err := env.svc.GetSummary(ctx, "CUST-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalRequests)
	assert.Equal(t, 0, summary.ApprovedCount)
}

func TestApproveInvestmentRequestIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	sub := env.seedSubscription("SUB-G1", "CUST-1", catalogdomain.ServiceGuaranteed, true, dec("0"))

	req, err := env.svc.CreateInvestmentRequest(ctx, CreateRequestCommand{
		CustomerID:      "CUST-1",
		Amount:          dec("75000"),
		RiskTolerance:   domain.RiskMedium,
		RequestedPeriod: "2 years",
	})
	require.NoError(t, err)

	result, err := env.svc.ApproveInvestmentRequest(ctx, req.RequestID, "ADMIN-1")
	require.NoError(t, err)
	assert.False(t, result.AlreadyApproved)
	assert.Equal(t, domain.RequestApproved, result.Request.Status)
	assert.Equal(t, 24, result.Request.TermMonths)

	// 开仓行：剩余本金 = 原始本金 = 投资金额
	position := result.Position
	require.NotNil(t, position)
	assert.Equal(t, domain.TxnFund, position.Type)
	assert.Equal(t, "SUB-G1", position.DestSubscriptionID)
	assert.True(t, position.PrincipalOriginal.Equal(dec("75000")))
	assert.True(t, position.PrincipalRemaining.Equal(dec("75000")))
	assert.True(t, position.Rate.Equal(dec("0.19")))

	assert.True(t, sub.InvestedAmount.Equal(dec("75000")))

	summary, err := env.svc.GetSummary(ctx, "CUST-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ApprovedCount)
	assert.Equal(t, 1, summary.ActiveCount)
	assert.True(t, summary.CurrentBalance.Equal(dec("75000")))

	require.Len(t, env.notifier.approvals, 1)
	assert.Equal(t, req.RequestID, env.notifier.approvals[0].RequestID)

	// 重复审批是幂等空操作，不产生第二笔持仓与记账
	again, err := env.svc.ApproveInvestmentRequest(ctx, req.RequestID, "ADMIN-2")
	require.NoError(t, err)
	assert.True(t, again.AlreadyApproved)
	assert.Equal(t, "ADMIN-1", again.Request.ReviewerID)
	assert.Equal(t, 1, env.ledger.countByType(domain.TxnFund))
	assert.True(t, sub.InvestedAmount.Equal(dec("75000")))
	assert.Len(t, env.notifier.approvals, 1)

	summary, err = env.svc.GetSummary(ctx, "CUST-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ApprovedCount)
}

func TestApproveRecomputesRateWhenConfigGone(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.seedSubscription("SUB-G1", "CUST-1", catalogdomain.ServiceGuaranteed, true, dec("0"))

	req, err := env.svc.CreateInvestmentRequest(ctx, CreateRequestCommand{
		CustomerID:    "CUST-1",
		Amount:        dec("75000"),
		RiskTolerance: domain.RiskMedium,
	})
	require.NoError(t, err)
	assert.Equal(t, "TIER-SILVER", req.ConfigID)

	// 固化的档位在审批前被下线并替换
	for _, cfg := range env.configs.configs {
		if cfg.ConfigID == "TIER-SILVER" {
			cfg.Active = false
		}
	}
	require.NoError(t, env.configs.Save(ctx, &domain.InterestRateConfig{
		ConfigID:     "TIER-SILVER-V2",
		Name:         "silver v2",
		MinAmount:    dec("25000"),
		MaxAmount:    decPtr("99999.99"),
		BaseRate:     dec("0.12"),
		AdjustMedium: dec("0.03"),
		SortOrder:    2,
		Active:       true,
	}))

	result, err := env.svc.ApproveInvestmentRequest(ctx, req.RequestID, "ADMIN-1")
	require.NoError(t, err)
	assert.Equal(t, "silver v2", result.Request.TierName)
	assert.Equal(t, "TIER-SILVER-V2", result.Request.ConfigID)
	assert.True(t, result.Request.Rate.Equal(dec("0.15")), "rate = %s", result.Request.Rate)
	assert.True(t, result.Position.Rate.Equal(dec("0.15")))
}

func TestApproveRejectedRequestFails(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.seedSubscription("SUB-G1", "CUST-1", catalogdomain.ServiceGuaranteed, true, dec("0"))

	req, err := env.svc.CreateInvestmentRequest(ctx, CreateRequestCommand{
		CustomerID:    "CUST-1",
		Amount:        dec("75000"),
		RiskTolerance: domain.RiskMedium,
	})
	require.NoError(t, err)

	_, err = env.svc.RejectInvestmentRequest(ctx, req.RequestID, "ADMIN-1", "")
	assert.Error(t, err, "rejection without reason must fail")

	rejected, err := env.svc.RejectInvestmentRequest(ctx, req.RequestID, "ADMIN-1", "source of funds unclear")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestRejected, rejected.Status)

	_, err = env.svc.ApproveInvestmentRequest(ctx, req.RequestID, "ADMIN-2")
	assert.ErrorIs(t, err, domain.ErrRequestClosed)
	assert.Equal(t, 0, env.ledger.countByType(domain.TxnFund))
}

// approvedPosition 建好一笔已审批持仓供回款用例复用
func approvedPosition(t *testing.T, env *testEnv, amount string) *domain.FundTransaction {
	t.Helper()
	ctx := context.Background()
	env.seedSubscription("SUB-G1", "CUST-1", catalogdomain.ServiceGuaranteed, true, dec("0"))

	req, err := env.svc.CreateInvestmentRequest(ctx, CreateRequestCommand{
		CustomerID:    "CUST-1",
		Amount:        dec(amount),
		RiskTolerance: domain.RiskMedium,
	})
	require.NoError(t, err)
	result, err := env.svc.ApproveInvestmentRequest(ctx, req.RequestID, "ADMIN-1")
	require.NoError(t, err)
	return result.Position
}

func TestCreateReturnRequestValidatesPrincipal(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	position := approvedPosition(t, env, "75000")

	_, err := env.svc.CreateReturnRequest(ctx, CreateReturnCommand{
		CustomerID:    "CUST-1",
		PositionTxnID: position.TxnID,
		Type:          domain.ReturnPrincipalPartial,
		Amount:        dec("80000"),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientPrincipal)

	// 他人的持仓不可见
	_, err = env.svc.CreateReturnRequest(ctx, CreateReturnCommand{
		CustomerID:    "CUST-2",
		PositionTxnID: position.TxnID,
		Type:          domain.ReturnInterest,
		Amount:        dec("100"),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ret, err := env.svc.CreateReturnRequest(ctx, CreateReturnCommand{
		CustomerID:    "CUST-1",
		PositionTxnID: position.TxnID,
		Type:          domain.ReturnPrincipalPartial,
		Amount:        dec("30000"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReturnPending, ret.Status)

	// 创建阶段不移动资金
	assert.True(t, position.PrincipalRemaining.Equal(dec("75000")))
	assert.Equal(t, 0, env.ledger.countByType(domain.TxnPayoutPrincipal))
}

func TestApproveReturnReducesPrincipal(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	position := approvedPosition(t, env, "75000")

	ret, err := env.svc.CreateReturnRequest(ctx, CreateReturnCommand{
		CustomerID:    "CUST-1",
		PositionTxnID: position.TxnID,
		Type:          domain.ReturnPrincipalPartial,
		Amount:        dec("30000"),
	})
	require.NoError(t, err)

	// 管理员调整放款金额
	adjusted := dec("25000")
	result, err := env.svc.ApproveReturnRequest(ctx, ApproveReturnCommand{
		ReturnID:         ret.ReturnID,
		ReviewerID:       "ADMIN-1",
		ApprovedAmount:   &adjusted,
		PaymentMethod:    "BANK_TRANSFER",
		PaymentReference: "WIRE-001",
	})
	require.NoError(t, err)
	assert.False(t, result.AlreadyApproved)
	assert.Equal(t, domain.ReturnApproved, result.Request.Status)
	assert.True(t, result.Request.ApprovedAmount.Equal(dec("25000")))

	assert.Equal(t, domain.TxnPayoutPrincipal, result.Payout.Type)
	assert.Equal(t, "SUB-G1", result.Payout.SourceSubscriptionID)
	assert.True(t, position.PrincipalRemaining.Equal(dec("50000")))

	summary, err := env.svc.GetSummary(ctx, "CUST-1")
	require.NoError(t, err)
	assert.True(t, summary.PrincipalReturned.Equal(dec("25000")))
	assert.True(t, summary.CurrentBalance.Equal(dec("50000")))
	assert.Equal(t, 1, summary.ActiveCount, "partial payout keeps position open")

	// 重复审批是幂等空操作
	again, err := env.svc.ApproveReturnRequest(ctx, ApproveReturnCommand{ReturnID: ret.ReturnID, ReviewerID: "ADMIN-2"})
	require.NoError(t, err)
	assert.True(t, again.AlreadyApproved)
	assert.True(t, position.PrincipalRemaining.Equal(dec("50000")))
	assert.Equal(t, 1, env.ledger.countByType(domain.TxnPayoutPrincipal))
}

func TestApproveReturnInterestKeepsPrincipal(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	position := approvedPosition(t, env, "75000")

	ret, err := env.svc.CreateReturnRequest(ctx, CreateReturnCommand{
		CustomerID:    "CUST-1",
		PositionTxnID: position.TxnID,
		Type:          domain.ReturnInterest,
		Amount:        dec("3562.50"),
	})
	require.NoError(t, err)

	result, err := env.svc.ApproveReturnRequest(ctx, ApproveReturnCommand{ReturnID: ret.ReturnID, ReviewerID: "ADMIN-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.TxnPayoutInterest, result.Payout.Type)
	assert.True(t, position.PrincipalRemaining.Equal(dec("75000")))

	summary, err := env.svc.GetSummary(ctx, "CUST-1")
	require.NoError(t, err)
	assert.True(t, summary.InterestPaid.Equal(dec("3562.50")))
	assert.True(t, summary.CurrentBalance.Equal(dec("75000")))
}

func TestFullPrincipalReturnClosesPosition(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	position := approvedPosition(t, env, "75000")

	ret, err := env.svc.CreateReturnRequest(ctx, CreateReturnCommand{
		CustomerID:    "CUST-1",
		PositionTxnID: position.TxnID,
		Type:          domain.ReturnPrincipalFull,
		Amount:        dec("75000"),
	})
	require.NoError(t, err)

	_, err = env.svc.ApproveReturnRequest(ctx, ApproveReturnCommand{ReturnID: ret.ReturnID, ReviewerID: "ADMIN-1"})
	require.NoError(t, err)
	assert.True(t, position.PrincipalRemaining.IsZero())
	assert.True(t, position.Closed())

	summary, err := env.svc.GetSummary(ctx, "CUST-1")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.ActiveCount)
	assert.True(t, summary.CurrentBalance.IsZero())

	// 关仓后的再次本金申请在创建时即被拒
	_, err = env.svc.CreateReturnRequest(ctx, CreateReturnCommand{
		CustomerID:    "CUST-1",
		PositionTxnID: position.TxnID,
		Type:          domain.ReturnPrincipalPartial,
		Amount:        dec("1"),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientPrincipal)
}

func TestMarkReturnPaidIsSeparateStep(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	position := approvedPosition(t, env, "75000")

	ret, err := env.svc.CreateReturnRequest(ctx, CreateReturnCommand{
		CustomerID:    "CUST-1",
		PositionTxnID: position.TxnID,
		Type:          domain.ReturnInterest,
		Amount:        dec("100"),
	})
	require.NoError(t, err)

	// 未审批不可放款
	_, err = env.svc.MarkReturnPaid(ctx, ret.ReturnID)
	assert.ErrorIs(t, err, domain.ErrRequestClosed)

	_, err = env.svc.ApproveReturnRequest(ctx, ApproveReturnCommand{ReturnID: ret.ReturnID, ReviewerID: "ADMIN-1"})
	require.NoError(t, err)

	paid, err := env.svc.MarkReturnPaid(ctx, ret.ReturnID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReturnPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	_, err = env.svc.MarkReturnPaid(ctx, ret.ReturnID)
	assert.ErrorIs(t, err, domain.ErrRequestClosed)
}

func TestTopupValidatesTarget(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	guaranteed := env.seedSubscription("SUB-G1", "CUST-1", catalogdomain.ServiceGuaranteed, true, dec("0"))
	brokerage := env.seedSubscription("SUB-B1", "CUST-1", catalogdomain.ServiceIntlBrokerage, true, dec("0"))
	inactive := env.seedSubscription("SUB-B2", "CUST-2", catalogdomain.ServiceIntlBrokerage, false, dec("0"))

	_, err := env.svc.Topup(ctx, TopupCommand{SubscriptionID: guaranteed.SubscriptionID, Amount: dec("100")})
	assert.ErrorIs(t, err, domain.ErrInvalidServiceTarget)

	_, err = env.svc.Topup(ctx, TopupCommand{SubscriptionID: inactive.SubscriptionID, Amount: dec("100")})
	assert.ErrorIs(t, err, domain.ErrInvalidServiceTarget)

	txn, err := env.svc.Topup(ctx, TopupCommand{SubscriptionID: brokerage.SubscriptionID, Amount: dec("300")})
	require.NoError(t, err)
	assert.Equal(t, domain.TxnTopup, txn.Type)
	assert.Equal(t, "SUB-B1", txn.DestSubscriptionID)
	assert.True(t, brokerage.Balance.Equal(dec("300")))
}

func TestTransferInsufficientBalance(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	guaranteed := env.seedSubscription("SUB-G1", "CUST-1", catalogdomain.ServiceGuaranteed, true, dec("0"))
	brokerage := env.seedSubscription("SUB-B1", "CUST-1", catalogdomain.ServiceIntlBrokerage, true, dec("300"))

	_, err := env.svc.Transfer(ctx, TransferCommand{
		SourceSubscriptionID: brokerage.SubscriptionID,
		DestSubscriptionID:   guaranteed.SubscriptionID,
		Amount:               dec("500"),
	})
	assert.ErrorIs(t, err, membershipdomain.ErrInsufficientBalance)

	// 失败即中止，两侧余额未变、无流水落账
	assert.True(t, brokerage.Balance.Equal(dec("300")))
	assert.True(t, guaranteed.Balance.IsZero())
	assert.Equal(t, 0, env.ledger.countByType(domain.TxnTransfer))

	txn, err := env.svc.Transfer(ctx, TransferCommand{
		SourceSubscriptionID: brokerage.SubscriptionID,
		DestSubscriptionID:   guaranteed.SubscriptionID,
		Amount:               dec("200"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxnTransfer, txn.Type)
	assert.True(t, brokerage.Balance.Equal(dec("100")))
	assert.True(t, guaranteed.Balance.Equal(dec("200")))
}

func TestTransferValidatesEndpoints(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	guaranteed := env.seedSubscription("SUB-G1", "CUST-1", catalogdomain.ServiceGuaranteed, true, dec("100"))
	brokerage := env.seedSubscription("SUB-B1", "CUST-1", catalogdomain.ServiceIntlBrokerage, true, dec("100"))

	// 只允许券商 -> 保本理财方向
	_, err := env.svc.Transfer(ctx, TransferCommand{
		SourceSubscriptionID: guaranteed.SubscriptionID,
		DestSubscriptionID:   brokerage.SubscriptionID,
		Amount:               dec("50"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidServiceTarget)

	_, err = env.svc.Transfer(ctx, TransferCommand{
		SourceSubscriptionID: brokerage.SubscriptionID,
		DestSubscriptionID:   brokerage.SubscriptionID,
		Amount:               dec("50"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidServiceTarget)
}
