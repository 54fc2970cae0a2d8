package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TxnType 资金流水类型
type TxnType string

const (
	TxnTopup           TxnType = "TOPUP"            // 券商余额充值
	TxnTransfer        TxnType = "TRANSFER"         // 券商余额划转
	TxnFund            TxnType = "FUND"             // 投资持仓开仓
	TxnAccrual         TxnType = "ACCRUAL"          // 利息计提
	TxnPayoutInterest  TxnType = "PAYOUT_INTEREST"  // 利息支付
	TxnPayoutPrincipal TxnType = "PAYOUT_PRINCIPAL" // 本金返还
	TxnAdjustment      TxnType = "ADJUSTMENT"       // 人工调整
	TxnReversal        TxnType = "REVERSAL"         // 冲正
)

// FundTransaction 资金流水，只追加的全量资金移动审计
// FUND 类型行额外携带持仓字段：投资持仓是流水中的带字段子集，
// 剩余本金是唯一允许事后变更的字段，且只能单调递减。
type FundTransaction struct {
	gorm.Model
	TxnID      string `gorm:"column:txn_id;type:varchar(32);uniqueIndex;not null"`
	CustomerID string `gorm:"column:customer_id;type:varchar(32);index;not null"`
	// 资金来源/去向订阅，空串表示外部
	SourceSubscriptionID string          `gorm:"column:source_subscription_id;type:varchar(32);index"`
	DestSubscriptionID   string          `gorm:"column:dest_subscription_id;type:varchar(32);index"`
	Type                 TxnType         `gorm:"column:type;type:varchar(20);index;not null"`
	Amount               decimal.Decimal `gorm:"column:amount;type:decimal(32,18);not null"`
	Currency             string          `gorm:"column:currency;type:varchar(10);not null;default:'USD'"`
	EffectiveAt          time.Time       `gorm:"column:effective_at;not null"`
	CorrelationID        string          `gorm:"column:correlation_id;type:varchar(64)"`
	CreatedBy            string          `gorm:"column:created_by;type:varchar(32)"`

	// 持仓字段，仅 FUND 类型行有意义
	RequestID          string          `gorm:"column:request_id;type:varchar(32);index"`
	PrincipalOriginal  decimal.Decimal `gorm:"column:principal_original;type:decimal(32,18);not null;default:0"`
	PrincipalRemaining decimal.Decimal `gorm:"column:principal_remaining;type:decimal(32,18);not null;default:0"`
	Rate               decimal.Decimal `gorm:"column:rate;type:decimal(32,18);not null;default:0"`
	TermMonths         int             `gorm:"column:term_months;not null;default:0"`
	StartDate          *time.Time      `gorm:"column:start_date"`
}

// TableName 表名
func (FundTransaction) TableName() string { return "fund_transactions" }

// NewFundPosition 开仓：剩余本金 = 原始本金 = 投资金额
func NewFundPosition(txnID, customerID, subscriptionID, requestID string, amount, rate decimal.Decimal, termMonths int, currency string, startDate time.Time) *FundTransaction {
	return &FundTransaction{
		TxnID:              txnID,
		CustomerID:         customerID,
		DestSubscriptionID: subscriptionID,
		Type:               TxnFund,
		Amount:             amount,
		Currency:           currency,
		EffectiveAt:        startDate,
		CorrelationID:      requestID,
		RequestID:          requestID,
		PrincipalOriginal:  amount,
		PrincipalRemaining: amount,
		Rate:               rate,
		TermMonths:         termMonths,
		StartDate:          &startDate,
	}
}

// IsPosition 是否为持仓行
func (t *FundTransaction) IsPosition() bool {
	return t.Type == TxnFund
}

// ReducePrincipal 单调扣减剩余本金，超额即失败且不作变更
func (t *FundTransaction) ReducePrincipal(amount decimal.Decimal) error {
	if amount.GreaterThan(t.PrincipalRemaining) {
		return fmt.Errorf("%w: requested %s exceeds remaining %s", ErrInsufficientPrincipal, amount, t.PrincipalRemaining)
	}
	t.PrincipalRemaining = t.PrincipalRemaining.Sub(amount)
	return nil
}

// Closed 本金是否已全部返还
func (t *FundTransaction) Closed() bool {
	return t.PrincipalRemaining.IsZero()
}

// CustomerInvestmentSummary 客户投资汇总，随账本写入事务内维护
// 账本是事实来源，汇总随时可由账本重新推导。
type CustomerInvestmentSummary struct {
	gorm.Model
	CustomerID        string          `gorm:"column:customer_id;type:varchar(32);uniqueIndex;not null"`
	TotalRequests     int             `gorm:"column:total_requests;not null;default:0"`
	ApprovedCount     int             `gorm:"column:approved_count;not null;default:0"`
	ActiveCount       int             `gorm:"column:active_count;not null;default:0"`
	OriginalBalance   decimal.Decimal `gorm:"column:original_balance;type:decimal(32,18);not null;default:0"`
	CurrentBalance    decimal.Decimal `gorm:"column:current_balance;type:decimal(32,18);not null;default:0"`
	InterestPaid      decimal.Decimal `gorm:"column:interest_paid;type:decimal(32,18);not null;default:0"`
	PrincipalReturned decimal.Decimal `gorm:"column:principal_returned;type:decimal(32,18);not null;default:0"`
}

// TableName 表名
func (CustomerInvestmentSummary) TableName() string { return "customer_investment_summary" }
