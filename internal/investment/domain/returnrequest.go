package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReturnType 回款申请类型
type ReturnType string

const (
	ReturnInterest         ReturnType = "INTEREST"          // 仅提取利息
	ReturnPrincipalPartial ReturnType = "PRINCIPAL_PARTIAL" // 部分本金
	ReturnPrincipalFull    ReturnType = "PRINCIPAL_FULL"    // 全部本金
)

// AffectsPrincipal 是否扣减本金
func (t ReturnType) AffectsPrincipal() bool {
	return t == ReturnPrincipalPartial || t == ReturnPrincipalFull
}

// ReturnStatus 回款申请状态
// 审批与放款刻意解耦，approved 未 paid 是可观测的中间态。
type ReturnStatus string

const (
	ReturnPending  ReturnStatus = "PENDING"
	ReturnApproved ReturnStatus = "APPROVED"
	ReturnPaid     ReturnStatus = "PAID"
	ReturnRejected ReturnStatus = "REJECTED"
)

// ReturnRequest 回款申请实体
type ReturnRequest struct {
	gorm.Model
	ReturnID        string          `gorm:"column:return_id;type:varchar(32);uniqueIndex;not null"`
	CustomerID      string          `gorm:"column:customer_id;type:varchar(32);index;not null"`
	PositionTxnID   string          `gorm:"column:position_txn_id;type:varchar(32);index;not null"`
	Type            ReturnType      `gorm:"column:type;type:varchar(20);not null"`
	RequestedAmount decimal.Decimal `gorm:"column:requested_amount;type:decimal(32,18);not null"`
	// 审批时可由管理员调整的实际放款金额
	ApprovedAmount   decimal.Decimal `gorm:"column:approved_amount;type:decimal(32,18);not null;default:0"`
	Status           ReturnStatus    `gorm:"column:status;type:varchar(20);not null;default:'PENDING'"`
	ReviewerID       string          `gorm:"column:reviewer_id;type:varchar(32)"`
	ReviewedAt       *time.Time      `gorm:"column:reviewed_at"`
	RejectReason     string          `gorm:"column:reject_reason;type:varchar(255)"`
	PaymentMethod    string          `gorm:"column:payment_method;type:varchar(30)"`
	PaymentReference string          `gorm:"column:payment_reference;type:varchar(64)"`
	PaidAt           *time.Time      `gorm:"column:paid_at"`
}

// TableName 表名
func (ReturnRequest) TableName() string { return "return_requests" }

// Approve 审批通过，记录实际放款金额与支付方式
func (r *ReturnRequest) Approve(reviewerID string, amount decimal.Decimal, method, reference string) error {
	if r.Status != ReturnPending {
		return ErrRequestClosed
	}
	now := time.Now()
	r.Status = ReturnApproved
	r.ReviewerID = reviewerID
	r.ReviewedAt = &now
	r.ApprovedAmount = amount
	r.PaymentMethod = method
	r.PaymentReference = reference
	return nil
}

// Reject 审批拒绝，终态
func (r *ReturnRequest) Reject(reviewerID, reason string) error {
	if r.Status != ReturnPending {
		return ErrRequestClosed
	}
	now := time.Now()
	r.Status = ReturnRejected
	r.ReviewerID = reviewerID
	r.ReviewedAt = &now
	r.RejectReason = reason
	return nil
}

// MarkPaid 放款终态，仅 approved 可流转
func (r *ReturnRequest) MarkPaid(now time.Time) error {
	if r.Status != ReturnApproved {
		return ErrRequestClosed
	}
	r.Status = ReturnPaid
	r.PaidAt = &now
	return nil
}
