package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentType 支付类型
type PaymentType string

const (
	PaymentTypeSubscription PaymentType = "SUBSCRIPTION" // 首次订阅
	PaymentTypeRenewal      PaymentType = "RENEWAL"      // 续期
)

// PaymentMethod 支付方式
type PaymentMethod string

const (
	MethodGateway    PaymentMethod = "GATEWAY"     // 网关支付
	MethodManualSlip PaymentMethod = "MANUAL_SLIP" // 人工凭证
)

// PaymentStatus 支付状态
type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "PENDING"
	PaymentSlipSubmitted PaymentStatus = "SLIP_SUBMITTED"
	PaymentSucceeded     PaymentStatus = "SUCCEEDED"
	PaymentFailed        PaymentStatus = "FAILED"
	PaymentCanceled      PaymentStatus = "CANCELED"
)

var (
	// ErrAmountMismatch 凭证金额与应付费用超出容差
	ErrAmountMismatch = errors.New("payment amount mismatch")
	// ErrPaymentClosed 支付已进入终态，拒绝再次流转
	ErrPaymentClosed = errors.New("payment already in terminal status")
)

// amountTolerance 金额容差，1 分钱以内视为相等
var amountTolerance = decimal.RequireFromString("0.01")

// AmountWithinTolerance 金额容差校验，携带双方金额便于调用方纠错重提
func AmountWithinTolerance(amount, fee decimal.Decimal) error {
	if amount.Sub(fee).Abs().GreaterThan(amountTolerance) {
		return fmt.Errorf("%w: amount %s does not match fee %s", ErrAmountMismatch, amount, fee)
	}
	return nil
}

// Payment 支付记录实体
// succeeded 之后不可变；拒绝是独立操作且必须给出原因。
type Payment struct {
	gorm.Model
	PaymentID      string          `gorm:"column:payment_id;type:varchar(32);uniqueIndex;not null"`
	CustomerID     string          `gorm:"column:customer_id;type:varchar(32);index;not null"`
	SubscriptionID string          `gorm:"column:subscription_id;type:varchar(32);index;not null"`
	Type           PaymentType     `gorm:"column:type;type:varchar(20);not null"`
	Method         PaymentMethod   `gorm:"column:method;type:varchar(20);not null"`
	Amount         decimal.Decimal `gorm:"column:amount;type:decimal(32,18);not null"`
	Currency       string          `gorm:"column:currency;type:varchar(10);not null;default:'USD'"`
	Status         PaymentStatus   `gorm:"column:status;type:varchar(20);not null"`
	// 合成的人工支付参考号，形如 MANUAL-xxx
	ReferenceID     string     `gorm:"column:reference_id;type:varchar(64)"`
	SlipReference   string     `gorm:"column:slip_reference;type:varchar(128)"`
	SlipFilename    string     `gorm:"column:slip_filename;type:varchar(255)"`
	SlipSubmittedAt *time.Time `gorm:"column:slip_submitted_at"`
	ApproverID      string     `gorm:"column:approver_id;type:varchar(32)"`
	ApprovedAt      *time.Time `gorm:"column:approved_at"`
	AdminNotes      string     `gorm:"column:admin_notes;type:varchar(512)"`
	GatewayIntentID string     `gorm:"column:gateway_intent_id;type:varchar(64)"`
}

// TableName 表名
func (Payment) TableName() string { return "payments" }

// NewPayment 创建待处理支付记录
func NewPayment(paymentID, customerID, subscriptionID string, paymentType PaymentType, method PaymentMethod, amount decimal.Decimal, currency string) *Payment {
	return &Payment{
		PaymentID:      paymentID,
		CustomerID:     customerID,
		SubscriptionID: subscriptionID,
		Type:           paymentType,
		Method:         method,
		Amount:         amount,
		Currency:       currency,
		Status:         PaymentPending,
	}
}

// AttachSlip 附加支付凭证元数据，用于申请时内联提交
func (p *Payment) AttachSlip(reference, filename string, submittedAt time.Time) {
	p.SlipReference = reference
	p.SlipFilename = filename
	p.SlipSubmittedAt = &submittedAt
}

// SubmitSlip 独立的凭证补交步骤，仅 pending 可流转
func (p *Payment) SubmitSlip(reference, filename string, submittedAt time.Time) error {
	if p.Status != PaymentPending {
		return ErrPaymentClosed
	}
	p.AttachSlip(reference, filename, submittedAt)
	p.Status = PaymentSlipSubmitted
	return nil
}

// Approvable 是否处于可审批状态
// 凭证可能在申请时内联提交，也可能独立补交，两种来源都接受。
func (p *Payment) Approvable() bool {
	return p.Status == PaymentPending || p.Status == PaymentSlipSubmitted
}

// Approve 审批通过，金额须与应付费用在容差内一致
func (p *Payment) Approve(approverID, notes string, fee decimal.Decimal, now time.Time) error {
	if !p.Approvable() {
		return ErrPaymentClosed
	}
	if err := AmountWithinTolerance(p.Amount, fee); err != nil {
		return err
	}
	p.Status = PaymentSucceeded
	p.ApproverID = approverID
	p.ApprovedAt = &now
	p.AdminNotes = notes
	return nil
}

// Reject 审批拒绝，原因必填，不自动重试
func (p *Payment) Reject(approverID, reason string, now time.Time) error {
	if reason == "" {
		return fmt.Errorf("rejection reason is required")
	}
	if !p.Approvable() {
		return ErrPaymentClosed
	}
	p.Status = PaymentFailed
	p.ApproverID = approverID
	p.ApprovedAt = &now
	p.AdminNotes = reason
	return nil
}
