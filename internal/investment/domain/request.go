package domain

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RequestStatus 投资申请状态
type RequestStatus string

const (
	RequestPendingReview RequestStatus = "PENDING_ADMIN_REVIEW"
	RequestApproved      RequestStatus = "APPROVED"
	RequestRejected      RequestStatus = "REJECTED"
)

// InvestmentRequest 投资申请实体
// 档位与利率在提交时解析并固化，避免审批前配置变更带来利率漂移；
// 仅当固化的配置已消失时才在审批时按原风险偏好重算。
type InvestmentRequest struct {
	gorm.Model
	RequestID      string          `gorm:"column:request_id;type:varchar(32);uniqueIndex;not null"`
	CustomerID     string          `gorm:"column:customer_id;type:varchar(32);index;not null"`
	SubscriptionID string          `gorm:"column:subscription_id;type:varchar(32);index;not null"`
	Amount         decimal.Decimal `gorm:"column:amount;type:decimal(32,18);not null"`
	RiskTolerance  RiskTolerance   `gorm:"column:risk_tolerance;type:varchar(10);not null"`
	// 客户自由文本填写的期望期限
	RequestedPeriod string          `gorm:"column:requested_period;type:varchar(50)"`
	TierName        string          `gorm:"column:tier_name;type:varchar(40)"`
	Rate            decimal.Decimal `gorm:"column:rate;type:decimal(32,18);not null;default:0"`
	ConfigID        string          `gorm:"column:config_id;type:varchar(32)"`
	Status          RequestStatus   `gorm:"column:status;type:varchar(30);not null;default:'PENDING_ADMIN_REVIEW'"`
	ReviewerID      string          `gorm:"column:reviewer_id;type:varchar(32)"`
	ReviewedAt      *time.Time      `gorm:"column:reviewed_at"`
	RejectReason    string          `gorm:"column:reject_reason;type:varchar(255)"`
	TermMonths      int             `gorm:"column:term_months;not null;default:0"`
}

// TableName 表名
func (InvestmentRequest) TableName() string { return "investment_requests" }

// Approve 审批通过，单向
func (r *InvestmentRequest) Approve(reviewerID string, termMonths int) error {
	if r.Status != RequestPendingReview {
		return ErrRequestClosed
	}
	now := time.Now()
	r.Status = RequestApproved
	r.ReviewerID = reviewerID
	r.ReviewedAt = &now
	r.TermMonths = termMonths
	return nil
}

// Reject 审批拒绝，终态
func (r *InvestmentRequest) Reject(reviewerID, reason string) error {
	if r.Status != RequestPendingReview {
		return ErrRequestClosed
	}
	now := time.Now()
	r.Status = RequestRejected
	r.ReviewerID = reviewerID
	r.ReviewedAt = &now
	r.RejectReason = reason
	return nil
}

// defaultTermMonths 自由文本无法解析时的缺省期限
const defaultTermMonths = 12

// ParseTermMonths 解析客户自由文本的期望期限为月数
// 接受 "6 months"、"1 year"、"18个月"、"2年" 及裸数字（按月），
// 无法解析时回落到 12 个月。
func ParseTermMonths(period string) int {
	text := strings.ToLower(strings.TrimSpace(period))
	if text == "" {
		return defaultTermMonths
	}

	var digits strings.Builder
	for _, r := range text {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		} else if digits.Len() > 0 {
			break
		}
	}
	if digits.Len() == 0 {
		return defaultTermMonths
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil || n <= 0 {
		return defaultTermMonths
	}

	if strings.Contains(text, "year") || strings.Contains(text, "yr") || strings.Contains(text, "年") {
		return n * 12
	}
	return n
}
