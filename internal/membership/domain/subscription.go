// Package domain 服务订阅领域层
// 1) 定义服务订阅实体与激活/停用/到期规则
// 2) 定义支付实体与金额容差校验
// 3) 定义申请结果标签联合，区分各分支的返回形态
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/wyfcoding/wealthservice/internal/catalog/domain"
	"gorm.io/gorm"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrMissingKYC 客户没有任何可复用的已通过审核记录
	ErrMissingKYC = errors.New("no approved verification record available")
	// ErrPaymentIncomplete 订阅缺少已成功的支付记录
	ErrPaymentIncomplete = errors.New("no succeeded payment for subscription")
	// ErrNoPendingReview 客户没有待审核的身份记录
	ErrNoPendingReview = errors.New("no pending verification record")
	// ErrNothingToRenew 客户名下不存在可续期的订阅实例
	ErrNothingToRenew = errors.New("no existing subscription to renew")
	// ErrInsufficientBalance 余额不足，任何划转前置校验失败即中止
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// ServiceSubscription 服务订阅实体
// 同一 (客户, 服务类型) 的"当前"行由查询时序决定；续期会刻意产生
// 第二行，与原行并存，直至续期审批通过时停用原行。
type ServiceSubscription struct {
	gorm.Model
	SubscriptionID string                    `gorm:"column:subscription_id;type:varchar(32);uniqueIndex;not null"`
	CustomerID     string                    `gorm:"column:customer_id;type:varchar(32);index:idx_sub_customer_type;not null"`
	ServiceType    catalogdomain.ServiceType `gorm:"column:service_type;type:varchar(40);index:idx_sub_customer_type;not null"`
	Active         bool                      `gorm:"column:active;not null;default:false"`
	// 关联的身份审核记录，空串表示未关联
	VerificationRecordID string `gorm:"column:verification_record_id;type:varchar(32)"`
	RequiresPayment      bool   `gorm:"column:requires_payment;not null;default:false"`
	// 订阅经济属性，仅对 subscription_based 服务有意义
	DurationMonths int             `gorm:"column:duration_months;not null;default:0"`
	Fee            decimal.Decimal `gorm:"column:fee;type:decimal(32,18);not null;default:0"`
	Currency       string          `gorm:"column:currency;type:varchar(10);not null;default:'USD'"`
	ExpiresAt      *time.Time      `gorm:"column:subscription_expires_at;index"`
	PackageID      string          `gorm:"column:package_id;type:varchar(32)"`
	// 资金属性，仅对券商/理财类服务有意义
	Balance        decimal.Decimal `gorm:"column:balance;type:decimal(32,18);not null;default:0"`
	InvestedAmount decimal.Decimal `gorm:"column:invested_amount;type:decimal(32,18);not null;default:0"`
	AppliedAt      time.Time       `gorm:"column:applied_at;not null"`
}

// TableName 表名
func (ServiceSubscription) TableName() string { return "service_subscriptions" }

// Activate 激活订阅，幂等
func (s *ServiceSubscription) Activate() {
	s.Active = true
}

// Deactivate 停用订阅，幂等
func (s *ServiceSubscription) Deactivate() {
	s.Active = false
}

// IsExpired 是否已过期；未设置到期时间视为永不过期
func (s *ServiceSubscription) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

// ComputeExpiry 若尚未设置到期时间且有订阅时长，按申请时间推算
func (s *ServiceSubscription) ComputeExpiry() {
	if s.ExpiresAt == nil && s.DurationMonths > 0 {
		expiry := s.AppliedAt.AddDate(0, s.DurationMonths, 0)
		s.ExpiresAt = &expiry
	}
}

// Credit 入账
func (s *ServiceSubscription) Credit(amount decimal.Decimal) {
	s.Balance = s.Balance.Add(amount)
}

// Debit 出账，余额不足时不作任何变更
func (s *ServiceSubscription) Debit(amount decimal.Decimal) error {
	if s.Balance.LessThan(amount) {
		return ErrInsufficientBalance
	}
	s.Balance = s.Balance.Sub(amount)
	return nil
}

// ServiceUsageLink 订阅与身份审核记录的关联审计行，审批通过时写入
type ServiceUsageLink struct {
	gorm.Model
	SubscriptionID       string `gorm:"column:subscription_id;type:varchar(32);index;not null"`
	VerificationRecordID string `gorm:"column:verification_record_id;type:varchar(32)"`
	CustomerID           string `gorm:"column:customer_id;type:varchar(32);index;not null"`
	ReviewerID           string `gorm:"column:reviewer_id;type:varchar(32);not null"`
}

// TableName 表名
func (ServiceUsageLink) TableName() string { return "service_usage_links" }

// Address 客户主地址，每客户至多一条，整条替换
type Address struct {
	gorm.Model
	CustomerID string `gorm:"column:customer_id;type:varchar(32);uniqueIndex;not null"`
	Line1      string `gorm:"column:line1;type:varchar(200);not null"`
	Line2      string `gorm:"column:line2;type:varchar(200)"`
	City       string `gorm:"column:city;type:varchar(100)"`
	State      string `gorm:"column:state;type:varchar(100)"`
	PostalCode string `gorm:"column:postal_code;type:varchar(20)"`
	Country    string `gorm:"column:country;type:varchar(100)"`
}

// TableName 表名
func (Address) TableName() string { return "customer_addresses" }
