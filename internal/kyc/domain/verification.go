// Package domain 身份审核服务领域层
// 1) 定义分级身份审核记录聚合根（等级固定、单向审批）
// 2) 定义证明文件实体（创建后不可变）
// 3) 实现历史合格记录的复用选择与克隆逻辑
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Level 审核等级，按风险递增排序
type Level string

const (
	LevelBasic     Level = "BASIC"     // 基础：会员类服务
	LevelAdvanced  Level = "ADVANCED"  // 进阶：荐股类服务
	LevelBrokerage Level = "BROKERAGE" // 券商：跨境券商/保本理财
)

// levelRank 等级排序值
var levelRank = map[Level]int{
	LevelBasic:     1,
	LevelAdvanced:  2,
	LevelBrokerage: 3,
}

// AtLeast 判断当前等级是否不低于目标等级
func (l Level) AtLeast(other Level) bool {
	return levelRank[l] >= levelRank[other]
}

// Valid 判断等级是否合法
func (l Level) Valid() bool {
	_, ok := levelRank[l]
	return ok
}

// Status 审核状态
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusExpired  Status = "EXPIRED"
)

var (
	// ErrReviewClosed 审批是单向的：非 pending 记录不可再次审批
	ErrReviewClosed = errors.New("verification review already closed")
	// ErrRecordNotFound 审核记录不存在
	ErrRecordNotFound = errors.New("verification record not found")
)

// VerificationRecord 身份审核记录聚合根
// 等级在创建时固定；审批只能由 pending 单向进入 approved/rejected，
// 任何重新审核都通过全新记录完成，历史记录永不物理删除。
type VerificationRecord struct {
	gorm.Model
	RecordID   string `gorm:"column:record_id;type:varchar(32);uniqueIndex;not null"`
	CustomerID string `gorm:"column:customer_id;type:varchar(32);index;not null"`
	Level      Level  `gorm:"column:level;type:varchar(20);not null"`
	Status     Status `gorm:"column:status;type:varchar(20);not null;default:'PENDING'"`

	// 客户提交的身份与财务信息
	FullName          string          `gorm:"column:full_name;type:varchar(100)"`
	IDNumber          string          `gorm:"column:id_number;type:varchar(50)"`
	DateOfBirth       string          `gorm:"column:date_of_birth;type:varchar(20)"`
	Nationality       string          `gorm:"column:nationality;type:varchar(50)"`
	Occupation        string          `gorm:"column:occupation;type:varchar(100)"`
	AnnualIncome      decimal.Decimal `gorm:"column:annual_income;type:decimal(32,18);default:0"`
	SourceOfFunds     string          `gorm:"column:source_of_funds;type:varchar(100)"`
	TradingExperience string          `gorm:"column:trading_experience;type:varchar(50)"`

	ReviewerID   string     `gorm:"column:reviewer_id;type:varchar(32)"`
	ReviewedAt   *time.Time `gorm:"column:reviewed_at"`
	RejectReason string     `gorm:"column:reject_reason;type:varchar(255)"`
}

// TableName 表名
func (VerificationRecord) TableName() string { return "verification_records" }

// Profile 客户提交的身份与财务信息
type Profile struct {
	FullName          string
	IDNumber          string
	DateOfBirth       string
	Nationality       string
	Occupation        string
	AnnualIncome      decimal.Decimal
	SourceOfFunds     string
	TradingExperience string
}

// NewVerificationRecord 创建新审核记录
func NewVerificationRecord(recordID, customerID string, level Level, profile Profile, autoApprove bool) *VerificationRecord {
	status := StatusPending
	var reviewedAt *time.Time
	if autoApprove {
		status = StatusApproved
		now := time.Now()
		reviewedAt = &now
	}

	return &VerificationRecord{
		RecordID:          recordID,
		CustomerID:        customerID,
		Level:             level,
		Status:            status,
		FullName:          profile.FullName,
		IDNumber:          profile.IDNumber,
		DateOfBirth:       profile.DateOfBirth,
		Nationality:       profile.Nationality,
		Occupation:        profile.Occupation,
		AnnualIncome:      profile.AnnualIncome,
		SourceOfFunds:     profile.SourceOfFunds,
		TradingExperience: profile.TradingExperience,
		ReviewedAt:        reviewedAt,
	}
}

// Approve 审批通过，单向且不可逆
func (r *VerificationRecord) Approve(reviewerID string) error {
	if r.Status != StatusPending {
		return ErrReviewClosed
	}
	now := time.Now()
	r.Status = StatusApproved
	r.ReviewerID = reviewerID
	r.ReviewedAt = &now
	return nil
}

// Reject 审批拒绝，终态；重新申请需要全新记录
func (r *VerificationRecord) Reject(reviewerID, reason string) error {
	if r.Status != StatusPending {
		return ErrReviewClosed
	}
	now := time.Now()
	r.Status = StatusRejected
	r.ReviewerID = reviewerID
	r.ReviewedAt = &now
	r.RejectReason = reason
	return nil
}

// Profile 提取记录中的身份与财务信息
func (r *VerificationRecord) Profile() Profile {
	return Profile{
		FullName:          r.FullName,
		IDNumber:          r.IDNumber,
		DateOfBirth:       r.DateOfBirth,
		Nationality:       r.Nationality,
		Occupation:        r.Occupation,
		AnnualIncome:      r.AnnualIncome,
		SourceOfFunds:     r.SourceOfFunds,
		TradingExperience: r.TradingExperience,
	}
}

// CloneForReview 以历史记录为蓝本创建新的 pending 记录
// 永远不直接复用旧记录：每次申请都是一轮全新的审核
func CloneForReview(recordID string, source *VerificationRecord, level Level) *VerificationRecord {
	return NewVerificationRecord(recordID, source.CustomerID, level, source.Profile(), false)
}

// BestQualifying 在已通过的历史记录中选择克隆蓝本
// 规则：优先取等级不低于要求的最新记录；都不够级时退而取任意等级的最新记录；
// 入参须按创建时间降序排列，空集返回 nil。
func BestQualifying(approved []*VerificationRecord, required Level) *VerificationRecord {
	for _, record := range approved {
		if record.Level.AtLeast(required) {
			return record
		}
	}
	if len(approved) > 0 {
		return approved[0]
	}
	return nil
}
