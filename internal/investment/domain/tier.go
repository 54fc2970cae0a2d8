// Package domain 投资账本领域层
// 1) 利率档位目录与纯函数档位解析
// 2) 投资申请与自由文本期限解析
// 3) 只追加资金流水账本，投资持仓是其中 FUND 类型的带字段子集
// 4) 回款申请与本金单调递减规则
package domain

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RiskTolerance 风险偏好
type RiskTolerance string

const (
	RiskLow    RiskTolerance = "LOW"
	RiskMedium RiskTolerance = "MEDIUM"
	RiskHigh   RiskTolerance = "HIGH"
)

// Valid 是否为合法风险偏好
func (r RiskTolerance) Valid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

var (
	// ErrNoTierForAmount 金额不落入任何档位，永不静默兜底
	ErrNoTierForAmount = errors.New("no interest tier matches amount")
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrNoActiveService 缺少激活的保本理财订阅
	ErrNoActiveService = errors.New("no active guaranteed returns subscription")
	// ErrInvalidServiceTarget 资金操作目标服务类型或状态不符
	ErrInvalidServiceTarget = errors.New("invalid service target for fund operation")
	// ErrInsufficientPrincipal 回款金额超过剩余本金
	ErrInsufficientPrincipal = errors.New("insufficient remaining principal")
	// ErrRequestClosed 申请已进入终态
	ErrRequestClosed = errors.New("request already in terminal status")
)

// InterestRateConfig 利率档位配置，持久化于 interest_rate_configurations 表
type InterestRateConfig struct {
	gorm.Model
	ConfigID  string          `gorm:"column:config_id;type:varchar(32);uniqueIndex;not null"`
	Name      string          `gorm:"column:name;type:varchar(40);not null"`
	MinAmount decimal.Decimal `gorm:"column:min_amount;type:decimal(32,18);not null"`
	// 上界，NULL 表示无上界
	MaxAmount     *decimal.Decimal `gorm:"column:max_amount;type:decimal(32,18)"`
	BaseRate      decimal.Decimal  `gorm:"column:base_rate;type:decimal(32,18);not null"`
	AdjustLow     decimal.Decimal  `gorm:"column:adjust_low;type:decimal(32,18);not null;default:0"`
	AdjustMedium  decimal.Decimal  `gorm:"column:adjust_medium;type:decimal(32,18);not null;default:0"`
	AdjustHigh    decimal.Decimal  `gorm:"column:adjust_high;type:decimal(32,18);not null;default:0"`
	SortOrder     int              `gorm:"column:sort_order;not null;default:0"`
	Active        bool             `gorm:"column:active;not null;default:true"`
}

// TableName 表名
func (InterestRateConfig) TableName() string { return "interest_rate_configurations" }

// Contains 金额是否落入 [min, max] 区间
func (c *InterestRateConfig) Contains(amount decimal.Decimal) bool {
	if amount.LessThan(c.MinAmount) {
		return false
	}
	if c.MaxAmount != nil && amount.GreaterThan(*c.MaxAmount) {
		return false
	}
	return true
}

// RateFor 档位利率 = 基础利率 + 风险调整
func (c *InterestRateConfig) RateFor(risk RiskTolerance) decimal.Decimal {
	switch risk {
	case RiskLow:
		return c.BaseRate.Add(c.AdjustLow)
	case RiskHigh:
		return c.BaseRate.Add(c.AdjustHigh)
	default:
		return c.BaseRate.Add(c.AdjustMedium)
	}
}

// TierResolution 档位解析结果
type TierResolution struct {
	Config   *InterestRateConfig
	TierName string
	Rate     decimal.Decimal
}

// ResolveTier 档位解析
// configs 须已按 sort_order 升序、min_amount 升序排列；
// 第一个包含金额的启用档位即命中，无命中硬失败。
func ResolveTier(configs []*InterestRateConfig, amount decimal.Decimal, risk RiskTolerance) (*TierResolution, error) {
	for _, cfg := range configs {
		if !cfg.Active {
			continue
		}
		if cfg.Contains(amount) {
			return &TierResolution{
				Config:   cfg,
				TierName: cfg.Name,
				Rate:     cfg.RateFor(risk),
			}, nil
		}
	}
	return nil, ErrNoTierForAmount
}
