package infrastructure

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/wealthservice/internal/investment/domain"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// Seed 首次启动时写入默认利率档位，已有数据则跳过
func Seed(ctx context.Context, db *gorm.DB) error {
	var count int64
	if err := db.WithContext(ctx).Model(&domain.InterestRateConfig{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	configs := []*domain.InterestRateConfig{
		{
			ConfigID:     "TIER-BRONZE",
			Name:         "bronze",
			MinAmount:    dec("1000"),
			MaxAmount:    decPtr("24999.99"),
			BaseRate:     dec("0.08"),
			AdjustLow:    dec("0.01"),
			AdjustMedium: dec("0.02"),
			AdjustHigh:   dec("0.03"),
			SortOrder:    1,
			Active:       true,
		},
		{
			ConfigID:     "TIER-SILVER",
			Name:         "silver",
			MinAmount:    dec("25000"),
			MaxAmount:    decPtr("99999.99"),
			BaseRate:     dec("0.15"),
			AdjustLow:    dec("0.02"),
			AdjustMedium: dec("0.04"),
			AdjustHigh:   dec("0.06"),
			SortOrder:    2,
			Active:       true,
		},
		{
			ConfigID:     "TIER-GOLD",
			Name:         "gold",
			MinAmount:    dec("100000"),
			MaxAmount:    decPtr("499999.99"),
			BaseRate:     dec("0.18"),
			AdjustLow:    dec("0.02"),
			AdjustMedium: dec("0.04"),
			AdjustHigh:   dec("0.07"),
			SortOrder:    3,
			Active:       true,
		},
		{
			ConfigID:     "TIER-PLATINUM",
			Name:         "platinum",
			MinAmount:    dec("500000"),
			MaxAmount:    nil,
			BaseRate:     dec("0.22"),
			AdjustLow:    dec("0.02"),
			AdjustMedium: dec("0.05"),
			AdjustHigh:   dec("0.08"),
			SortOrder:    4,
			Active:       true,
		},
	}
	return db.WithContext(ctx).Create(&configs).Error
}
