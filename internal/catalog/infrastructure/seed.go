package infrastructure

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/wealthservice/internal/catalog/domain"
	"gorm.io/gorm"
)

// Seed 首次启动时写入默认准入策略与定价套餐，已有数据则跳过
func Seed(ctx context.Context, db *gorm.DB) error {
	var policyCount int64
	if err := db.WithContext(ctx).Model(&domain.ServicePolicy{}).Count(&policyCount).Error; err != nil {
		return err
	}
	if policyCount == 0 {
		policies := []*domain.ServicePolicy{
			{
				ServiceType:           domain.ServiceMembership,
				RequiresPayment:       true,
				RequiresAdminApproval: true,
				SubscriptionBased:     true,
			},
			{
				ServiceType:           domain.ServiceStockPicks,
				RequiredLevel:         "ADVANCED",
				RequiredFieldsJSON:    `["full_name","id_number","trading_experience"]`,
				RequiredDocsJSON:      `["ID_FRONT","ID_BACK"]`,
				RequiresAdminApproval: true,
			},
			{
				ServiceType:           domain.ServiceIntlBrokerage,
				RequiredLevel:         "BROKERAGE",
				RequiredFieldsJSON:    `["full_name","id_number","nationality","occupation","annual_income","source_of_funds"]`,
				RequiredDocsJSON:      `["PASSPORT","BANK_STATEMENT","ADDRESS_PROOF"]`,
				RequiresAdminApproval: true,
			},
			{
				ServiceType:           domain.ServiceGuaranteed,
				RequiredLevel:         "BROKERAGE",
				RequiredFieldsJSON:    `["full_name","id_number","annual_income","source_of_funds"]`,
				RequiredDocsJSON:      `["ID_FRONT","ID_BACK","BANK_STATEMENT"]`,
				RequiresAdminApproval: true,
			},
		}
		if err := db.WithContext(ctx).Create(&policies).Error; err != nil {
			return err
		}
	}

	var pkgCount int64
	if err := db.WithContext(ctx).Model(&domain.PricingPackage{}).Count(&pkgCount).Error; err != nil {
		return err
	}
	if pkgCount == 0 {
		packages := []*domain.PricingPackage{
			{
				PackageID:      "PKG-MEM-1M",
				ServiceType:    domain.ServiceMembership,
				Name:           "标准会员月付",
				DurationMonths: 1,
				Fee:            decimal.RequireFromString("99.99"),
				Currency:       "USD",
				Active:         true,
				SortOrder:      1,
			},
			{
				PackageID:      "PKG-MEM-6M",
				ServiceType:    domain.ServiceMembership,
				Name:           "高级会员半年付",
				DurationMonths: 6,
				Fee:            decimal.RequireFromString("549.99"),
				Currency:       "USD",
				Active:         true,
				SortOrder:      2,
			},
			{
				PackageID:      "PKG-MEM-12M",
				ServiceType:    domain.ServiceMembership,
				Name:           "高级会员年付",
				DurationMonths: 12,
				Fee:            decimal.RequireFromString("999.99"),
				Currency:       "USD",
				Active:         true,
				SortOrder:      3,
			},
		}
		if err := db.WithContext(ctx).Create(&packages).Error; err != nil {
			return err
		}
	}
	return nil
}
