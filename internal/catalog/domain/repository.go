package domain

import (
	"context"
)

// CatalogRepository 准入策略与定价套餐仓储接口
type CatalogRepository interface {
	// LoadPolicies 加载全部准入策略行
	LoadPolicies(ctx context.Context) ([]*ServicePolicy, error)
	// SavePolicy 保存策略行（初始化种子数据用）
	SavePolicy(ctx context.Context, policy *ServicePolicy) error
	// ListActivePackages 加载启用的定价套餐，按 sort_order 升序
	ListActivePackages(ctx context.Context) ([]*PricingPackage, error)
	// GetPackageByID 根据业务 ID 获取启用的套餐
	GetPackageByID(ctx context.Context, packageID string) (*PricingPackage, error)
	// SavePackage 保存套餐（初始化种子数据用）
	SavePackage(ctx context.Context, pkg *PricingPackage) error
}
