// Package infrastructure 服务准入目录基础设施层
package infrastructure

import (
	"context"

	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/wealthservice/internal/catalog/domain"
	"gorm.io/gorm"
)

// GormCatalogRepository GORM 准入目录仓储实现
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository 创建准入目录仓储
func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

// LoadPolicies 加载全部准入策略行
func (r *GormCatalogRepository) LoadPolicies(ctx context.Context) ([]*domain.ServicePolicy, error) {
	var policies []*domain.ServicePolicy
	err := r.getDB(ctx).WithContext(ctx).Find(&policies).Error
	return policies, err
}

// SavePolicy 保存策略行
func (r *GormCatalogRepository) SavePolicy(ctx context.Context, policy *domain.ServicePolicy) error {
	return r.getDB(ctx).WithContext(ctx).Save(policy).Error
}

// ListActivePackages 加载启用的定价套餐，按 sort_order 升序
func (r *GormCatalogRepository) ListActivePackages(ctx context.Context) ([]*domain.PricingPackage, error) {
	var packages []*domain.PricingPackage
	err := r.getDB(ctx).WithContext(ctx).
		Where("active = ?", true).
		Order("sort_order ASC, duration_months ASC").
		Find(&packages).Error
	return packages, err
}

// GetPackageByID 根据业务 ID 获取启用的套餐
func (r *GormCatalogRepository) GetPackageByID(ctx context.Context, packageID string) (*domain.PricingPackage, error) {
	var pkg domain.PricingPackage
	err := r.getDB(ctx).WithContext(ctx).
		Where("package_id = ? AND active = ?", packageID, true).
		First(&pkg).Error
	if err == gorm.ErrRecordNotFound {
		return nil, domain.ErrPackageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

// SavePackage 保存套餐
func (r *GormCatalogRepository) SavePackage(ctx context.Context, pkg *domain.PricingPackage) error {
	return r.getDB(ctx).WithContext(ctx).Save(pkg).Error
}

func (r *GormCatalogRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}
