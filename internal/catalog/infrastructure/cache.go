package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/wealthservice/internal/catalog/domain"
	"github.com/wyfcoding/wealthservice/pkg/cache"
)

const (
	packageListKey = "catalog:packages:active"
	packageCacheTTL = 10 * time.Minute
)

// CachedCatalogRepository 带 Redis 旁路缓存的目录仓储，只缓存套餐读路径。
// 策略行数量极少且在应用层常驻内存，不走缓存。
type CachedCatalogRepository struct {
	inner *GormCatalogRepository
	cache *cache.RedisCache
}

// NewCachedCatalogRepository 创建带缓存的目录仓储
func NewCachedCatalogRepository(inner *GormCatalogRepository, c *cache.RedisCache) *CachedCatalogRepository {
	return &CachedCatalogRepository{inner: inner, cache: c}
}

// LoadPolicies 透传到数据库
func (r *CachedCatalogRepository) LoadPolicies(ctx context.Context) ([]*domain.ServicePolicy, error) {
	return r.inner.LoadPolicies(ctx)
}

// SavePolicy 透传到数据库
func (r *CachedCatalogRepository) SavePolicy(ctx context.Context, policy *domain.ServicePolicy) error {
	return r.inner.SavePolicy(ctx, policy)
}

// ListActivePackages 优先读缓存，未命中回源并写入
func (r *CachedCatalogRepository) ListActivePackages(ctx context.Context) ([]*domain.PricingPackage, error) {
	var cached []*domain.PricingPackage
	hit, err := r.cache.GetJSON(ctx, packageListKey, &cached)
	if err == nil && hit {
		return cached, nil
	}
	packages, err := r.inner.ListActivePackages(ctx)
	if err != nil {
		return nil, err
	}
	// 缓存写失败不影响主路径
	_ = r.cache.SetJSON(ctx, packageListKey, packages, packageCacheTTL)
	return packages, nil
}

// GetPackageByID 优先读缓存，未命中回源并写入
func (r *CachedCatalogRepository) GetPackageByID(ctx context.Context, packageID string) (*domain.PricingPackage, error) {
	key := fmt.Sprintf("catalog:package:%s", packageID)
	var cached domain.PricingPackage
	hit, err := r.cache.GetJSON(ctx, key, &cached)
	if err == nil && hit {
		return &cached, nil
	}
	pkg, err := r.inner.GetPackageByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	_ = r.cache.SetJSON(ctx, key, pkg, packageCacheTTL)
	return pkg, nil
}

// SavePackage 保存后失效列表缓存
func (r *CachedCatalogRepository) SavePackage(ctx context.Context, pkg *domain.PricingPackage) error {
	if err := r.inner.SavePackage(ctx, pkg); err != nil {
		return err
	}
	_ = r.cache.Delete(ctx, packageListKey)
	_ = r.cache.Delete(ctx, fmt.Sprintf("catalog:package:%s", pkg.PackageID))
	return nil
}
