package infrastructure

import (
	"context"
	"time"

	"github.com/wyfcoding/wealthservice/internal/investment/domain"
	"github.com/wyfcoding/wealthservice/pkg/cache"
)

const (
	tierListKey  = "investment:tiers:active"
	tierCacheTTL = 10 * time.Minute
)

// CachedRateConfigRepository 带 Redis 旁路缓存的利率档位仓储
// 档位解析发生在每次投资申请上，是读热点；写路径直接失效列表缓存。
type CachedRateConfigRepository struct {
	inner *GormRateConfigRepository
	cache *cache.RedisCache
}

// NewCachedRateConfigRepository 创建带缓存的利率档位仓储
func NewCachedRateConfigRepository(inner *GormRateConfigRepository, c *cache.RedisCache) *CachedRateConfigRepository {
	return &CachedRateConfigRepository{inner: inner, cache: c}
}

// ListActive 优先读缓存，未命中回源并写入
func (r *CachedRateConfigRepository) ListActive(ctx context.Context) ([]*domain.InterestRateConfig, error) {
	var cached []*domain.InterestRateConfig
	hit, err := r.cache.GetJSON(ctx, tierListKey, &cached)
	if err == nil && hit {
		return cached, nil
	}
	configs, err := r.inner.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	_ = r.cache.SetJSON(ctx, tierListKey, configs, tierCacheTTL)
	return configs, nil
}

// GetByConfigID 单条查询直接回源，审批路径需要最新的启用状态
func (r *CachedRateConfigRepository) GetByConfigID(ctx context.Context, configID string) (*domain.InterestRateConfig, error) {
	return r.inner.GetByConfigID(ctx, configID)
}

// Save 保存后失效列表缓存
func (r *CachedRateConfigRepository) Save(ctx context.Context, cfg *domain.InterestRateConfig) error {
	if err := r.inner.Save(ctx, cfg); err != nil {
		return err
	}
	_ = r.cache.Delete(ctx, tierListKey)
	return nil
}
