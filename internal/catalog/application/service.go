// Package application 服务准入目录应用层
package application

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/wealthservice/internal/catalog/domain"
)

// Service 准入目录应用服务
// 策略表读多写少，按需从仓储构建内存查表；套餐查询走仓储（可被缓存装饰）。
type Service struct {
	repo   domain.CatalogRepository
	logger *slog.Logger
}

// NewService 创建准入目录应用服务
func NewService(repo domain.CatalogRepository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Resolve 查找服务准入策略
func (s *Service) Resolve(ctx context.Context, serviceType domain.ServiceType) (*domain.ServicePolicy, error) {
	catalog, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Resolve(serviceType)
}

// DefaultFee 查找 (服务类型, 时长) 的目录价
func (s *Service) DefaultFee(ctx context.Context, serviceType domain.ServiceType, months int) (decimal.Decimal, error) {
	packages, err := s.repo.ListActivePackages(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.DefaultFee(packages, serviceType, months)
}

// GetPackage 根据业务 ID 获取启用的套餐
func (s *Service) GetPackage(ctx context.Context, packageID string) (*domain.PricingPackage, error) {
	return s.repo.GetPackageByID(ctx, packageID)
}

// ListPackages 列出启用的套餐
func (s *Service) ListPackages(ctx context.Context) ([]*domain.PricingPackage, error) {
	return s.repo.ListActivePackages(ctx)
}

func (s *Service) load(ctx context.Context) (*domain.Catalog, error) {
	policies, err := s.repo.LoadPolicies(ctx)
	if err != nil {
		return nil, err
	}
	return domain.NewCatalog(policies), nil
}
