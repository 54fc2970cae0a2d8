package domain

import (
	"context"

	catalogdomain "github.com/wyfcoding/wealthservice/internal/catalog/domain"
	membershipdomain "github.com/wyfcoding/wealthservice/internal/membership/domain"
)

// RateConfigRepository 利率档位仓储接口
type RateConfigRepository interface {
	// ListActive 获取启用档位，按 sort_order 升序、min_amount 升序
	ListActive(ctx context.Context) ([]*InterestRateConfig, error)
	// GetByConfigID 根据业务 ID 获取，不存在返回 nil
	GetByConfigID(ctx context.Context, configID string) (*InterestRateConfig, error)
	// Save 保存档位
	Save(ctx context.Context, cfg *InterestRateConfig) error
}

// RequestRepository 投资申请仓储接口
type RequestRepository interface {
	// Transaction 在单个数据库事务中执行 fn
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	// Save 保存或更新申请
	Save(ctx context.Context, req *InvestmentRequest) error
	// GetByRequestID 根据业务 ID 获取，不存在返回 ErrNotFound
	GetByRequestID(ctx context.Context, requestID string) (*InvestmentRequest, error)
	// GetWithLock 悲观锁获取
	GetWithLock(ctx context.Context, requestID string) (*InvestmentRequest, error)
	// ListByCustomer 获取客户全部申请，按创建时间降序
	ListByCustomer(ctx context.Context, customerID string) ([]*InvestmentRequest, error)
}

// LedgerRepository 资金流水仓储接口
// 流水只追加；唯一的行内更新入口是持仓行的剩余本金扣减。
type LedgerRepository interface {
	// Append 追加流水行
	Append(ctx context.Context, txn *FundTransaction) error
	// UpdatePosition 持久化持仓行的本金扣减
	UpdatePosition(ctx context.Context, position *FundTransaction) error
	// GetByTxnID 根据业务 ID 获取，不存在返回 ErrNotFound
	GetByTxnID(ctx context.Context, txnID string) (*FundTransaction, error)
	// GetPositionWithLock 悲观锁获取持仓行
	GetPositionWithLock(ctx context.Context, txnID string) (*FundTransaction, error)
	// ListByCustomer 获取客户全部流水，按创建时间降序
	ListByCustomer(ctx context.Context, customerID string) ([]*FundTransaction, error)
	// ListPositionsByCustomer 获取客户全部持仓行
	ListPositionsByCustomer(ctx context.Context, customerID string) ([]*FundTransaction, error)
}

// ReturnRepository 回款申请仓储接口
type ReturnRepository interface {
	// Save 保存或更新回款申请
	Save(ctx context.Context, req *ReturnRequest) error
	// GetByReturnID 根据业务 ID 获取，不存在返回 ErrNotFound
	GetByReturnID(ctx context.Context, returnID string) (*ReturnRequest, error)
	// GetWithLock 悲观锁获取
	GetWithLock(ctx context.Context, returnID string) (*ReturnRequest, error)
	// ListByCustomer 获取客户全部回款申请，按创建时间降序
	ListByCustomer(ctx context.Context, customerID string) ([]*ReturnRequest, error)
}

// SummaryRepository 投资汇总仓储接口
type SummaryRepository interface {
	// GetOrCreate 获取客户汇总，不存在则创建零值行
	GetOrCreate(ctx context.Context, customerID string) (*CustomerInvestmentSummary, error)
	// Save 保存汇总
	Save(ctx context.Context, summary *CustomerInvestmentSummary) error
}

// SubscriptionGateway 订阅侧窄端口，由订阅仓储实现
// 资金操作需要校验并更新订阅的余额与投入金额。
type SubscriptionGateway interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	FindActiveByCustomerAndType(ctx context.Context, customerID string, serviceType catalogdomain.ServiceType) (*membershipdomain.ServiceSubscription, error)
	GetWithLock(ctx context.Context, subscriptionID string) (*membershipdomain.ServiceSubscription, error)
	Save(ctx context.Context, sub *membershipdomain.ServiceSubscription) error
}
