// Package infrastructure 投资账本基础设施层
package infrastructure

import (
	"context"

	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/wealthservice/internal/investment/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRateConfigRepository GORM 利率档位仓储实现
type GormRateConfigRepository struct {
	db *gorm.DB
}

// NewGormRateConfigRepository 创建利率档位仓储
func NewGormRateConfigRepository(db *gorm.DB) *GormRateConfigRepository {
	return &GormRateConfigRepository{db: db}
}

// ListActive 获取启用档位，按 sort_order 升序、min_amount 升序
func (r *GormRateConfigRepository) ListActive(ctx context.Context) ([]*domain.InterestRateConfig, error) {
	var configs []*domain.InterestRateConfig
	err := r.getDB(ctx).WithContext(ctx).
		Where("active = ?", true).
		Order("sort_order ASC, min_amount ASC").
		Find(&configs).Error
	return configs, err
}

// GetByConfigID 根据业务 ID 获取，不存在返回 nil
func (r *GormRateConfigRepository) GetByConfigID(ctx context.Context, configID string) (*domain.InterestRateConfig, error) {
	if configID == "" {
		return nil, nil
	}
	var cfg domain.InterestRateConfig
	err := r.getDB(ctx).WithContext(ctx).
		Where("config_id = ? AND active = ?", configID, true).
		First(&cfg).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save 保存档位
func (r *GormRateConfigRepository) Save(ctx context.Context, cfg *domain.InterestRateConfig) error {
	return r.getDB(ctx).WithContext(ctx).Save(cfg).Error
}

func (r *GormRateConfigRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// GormRequestRepository GORM 投资申请仓储实现
type GormRequestRepository struct {
	db *gorm.DB
}

// NewGormRequestRepository 创建投资申请仓储
func NewGormRequestRepository(db *gorm.DB) *GormRequestRepository {
	return &GormRequestRepository{db: db}
}

// Transaction 在同一事务上下文中执行回调
func (r *GormRequestRepository) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(contextx.WithTx(ctx, tx))
	})
}

// Save 保存申请
func (r *GormRequestRepository) Save(ctx context.Context, req *domain.InvestmentRequest) error {
	return r.getDB(ctx).WithContext(ctx).Save(req).Error
}

// GetByRequestID 根据业务 ID 获取
func (r *GormRequestRepository) GetByRequestID(ctx context.Context, requestID string) (*domain.InvestmentRequest, error) {
	var req domain.InvestmentRequest
	err := r.getDB(ctx).WithContext(ctx).Where("request_id = ?", requestID).First(&req).Error
	if err == gorm.ErrRecordNotFound {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetWithLock 悲观锁获取
func (r *GormRequestRepository) GetWithLock(ctx context.Context, requestID string) (*domain.InvestmentRequest, error) {
	var req domain.InvestmentRequest
	err := r.getDB(ctx).WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("request_id = ?", requestID).First(&req).Error
	if err == gorm.ErrRecordNotFound {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ListByCustomer 获取客户全部申请，按创建时间降序
func (r *GormRequestRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domain.InvestmentRequest, error) {
	var reqs []*domain.InvestmentRequest
	err := r.getDB(ctx).WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

func (r *GormRequestRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// GormLedgerRepository GORM 资金流水仓储实现
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository 创建资金流水仓储
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// Append 追加流水行
func (r *GormLedgerRepository) Append(ctx context.Context, txn *domain.FundTransaction) error {
	return r.getDB(ctx).WithContext(ctx).Create(txn).Error
}

// UpdatePosition 持久化持仓行的本金扣减
func (r *GormLedgerRepository) UpdatePosition(ctx context.Context, position *domain.FundTransaction) error {
	return r.getDB(ctx).WithContext(ctx).Save(position).Error
}

// GetByTxnID 根据业务 ID 获取
func (r *GormLedgerRepository) GetByTxnID(ctx context.Context, txnID string) (*domain.FundTransaction, error) {
	var txn domain.FundTransaction
	err := r.getDB(ctx).WithContext(ctx).Where("txn_id = ?", txnID).First(&txn).Error
	if err == gorm.ErrRecordNotFound {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// GetPositionWithLock 悲观锁获取持仓行
func (r *GormLedgerRepository) GetPositionWithLock(ctx context.Context, txnID string) (*domain.FundTransaction, error) {
	var txn domain.FundTransaction
	err := r.getDB(ctx).WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("txn_id = ? AND type = ?", txnID, domain.TxnFund).First(&txn).Error
	if err == gorm.ErrRecordNotFound {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// ListByCustomer 获取客户全部流水，按创建时间降序
func (r *GormLedgerRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domain.FundTransaction, error) {
	var txns []*domain.FundTransaction
	err := r.getDB(ctx).WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&txns).Error
	return txns, err
}

// ListPositionsByCustomer 获取客户全部持仓行
func (r *GormLedgerRepository) ListPositionsByCustomer(ctx context.Context, customerID string) ([]*domain.FundTransaction, error) {
	var txns []*domain.FundTransaction
	err := r.getDB(ctx).WithContext(ctx).
		Where("customer_id = ? AND type = ?", customerID, domain.TxnFund).
		Order("created_at DESC").
		Find(&txns).Error
	return txns, err
}

func (r *GormLedgerRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// GormReturnRepository GORM 回款申请仓储实现
type GormReturnRepository struct {
	db *gorm.DB
}

// NewGormReturnRepository 创建回款申请仓储
func NewGormReturnRepository(db *gorm.DB) *GormReturnRepository {
	return &GormReturnRepository{db: db}
}

// Save 保存回款申请
func (r *GormReturnRepository) Save(ctx context.Context, req *domain.ReturnRequest) error {
	return r.getDB(ctx).WithContext(ctx).Save(req).Error
}

// GetByReturnID 根据业务 ID 获取
func (r *GormReturnRepository) GetByReturnID(ctx context.Context, returnID string) (*domain.ReturnRequest, error) {
	var req domain.ReturnRequest
	err := r.getDB(ctx).WithContext(ctx).Where("return_id = ?", returnID).First(&req).Error
	if err == gorm.ErrRecordNotFound {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetWithLock 悲观锁获取
func (r *GormReturnRepository) GetWithLock(ctx context.Context, returnID string) (*domain.ReturnRequest, error) {
	var req domain.ReturnRequest
	err := r.getDB(ctx).WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("return_id = ?", returnID).First(&req).Error
	if err == gorm.ErrRecordNotFound {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ListByCustomer 获取客户全部回款申请，按创建时间降序
func (r *GormReturnRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domain.ReturnRequest, error) {
	var reqs []*domain.ReturnRequest
	err := r.getDB(ctx).WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

func (r *GormReturnRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// GormSummaryRepository GORM 投资汇总仓储实现
type GormSummaryRepository struct {
	db *gorm.DB
}

// NewGormSummaryRepository 创建投资汇总仓储
func NewGormSummaryRepository(db *gorm.DB) *GormSummaryRepository {
	return &GormSummaryRepository{db: db}
}

// GetOrCreate 获取客户汇总，不存在则创建零值行
func (r *GormSummaryRepository) GetOrCreate(ctx context.Context, customerID string) (*domain.CustomerInvestmentSummary, error) {
	var summary domain.CustomerInvestmentSummary
	err := r.getDB(ctx).WithContext(ctx).Where("customer_id = ?", customerID).First(&summary).Error
	if err == gorm.ErrRecordNotFound {
		summary = domain.CustomerInvestmentSummary{CustomerID: customerID}
		if err := r.getDB(ctx).WithContext(ctx).Create(&summary).Error; err != nil {
			return nil, err
		}
		return &summary, nil
	}
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// Save 保存汇总
func (r *GormSummaryRepository) Save(ctx context.Context, summary *domain.CustomerInvestmentSummary) error {
	return r.getDB(ctx).WithContext(ctx).Save(summary).Error
}

func (r *GormSummaryRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}
