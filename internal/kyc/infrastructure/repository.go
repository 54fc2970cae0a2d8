// Package infrastructure 身份审核服务基础设施层
package infrastructure

import (
	"context"

	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/wealthservice/internal/kyc/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormVerificationRepository GORM 审核记录仓储实现
type GormVerificationRepository struct {
	db *gorm.DB
}

// NewGormVerificationRepository 创建审核记录仓储
func NewGormVerificationRepository(db *gorm.DB) *GormVerificationRepository {
	return &GormVerificationRepository{db: db}
}

// Transaction 在同一事务上下文中执行回调
func (r *GormVerificationRepository) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(contextx.WithTx(ctx, tx))
	})
}

// Save 保存审核记录
func (r *GormVerificationRepository) Save(ctx context.Context, record *domain.VerificationRecord) error {
	return r.getDB(ctx).WithContext(ctx).Save(record).Error
}

// GetByRecordID 根据业务 ID 获取
func (r *GormVerificationRepository) GetByRecordID(ctx context.Context, recordID string) (*domain.VerificationRecord, error) {
	var record domain.VerificationRecord
	err := r.getDB(ctx).WithContext(ctx).Where("record_id = ?", recordID).First(&record).Error
	if err == gorm.ErrRecordNotFound {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetWithLock 悲观锁获取
func (r *GormVerificationRepository) GetWithLock(ctx context.Context, recordID string) (*domain.VerificationRecord, error) {
	var record domain.VerificationRecord
	// SELECT * FROM verification_records WHERE record_id = ? FOR UPDATE
	err := r.getDB(ctx).WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("record_id = ?", recordID).First(&record).Error
	if err == gorm.ErrRecordNotFound {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindApprovedByCustomer 获取客户已通过的记录，按创建时间降序
func (r *GormVerificationRepository) FindApprovedByCustomer(ctx context.Context, customerID string) ([]*domain.VerificationRecord, error) {
	var records []*domain.VerificationRecord
	err := r.getDB(ctx).WithContext(ctx).
		Where("customer_id = ? AND status = ?", customerID, domain.StatusApproved).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// FindLatestPendingByCustomer 获取客户最新的待审核记录
func (r *GormVerificationRepository) FindLatestPendingByCustomer(ctx context.Context, customerID string) (*domain.VerificationRecord, error) {
	var record domain.VerificationRecord
	err := r.getDB(ctx).WithContext(ctx).
		Where("customer_id = ? AND status = ?", customerID, domain.StatusPending).
		Order("created_at DESC").
		First(&record).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByCustomer 获取客户全部记录，按创建时间降序
func (r *GormVerificationRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domain.VerificationRecord, error) {
	var records []*domain.VerificationRecord
	err := r.getDB(ctx).WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

func (r *GormVerificationRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// GormDocumentRepository GORM 证明文件仓储实现
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository 创建证明文件仓储
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// Save 保存文件记录
func (r *GormDocumentRepository) Save(ctx context.Context, doc *domain.Document) error {
	return r.getDB(ctx).WithContext(ctx).Create(doc).Error
}

// SaveBatch 批量保存文件记录
func (r *GormDocumentRepository) SaveBatch(ctx context.Context, docs []*domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	return r.getDB(ctx).WithContext(ctx).Create(docs).Error
}

// FindByRecord 获取某审核记录关联的全部文件
func (r *GormDocumentRepository) FindByRecord(ctx context.Context, recordID string) ([]*domain.Document, error) {
	var docs []*domain.Document
	err := r.getDB(ctx).WithContext(ctx).
		Where("record_id = ?", recordID).
		Find(&docs).Error
	return docs, err
}

// FindByCustomer 获取客户全部文件，按创建时间降序
func (r *GormDocumentRepository) FindByCustomer(ctx context.Context, customerID string) ([]*domain.Document, error) {
	var docs []*domain.Document
	err := r.getDB(ctx).WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&docs).Error
	return docs, err
}

func (r *GormDocumentRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}
