package domain

import (
	"context"
)

// VerificationRepository 审核记录仓储接口
type VerificationRepository interface {
	// Save 保存或更新审核记录
	Save(ctx context.Context, record *VerificationRecord) error
	// GetByRecordID 根据业务 ID 获取
	GetByRecordID(ctx context.Context, recordID string) (*VerificationRecord, error)
	// GetWithLock 悲观锁获取
	GetWithLock(ctx context.Context, recordID string) (*VerificationRecord, error)
	// FindApprovedByCustomer 获取客户已通过的记录，按创建时间降序
	FindApprovedByCustomer(ctx context.Context, customerID string) ([]*VerificationRecord, error)
	// FindLatestPendingByCustomer 获取客户最新的待审核记录，不存在时返回 nil
	FindLatestPendingByCustomer(ctx context.Context, customerID string) (*VerificationRecord, error)
	// ListByCustomer 获取客户全部记录，按创建时间降序
	ListByCustomer(ctx context.Context, customerID string) ([]*VerificationRecord, error)
}

// DocumentRepository 证明文件仓储接口
type DocumentRepository interface {
	// Save 保存文件记录
	Save(ctx context.Context, doc *Document) error
	// SaveBatch 批量保存文件记录
	SaveBatch(ctx context.Context, docs []*Document) error
	// FindByRecord 获取某审核记录关联的全部文件
	FindByRecord(ctx context.Context, recordID string) ([]*Document, error)
	// FindByCustomer 获取客户全部文件，按创建时间降序
	FindByCustomer(ctx context.Context, customerID string) ([]*Document, error)
}
