// Package application 身份审核服务应用层
package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/wealthservice/internal/kyc/domain"
)

// Service 身份审核应用服务
type Service struct {
	records   domain.VerificationRepository
	documents domain.DocumentRepository
	logger    *slog.Logger
}

// NewService 创建身份审核应用服务
func NewService(records domain.VerificationRepository, documents domain.DocumentRepository, logger *slog.Logger) *Service {
	return &Service{
		records:   records,
		documents: documents,
		logger:    logger,
	}
}

// SubmitCommand 新审核记录提交命令
type SubmitCommand struct {
	CustomerID  string
	Level       domain.Level
	Profile     domain.Profile
	AutoApprove bool
}

// Submit 提交全新审核记录
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (*domain.VerificationRecord, error) {
	if !cmd.Level.Valid() {
		return nil, fmt.Errorf("invalid verification level: %s", cmd.Level)
	}

	record := domain.NewVerificationRecord(
		fmt.Sprintf("KYC-%d", idgen.GenID()),
		cmd.CustomerID,
		cmd.Level,
		cmd.Profile,
		cmd.AutoApprove,
	)

	if err := s.records.Save(ctx, record); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "verification record submitted",
		"record_id", record.RecordID,
		"customer_id", cmd.CustomerID,
		"level", cmd.Level,
		"status", record.Status)

	return record, nil
}

// CloneFromHistory 从客户历史已通过记录克隆出新的 pending 记录
// 选择规则见 domain.BestQualifying；没有任何已通过记录时返回 (nil, nil)，
// 由调用方决定是否视为错误。cloneDocs 为 true 时同时克隆蓝本的必备类型文件。
func (s *Service) CloneFromHistory(ctx context.Context, customerID string, required domain.Level, requiredDocs []domain.DocumentType, cloneDocs bool) (*domain.VerificationRecord, error) {
	approved, err := s.records.FindApprovedByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	source := domain.BestQualifying(approved, required)
	if source == nil {
		return nil, nil
	}

	record := domain.CloneForReview(fmt.Sprintf("KYC-%d", idgen.GenID()), source, required)
	if err := s.records.Save(ctx, record); err != nil {
		return nil, err
	}

	if cloneDocs {
		if err := s.cloneRequiredDocuments(ctx, source, record, requiredDocs); err != nil {
			return nil, err
		}
	}

	s.logger.InfoContext(ctx, "verification record cloned for review",
		"record_id", record.RecordID,
		"source_record_id", source.RecordID,
		"customer_id", customerID,
		"level", required)

	return record, nil
}

// cloneRequiredDocuments 克隆蓝本记录的必备类型文件到新记录
func (s *Service) cloneRequiredDocuments(ctx context.Context, source, target *domain.VerificationRecord, types []domain.DocumentType) error {
	sourceDocs, err := s.documents.FindByRecord(ctx, source.RecordID)
	if err != nil {
		return err
	}

	required := domain.FilterByTypes(sourceDocs, types)
	if len(required) == 0 {
		return nil
	}

	clones := make([]*domain.Document, 0, len(required))
	for _, doc := range required {
		clones = append(clones, domain.NewDocument(
			fmt.Sprintf("DOC-%d", idgen.GenID()),
			doc.CustomerID,
			target.RecordID,
			doc.Type,
			doc.StorageRef,
			doc.Checksum,
		))
	}

	return s.documents.SaveBatch(ctx, clones)
}

// AttachmentInput 外部显式提交的文件
type AttachmentInput struct {
	Type       domain.DocumentType
	StorageRef string
	Checksum   string
}

// AttachDocuments 登记客户显式提交的文件，recordID 可为空表示不关联审核记录
func (s *Service) AttachDocuments(ctx context.Context, customerID, recordID string, inputs []AttachmentInput) ([]*domain.Document, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	docs := make([]*domain.Document, 0, len(inputs))
	for _, in := range inputs {
		docs = append(docs, domain.NewDocument(
			fmt.Sprintf("DOC-%d", idgen.GenID()),
			customerID,
			recordID,
			in.Type,
			in.StorageRef,
			in.Checksum,
		))
	}

	if err := s.documents.SaveBatch(ctx, docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Approve 审批通过客户最新的待审核记录
func (s *Service) Approve(ctx context.Context, recordID, reviewerID string) (*domain.VerificationRecord, error) {
	record, err := s.records.GetWithLock(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if err := record.Approve(reviewerID); err != nil {
		return nil, err
	}

	if err := s.records.Save(ctx, record); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "verification record approved",
		"record_id", recordID, "reviewer_id", reviewerID)

	return record, nil
}

// Reject 审批拒绝，终态
func (s *Service) Reject(ctx context.Context, recordID, reviewerID, reason string) (*domain.VerificationRecord, error) {
	record, err := s.records.GetWithLock(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if err := record.Reject(reviewerID, reason); err != nil {
		return nil, err
	}

	if err := s.records.Save(ctx, record); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "verification record rejected",
		"record_id", recordID, "reviewer_id", reviewerID, "reason", reason)

	return record, nil
}

// LatestPending 获取客户最新的待审核记录，不存在时返回 nil
func (s *Service) LatestPending(ctx context.Context, customerID string) (*domain.VerificationRecord, error) {
	return s.records.FindLatestPendingByCustomer(ctx, customerID)
}

// LatestApproved 获取客户最新的已通过记录，不存在时返回 nil
func (s *Service) LatestApproved(ctx context.Context, customerID string) (*domain.VerificationRecord, error) {
	approved, err := s.records.FindApprovedByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(approved) == 0 {
		return nil, nil
	}
	return approved[0], nil
}

// ListByCustomer 获取客户全部审核记录
func (s *Service) ListByCustomer(ctx context.Context, customerID string) ([]*domain.VerificationRecord, error) {
	return s.records.ListByCustomer(ctx, customerID)
}

// ListDocuments 获取客户全部文件
func (s *Service) ListDocuments(ctx context.Context, customerID string) ([]*domain.Document, error) {
	return s.documents.FindByCustomer(ctx, customerID)
}
