package domain

import (
	"gorm.io/gorm"
)

// DocumentType 证明文件类型
type DocumentType string

const (
	DocIDFront       DocumentType = "ID_FRONT"
	DocIDBack        DocumentType = "ID_BACK"
	DocPassport      DocumentType = "PASSPORT"
	DocBankStatement DocumentType = "BANK_STATEMENT"
	DocAddressProof  DocumentType = "ADDRESS_PROOF"
	DocSelfie        DocumentType = "SELFIE"
)

// Document 证明文件实体，创建后不可变
// 只保存外部存储引用与校验和，核心从不解析文件内容。
type Document struct {
	gorm.Model
	DocumentID string       `gorm:"column:document_id;type:varchar(32);uniqueIndex;not null"`
	CustomerID string       `gorm:"column:customer_id;type:varchar(32);index;not null"`
	RecordID   string       `gorm:"column:record_id;type:varchar(32);index"` // 关联的审核记录，可为空
	Type       DocumentType `gorm:"column:type;type:varchar(30);not null"`
	StorageRef string       `gorm:"column:storage_ref;type:varchar(255);not null"`
	Checksum   string       `gorm:"column:checksum;type:varchar(64)"`
}

// TableName 表名
func (Document) TableName() string { return "documents" }

// NewDocument 创建证明文件
func NewDocument(documentID, customerID, recordID string, docType DocumentType, storageRef, checksum string) *Document {
	return &Document{
		DocumentID: documentID,
		CustomerID: customerID,
		RecordID:   recordID,
		Type:       docType,
		StorageRef: storageRef,
		Checksum:   checksum,
	}
}

// FilterByTypes 按类型集合过滤文件，用于克隆历史记录的必备文件
func FilterByTypes(docs []*Document, types []DocumentType) []*Document {
	if len(types) == 0 {
		return nil
	}
	wanted := make(map[DocumentType]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}
	var out []*Document
	for _, doc := range docs {
		if wanted[doc.Type] {
			out = append(out, doc)
		}
	}
	return out
}
