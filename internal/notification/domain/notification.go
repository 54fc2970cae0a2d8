// Package domain 客户通知领域模型
package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// NotificationType 通知类型
type NotificationType string

const (
	NotificationTypeEmail NotificationType = "EMAIL" // 邮件通知
	NotificationTypeSMS   NotificationType = "SMS"   // 短信通知
)

// NotificationStatus 通知状态
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "PENDING"
	NotificationStatusSent    NotificationStatus = "SENT"
	NotificationStatusFailed  NotificationStatus = "FAILED"
)

// Notification 通知实体
type Notification struct {
	gorm.Model
	NotificationID string           `gorm:"column:notification_id;type:varchar(32);uniqueIndex;not null" json:"notification_id"`
	CustomerID     string           `gorm:"column:customer_id;type:varchar(32);index;not null" json:"customer_id"`
	Type           NotificationType `gorm:"column:type;type:varchar(20);not null" json:"type"`
	Subject        string           `gorm:"column:subject;type:varchar(100)" json:"subject"`
	Content        string           `gorm:"column:content;type:text" json:"content"`
	// Target 通知目标（如邮箱、手机号）
	Target       string             `gorm:"column:target;type:varchar(100);not null" json:"target"`
	Status       NotificationStatus `gorm:"column:status;type:varchar(20);index;not null;default:'PENDING'" json:"status"`
	ErrorMessage string             `gorm:"column:error_message;type:text" json:"error_message"`
	SentAt       *time.Time         `gorm:"column:sent_at;type:datetime" json:"sent_at"`
}

// TableName 表名
func (Notification) TableName() string { return "notifications" }

// MarkSent 标记已发送
func (n *Notification) MarkSent(now time.Time) {
	n.Status = NotificationStatusSent
	n.SentAt = &now
}

// MarkFailed 标记发送失败
func (n *Notification) MarkFailed(errMsg string) {
	n.Status = NotificationStatusFailed
	n.ErrorMessage = errMsg
}

// Sender 通知发送接口
type Sender interface {
	Send(ctx context.Context, target, subject, content string) error
}

// NotificationRepository 通知仓储接口
type NotificationRepository interface {
	// Save 保存通知
	Save(ctx context.Context, notification *Notification) error
	// ListByCustomer 获取客户通知历史，按创建时间降序
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*Notification, int64, error)
}
