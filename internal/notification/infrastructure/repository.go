package infrastructure

import (
	"context"

	"github.com/wyfcoding/wealthservice/internal/notification/domain"
	"gorm.io/gorm"
)

// GormNotificationRepository GORM 通知仓储实现
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository 创建通知仓储
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Save 保存通知
func (r *GormNotificationRepository) Save(ctx context.Context, notification *domain.Notification) error {
	return r.db.WithContext(ctx).Save(notification).Error
}

// ListByCustomer 获取客户通知历史
func (r *GormNotificationRepository) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*domain.Notification, int64, error) {
	var total int64
	query := r.db.WithContext(ctx).Model(&domain.Notification{}).Where("customer_id = ?", customerID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []*domain.Notification
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&notifications).Error
	if err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}
