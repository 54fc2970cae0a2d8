// Package infrastructure 服务订阅基础设施层
package infrastructure

import (
	"context"
	"time"

	"github.com/wyfcoding/pkg/contextx"
	catalogdomain "github.com/wyfcoding/wealthservice/internal/catalog/domain"
	"github.com/wyfcoding/wealthservice/internal/membership/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSubscriptionRepository GORM 服务订阅仓储实现
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository 创建服务订阅仓储
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// Transaction 在同一事务上下文中执行回调
func (r *GormSubscriptionRepository) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(contextx.WithTx(ctx, tx))
	})
}

// Save 保存订阅
func (r *GormSubscriptionRepository) Save(ctx context.Context, sub *domain.ServiceSubscription) error {
	return r.getDB(ctx).WithContext(ctx).Save(sub).Error
}

// GetBySubscriptionID 根据业务 ID 获取
func (r *GormSubscriptionRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.ServiceSubscription, error) {
	var sub domain.ServiceSubscription
	err := r.getDB(ctx).WithContext(ctx).Where("subscription_id = ?", subscriptionID).First(&sub).Error
	if err == gorm.ErrRecordNotFound {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetWithLock 悲观锁获取
func (r *GormSubscriptionRepository) GetWithLock(ctx context.Context, subscriptionID string) (*domain.ServiceSubscription, error) {
	var sub domain.ServiceSubscription
	err := r.getDB(ctx).WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("subscription_id = ?", subscriptionID).First(&sub).Error
	if err == gorm.ErrRecordNotFound {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindByCustomerAndType 获取客户该服务类型下最新的一行
func (r *GormSubscriptionRepository) FindByCustomerAndType(ctx context.Context, customerID string, serviceType catalogdomain.ServiceType) (*domain.ServiceSubscription, error) {
	var sub domain.ServiceSubscription
	err := r.getDB(ctx).WithContext(ctx).
		Where("customer_id = ? AND service_type = ?", customerID, serviceType).
		Order("created_at DESC").
		First(&sub).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindActiveByCustomerAndType 获取客户该服务类型下激活的一行
func (r *GormSubscriptionRepository) FindActiveByCustomerAndType(ctx context.Context, customerID string, serviceType catalogdomain.ServiceType) (*domain.ServiceSubscription, error) {
	var sub domain.ServiceSubscription
	err := r.getDB(ctx).WithContext(ctx).
		Where("customer_id = ? AND service_type = ? AND active = ?", customerID, serviceType, true).
		Order("created_at DESC").
		First(&sub).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindActiveOthers 获取同客户同类型下除指定订阅外的全部激活行
func (r *GormSubscriptionRepository) FindActiveOthers(ctx context.Context, customerID string, serviceType catalogdomain.ServiceType, excludeID string) ([]*domain.ServiceSubscription, error) {
	var subs []*domain.ServiceSubscription
	err := r.getDB(ctx).WithContext(ctx).
		Where("customer_id = ? AND service_type = ? AND active = ? AND subscription_id <> ?",
			customerID, serviceType, true, excludeID).
		Find(&subs).Error
	return subs, err
}

// FindExpired 获取到期时间早于 now 的全部激活行
func (r *GormSubscriptionRepository) FindExpired(ctx context.Context, now time.Time) ([]*domain.ServiceSubscription, error) {
	var subs []*domain.ServiceSubscription
	err := r.getDB(ctx).WithContext(ctx).
		Where("active = ? AND subscription_expires_at IS NOT NULL AND subscription_expires_at < ?", true, now).
		Find(&subs).Error
	return subs, err
}

// ListByCustomer 获取客户全部订阅，按创建时间降序
func (r *GormSubscriptionRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domain.ServiceSubscription, error) {
	var subs []*domain.ServiceSubscription
	err := r.getDB(ctx).WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&subs).Error
	return subs, err
}

// SaveUsageLink 写入关联审计行
func (r *GormSubscriptionRepository) SaveUsageLink(ctx context.Context, link *domain.ServiceUsageLink) error {
	return r.getDB(ctx).WithContext(ctx).Create(link).Error
}

func (r *GormSubscriptionRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// GormPaymentRepository GORM 支付仓储实现
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository 创建支付仓储
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Save 保存支付记录
func (r *GormPaymentRepository) Save(ctx context.Context, payment *domain.Payment) error {
	return r.getDB(ctx).WithContext(ctx).Save(payment).Error
}

// GetByPaymentID 根据业务 ID 获取
func (r *GormPaymentRepository) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Payment, error) {
	var payment domain.Payment
	err := r.getDB(ctx).WithContext(ctx).Where("payment_id = ?", paymentID).First(&payment).Error
	if err == gorm.ErrRecordNotFound {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetWithLock 悲观锁获取
func (r *GormPaymentRepository) GetWithLock(ctx context.Context, paymentID string) (*domain.Payment, error) {
	var payment domain.Payment
	err := r.getDB(ctx).WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("payment_id = ?", paymentID).First(&payment).Error
	if err == gorm.ErrRecordNotFound {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindSucceededBySubscription 获取订阅下最新的成功支付
func (r *GormPaymentRepository) FindSucceededBySubscription(ctx context.Context, subscriptionID string) (*domain.Payment, error) {
	var payment domain.Payment
	err := r.getDB(ctx).WithContext(ctx).
		Where("subscription_id = ? AND status = ?", subscriptionID, domain.PaymentSucceeded).
		Order("created_at DESC").
		First(&payment).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListByCustomer 获取客户全部支付记录，按创建时间降序
func (r *GormPaymentRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	err := r.getDB(ctx).WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}

func (r *GormPaymentRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// GormAddressRepository GORM 客户主地址仓储实现
type GormAddressRepository struct {
	db *gorm.DB
}

// NewGormAddressRepository 创建客户主地址仓储
func NewGormAddressRepository(db *gorm.DB) *GormAddressRepository {
	return &GormAddressRepository{db: db}
}

// UpsertPrimary 替换式写入客户主地址
func (r *GormAddressRepository) UpsertPrimary(ctx context.Context, addr *domain.Address) error {
	var existing domain.Address
	err := r.getDB(ctx).WithContext(ctx).Where("customer_id = ?", addr.CustomerID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.getDB(ctx).WithContext(ctx).Create(addr).Error
	}
	if err != nil {
		return err
	}
	addr.ID = existing.ID
	addr.CreatedAt = existing.CreatedAt
	return r.getDB(ctx).WithContext(ctx).Save(addr).Error
}

// GetPrimary 获取客户主地址
func (r *GormAddressRepository) GetPrimary(ctx context.Context, customerID string) (*domain.Address, error) {
	var addr domain.Address
	err := r.getDB(ctx).WithContext(ctx).Where("customer_id = ?", customerID).First(&addr).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func (r *GormAddressRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}
