package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/wyfcoding/wealthservice/internal/catalog/domain"
)

// SubscriptionRepository 服务订阅仓储接口
type SubscriptionRepository interface {
	// Transaction 在单个数据库事务中执行 fn，事务经 context 向下传递
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	// Save 保存或更新订阅
	Save(ctx context.Context, sub *ServiceSubscription) error
	// GetBySubscriptionID 根据业务 ID 获取，不存在返回 ErrNotFound
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*ServiceSubscription, error)
	// GetWithLock 悲观锁获取
	GetWithLock(ctx context.Context, subscriptionID string) (*ServiceSubscription, error)
	// FindByCustomerAndType 获取客户该服务类型下最新的一行，不存在返回 nil
	FindByCustomerAndType(ctx context.Context, customerID string, serviceType catalogdomain.ServiceType) (*ServiceSubscription, error)
	// FindActiveByCustomerAndType 获取客户该服务类型下激活的一行，不存在返回 nil
	FindActiveByCustomerAndType(ctx context.Context, customerID string, serviceType catalogdomain.ServiceType) (*ServiceSubscription, error)
	// FindActiveOthers 获取同客户同类型下除指定订阅外的全部激活行
	FindActiveOthers(ctx context.Context, customerID string, serviceType catalogdomain.ServiceType, excludeID string) ([]*ServiceSubscription, error)
	// FindExpired 获取到期时间早于 now 的全部激活行
	FindExpired(ctx context.Context, now time.Time) ([]*ServiceSubscription, error)
	// ListByCustomer 获取客户全部订阅，按创建时间降序
	ListByCustomer(ctx context.Context, customerID string) ([]*ServiceSubscription, error)
	// SaveUsageLink 写入订阅与审核记录的关联审计行
	SaveUsageLink(ctx context.Context, link *ServiceUsageLink) error
}

// PaymentRepository 支付仓储接口
type PaymentRepository interface {
	// Save 保存或更新支付记录
	Save(ctx context.Context, payment *Payment) error
	// GetByPaymentID 根据业务 ID 获取，不存在返回 ErrNotFound
	GetByPaymentID(ctx context.Context, paymentID string) (*Payment, error)
	// GetWithLock 悲观锁获取
	GetWithLock(ctx context.Context, paymentID string) (*Payment, error)
	// FindSucceededBySubscription 获取订阅下最新的成功支付，不存在返回 nil
	FindSucceededBySubscription(ctx context.Context, subscriptionID string) (*Payment, error)
	// ListByCustomer 获取客户全部支付记录，按创建时间降序
	ListByCustomer(ctx context.Context, customerID string) ([]*Payment, error)
}

// AddressRepository 客户主地址仓储接口
type AddressRepository interface {
	// UpsertPrimary 替换式写入客户主地址
	UpsertPrimary(ctx context.Context, addr *Address) error
	// GetPrimary 获取客户主地址，不存在返回 nil
	GetPrimary(ctx context.Context, customerID string) (*Address, error)
}

// DomainEvent 订阅生命周期领域事件，提交后发布
type DomainEvent struct {
	EventID        string    `json:"event_id"`
	Type           string    `json:"type"`
	CustomerID     string    `json:"customer_id"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
	PaymentID      string    `json:"payment_id,omitempty"`
	ServiceType    string    `json:"service_type,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// 事件类型
const (
	EventServiceApplied      = "service.applied"
	EventServiceActivated    = "service.activated"
	EventPaymentApproved     = "payment.approved"
	EventSubscriptionRenewed = "subscription.renewed"
	EventSubscriptionExpired = "subscription.expired"
)

// EventPublisher 领域事件发布端口
type EventPublisher interface {
	Publish(ctx context.Context, event *DomainEvent) error
}

// PaymentIntent 支付网关意向
type PaymentIntent struct {
	ID         string
	PaymentURL string
	Status     string
	ExpiresAt  time.Time
}

// PaymentProvider 支付网关端口
// 仅网关支付流程使用；调用必须发生在事务开启前或提交后，
// 不允许在持锁事务内做网络 I/O。
type PaymentProvider interface {
	CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string, returnURL, cancelURL string) (*PaymentIntent, error)
	ConfirmPayment(ctx context.Context, intentID string) (*PaymentIntent, error)
}
