package infrastructure

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/wealthservice/internal/membership/domain"
)

// MockPaymentProvider 内存态支付网关实现，开发与测试环境使用
// 创建即成功：ConfirmPayment 对已知意向一律返回 succeeded。
type MockPaymentProvider struct {
	mu      sync.Mutex
	intents map[string]*domain.PaymentIntent
	baseURL string
}

// NewMockPaymentProvider 创建模拟支付网关
func NewMockPaymentProvider(baseURL string) *MockPaymentProvider {
	if baseURL == "" {
		baseURL = "https://pay.example.com"
	}
	return &MockPaymentProvider{
		intents: make(map[string]*domain.PaymentIntent),
		baseURL: baseURL,
	}
}

// CreatePaymentIntent 创建支付意向
func (p *MockPaymentProvider) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string, returnURL, cancelURL string) (*domain.PaymentIntent, error) {
	intent := &domain.PaymentIntent{
		ID:         fmt.Sprintf("PI-%s", uuid.NewString()),
		Status:     "requires_payment",
		ExpiresAt:  time.Now().Add(30 * time.Minute),
	}
	intent.PaymentURL = fmt.Sprintf("%s/checkout/%s", p.baseURL, intent.ID)

	p.mu.Lock()
	p.intents[intent.ID] = intent
	p.mu.Unlock()
	return intent, nil
}

// ConfirmPayment 回查支付意向状态
func (p *MockPaymentProvider) ConfirmPayment(ctx context.Context, intentID string) (*domain.PaymentIntent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	intent, ok := p.intents[intentID]
	if !ok {
		return nil, fmt.Errorf("payment intent not found: %s", intentID)
	}
	intent.Status = "succeeded"
	return intent, nil
}
