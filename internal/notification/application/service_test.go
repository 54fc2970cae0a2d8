package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/wealthservice/internal/notification/domain"
)

type fakeRepo struct {
	mu            sync.Mutex
	notifications []*domain.Notification
}

func (r *fakeRepo) Save(ctx context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.notifications {
		if existing.NotificationID == n.NotificationID {
			r.notifications[i] = n
			return nil
		}
	}
	r.notifications = append(r.notifications, n)
	return nil
}

func (r *fakeRepo) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*domain.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Notification
	for i := len(r.notifications) - 1; i >= 0; i-- {
		if r.notifications[i].CustomerID == customerID {
			out = append(out, r.notifications[i])
		}
	}
	return out, int64(len(out)), nil
}

type failingSender struct{}

func (s *failingSender) Send(ctx context.Context, target, subject, content string) error {
	return errors.New("smtp unreachable")
}

func TestDispatchRecordsSent(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, infraMockSender{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	svc.ServiceActivated(ctx, "CUST-1", "premium_membership")
	svc.PaymentApproved(ctx, "CUST-1", "PAY-1", decimal.RequireFromString("549.99"))
	svc.InvestmentApproved(ctx, "CUST-1", "INV-1", decimal.RequireFromString("75000"), decimal.RequireFromString("0.19"))

	history, total, err := svc.History(ctx, "CUST-1", 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	for _, n := range history {
		assert.Equal(t, domain.NotificationStatusSent, n.Status)
		assert.NotNil(t, n.SentAt)
	}
}

func TestDispatchFailureIsRecordedNotPropagated(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, &failingSender{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// 发送失败不 panic、不向调用方传播，只留痕
	svc.ServiceActivated(context.Background(), "CUST-1", "stock_picks")

	history, _, err := svc.History(context.Background(), "CUST-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.NotificationStatusFailed, history[0].Status)
	assert.Contains(t, history[0].ErrorMessage, "smtp unreachable")
}

// infraMockSender 测试内简化版成功发送器
type infraMockSender struct{}

func (infraMockSender) Send(ctx context.Context, target, subject, content string) error { return nil }
