// Package application 客户通知应用层
// 通知发送是尽力而为的旁路：落库留痕并调用发送器，任何失败只记日志，
// 绝不向触发通知的业务流程传播错误。
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/wealthservice/internal/notification/domain"
	"github.com/wyfcoding/wealthservice/pkg/utils"
)

// Service 通知应用服务
// 同时充当订阅与投资上下文的通知端口实现。
type Service struct {
	repo   domain.NotificationRepository
	sender domain.Sender
	logger *slog.Logger
}

// NewService 创建通知应用服务
func NewService(repo domain.NotificationRepository, sender domain.Sender, logger *slog.Logger) *Service {
	return &Service{repo: repo, sender: sender, logger: logger}
}

// ServiceActivated 服务开通通知
func (s *Service) ServiceActivated(ctx context.Context, customerID, serviceType string) {
	s.dispatch(ctx, customerID, "Service Activated",
		fmt.Sprintf("Your %s service is now active.", serviceType))
}

// PaymentApproved 支付确认通知
func (s *Service) PaymentApproved(ctx context.Context, customerID, paymentID string, amount decimal.Decimal) {
	s.dispatch(ctx, customerID, "Payment Confirmed",
		fmt.Sprintf("Your payment %s of %s has been confirmed.", paymentID, amount))
}

// InvestmentApproved 投资审批通过通知
func (s *Service) InvestmentApproved(ctx context.Context, customerID, requestID string, amount, rate decimal.Decimal) {
	s.dispatch(ctx, customerID, "Investment Approved",
		fmt.Sprintf("Your investment request %s of %s has been approved at an annual rate of %s.",
			requestID, amount, rate))
}

// SendCommand 手工发送命令
type SendCommand struct {
	CustomerID string
	Type       domain.NotificationType
	Target     string
	Subject    string
	Content    string
}

// Send 手工发送一条通知，留痕并返回记录
func (s *Service) Send(ctx context.Context, cmd SendCommand) (*domain.Notification, error) {
	if cmd.Subject == "" || cmd.Content == "" {
		return nil, fmt.Errorf("subject and content are required")
	}
	notifType := cmd.Type
	if notifType == "" {
		notifType = domain.NotificationTypeEmail
	}
	target := cmd.Target
	if target == "" {
		target = cmd.CustomerID
	}

	notification := &domain.Notification{
		NotificationID: fmt.Sprintf("NTF-%d", idgen.GenID()),
		CustomerID:     cmd.CustomerID,
		Type:           notifType,
		Subject:        cmd.Subject,
		Content:        cmd.Content,
		Target:         target,
		Status:         domain.NotificationStatusPending,
	}
	if err := s.repo.Save(ctx, notification); err != nil {
		return nil, err
	}

	if err := s.sender.Send(ctx, notification.Target, cmd.Subject, cmd.Content); err != nil {
		notification.MarkFailed(err.Error())
	} else {
		notification.MarkSent(time.Now())
	}
	if err := s.repo.Save(ctx, notification); err != nil {
		return nil, err
	}
	return notification, nil
}

// dispatch 落库留痕并发送
// 收件地址由下游发送通道按客户 ID 解析。
func (s *Service) dispatch(ctx context.Context, customerID, subject, content string) {
	notification := &domain.Notification{
		NotificationID: fmt.Sprintf("NTF-%d", idgen.GenID()),
		CustomerID:     customerID,
		Type:           domain.NotificationTypeEmail,
		Subject:        subject,
		Content:        content,
		Target:         customerID,
		Status:         domain.NotificationStatusPending,
	}
	if err := s.repo.Save(ctx, notification); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist notification",
			"customer_id", customerID, "subject", subject, "error", err)
		return
	}

	// 发送通道抖动时短暂重试，仍失败则落 FAILED 状态
	err := utils.Retry(3, 100*time.Millisecond, func() error {
		return s.sender.Send(ctx, notification.Target, subject, content)
	})
	if err != nil {
		notification.MarkFailed(err.Error())
		s.logger.ErrorContext(ctx, "failed to send notification",
			"notification_id", notification.NotificationID, "error", err)
	} else {
		notification.MarkSent(time.Now())
	}

	if err := s.repo.Save(ctx, notification); err != nil {
		s.logger.ErrorContext(ctx, "failed to update notification status",
			"notification_id", notification.NotificationID, "error", err)
	}
}

// History 获取客户通知历史
func (s *Service) History(ctx context.Context, customerID string, limit, offset int) ([]*domain.Notification, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByCustomer(ctx, customerID, limit, offset)
}
