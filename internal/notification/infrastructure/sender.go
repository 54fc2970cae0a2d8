// Package infrastructure 通知基础设施层
package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/wyfcoding/wealthservice/internal/notification/domain"
	"github.com/wyfcoding/wealthservice/pkg/mq"
)

// SMTPSender 邮件发送器
type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// NewSMTPSender 创建邮件发送器
func NewSMTPSender(host, port, username, password, from string) domain.Sender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// Send 发送邮件
func (s *SMTPSender) Send(ctx context.Context, target, subject, content string) error {
	slog.InfoContext(ctx, "sending email", "target", target, "subject", subject)

	// 企业级实现通常使用 gomail 或直接使用 net/smtp
	msg := []byte("To: " + target + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		content + "\r\n")

	// auth := smtp.PlainAuth("", s.username, s.password, s.host)
	// addr := fmt.Sprintf("%s:%s", s.host, s.port)

	// 在模拟环境中通过日志输出模拟发送，防止 Auth 失败
	slog.DebugContext(ctx, "SMTP Raw Message", "msg", string(msg))

	// return smtp.SendMail(addr, auth, s.from, []string{target}, msg)
	return nil
}

// KafkaNotificationSender 将通知指令发送到 Kafka，由专门的消费者服务
// （如阿里云 SMS / SendGrid 适配器）执行。
type KafkaNotificationSender struct {
	producer *mq.KafkaProducer
	topic    string
}

// NotificationCommand 发送到 Kafka 的统一指令格式
type NotificationCommand struct {
	Target  string `json:"target"`
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// NewKafkaNotificationSender 创建 Kafka 发送器
func NewKafkaNotificationSender(producer *mq.KafkaProducer, topic string) domain.Sender {
	return &KafkaNotificationSender{
		producer: producer,
		topic:    topic,
	}
}

// Send 将通知推送到消息队列
// 使用 Target 做 Key 保证同一接收者的时序性。
func (s *KafkaNotificationSender) Send(ctx context.Context, target, subject, content string) error {
	cmd := NotificationCommand{
		Target:  target,
		Subject: subject,
		Content: content,
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal notification command: %w", err)
	}
	return s.producer.SendRaw(ctx, s.topic, []byte(target), payload)
}

// MockSender 模拟发送器，只记录日志
type MockSender struct{}

// NewMockSender 创建模拟发送器
func NewMockSender() domain.Sender {
	return &MockSender{}
}

// Send 发送通知（模拟实现）
func (s *MockSender) Send(ctx context.Context, target, subject, content string) error {
	slog.InfoContext(ctx, "sending notification",
		"sender", "MockSender",
		"target", target,
		"subject", subject,
		"content_length", len(content),
	)
	return nil
}
