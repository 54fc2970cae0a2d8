package infrastructure

import (
	"context"

	"github.com/wyfcoding/wealthservice/internal/membership/domain"
	"github.com/wyfcoding/wealthservice/pkg/mq"
)

// KafkaEventPublisher 基于 Kafka 的领域事件发布器
type KafkaEventPublisher struct {
	producer *mq.KafkaProducer
	topic    string
}

// NewKafkaEventPublisher 创建事件发布器
func NewKafkaEventPublisher(producer *mq.KafkaProducer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

// Publish 发布领域事件，以客户 ID 作为分区键保证同客户事件有序
func (p *KafkaEventPublisher) Publish(ctx context.Context, event *domain.DomainEvent) error {
	key := event.CustomerID
	if key == "" {
		key = event.SubscriptionID
	}
	return p.producer.SendMessage(ctx, p.topic, key, event)
}
