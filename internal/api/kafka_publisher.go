package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ki3lbix/Kuchnia/internal/services"
)

const kafkaWriteTimeout = 5 * time.Second

// KafkaPublisher отправляет события распределения остатков в Kafka.
// Ключ сообщения plan_id, события одного плана попадают в одну партицию по порядку
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher создает producer для топика
func NewKafkaPublisher(brokers []string, topic string, transport *kafka.Transport) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			BatchTimeout:           10 * time.Millisecond,
			Transport:              transport,
			AllowAutoTopicCreation: true,
		},
	}
}

// Publish синхронная запись, ошибка доставки возвращается вызывающему
func (p *KafkaPublisher) Publish(ctx context.Context, event services.AllocationEvent) error {
	msg, err := buildMessage(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, kafkaWriteTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s: %w", event.Type, err)
	}
	return nil
}

// Close закрывает Kafka writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func buildMessage(event services.AllocationEvent) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s event: %w", event.Type, err)
	}
	return kafka.Message{
		Key:   []byte(event.PlanID),
		Value: payload,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}, nil
}
