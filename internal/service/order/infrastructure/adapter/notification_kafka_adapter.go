package adapter

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"waimai/internal/pkg/mq"
	"waimai/internal/service/order/domain"
)

// NotificationKafkaAdapter 实现了 port.NotificationProducer 接口。
// 通知先进 Kafka，由推送网关消费后经 WebSocket 下发给商家端，
// 生产失败由调用方记日志吞掉，不影响状态流转。
type NotificationKafkaAdapter struct {
	writer *kafka.Writer
}

func NewNotificationKafkaAdapter(writer *kafka.Writer) *NotificationKafkaAdapter {
	return &NotificationKafkaAdapter{writer: writer}
}

// Broadcast 把通知事件写入通知主题，消息键取订单 ID 保证同单有序
func (a *NotificationKafkaAdapter) Broadcast(ctx context.Context, event *domain.NotificationEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal notification event")
	}
	key := []byte(strconv.FormatInt(event.OrderID, 10))
	// mq.ProduceMessage 会自动注入追踪上下文
	return mq.ProduceMessage(ctx, a.writer, key, eventBytes)
}

// Close 关闭底层的 Kafka writer
func (a *NotificationKafkaAdapter) Close() error {
	return a.writer.Close()
}
