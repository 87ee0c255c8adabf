package port

import (
	"context"

	"waimai/internal/service/order/domain"
)

// NotificationProducer 是商家端通知的出站端口。
// 尽力送达：发送失败只记日志，绝不回滚或失败触发它的状态流转。
type NotificationProducer interface {
	// Broadcast 广播一条生命周期通知
	Broadcast(ctx context.Context, event *domain.NotificationEvent) error
}
