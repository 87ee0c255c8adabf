// internal/service/order/domain/event.go
package domain

// 推送给商家端的通知类型
const (
	NotificationOrderReminder    = 1 // 来单提醒（支付成功后）
	NotificationCustomerReminder = 2 // 客户催单
)

// NotificationEvent 通过消息队列广播到推送网关，再由网关下发给商家端
type NotificationEvent struct {
	Type    int    `json:"type"`
	OrderID int64  `json:"orderId"`
	Content string `json:"content"`
}
