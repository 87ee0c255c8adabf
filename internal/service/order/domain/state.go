// internal/service/order/domain/state.go
package domain

// Status 定义了订单的生命周期状态，序号与数据库中的取值一致
type Status int

const (
	StatusPendingPayment     Status = 1 // 待付款
	StatusToBeConfirmed      Status = 2 // 待接单（已支付）
	StatusConfirmed          Status = 3 // 已接单
	StatusDeliveryInProgress Status = 4 // 派送中
	StatusCompleted          Status = 5 // 已完成
	StatusCancelled          Status = 6 // 已取消（用户/商家/超时）
)

func (s Status) String() string {
	switch s {
	case StatusPendingPayment:
		return "PENDING_PAYMENT"
	case StatusToBeConfirmed:
		return "TO_BE_CONFIRMED"
	case StatusConfirmed:
		return "CONFIRMED"
	case StatusDeliveryInProgress:
		return "DELIVERY_IN_PROGRESS"
	case StatusCompleted:
		return "COMPLETED"
	case StatusCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// PayStatus 定义了订单的支付状态
type PayStatus int

const (
	PayStatusUnpaid   PayStatus = 0 // 未支付
	PayStatusPaid     PayStatus = 1 // 已支付
	PayStatusRefunded PayStatus = 2 // 已退款
)

func (p PayStatus) String() string {
	switch p {
	case PayStatusUnpaid:
		return "UNPAID"
	case PayStatusPaid:
		return "PAID"
	case PayStatusRefunded:
		return "REFUNDED"
	default:
		return "UNKNOWN"
	}
}
