package port

import "context"

// ConfirmResult 是支付网关确认支付的结果
type ConfirmResult struct {
	Success          bool
	AlreadyConfirmed bool
}

// PaymentGateway 是支付能力的出站端口。
// Confirm 是幂等的：同一订单号重复确认返回 AlreadyConfirmed 而不是报错。
type PaymentGateway interface {
	Confirm(ctx context.Context, orderNumber string) (*ConfirmResult, error)
}
