// internal/service/order/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound 目标订单不存在
	ErrOrderNotFound = errors.New("order not found")

	// ErrAddressMissing 下单时地址簿记录不存在
	ErrAddressMissing = errors.New("address book record not found")

	// ErrCartEmpty 下单时购物车为空
	ErrCartEmpty = errors.New("shopping cart is empty")

	// ErrConflict 条件更新未命中：读到的状态在写入前已被并发修改。
	// 直接的用户操作把它原样返回给调用方重试；定时任务记录日志后跳过该订单。
	ErrConflict = errors.New("order was modified concurrently")

	// ErrNumberTaken 订单号唯一约束冲突，提交流程会重新生成订单号后重试
	ErrNumberTaken = errors.New("order number already taken")
)

// InvalidTransitionError 表示当前状态下不允许发起该事件
type InvalidTransitionError struct {
	Current Status
	Event   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: event %s not allowed in status %s", e.Event, e.Current)
}

func invalidTransition(current Status, event string) error {
	return &InvalidTransitionError{Current: current, Event: event}
}
