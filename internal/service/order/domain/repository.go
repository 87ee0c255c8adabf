// internal/service/order/domain/repository.go
package domain

import (
	"context"
	"time"
)

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，由基础设施层实现。
type OrderRepository interface {
	// CreateFromCart 在同一个事务里插入订单、订单明细并清空该用户的购物车，
	// 三者要么全部落库要么全部回滚。订单号唯一约束冲突时返回 ErrNumberTaken。
	CreateFromCart(ctx context.Context, order *Order, userID int64) error

	// GetByID 根据 ID 查找订单（含明细）。不存在时返回 ErrOrderNotFound。
	GetByID(ctx context.Context, id int64) (*Order, error)

	// GetByNumber 根据订单号查找订单
	GetByNumber(ctx context.Context, number string) (*Order, error)

	// GetByNumberAndUserID 根据订单号和用户查找订单，用于支付入口的归属校验
	GetByNumberAndUserID(ctx context.Context, number string, userID int64) (*Order, error)

	// UpdateConditional 乐观并发写：只有数据库中的状态仍等于 expected 时才更新，
	// 否则返回 ErrConflict，由调用方决定重读还是跳过。
	UpdateConditional(ctx context.Context, order *Order, expected Status) error

	// ListByStatusAndOrderTimeBefore 定时任务扫描：指定状态且下单时间早于 deadline 的订单
	ListByStatusAndOrderTimeBefore(ctx context.Context, status Status, deadline time.Time) ([]*Order, error)

	// ListByUser 按用户分页查询历史订单，status 为 nil 时不过滤状态
	ListByUser(ctx context.Context, userID int64, status *Status, page, pageSize int) ([]*Order, error)

	// CountByStatus 按状态统计订单数量
	CountByStatus(ctx context.Context, status Status) (int64, error)
}
