package port

import (
	"context"

	"waimai/internal/service/order/domain"
)

// CartService 是购物车协作方的出站端口
type CartService interface {
	// ListForUser 返回用户购物车中的全部行
	ListForUser(ctx context.Context, userID int64) ([]domain.CartLine, error)

	// AddLines 向用户购物车追加若干行（再来一单使用）
	AddLines(ctx context.Context, userID int64, lines []domain.CartLine) error
}
