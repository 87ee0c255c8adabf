package adapter

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"waimai/internal/service/order/domain"
	"waimai/internal/service/order/infrastructure"
)

// CartGormAdapter 是 port.CartService 的 GORM 实现。
// 下单时的清空购物车不走这里：它和订单插入在仓储的同一个事务里完成。
type CartGormAdapter struct {
	db *gorm.DB
}

func NewCartGormAdapter(db *gorm.DB) *CartGormAdapter {
	return &CartGormAdapter{db: db}
}

func (a *CartGormAdapter) ListForUser(ctx context.Context, userID int64) ([]domain.CartLine, error) {
	var models []infrastructure.ShoppingCartModel
	err := a.db.WithContext(ctx).Where("user_id = ?", userID).Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "list shopping cart")
	}
	lines := make([]domain.CartLine, 0, len(models))
	for _, m := range models {
		lines = append(lines, domain.CartLine{
			Name:     m.Name,
			Image:    m.Image,
			Amount:   m.Amount,
			Quantity: m.Quantity,
		})
	}
	return lines, nil
}

// AddLines 再来一单：把历史订单明细整批放回购物车
func (a *CartGormAdapter) AddLines(ctx context.Context, userID int64, lines []domain.CartLine) error {
	if len(lines) == 0 {
		return nil
	}
	now := time.Now()
	models := make([]infrastructure.ShoppingCartModel, 0, len(lines))
	for _, line := range lines {
		models = append(models, infrastructure.ShoppingCartModel{
			UserID:     userID,
			Name:       line.Name,
			Image:      line.Image,
			Amount:     line.Amount,
			Quantity:   line.Quantity,
			CreateTime: now,
		})
	}
	if err := a.db.WithContext(ctx).Create(&models).Error; err != nil {
		return errors.Wrap(err, "add cart lines")
	}
	return nil
}
