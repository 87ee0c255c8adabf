// internal/service/order/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"waimai/internal/service/order/domain"
)

// GormOrderRepository 是 domain.OrderRepository 的 GORM 实现。
// 状态流转全部走 UpdateConditional 的条件写，依赖数据库的
// “WHERE id = ? AND status = ?” 保证乐观并发，不使用任何全局锁。
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// CreateFromCart 在一个事务里插入订单和明细并清空该用户购物车。
// 崩溃发生在中途时三者一起回滚，不会出现没有明细的可计费订单。
func (r *GormOrderRepository) CreateFromCart(ctx context.Context, ord *domain.Order, userID int64) error {
	model := FromDomainOrder(ord)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Create 会级联插入 Details 关联
		if err := tx.Create(model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrNumberTaken
			}
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&ShoppingCartModel{}).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNumberTaken) {
			return domain.ErrNumberTaken
		}
		return errors.Wrap(err, "create order from cart")
	}

	// 回填存储分配的主键
	ord.ID = model.ID
	for i := range model.Details {
		ord.Details[i].ID = model.Details[i].ID
		ord.Details[i].OrderID = model.Details[i].OrderID
	}
	return nil
}

func (r *GormOrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Preload("Details").First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "get order by id")
	}
	return ToDomainOrder(&model), nil
}

func (r *GormOrderRepository) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Preload("Details").Where("number = ?", number).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "get order by number")
	}
	return ToDomainOrder(&model), nil
}

func (r *GormOrderRepository) GetByNumberAndUserID(ctx context.Context, number string, userID int64) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Preload("Details").
		Where("number = ? AND user_id = ?", number, userID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "get order by number and user")
	}
	return ToDomainOrder(&model), nil
}

// UpdateConditional 条件写：只有库里的状态仍等于 expected 时才落库。
// RowsAffected 为 0 说明有并发操作抢先改掉了状态（订单不会被物理删除），
// 按输掉竞争处理返回 ErrConflict。
func (r *GormOrderRepository) UpdateConditional(ctx context.Context, ord *domain.Order, expected domain.Status) error {
	res := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ? AND status = ?", ord.ID, int(expected)).
		Updates(map[string]interface{}{
			"status":           int(ord.Status),
			"pay_status":       int(ord.PayStatus),
			"checkout_time":    ord.CheckoutTime,
			"cancel_time":      ord.CancelTime,
			"delivery_time":    ord.DeliveryTime,
			"cancel_reason":    ord.CancelReason,
			"rejection_reason": ord.RejectionReason,
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "conditional update order")
	}
	if res.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormOrderRepository) ListByStatusAndOrderTimeBefore(ctx context.Context, status domain.Status, deadline time.Time) ([]*domain.Order, error) {
	var models []OrderModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND order_time < ?", int(status), deadline).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "scan orders by status and time")
	}
	orders := make([]*domain.Order, 0, len(models))
	for i := range models {
		orders = append(orders, ToDomainOrder(&models[i]))
	}
	return orders, nil
}

func (r *GormOrderRepository) ListByUser(ctx context.Context, userID int64, status *domain.Status, page, pageSize int) ([]*domain.Order, error) {
	query := r.db.WithContext(ctx).Preload("Details").Where("user_id = ?", userID)
	if status != nil {
		query = query.Where("status = ?", int(*status))
	}

	var models []OrderModel
	err := query.Order("order_time DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "list orders by user")
	}
	orders := make([]*domain.Order, 0, len(models))
	for i := range models {
		orders = append(orders, ToDomainOrder(&models[i]))
	}
	return orders, nil
}

func (r *GormOrderRepository) CountByStatus(ctx context.Context, status domain.Status) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("status = ?", int(status)).Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "count orders by status")
	}
	return count, nil
}
