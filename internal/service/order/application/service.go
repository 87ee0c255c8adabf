// internal/service/order/application/service.go
package application

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"waimai/internal/pkg/logger"
	"waimai/internal/service/order/domain"
	"waimai/internal/service/order/port"
)

// 订单号碰撞（跨进程同一毫秒下单）时的重新生成次数上限
const maxNumberAttempts = 3

// OrderApplicationService 是订单生命周期引擎，负责编排每一次状态流转：
// 读当前状态 -> 领域方法校验并修改 -> 以读到的状态为条件写回 -> 广播通知。
// 定时清扫走的是同一套条件写协议，双方对流转合法性和冲突裁决的口径一致。
type OrderApplicationService struct {
	orderRepo domain.OrderRepository
	numbers   *domain.NumberSource
	tracer    trace.Tracer

	payment   port.PaymentGateway
	cart      port.CartService
	addresses port.AddressBook
	notifier  port.NotificationProducer

	now func() time.Time
}

func NewOrderApplicationService(orderRepo domain.OrderRepository, tracer trace.Tracer, payment port.PaymentGateway, cart port.CartService, addresses port.AddressBook, notifier port.NotificationProducer) *OrderApplicationService {
	return &OrderApplicationService{
		orderRepo: orderRepo, numbers: domain.NewNumberSource(), tracer: tracer,
		payment: payment, cart: cart, addresses: addresses, notifier: notifier,
		now: time.Now,
	}
}

// Submit 用户下单：校验地址和购物车，生成订单号，
// 在一个事务里插入订单、明细并清空购物车。
func (s *OrderApplicationService) Submit(ctx context.Context, req *SubmitOrderRequest) (*SubmitOrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.SubmitOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", req.UserID))

	snapshot, err := s.addresses.GetByID(ctx, req.AddressBookID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	lines, err := s.cart.ListForUser(ctx, req.UserID)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "list shopping cart")
	}
	if len(lines) == 0 {
		return nil, domain.ErrCartEmpty
	}

	// 订单号取自毫秒时间戳，极端并发下可能撞上数据库唯一约束，
	// 撞上就重新生成再试，绝不复用已占用的订单号
	var ord *domain.Order
	for attempt := 0; ; attempt++ {
		now := s.now()
		ord, err = domain.NewOrder(req.UserID, s.numbers.Next(now), *snapshot, lines, now)
		if err != nil {
			return nil, err
		}
		err = s.orderRepo.CreateFromCart(ctx, ord, req.UserID)
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrNumberTaken) && attempt < maxNumberAttempts-1 {
			logger.Ctx(ctx).Warn().Str("number", ord.Number).Msg("order number collision, regenerating")
			continue
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create order")
		return nil, err
	}

	logger.Ctx(ctx).Info().Int64("order_id", ord.ID).Str("number", ord.Number).Msg("order submitted, pending payment")
	return &SubmitOrderResponse{
		ID:        ord.ID,
		Number:    ord.Number,
		Amount:    ord.Amount,
		OrderTime: ord.OrderTime,
	}, nil
}

// Payment 用户发起支付：校验订单归属，调用支付网关确认，成功后落支付状态。
// 网关返回“已支付过”同样走幂等的 PaySuccess 路径。
func (s *OrderApplicationService) Payment(ctx context.Context, userID int64, orderNumber string) error {
	ctx, span := s.tracer.Start(ctx, "app.Payment")
	defer span.End()

	ord, err := s.orderRepo.GetByNumberAndUserID(ctx, orderNumber, userID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	result, err := s.payment.Confirm(ctx, ord.Number)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "payment gateway unavailable")
		return errors.Wrap(err, "confirm payment")
	}
	if !result.Success && !result.AlreadyConfirmed {
		return errors.Errorf("payment for order %s was not confirmed", ord.Number)
	}

	return s.PaySuccess(ctx, ord.Number)
}

// PaySuccess 支付成功回调，幂等：已支付的订单直接返回成功，
// 不重复盖结账时间，也不重复推送来单提醒。
func (s *OrderApplicationService) PaySuccess(ctx context.Context, orderNumber string) error {
	ctx, span := s.tracer.Start(ctx, "app.PaySuccess")
	defer span.End()

	ord, err := s.orderRepo.GetByNumber(ctx, orderNumber)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if ord.AlreadyPaid() {
		// 支付回调可能重复送达
		logger.Ctx(ctx).Info().Int64("order_id", ord.ID).Msg("payment already confirmed, skipping")
		span.AddEvent("duplicate payment callback ignored")
		return nil
	}

	expected := ord.Status
	if err := ord.MarkPaid(s.now()); err != nil {
		return err
	}
	if err := s.orderRepo.UpdateConditional(ctx, ord, expected); err != nil {
		span.RecordError(err)
		return err
	}

	s.notify(ctx, domain.NotificationOrderReminder, ord.ID, "订单号："+ord.Number)
	logger.Ctx(ctx).Info().Int64("order_id", ord.ID).Msg("payment confirmed, order waiting for merchant")
	return nil
}

// Confirm 商家接单
func (s *OrderApplicationService) Confirm(ctx context.Context, orderID int64) error {
	return s.transition(ctx, "app.ConfirmOrder", orderID, func(ord *domain.Order) error {
		return ord.Confirm()
	})
}

// Reject 商家拒单，已支付的订单转为已退款
func (s *OrderApplicationService) Reject(ctx context.Context, orderID int64, reason string) error {
	return s.transition(ctx, "app.RejectOrder", orderID, func(ord *domain.Order) error {
		return ord.Reject(reason, s.now())
	})
}

// UserCancel 用户取消自己的订单，只允许在待付款/待接单状态
func (s *OrderApplicationService) UserCancel(ctx context.Context, userID, orderID int64) error {
	return s.transition(ctx, "app.UserCancelOrder", orderID, func(ord *domain.Order) error {
		if ord.UserID != userID {
			return domain.ErrOrderNotFound
		}
		return ord.CancelByUser(s.now())
	})
}

// Cancel 商家取消订单，放宽到已接单为止
func (s *OrderApplicationService) Cancel(ctx context.Context, orderID int64, reason string) error {
	return s.transition(ctx, "app.CancelOrder", orderID, func(ord *domain.Order) error {
		return ord.CancelByStaff(reason, s.now())
	})
}

// Delivery 派送订单
func (s *OrderApplicationService) Delivery(ctx context.Context, orderID int64) error {
	return s.transition(ctx, "app.DeliveryOrder", orderID, func(ord *domain.Order) error {
		return ord.Dispatch()
	})
}

// Complete 完成订单
func (s *OrderApplicationService) Complete(ctx context.Context, orderID int64) error {
	return s.transition(ctx, "app.CompleteOrder", orderID, func(ord *domain.Order) error {
		return ord.Complete(s.now())
	})
}

// Reminder 客户催单：订单存在即推送，不改变任何状态
func (s *OrderApplicationService) Reminder(ctx context.Context, orderID int64) error {
	ctx, span := s.tracer.Start(ctx, "app.Reminder")
	defer span.End()

	ord, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	s.notify(ctx, domain.NotificationCustomerReminder, ord.ID, "订单号:"+ord.Number)
	return nil
}

// Details 查询订单详情（含明细）
func (s *OrderApplicationService) Details(ctx context.Context, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.OrderDetails")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID))

	return s.orderRepo.GetByID(ctx, orderID)
}

// HistoryOrders 用户历史订单分页查询
func (s *OrderApplicationService) HistoryOrders(ctx context.Context, userID int64, status *domain.Status, page, pageSize int) ([]*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.HistoryOrders")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", userID))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return s.orderRepo.ListByUser(ctx, userID, status, page, pageSize)
}

// Statistics 商家端订单状态统计
func (s *OrderApplicationService) Statistics(ctx context.Context) (*StatisticsResult, error) {
	ctx, span := s.tracer.Start(ctx, "app.OrderStatistics")
	defer span.End()

	toBeConfirmed, err := s.orderRepo.CountByStatus(ctx, domain.StatusToBeConfirmed)
	if err != nil {
		return nil, err
	}
	confirmed, err := s.orderRepo.CountByStatus(ctx, domain.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	inDelivery, err := s.orderRepo.CountByStatus(ctx, domain.StatusDeliveryInProgress)
	if err != nil {
		return nil, err
	}
	return &StatisticsResult{
		ToBeConfirmed:      toBeConfirmed,
		Confirmed:          confirmed,
		DeliveryInProgress: inDelivery,
	}, nil
}

// Repetition 再来一单：把历史订单的明细重新放回购物车
func (s *OrderApplicationService) Repetition(ctx context.Context, userID, orderID int64) error {
	ctx, span := s.tracer.Start(ctx, "app.Repetition")
	defer span.End()

	ord, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	lines := make([]domain.CartLine, 0, len(ord.Details))
	for _, d := range ord.Details {
		lines = append(lines, domain.CartLine{
			Name:     d.Name,
			Image:    d.Image,
			Amount:   d.Amount,
			Quantity: d.Quantity,
		})
	}
	return s.cart.AddLines(ctx, userID, lines)
}

// transition 是所有单订单状态流转共用的读-改-条件写路径。
// 条件写未命中说明有并发操作抢先落库，把 ErrConflict 交给调用方，
// 由它决定重读重试还是放弃，引擎自身不做自动重试。
func (s *OrderApplicationService) transition(ctx context.Context, spanName string, orderID int64, mutate func(*domain.Order) error) error {
	ctx, span := s.tracer.Start(ctx, spanName)
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID))

	ord, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	expected := ord.Status
	if err := mutate(ord); err != nil {
		span.RecordError(err)
		return err
	}

	if err := s.orderRepo.UpdateConditional(ctx, ord, expected); err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrConflict) {
			span.SetStatus(codes.Error, "lost optimistic concurrency race")
		}
		return err
	}
	return nil
}

// notify 广播商家端通知。通知是尽力而为的旁路，
// 失败只记日志，不影响触发它的状态流转。
func (s *OrderApplicationService) notify(ctx context.Context, typ int, orderID int64, content string) {
	event := &domain.NotificationEvent{Type: typ, OrderID: orderID, Content: content}
	if err := s.notifier.Broadcast(ctx, event); err != nil {
		logger.Ctx(ctx).Error().Err(err).Int64("order_id", orderID).Msg("failed to broadcast notification, ignored")
	}
}
