// internal/service/order/domain/order.go
package domain

import "time"

const (
	// CancelReasonUser 用户主动取消时写入的取消原因
	CancelReasonUser = "用户取消"
	// CancelReasonPaymentTimeout 支付超时由定时任务写入的取消原因
	CancelReasonPaymentTimeout = "订单超时未付款，自动取消"
)

// Order 是订单聚合的根实体。
// 状态流转方法只做校验和内存修改，持久化由应用层通过条件更新完成：
// 调用方先记下读到的状态，流转成功后以它作为 expected 状态写库。
type Order struct {
	ID            int64
	Number        string // 对外展示的订单号，提交时生成，全局唯一
	UserID        int64
	AddressBookID int64
	Status        Status
	PayStatus     PayStatus
	Amount        float64

	// 下单时从地址簿快照的收货信息，之后不再随地址簿变化
	Phone     string
	Consignee string
	Address   string

	OrderTime    time.Time
	CheckoutTime *time.Time
	CancelTime   *time.Time
	DeliveryTime *time.Time

	// CancelReason 与 RejectionReason 互斥，只在进入已取消状态时设置其一
	CancelReason    string
	RejectionReason string

	Details []OrderDetail
}

// OrderDetail 是下单瞬间购物车行的快照，与订单一起原子创建，之后只读
type OrderDetail struct {
	ID       int64
	OrderID  int64
	Name     string
	Image    string
	Amount   float64 // 下单时的单价快照
	Quantity int
}

// NewOrder 根据地址快照和购物车行构建待付款订单
func NewOrder(userID int64, number string, snapshot AddressSnapshot, lines []CartLine, now time.Time) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrCartEmpty
	}

	details := make([]OrderDetail, 0, len(lines))
	var amount float64
	for _, line := range lines {
		details = append(details, OrderDetail{
			Name:     line.Name,
			Image:    line.Image,
			Amount:   line.Amount,
			Quantity: line.Quantity,
		})
		amount += line.Amount * float64(line.Quantity)
	}

	return &Order{
		Number:        number,
		UserID:        userID,
		AddressBookID: snapshot.AddressBookID,
		Status:        StatusPendingPayment,
		PayStatus:     PayStatusUnpaid,
		Amount:        amount,
		Phone:         snapshot.Phone,
		Consignee:     snapshot.Consignee,
		Address:       snapshot.Address,
		OrderTime:     now,
		Details:       details,
	}, nil
}

// AddressSnapshot 是下单时从地址簿取出的收货信息快照
type AddressSnapshot struct {
	AddressBookID int64
	Phone         string
	Consignee     string
	Address       string
}

// CartLine 是购物车中的一行商品
type CartLine struct {
	Name     string
	Image    string
	Amount   float64
	Quantity int
}

// AlreadyPaid 判断支付回调是否重复送达。
// 已支付的订单再次确认支付时直接当成功处理，不再产生任何副作用。
func (o *Order) AlreadyPaid() bool {
	return o.PayStatus == PayStatusPaid
}

// MarkPaid 支付成功：待付款 -> 待接单，未支付 -> 已支付，记录结账时间
func (o *Order) MarkPaid(now time.Time) error {
	if o.Status != StatusPendingPayment {
		return invalidTransition(o.Status, "PaymentConfirmed")
	}
	o.Status = StatusToBeConfirmed
	o.PayStatus = PayStatusPaid
	o.CheckoutTime = &now
	return nil
}

// Confirm 商家接单：待接单 -> 已接单
func (o *Order) Confirm() error {
	if o.Status != StatusToBeConfirmed {
		return invalidTransition(o.Status, "Accept")
	}
	o.Status = StatusConfirmed
	return nil
}

// Reject 商家拒单，只允许在待接单状态。已支付的订单先转为已退款
func (o *Order) Reject(reason string, now time.Time) error {
	if o.Status != StatusToBeConfirmed {
		return invalidTransition(o.Status, "Reject")
	}
	if o.PayStatus == PayStatusPaid {
		o.PayStatus = PayStatusRefunded
	}
	o.Status = StatusCancelled
	o.CancelTime = &now
	o.RejectionReason = reason
	return nil
}

// CancelByUser 用户取消，只允许在待付款/待接单两个状态。
// 待接单说明已经付过款，取消前先转为已退款。
func (o *Order) CancelByUser(now time.Time) error {
	if o.Status > StatusToBeConfirmed {
		return invalidTransition(o.Status, "UserCancel")
	}
	if o.Status == StatusToBeConfirmed {
		o.PayStatus = PayStatusRefunded
	}
	o.Status = StatusCancelled
	o.CancelTime = &now
	o.CancelReason = CancelReasonUser
	return nil
}

// CancelByStaff 商家取消，放宽到已接单为止；派送中和已完成不允许取消
func (o *Order) CancelByStaff(reason string, now time.Time) error {
	if o.Status > StatusConfirmed {
		return invalidTransition(o.Status, "StaffCancel")
	}
	if o.PayStatus == PayStatusPaid {
		o.PayStatus = PayStatusRefunded
	}
	o.Status = StatusCancelled
	o.CancelTime = &now
	o.CancelReason = reason
	return nil
}

// CancelForTimeout 支付超时自动取消，仅定时任务使用
func (o *Order) CancelForTimeout(now time.Time) error {
	if o.Status != StatusPendingPayment {
		return invalidTransition(o.Status, "PaymentTimeout")
	}
	o.Status = StatusCancelled
	o.CancelTime = &now
	o.CancelReason = CancelReasonPaymentTimeout
	return nil
}

// Dispatch 派送订单：已接单 -> 派送中
func (o *Order) Dispatch() error {
	if o.Status != StatusConfirmed {
		return invalidTransition(o.Status, "Dispatch")
	}
	o.Status = StatusDeliveryInProgress
	return nil
}

// Complete 完成订单：派送中 -> 已完成，记录送达时间。
// 定时任务强制完成滞留订单时走的也是这条边。
func (o *Order) Complete(now time.Time) error {
	if o.Status != StatusDeliveryInProgress {
		return invalidTransition(o.Status, "Complete")
	}
	o.Status = StatusCompleted
	o.DeliveryTime = &now
	return nil
}
