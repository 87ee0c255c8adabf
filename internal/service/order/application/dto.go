// internal/service/order/application/dto.go
package application

import "time"

// SubmitOrderRequest 是用户下单用例的输入数据
type SubmitOrderRequest struct {
	UserID        int64 `json:"userId"`
	AddressBookID int64 `json:"addressBookId"`
}

// SubmitOrderResponse 是用户下单用例的输出数据
type SubmitOrderResponse struct {
	ID        int64     `json:"id"`
	Number    string    `json:"orderNumber"`
	Amount    float64   `json:"orderAmount"`
	OrderTime time.Time `json:"orderTime"`
}

// StatisticsResult 商家端各状态订单数量统计
type StatisticsResult struct {
	ToBeConfirmed      int64 `json:"toBeConfirmed"`
	Confirmed          int64 `json:"confirmed"`
	DeliveryInProgress int64 `json:"deliveryInProgress"`
}
