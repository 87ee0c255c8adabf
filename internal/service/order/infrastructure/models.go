// internal/service/order/infrastructure/models.go
package infrastructure

import "time"

// OrderModel 是 Order 聚合在数据库中的表示
type OrderModel struct {
	ID              int64  `gorm:"primaryKey"`
	Number          string `gorm:"size:32;uniqueIndex"`
	UserID          int64  `gorm:"index"`
	AddressBookID   int64
	Status          int `gorm:"index:idx_status_order_time"`
	PayStatus       int
	Amount          float64
	Phone           string `gorm:"size:16"`
	Consignee       string `gorm:"size:64"`
	Address         string `gorm:"size:255"`
	OrderTime       time.Time `gorm:"index:idx_status_order_time"`
	CheckoutTime    *time.Time
	CancelTime      *time.Time
	DeliveryTime    *time.Time
	CancelReason    string `gorm:"size:255"`
	RejectionReason string `gorm:"size:255"`

	Details []OrderDetailModel `gorm:"foreignKey:OrderID"`
}

func (OrderModel) TableName() string {
	return "orders"
}

// OrderDetailModel 订单明细行，随订单一次写入，之后只读
type OrderDetailModel struct {
	ID       int64 `gorm:"primaryKey"`
	OrderID  int64 `gorm:"index"`
	Name     string
	Image    string
	Amount   float64
	Quantity int
}

func (OrderDetailModel) TableName() string {
	return "order_detail"
}

// ShoppingCartModel 用户购物车行
type ShoppingCartModel struct {
	ID         int64 `gorm:"primaryKey"`
	UserID     int64 `gorm:"index"`
	Name       string
	Image      string
	Amount     float64
	Quantity   int
	CreateTime time.Time
}

func (ShoppingCartModel) TableName() string {
	return "shopping_cart"
}

// AddressBookModel 地址簿记录，订单模块只读
type AddressBookModel struct {
	ID           int64 `gorm:"primaryKey"`
	UserID       int64 `gorm:"index"`
	Consignee    string
	Phone        string
	ProvinceName string
	CityName     string
	DistrictName string
	Detail       string
}

func (AddressBookModel) TableName() string {
	return "address_book"
}
