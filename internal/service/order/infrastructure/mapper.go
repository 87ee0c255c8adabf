// internal/service/order/infrastructure/mapper.go
package infrastructure

import "waimai/internal/service/order/domain"

// ToDomainOrder 将数据库模型转换为领域模型
func ToDomainOrder(model *OrderModel) *domain.Order {
	if model == nil {
		return nil
	}
	details := make([]domain.OrderDetail, 0, len(model.Details))
	for _, d := range model.Details {
		details = append(details, domain.OrderDetail{
			ID:       d.ID,
			OrderID:  d.OrderID,
			Name:     d.Name,
			Image:    d.Image,
			Amount:   d.Amount,
			Quantity: d.Quantity,
		})
	}
	return &domain.Order{
		ID:              model.ID,
		Number:          model.Number,
		UserID:          model.UserID,
		AddressBookID:   model.AddressBookID,
		Status:          domain.Status(model.Status),
		PayStatus:       domain.PayStatus(model.PayStatus),
		Amount:          model.Amount,
		Phone:           model.Phone,
		Consignee:       model.Consignee,
		Address:         model.Address,
		OrderTime:       model.OrderTime,
		CheckoutTime:    model.CheckoutTime,
		CancelTime:      model.CancelTime,
		DeliveryTime:    model.DeliveryTime,
		CancelReason:    model.CancelReason,
		RejectionReason: model.RejectionReason,
		Details:         details,
	}
}

// FromDomainOrder 将领域模型转换为数据库模型（用于插入）
func FromDomainOrder(ord *domain.Order) *OrderModel {
	if ord == nil {
		return nil
	}
	details := make([]OrderDetailModel, 0, len(ord.Details))
	for _, d := range ord.Details {
		details = append(details, OrderDetailModel{
			Name:     d.Name,
			Image:    d.Image,
			Amount:   d.Amount,
			Quantity: d.Quantity,
		})
	}
	return &OrderModel{
		ID:              ord.ID,
		Number:          ord.Number,
		UserID:          ord.UserID,
		AddressBookID:   ord.AddressBookID,
		Status:          int(ord.Status),
		PayStatus:       int(ord.PayStatus),
		Amount:          ord.Amount,
		Phone:           ord.Phone,
		Consignee:       ord.Consignee,
		Address:         ord.Address,
		OrderTime:       ord.OrderTime,
		CheckoutTime:    ord.CheckoutTime,
		CancelTime:      ord.CancelTime,
		DeliveryTime:    ord.DeliveryTime,
		CancelReason:    ord.CancelReason,
		RejectionReason: ord.RejectionReason,
		Details:         details,
	}
}
