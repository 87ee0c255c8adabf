package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"waimai/internal/service/order/application"
	"waimai/internal/service/order/domain"
)

const serviceName = "order-service"

// OrderHandler 封装了订单服务的 HTTP 处理器。
// 用户端和商家端分前缀注册；鉴权在网关层完成，这里只要求
// 用户侧请求显式携带 userId，不依赖任何隐式会话状态。
type OrderHandler struct {
	service *application.OrderApplicationService
}

func NewOrderHandler(service *application.OrderApplicationService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	// 用户端
	mux.HandleFunc("/user/order/submit", h.submitHandler)
	mux.HandleFunc("/user/order/payment", h.paymentHandler)
	mux.HandleFunc("/user/order/cancel", h.userCancelHandler)
	mux.HandleFunc("/user/order/details", h.detailsHandler)
	mux.HandleFunc("/user/order/history", h.historyHandler)
	mux.HandleFunc("/user/order/repetition", h.repetitionHandler)
	mux.HandleFunc("/user/order/reminder", h.reminderHandler)

	// 商家端
	mux.HandleFunc("/admin/order/confirm", h.confirmHandler)
	mux.HandleFunc("/admin/order/rejection", h.rejectionHandler)
	mux.HandleFunc("/admin/order/cancel", h.adminCancelHandler)
	mux.HandleFunc("/admin/order/delivery", h.deliveryHandler)
	mux.HandleFunc("/admin/order/complete", h.completeHandler)
	mux.HandleFunc("/admin/order/statistics", h.statisticsHandler)

	// 支付回调
	mux.HandleFunc("/notify/paySuccess", h.paySuccessHandler)
}

func (h *OrderHandler) submitHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.SubmitOrder")
	defer span.End()

	var req application.SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Submit(ctx, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, resp)
}

func (h *OrderHandler) paymentHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)
	userID, ok := queryInt64(w, r, "userId")
	if !ok {
		return
	}
	number := r.URL.Query().Get("orderNumber")
	if number == "" {
		http.Error(w, "orderNumber is required", http.StatusBadRequest)
		return
	}
	if err := h.service.Payment(ctx, userID, number); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// paySuccessHandler 支付网关的成功回调，可能重复送达，处理是幂等的
func (h *OrderHandler) paySuccessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)
	number := r.URL.Query().Get("orderNumber")
	if number == "" {
		http.Error(w, "orderNumber is required", http.StatusBadRequest)
		return
	}
	if err := h.service.PaySuccess(ctx, number); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *OrderHandler) userCancelHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)
	userID, ok := queryInt64(w, r, "userId")
	if !ok {
		return
	}
	orderID, ok := queryInt64(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.UserCancel(ctx, userID, orderID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *OrderHandler) detailsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)
	orderID, ok := queryInt64(w, r, "id")
	if !ok {
		return
	}
	ord, err := h.service.Details(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, ord)
}

func (h *OrderHandler) historyHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)
	userID, ok := queryInt64(w, r, "userId")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	var status *domain.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
		st := domain.Status(v)
		status = &st
	}

	orders, err := h.service.HistoryOrders(ctx, userID, status, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, orders)
}

func (h *OrderHandler) repetitionHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)
	userID, ok := queryInt64(w, r, "userId")
	if !ok {
		return
	}
	orderID, ok := queryInt64(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Repetition(ctx, userID, orderID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *OrderHandler) reminderHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)
	orderID, ok := queryInt64(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Reminder(ctx, orderID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *OrderHandler) confirmHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)
	orderID, ok := queryInt64(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Confirm(ctx, orderID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *OrderHandler) rejectionHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)
	orderID, ok := queryInt64(w, r, "id")
	if !ok {
		return
	}
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		http.Error(w, "reason is required", http.StatusBadRequest)
		return
	}
	if err := h.service.Reject(ctx, orderID, reason); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *OrderHandler) adminCancelHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)
	orderID, ok := queryInt64(w, r, "id")
	if !ok {
		return
	}
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		http.Error(w, "reason is required", http.StatusBadRequest)
		return
	}
	if err := h.service.Cancel(ctx, orderID, reason); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *OrderHandler) deliveryHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)
	orderID, ok := queryInt64(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delivery(ctx, orderID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *OrderHandler) completeHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)
	orderID, ok := queryInt64(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Complete(ctx, orderID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *OrderHandler) statisticsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)
	stats, err := h.service.Statistics(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, stats)
}

// extractTraceContext 从请求头恢复上游的追踪上下文
func extractTraceContext(r *http.Request) context.Context {
	propagator := otel.GetTextMapPropagator()
	return propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}

func queryInt64(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	v, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	if err != nil {
		http.Error(w, key+" is required", http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeError 把领域错误翻译成 HTTP 状态码：
// 404 订单不存在；409 输掉并发竞争（调用方应重查后重试）；
// 400 前置条件或状态机不允许；其余按 500 处理。
func writeError(w http.ResponseWriter, err error) {
	var invalid *domain.InvalidTransitionError
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrAddressMissing), errors.Is(err, domain.ErrCartEmpty):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &invalid):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
