package main

import (
	"context"

	"go.opentelemetry.io/otel"

	"waimai/internal/pkg/bootstrap"
	"waimai/internal/pkg/database"
	"waimai/internal/pkg/httpclient"
	"waimai/internal/pkg/logger"
	"waimai/internal/pkg/mq"
	"waimai/internal/service/order/application"
	"waimai/internal/service/order/infrastructure"
	"waimai/internal/service/order/infrastructure/adapter"
	"waimai/internal/service/order/interfaces"
	"waimai/internal/zookeeper"
)

const (
	serviceName = "order-service"
	servicePort = 8084
)

func main() {
	sweepCtx, stopSweeper := context.WithCancel(context.Background())

	var notifier *adapter.NotificationKafkaAdapter
	var zkConn *zookeeper.Conn

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) error {
			cfg := appCtx.Config
			tracer := otel.Tracer(serviceName)

			db, err := database.NewMySQL(cfg.Infra.MySQL.DSN)
			if err != nil {
				return err
			}
			orderRepo := infrastructure.NewGormOrderRepository(db)

			writer := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.NotificationsTopic)
			notifier = adapter.NewNotificationKafkaAdapter(writer)

			payment := adapter.NewPaymentHTTPAdapter(httpclient.NewClient(tracer), cfg.Payment.BaseURL)
			cart := adapter.NewCartGormAdapter(db)
			addresses := adapter.NewAddressGormAdapter(db)

			svc := application.NewOrderApplicationService(orderRepo, tracer, payment, cart, addresses, notifier)
			interfaces.NewOrderHandler(svc).RegisterRoutes(appCtx.Mux)

			// 多副本部署时用 ZooKeeper 锁避免重复扫描，
			// 未配置 ZooKeeper 则退化为无锁单实例清扫
			var lock application.SweepLock
			if len(cfg.Infra.Zookeeper.Addrs) > 0 {
				zkConn, err = zookeeper.Connect(cfg.Infra.Zookeeper.Addrs, cfg.Infra.Zookeeper.SessionTimeout)
				if err != nil {
					return err
				}
				lock, err = zookeeper.NewDistributedLock(zkConn, "order-sweeper")
				if err != nil {
					return err
				}
			}

			sweeper := application.NewOrderSweeper(orderRepo, application.SweeperConfig{
				PaymentInterval:  cfg.Sweeper.PaymentInterval,
				PaymentTimeout:   cfg.Sweeper.PaymentTimeout,
				DeliveryInterval: cfg.Sweeper.DeliveryInterval,
				DeliveryTimeout:  cfg.Sweeper.DeliveryTimeout,
			}, lock, tracer)
			go func() {
				if err := sweeper.Start(sweepCtx); err != nil {
					logger.Logger.Error().Err(err).Msg("sweeper stopped with error")
				}
			}()
			return nil
		},
		OnShutdown: func(ctx context.Context) {
			stopSweeper()
			if notifier != nil {
				if err := notifier.Close(); err != nil {
					logger.Logger.Error().Err(err).Msg("close kafka writer")
				}
			}
			if zkConn != nil {
				zkConn.Close()
			}
		},
	})
}
