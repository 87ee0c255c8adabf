// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"waimai/internal/pkg/logger"
	"waimai/internal/pkg/nacos"
	"waimai/internal/pkg/tracing"
)

// AppCtx 传给各服务的路由注册函数
type AppCtx struct {
	Mux    *http.ServeMux
	Config *Config
	Nacos  *nacos.Client
}

// AppInfo 包含启动一个服务所需的特定信息
type AppInfo struct {
	ServiceName      string
	Port             int
	RegisterHandlers func(appCtx AppCtx) error
	// OnShutdown 在 HTTP 服务器关停后执行，用于释放服务自己的资源
	OnShutdown func(ctx context.Context)
}

// StartService 封装所有服务通用的启动与优雅关停逻辑
func StartService(info AppInfo) {
	logger.Init(info.ServiceName)

	cfg, err := GetCurrentConfig()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("load config")
	}

	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("init tracer provider")
	}

	nacosClient, err := nacos.NewClient(cfg.Infra.Nacos.Addrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("init nacos client")
	}

	ip, err := getOutboundIP()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("get outbound ip")
	}
	if err := nacosClient.RegisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
		logger.Logger.Fatal().Err(err).Msg("register service with nacos")
	}

	mux := http.NewServeMux()
	if info.RegisterHandlers != nil {
		if err := info.RegisterHandlers(AppCtx{Mux: mux, Config: cfg, Nacos: nacosClient}); err != nil {
			logger.Logger.Fatal().Err(err).Msg("register handlers")
		}
	}

	server := &http.Server{Addr: ":" + strconv.Itoa(info.Port), Handler: mux}
	go func() {
		logger.Logger.Info().Int("port", info.Port).Msgf("%s listening", info.ServiceName)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal().Err(err).Msg("http server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Logger.Info().Msgf("shutting down %s", info.ServiceName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 关停顺序：先摘流量，再停服务器，最后清理资源
	if err := nacosClient.DeregisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
		logger.Logger.Error().Err(err).Msg("deregister from nacos")
	}
	if err := server.Shutdown(ctx); err != nil {
		logger.Logger.Error().Err(err).Msg("shutdown http server")
	}
	if info.OnShutdown != nil {
		info.OnShutdown(ctx)
	}
	if err := tp.Shutdown(ctx); err != nil {
		logger.Logger.Error().Err(err).Msg("shutdown tracer provider")
	}

	logger.Logger.Info().Msgf("%s gracefully shut down", info.ServiceName)
}

// getOutboundIP 通过一次 UDP 拨号拿到本机对外 IP，用于服务注册
func getOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", errors.Wrap(err, "dial for outbound ip")
	}
	defer conn.Close()
	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}
