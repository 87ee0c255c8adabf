// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger 是全局的结构化日志实例，默认输出 JSON 到标准输出
var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init 在服务启动时设置服务名等公共字段
func Init(serviceName string) {
	zerolog.TimeFieldFormat = time.RFC3339
	Logger = zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Ctx 返回带追踪信息的日志实例。
// 上下文里有合法 Span 时自动附加 trace_id，日志和链路可以互查。
func Ctx(ctx context.Context) *zerolog.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		l := Logger.With().Str("trace_id", spanCtx.TraceID().String()).Logger()
		return &l
	}
	return &Logger
}
