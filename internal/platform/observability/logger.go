package observability

import (
	"io"

	"inventoryledger/internal/config"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const instrumentationScope = "inventory-ledger.manual"

// NewLogger tees JSON console output with the OpenTelemetry log bridge.
// A no-op provider leaves only the console core doing any work.
func NewLogger(provider log.LoggerProvider, console io.Writer, level zapcore.Level) *zap.Logger {
	otelCore := otelzap.NewCore(instrumentationScope,
		otelzap.WithLoggerProvider(provider),
	)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.Lock(zapcore.AddSync(console)),
		level,
	)

	return zap.New(zapcore.NewTee(otelCore, consoleCore),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service.name", config.ServiceName)),
	)
}
