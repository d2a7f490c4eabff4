package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/attendly/attendly-api/pkg/config"
	"github.com/attendly/attendly-api/pkg/middleware/requestid"
)

// New builds the process-wide zap logger. Production uses JSON sampling
// defaults; anything else gets the development config so stack traces and
// colors show up locally. LOG_FORMAT and LOG_LEVEL override the base.
func New(cfg *config.Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Env == "production" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}

	switch cfg.Log.Format {
	case "console":
		zc.Encoding = "console"
	case "json":
		zc.Encoding = "json"
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = zapcore.InfoLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zc.Build()
}

// GinMiddleware logs one line per request after the handler chain runs.
func GinMiddleware(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if id := requestid.Value(c); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}

		l.Info("http_request", fields...)
	}
}
