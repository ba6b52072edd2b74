package logger

import (
	"fmt"

	"github.com/taskhub/core/internal/infrastructure/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the zap sugared logger shared by the server, services and CLI.
type Logger struct {
	*zap.SugaredLogger
}

// New builds a logger from cfg. Format "json" selects zap's production
// encoder; anything else gets the console encoder with stack traces.
func New(cfg config.LoggerConfig) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	zapConfig := zap.NewDevelopmentConfig()
	if cfg.Format == "json" {
		zapConfig = zap.NewProductionConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	zapConfig.OutputPaths, zapConfig.ErrorOutputPaths = outputPaths(cfg)

	// Callers go through the wrapper methods, so report their frame.
	zapLogger, err := zapConfig.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
}

func outputPaths(cfg config.LoggerConfig) (out, errOut []string) {
	if cfg.Output == "file" && cfg.Filename != "" {
		return []string{cfg.Filename}, []string{cfg.Filename}
	}
	return []string{"stdout"}, []string{"stderr"}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// WithFields returns a child logger carrying the given key/value pairs.
func (l *Logger) WithFields(fields ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(fields...)}
}

// WithComponent tags every line with component, e.g. "notifier".
func (l *Logger) WithComponent(component string) *Logger {
	return l.WithFields("component", component)
}

// LogUserAction writes an audit line for a membership change or other
// state change made by userID.
func (l *Logger) LogUserAction(userID, action string, metadata map[string]interface{}) {
	l.Infow("User action", withMetadata([]interface{}{"user_id", userID, "action", action}, metadata)...)
}

// LogSecurityEvent records failed logins and rejected tokens at warn level.
func (l *Logger) LogSecurityEvent(event, userID, ip string, details map[string]interface{}) {
	l.Warnw("Security event", withMetadata([]interface{}{"security_event", event, "user_id", userID, "ip", ip}, details)...)
}

func withMetadata(fields []interface{}, metadata map[string]interface{}) []interface{} {
	for k, v := range metadata {
		fields = append(fields, k, v)
	}
	return fields
}

// Close flushes buffered entries.
func (l *Logger) Close() error {
	return l.SugaredLogger.Sync()
}
