package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Logger is a key/value logger over zap. Its method set matches the
// Temporal SDK log.Logger so the same value can be handed to the client.
type Logger struct {
	sugar *zap.SugaredLogger
}

func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: z.Sugar()}, nil
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}

func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.sugar.Debugw(msg, redact(keyvals)...)
}

func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.sugar.Infow(msg, redact(keyvals)...)
}

func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.sugar.Warnw(msg, redact(keyvals)...)
}

func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.sugar.Errorw(msg, redact(keyvals)...)
}

func (l *Logger) Fatal(msg string, keyvals ...interface{}) {
	l.sugar.Fatalw(msg, redact(keyvals)...)
}

func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(redact(keyvals)...)}
}

func redact(kv []interface{}) []interface{} {
	if len(kv) < 2 {
		return kv
	}
	out := make([]interface{}, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		key, ok := out[i].(string)
		if ok && isSecretKey(key) {
			out[i+1] = "[REDACTED]"
		}
	}
	return out
}

func isSecretKey(key string) bool {
	key = strings.ToLower(key)
	for _, s := range []string{"password", "secret", "token", "api_key", "apikey", "authorization"} {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}
