package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// GormLoggerConfig tunes how much SQL detail reaches the structured logs.
type GormLoggerConfig struct {
	Level                gormlogger.LogLevel
	SlowThreshold        time.Duration
	IgnoreRecordNotFound bool
}

// DefaultGormLoggerConfig logs failed and slow statements only. The
// repositories here read via Raw+Scan, which never yields ErrRecordNotFound,
// so skipping it changes nothing in practice.
func DefaultGormLoggerConfig() GormLoggerConfig {
	return GormLoggerConfig{
		Level:                gormlogger.Warn,
		SlowThreshold:        300 * time.Millisecond,
		IgnoreRecordNotFound: true,
	}
}

// GormLogger routes GORM statement logs through the request-scoped zap
// logger so queries carry request and trace ids.
type GormLogger struct {
	cfg GormLoggerConfig
}

func NewGormLogger(cfg GormLoggerConfig) *GormLogger {
	return &GormLogger{cfg: cfg}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.cfg.Level = level
	return &next
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Info, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Warn, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Error, msg, data)
}

func (l *GormLogger) message(ctx context.Context, level gormlogger.LogLevel, msg string, data []interface{}) {
	if l.cfg.Level < level {
		return
	}
	fields := []zap.Field{zap.String("component", "gorm")}
	if len(data) > 0 {
		fields = append(fields, zap.Any("data", data))
	}
	log := FromContext(ctx)
	switch level {
	case gormlogger.Error:
		log.Error(msg, fields...)
	case gormlogger.Warn:
		log.Warn(msg, fields...)
	default:
		log.Info(msg, fields...)
	}
}

// Trace logs statements at error level on failure, warn level past the slow
// threshold, and debug otherwise.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.cfg.Level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	ignored := l.cfg.IgnoreRecordNotFound && errors.Is(err, gormlogger.ErrRecordNotFound)

	switch {
	case err != nil && !ignored && l.cfg.Level >= gormlogger.Error:
		l.query(ctx, fc, elapsed, err, gormlogger.Error)
	case l.cfg.SlowThreshold > 0 && elapsed >= l.cfg.SlowThreshold && l.cfg.Level >= gormlogger.Warn:
		l.query(ctx, fc, elapsed, nil, gormlogger.Warn)
	case l.cfg.Level >= gormlogger.Info:
		l.query(ctx, fc, elapsed, nil, gormlogger.Info)
	}
}

// ParamsFilter drops bound values so customer data never lands in logs.
func (l *GormLogger) ParamsFilter(ctx context.Context, sql string, params ...interface{}) (string, []interface{}) {
	return sql, nil
}

func (l *GormLogger) query(ctx context.Context, fc func() (string, int64), elapsed time.Duration, err error, level gormlogger.LogLevel) {
	sql, rows := fc()
	fields := []zap.Field{
		zap.String("component", "gorm"),
		zap.String("sql", strings.TrimSpace(sql)),
		zap.String("operation", sqlOperation(sql)),
		zap.Duration("elapsed", elapsed),
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows", rows))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}

	log := FromContext(ctx)
	switch level {
	case gormlogger.Error:
		log.Error("db.query", fields...)
	case gormlogger.Warn:
		log.Warn("db.query", fields...)
	default:
		log.Debug("db.query", fields...)
	}
}

// sqlOperation picks the leading statement verb, skipping CTE prefixes.
func sqlOperation(sql string) string {
	for _, token := range strings.Fields(strings.ToUpper(sql)) {
		switch verb := strings.Trim(token, "();"); verb {
		case "SELECT", "INSERT", "UPDATE", "DELETE":
			return verb
		}
	}
	return "OTHER"
}

var _ gormlogger.Interface = (*GormLogger)(nil)
