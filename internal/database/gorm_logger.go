package database

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormLogger пишет логи gorm через zerolog. SQL попадает в лог только при ошибке,
// медленном запросе или на уровне trace
type GormLogger struct {
	log           zerolog.Logger
	slowThreshold time.Duration
}

// NewGormLogger создает адаптер. slowThreshold 0 отключает предупреждения о медленных запросах
func NewGormLogger(l zerolog.Logger, slowThreshold time.Duration) *GormLogger {
	return &GormLogger{log: l.With().Str("component", "gorm").Logger(), slowThreshold: slowThreshold}
}

// LogMode уровень задается zerolog, gorm'овский игнорируется
func (g *GormLogger) LogMode(logger.LogLevel) logger.Interface {
	return g
}

func (g *GormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	g.log.Info().Msgf(msg, args...)
}

func (g *GormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	g.log.Warn().Msgf(msg, args...)
}

func (g *GormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	g.log.Error().Msgf(msg, args...)
}

// Trace вызывается gorm после каждого запроса
func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)

	switch {
	// Пустой результат First штатная ситуация (план не найден и т.п.)
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		g.log.Error().Err(err).Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("❌ SQL error")
	case g.slowThreshold > 0 && elapsed > g.slowThreshold:
		sql, rows := fc()
		g.log.Warn().Dur("elapsed", elapsed).Dur("threshold", g.slowThreshold).Int64("rows", rows).Str("sql", sql).Msg("🐢 slow query")
	default:
		if e := g.log.Trace(); e.Enabled() {
			sql, rows := fc()
			e.Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("SQL")
		}
	}
}
