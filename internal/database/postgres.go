package database

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type postgresOptions struct {
	maxOpenConns  int
	maxIdleConns  int
	slowThreshold time.Duration
}

// PostgresOption настройка подключения
type PostgresOption func(*postgresOptions)

// WithMaxOpenConns размер пула. Consume держит FOR UPDATE на партиях до коммита,
// пул должен пережить пачку параллельных планов
func WithMaxOpenConns(n int) PostgresOption {
	return func(o *postgresOptions) {
		if n > 0 {
			o.maxOpenConns = n
			o.maxIdleConns = (n + 1) / 2
		}
	}
}

// WithSlowQueryThreshold запросы дольше порога пишутся в лог как warn. 0 отключает
func WithSlowQueryThreshold(d time.Duration) PostgresOption {
	return func(o *postgresOptions) {
		o.slowThreshold = d
	}
}

// ConnectPostgres подключается к PostgreSQL и возвращает *gorm.DB
func ConnectPostgres(databaseURL string, opts ...PostgresOption) (*gorm.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	o := postgresOptions{maxOpenConns: 25, maxIdleConns: 10, slowThreshold: 200 * time.Millisecond}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: NewGormLogger(log.Logger, o.slowThreshold),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(o.maxOpenConns)
	sqlDB.SetMaxIdleConns(o.maxIdleConns)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Int("max_open_conns", o.maxOpenConns).Msg("✅ PostgreSQL подключен успешно")
	return db, nil
}

// ClosePostgres закрывает соединение с PostgreSQL
func ClosePostgres(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
