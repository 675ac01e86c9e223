package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/renubu/renubu/internal/config"
)

// OpenSQL connects to the primary store described by c.
func OpenSQL(c config.DatabaseConfig) (*sqlx.DB, error) {
	dbx, err := NewSQLConnection(c.Driver, c.DSN, SQLOpts{
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
		PingTimeout:     c.PingTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%s connect: %w", c.Driver, err)
	}
	return dbx, nil
}

// OpenClickHouse connects and ensures the score history table. It returns
// (nil, nil) when ClickHouse is disabled.
func OpenClickHouse(ctx context.Context, c config.ClickHouseConfig) (*sqlx.DB, error) {
	if !c.Enabled {
		return nil, nil
	}
	ch, err := NewClickHouseConnection(ClickHouseOpts{
		DSN:             c.DSN,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
		PingTimeout:     c.PingTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse connect: %w", err)
	}
	if err := EnsureClickHouseSchema(ctx, ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return ch, nil
}

// OpenRedis connects to Redis; (nil, nil) when no address is configured.
func OpenRedis(c config.RedisConfig) (*redis.Client, error) {
	rds, err := NewRedisClient(RedisOpts{
		Addr:        c.Addr,
		Password:    c.Password,
		DB:          c.DB,
		DialTimeout: c.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	return rds, nil
}
