package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Probe reports whether a backing service is reachable.
type Probe func(ctx context.Context) error

var errNotConfigured = errors.New("not configured")

// PostgresProbe pings the SQL pool behind db.
func PostgresProbe(db *gorm.DB) Probe {
	return func(ctx context.Context) error {
		if db == nil {
			return errNotConfigured
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// RedisProbe issues PING against the client.
func RedisProbe(client *redis.Client) Probe {
	return func(ctx context.Context) error {
		if client == nil {
			return errNotConfigured
		}
		return client.Ping(ctx).Err()
	}
}

// NATSProbe checks the connection status; reconnecting counts as down.
func NATSProbe(conn *nats.Conn) Probe {
	return func(context.Context) error {
		if conn == nil {
			return errNotConfigured
		}
		if status := conn.Status(); status != nats.CONNECTED {
			return fmt.Errorf("nats %s", status)
		}
		return nil
	}
}
