package health

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/avatarctic/email-auth/internal/core/ports"
	"github.com/avatarctic/email-auth/internal/infrastructure/db"
)

type dbChecker struct{ db *db.Database }

func (d *dbChecker) Name() string                    { return "database" }
func (d *dbChecker) Check(ctx context.Context) error { return d.db.DB.PingContext(ctx) }

type redisChecker struct{ client redis.UniversalClient }

func (r *redisChecker) Name() string                    { return "redis" }
func (r *redisChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// memoryChecker reports the in-process store, which is always reachable.
type memoryChecker struct{}

func (memoryChecker) Name() string                { return "memory" }
func (memoryChecker) Check(context.Context) error { return nil }

func NewDBChecker(database *db.Database) ports.HealthChecker { return &dbChecker{db: database} }

func NewRedisChecker(client redis.UniversalClient) ports.HealthChecker {
	return &redisChecker{client: client}
}

func NewMemoryChecker() ports.HealthChecker { return memoryChecker{} }
