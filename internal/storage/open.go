// internal/storage/open.go
package storage

import (
	"context"
	"fmt"

	"github.com/primedigitaltech/azon-seeker/internal/utils"
)

// Backends accepted by Open
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
	BackendRedis    = "redis"
)

// Options selects and configures a backend
type Options struct {
	Backend string
	DSN     string
	Table   string
	Redis   RedisOptions
}

// Open creates the store selected by opts.Backend
func Open(ctx context.Context, opts Options, logger utils.Logger) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite, BackendPostgres, BackendMySQL:
		return OpenSQLStore(ctx, Dialect(opts.Backend), opts.DSN, opts.Table, logger)
	case BackendRedis:
		return NewRedisStore(ctx, opts.Redis, logger)
	}
	return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
}
