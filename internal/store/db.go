// Package store holds the Postgres row types and queries. Stores take the
// narrowest executor interface each query needs, so callers can pass either
// the pool or an open transaction.
package store

import (
	"context"
	"database/sql"
)

type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Getter interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

type Selecter interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// DB is the full pool surface a store constructor binds to.
type DB interface {
	Execer
	Getter
	Selecter
}
