package internal

import (
	"context"

	"github.com/hbomb79/mediagetter/internal/database"
	"github.com/jmoiron/sqlx"
)

type (
	RunnableService interface {
		Run(context.Context) error
	}

	DatabaseManager interface {
		Connect(context.Context, database.DatabaseConfig) error
		GetSqlxDb() *sqlx.DB
		Close() error
	}
)
