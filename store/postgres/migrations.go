package postgres

import "embed"

// MigrationsFS embeds the transactions/transaction_participants schema so
// cmd/coordinatord can run migrations without a separate deploy step,
// mirroring how txova-go-db callers embed their own migration sets.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
