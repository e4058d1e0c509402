// Package pg bootstraps PostgreSQL access on github.com/jackc/pgx/v5.
//
// Connect opens a *pgxpool.Pool from Config (populated from PG_* environment
// variables) and retries until the database answers a ping. Migrate applies
// goose migrations shipped as an embedded filesystem, so each storage package
// owns its schema:
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := pg.Migrate(ctx, pool, pgstore.Migrations, "migrations", cfg.MigrationsTable, log); err != nil {
//		return err
//	}
//
// IsNotFoundError and IsDuplicateKeyError classify driver errors so stores can
// map them onto their own sentinel errors.
package pg
