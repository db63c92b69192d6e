package db

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
)

const (
	migrationsDir = "migrations"
	seedDir       = "seed"
)

// Migrate applies migrations and seed files.
// It creates a `schema_migrations` table to track applied migrations and applies
// any SQL files under `migrations/` that have not yet been recorded, each inside
// its own transaction. Every SQL file under `seed/` is executed on each call, so
// seed files must be written to be idempotent.
func Migrate(ctx context.Context, d *DB, migrationFS fs.FS, seedFS fs.FS) error {
	if _, err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	files, err := sqlFiles(migrationFS, migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	for _, fname := range files {
		// filename without extension is the version key
		version := strings.TrimSuffix(fname, path.Ext(fname))

		var count int
		if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, version).Scan(&count); err != nil {
			return fmt.Errorf("scan migration applied count: %w", err)
		}
		if count > 0 {
			continue
		}

		b, err := fs.ReadFile(migrationFS, path.Join(migrationsDir, fname))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", fname, err)
		}

		err = d.WithTx(ctx, func(tx *Tx) error {
			if _, err := tx.Exec(ctx, string(b)); err != nil {
				return fmt.Errorf("exec migration %s: %w", fname, err)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, applied) VALUES (?, strftime('%s','now'))`, version); err != nil {
				return fmt.Errorf("record migration %s: %w", fname, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		d.logger.Info("migration applied", slog.String("version", version))
	}

	if seedFS == nil {
		return nil
	}

	seeds, err := sqlFiles(seedFS, seedDir)
	if err != nil {
		// seeds are optional
		return nil
	}
	for _, fname := range seeds {
		b, err := fs.ReadFile(seedFS, path.Join(seedDir, fname))
		if err != nil {
			return fmt.Errorf("read seed %s: %w", fname, err)
		}
		res, err := d.Exec(ctx, string(b))
		if err != nil {
			return fmt.Errorf("seed %s exec: %w", fname, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			d.logger.Info("seed applied", slog.String("file", fname), slog.Int64("rows", n))
		}
	}

	return nil
}

// sqlFiles lists the .sql files of dir in lexical order.
func sqlFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name := e.Name(); strings.HasSuffix(strings.ToLower(name), ".sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	return files, nil
}
