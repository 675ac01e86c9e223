package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations
var migrationsFS embed.FS

const migrationTable = "schema_migrations"

// Migrate applies the embedded migrations for dialect, each file at most once.
// It returns the names of the files applied by this call.
func Migrate(ctx context.Context, dbx *sqlx.DB, dialect string) ([]string, error) {
	if dbx == nil {
		return nil, fmt.Errorf("sql db is required")
	}
	root := path.Join("migrations", dialect)

	entries, err := fs.ReadDir(migrationsFS, root)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir %s: %w", root, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	createSQL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (name VARCHAR(255) PRIMARY KEY, applied_at BIGINT NOT NULL)`, migrationTable)
	if _, err := dbx.ExecContext(ctx, createSQL); err != nil {
		return nil, fmt.Errorf("ensure migration table: %w", err)
	}

	var applied []string
	for _, file := range files {
		done, err := isApplied(ctx, dbx, file)
		if err != nil {
			return applied, fmt.Errorf("check migration %s: %w", file, err)
		}
		if done {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, path.Join(root, file))
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", file, err)
		}

		// MySQL commits DDL implicitly, so statements run one by one outside a tx.
		for _, stmt := range SplitStatements(string(content)) {
			if _, err := dbx.ExecContext(ctx, stmt); err != nil {
				return applied, fmt.Errorf("exec migration %s: %w", file, err)
			}
		}

		q := dbx.Rebind(fmt.Sprintf("INSERT INTO %s (name, applied_at) VALUES (?, ?)", migrationTable))
		if _, err := dbx.ExecContext(ctx, q, file, time.Now().UTC().UnixMilli()); err != nil {
			return applied, fmt.Errorf("record migration %s: %w", file, err)
		}
		applied = append(applied, file)
	}

	return applied, nil
}

// SplitStatements splits a migration file on semicolons, dropping comment-only chunks.
func SplitStatements(content string) []string {
	var out []string
	for _, chunk := range strings.Split(content, ";") {
		var lines []string
		for _, line := range strings.Split(chunk, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				continue
			}
			lines = append(lines, line)
		}
		if len(lines) == 0 {
			continue
		}
		out = append(out, strings.TrimSpace(strings.Join(lines, "\n")))
	}
	return out
}

func isApplied(ctx context.Context, dbx *sqlx.DB, name string) (bool, error) {
	var n int
	q := dbx.Rebind("SELECT COUNT(*) FROM " + migrationTable + " WHERE name = ?")
	if err := dbx.GetContext(ctx, &n, q, name); err != nil {
		return false, err
	}
	return n > 0, nil
}
