package application

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

func NewMigrationManager(pool *pgxpool.Pool) MigrationManager {
	return &migrationManager{pool: pool}
}

// migrationManager applies module schema files in registration order. Schema
// files are idempotent (CREATE TABLE IF NOT EXISTS style), so reapplying on
// startup is safe.
type migrationManager struct {
	pool    *pgxpool.Pool
	schemas []*embed.FS
}

func (m *migrationManager) RegisterSchema(fs *embed.FS) {
	m.schemas = append(m.schemas, fs)
}

func (m *migrationManager) Run() error {
	ctx := context.Background()
	for _, schemaFS := range m.schemas {
		files, err := listSQLFiles(schemaFS)
		if err != nil {
			return err
		}
		for _, file := range files {
			contents, err := schemaFS.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read schema file %s: %w", file, err)
			}
			for _, stmt := range splitSQLStatements(string(contents)) {
				if _, err := m.pool.Exec(ctx, stmt); err != nil {
					return fmt.Errorf("failed to execute schema statement from %s: %w", file, err)
				}
			}
		}
	}
	return nil
}

func listSQLFiles(fsys *embed.FS) ([]string, error) {
	var files []string
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".sql") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error reading schema directory: %w", err)
	}
	return files, nil
}

func splitSQLStatements(script string) []string {
	raw := strings.Split(script, ";")
	statements := make([]string, 0, len(raw))
	for _, stmt := range raw {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || strings.HasPrefix(stmt, "--") {
			continue
		}
		statements = append(statements, stmt)
	}
	return statements
}
