// Package repotest abre um Store sobre SQLite em disco para testes.
package repotest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/radieske/prediction-ledger/internal/ledger-service/repo"
)

// NewStore cria um banco novo em t.TempDir() com o schema aplicado
func NewStore(t testing.TB) (*repo.Store, *sqlx.DB) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "ledger.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// SQLite tem um único escritor; uma conexão evita SQLITE_BUSY entre transações.
	// Transações concorrentes ficam serializadas no pool, sem disputa de locks
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	store := repo.NewStore(db)
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return store, db
}

// SeedEvent cria um evento ativo e devolve o id
func SeedEvent(t testing.TB, admin repo.EventAdmin, title, option1, option2 string) int64 {
	t.Helper()
	ev, err := admin.CreateEvent(context.Background(), title, option1, option2)
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return ev.ID
}
