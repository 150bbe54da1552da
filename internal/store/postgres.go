package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"resumeforensics/internal/types"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const pingTimeout = 5 * time.Second

// Connect opens a pgx-backed *sql.DB and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return nil
	}
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "migrations")
}

// PostgresStore keeps the state blob as one JSONB row in app_state.
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

func (p *PostgresStore) Load(ctx context.Context) (types.State, error) {
	var raw []byte
	err := p.DB.QueryRowContext(ctx,
		`SELECT value FROM app_state WHERE key = $1`, StateKey).Scan(&raw)
	if stderrors.Is(err, sql.ErrNoRows) {
		return withDefaults(types.State{}), nil
	}
	if err != nil {
		return types.State{}, storageError("failed to load state", err)
	}

	var state types.State
	if err := json.Unmarshal(raw, &state); err != nil {
		return types.State{}, storageError("stored state is not valid JSON", err)
	}
	return withDefaults(state), nil
}

func (p *PostgresStore) Save(ctx context.Context, state types.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return storageError("failed to encode state", err)
	}
	if _, err := p.DB.ExecContext(ctx, `
INSERT INTO app_state (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		StateKey, raw); err != nil {
		return storageError("failed to save state", err)
	}
	return nil
}

func (p *PostgresStore) Close() error {
	if p.DB == nil {
		return nil
	}
	return p.DB.Close()
}
