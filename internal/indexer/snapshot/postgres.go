package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS index_snapshots (
	name       TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	size_bytes INTEGER NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertSnapshot = `
INSERT INTO index_snapshots (name, payload, size_bytes, updated_at)
VALUES ($1, $2::jsonb, $3, now())
ON CONFLICT (name) DO UPDATE
SET payload = EXCLUDED.payload,
    size_bytes = EXCLUDED.size_bytes,
    updated_at = EXCLUDED.updated_at`

const selectSnapshot = `SELECT payload FROM index_snapshots WHERE name = $1`

// PostgresStore keeps named snapshots in the index_snapshots table.
type PostgresStore struct {
	client *postgres.Client
	logger *slog.Logger
}

func NewPostgresStore(client *postgres.Client) *PostgresStore {
	return &PostgresStore{
		client: client,
		logger: slog.Default().With("component", "snapshot-postgres"),
	}
}

// EnsureSchema creates the snapshot table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.client.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating index_snapshots table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, name string, data []byte) error {
	err := s.client.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, upsertSnapshot, name, string(data), len(data))
		return err
	})
	if err != nil {
		return fmt.Errorf("saving snapshot %q: %w", name, err)
	}
	s.logger.Debug("snapshot stored", "name", name, "bytes", len(data))
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, name string) ([]byte, error) {
	var payload []byte
	err := s.client.DB.QueryRowContext(ctx, selectSnapshot, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("snapshot %q does not exist", name)
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %q: %w", name, err)
	}
	return payload, nil
}
