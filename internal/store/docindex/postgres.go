package docindex

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/postgres"
)

const schema = `CREATE TABLE IF NOT EXISTS document_index (
	fingerprint BIGINT PRIMARY KEY,
	url         TEXT NOT NULL,
	indexed_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresRegistry keeps the registry in the document_index table. All rows
// are loaded on open; Save upserts the entries added since then in one
// transaction.
type PostgresRegistry struct {
	*Entries
	db      *postgres.Client
	pending []uint32
	logger  *slog.Logger
}

func OpenPostgres(ctx context.Context, cfg config.PostgresConfig) (*PostgresRegistry, error) {
	db, err := postgres.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	r, err := NewPostgres(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// NewPostgres loads the registry from an existing client.
func NewPostgres(ctx context.Context, db *postgres.Client) (*PostgresRegistry, error) {
	if err := db.EnsureTable(ctx, "document_index", schema); err != nil {
		return nil, err
	}
	r := &PostgresRegistry{
		Entries: NewEntries(),
		db:      db,
		logger:  logger.WithComponent("docindex-postgres"),
	}
	rows, err := db.DB.QueryContext(ctx, `SELECT fingerprint, url FROM document_index`)
	if err != nil {
		return nil, fmt.Errorf("loading document index: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			fp  int64
			url string
		)
		if err := rows.Scan(&fp, &url); err != nil {
			return nil, fmt.Errorf("scanning document index row: %w", err)
		}
		r.urls[uint32(fp)] = url
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document index: %w", err)
	}
	r.logger.Info("document index loaded", "entries", len(r.urls))
	return r, nil
}

func (r *PostgresRegistry) Add(fp uint32, url string) {
	if r.Contains(fp) {
		return
	}
	r.Entries.Add(fp, url)
	r.pending = append(r.pending, fp)
}

func (r *PostgresRegistry) Save(ctx context.Context) error {
	if len(r.pending) == 0 {
		return nil
	}
	err := r.db.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO document_index (fingerprint, url) VALUES ($1, $2)
			ON CONFLICT (fingerprint) DO UPDATE SET url = EXCLUDED.url`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, fp := range r.pending {
			if _, err := stmt.ExecContext(ctx, int64(fp), r.urls[fp]); err != nil {
				return fmt.Errorf("upserting fingerprint %d: %w", fp, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving document index: %w", err)
	}
	r.logger.Info("document index saved", "new_entries", len(r.pending))
	r.pending = r.pending[:0]
	return nil
}

func (r *PostgresRegistry) Close() error {
	return r.db.Close()
}
