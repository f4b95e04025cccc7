package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/config"
)

func connect(t *testing.T) *Client {
	t.Helper()
	host := os.Getenv("BS_POSTGRES_HOST")
	if host == "" {
		t.Skip("BS_POSTGRES_HOST not set")
	}
	cfg := config.Default().Postgres
	cfg.Host = host
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func count(t *testing.T, c *Client, table string) int {
	t.Helper()
	var n int
	if err := c.DB.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestNewUnreachable(t *testing.T) {
	cfg := config.Default().Postgres
	cfg.Host = "127.0.0.1"
	cfg.Port = 1
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := New(ctx, cfg); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}

func TestPingAndEnsureTable(t *testing.T) {
	c := connect(t)
	ctx := context.Background()
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	table := fmt.Sprintf("bs_client_test_%d", time.Now().UnixNano())
	ddl := "CREATE TABLE IF NOT EXISTS " + table + " (id INT PRIMARY KEY)"
	defer c.DB.Exec("DROP TABLE IF EXISTS " + table)

	for i := 0; i < 2; i++ {
		if err := c.EnsureTable(ctx, table, ddl); err != nil {
			t.Fatalf("EnsureTable pass %d: %v", i, err)
		}
	}
	if n := count(t, c, table); n != 0 {
		t.Errorf("rows = %d, want 0", n)
	}
}

func TestInTx(t *testing.T) {
	c := connect(t)
	ctx := context.Background()
	table := fmt.Sprintf("bs_tx_test_%d", time.Now().UnixNano())
	if err := c.EnsureTable(ctx, table, "CREATE TABLE IF NOT EXISTS "+table+" (id INT PRIMARY KEY)"); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	defer c.DB.Exec("DROP TABLE IF EXISTS " + table)

	err := c.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO "+table+" (id) VALUES (1)")
		return err
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	boom := errors.New("boom")
	err = c.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO "+table+" (id) VALUES (2)"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("rollback err = %v, want boom", err)
	}
	if n := count(t, c, table); n != 1 {
		t.Errorf("rows = %d, want 1 after rollback", n)
	}
}
