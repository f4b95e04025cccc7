package docindex

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/postgres"
)

func TestFingerprint(t *testing.T) {
	// zlib.crc32(b"123") == 2286445522
	if got := Fingerprint("123"); got != 2286445522 {
		t.Errorf("Fingerprint(123) = %d", got)
	}
	if Fingerprint("a") == Fingerprint("b") {
		t.Error("distinct ids should differ")
	}
	fp, err := ParseKey(Key(4000000000))
	if err != nil || fp != 4000000000 {
		t.Errorf("key round trip = %d, %v", fp, err)
	}
}

func TestEntriesAddKeepsFirstURL(t *testing.T) {
	e := NewEntries()
	e.Add(7, "https://a")
	e.Add(7, "https://b")
	if u, _ := e.URL(7); u != "https://a" {
		t.Errorf("URL = %q, want first registration", u)
	}
	if e.Len() != 1 || !e.Contains(7) || e.Contains(8) {
		t.Errorf("unexpected contents: len=%d", e.Len())
	}
}

func TestFileRegistryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "document_index.txt")
	r, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("new registry has %d entries", r.Len())
	}
	r.Add(Fingerprint("1"), "https://example.com/1")
	r.Add(Fingerprint("2"), "https://example.com/2")
	if err := r.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	again, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if again.Len() != 2 {
		t.Fatalf("Len = %d, want 2", again.Len())
	}
	if u, ok := again.URL(Fingerprint("2")); !ok || u != "https://example.com/2" {
		t.Errorf("URL = %q, %v", u, ok)
	}
}

func TestFileRegistryCorrupt(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"garbage.txt": "not json",
		"badkey.txt":  `{"abc": "https://x"}`,
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := OpenFile(path); !errors.Is(err, apperrors.ErrStoreCorrupt) {
			t.Errorf("%s: got %v, want ErrStoreCorrupt", name, err)
		}
	}
}

func TestOpenSelectsFileBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Store.DataDir = t.TempDir()
	r, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	if _, ok := r.(*FileRegistry); !ok {
		t.Errorf("Open returned %T, want *FileRegistry", r)
	}
}

func TestPostgresRegistry(t *testing.T) {
	host := os.Getenv("BS_POSTGRES_HOST")
	if host == "" {
		t.Skip("BS_POSTGRES_HOST not set")
	}
	cfg := config.Default().Postgres
	cfg.Host = host
	ctx := context.Background()

	db, err := postgres.New(ctx, cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()
	r, err := NewPostgres(ctx, db)
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	fp := Fingerprint("docindex-test")
	r.Add(fp, "https://example.com/pg")
	if err := r.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	again, err := NewPostgres(ctx, db)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if u, ok := again.URL(fp); !ok || u != "https://example.com/pg" {
		t.Errorf("URL = %q, %v", u, ok)
	}
	db.DB.ExecContext(ctx, `DELETE FROM document_index WHERE fingerprint = $1`, int64(fp))
}
