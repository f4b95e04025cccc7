package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/config"
)

var benchWords = strings.Fields(`river mountain barrel index search engine lake forest
	bird ocean current trade route solar power history computing keeper light
	harbor storm valley bridge garden winter summer market village castle`)

func benchBatch(b *testing.B, dir string, docs int) {
	b.Helper()
	articles := make([]source.Article, docs)
	for i := range articles {
		var body []string
		for j := 0; j < 200; j++ {
			body = append(body, benchWords[(i*7+j*13)%len(benchWords)])
		}
		articles[i] = source.Article{
			ID:      source.ExternalID(fmt.Sprintf("doc-%d", i)),
			URL:     fmt.Sprintf("https://example.com/%d", i),
			Title:   strings.Join(body[:4], " "),
			Content: strings.Join(body, " "),
		}
	}
	data, err := json.Marshal(articles)
	if err != nil {
		b.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "batch.json"), data, 0644); err != nil {
		b.Fatal(err)
	}
}

// BenchmarkRun measures a full index and merge of a fresh store.
func BenchmarkRun(b *testing.B) {
	for _, docs := range []int{100, 1000} {
		b.Run(fmt.Sprintf("docs_%d", docs), func(b *testing.B) {
			spool := b.TempDir()
			benchBatch(b, spool, docs)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				cfg := config.Default()
				cfg.Store.DataDir = b.TempDir()
				p, err := New(context.Background(), cfg)
				if err != nil {
					b.Fatal(err)
				}
				b.StartTimer()
				if _, err := p.Run(context.Background(), spool); err != nil {
					b.Fatal(err)
				}
				p.Close()
			}
		})
	}
}

func BenchmarkSearch(b *testing.B) {
	spool := b.TempDir()
	benchBatch(b, spool, 1000)
	cfg := config.Default()
	cfg.Store.DataDir = b.TempDir()
	p, err := New(context.Background(), cfg)
	if err != nil {
		b.Fatal(err)
	}
	defer p.Close()
	if _, err := p.Run(context.Background(), spool); err != nil {
		b.Fatal(err)
	}

	queries := []string{"river", "mountain lake", "solar power history", "harbor storm valley bridge garden"}
	for _, q := range queries {
		b.Run(strings.ReplaceAll(q, " ", "_"), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := p.Search(context.Background(), q, 10); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
