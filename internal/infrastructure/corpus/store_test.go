package corpus

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
)

const manifestFixture = `{"chunk_id":"c1","doc_id":"who-tb-m4-treatment-2025","guideline_title":"Module 4","year":2025,"section_path":"1. Intro|1.1 Scope","scope":"treatment","content_type":"prose","text":"alpha"}

{"chunk_id":"c2","doc_id":"who-tb-m5-children-2024","section_path":"2.4","content_type":"TABLE","text":"dosing","attachment_path":"tables/t1.csv"}
{"chunk_id":"c3","doc_id":"misc","scope":"surgery","text":"gamma"}
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestStoreLoadsManifestAndNormalizesVectors(t *testing.T) {
	dir := t.TempDir()
	manifest := writeFile(t, dir, "chunks.jsonl", manifestFixture)
	embeddings := writeFile(t, dir, "embeddings.jsonl", "[3,4]\n[0,0]\n\n[0,2]\n")
	store := NewStore(manifest, embeddings, quietLogger())

	corpus, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if corpus.Size() != 3 || len(corpus.Vectors) != 3 {
		t.Fatalf("expected 3 chunks and vectors, got %d/%d", corpus.Size(), len(corpus.Vectors))
	}

	c1 := corpus.Chunks[0]
	if c1.Scope != domain.ScopeTreatment || c1.Title != "Module 4" || c1.Year != 2025 || c1.IsTable() {
		t.Fatalf("unexpected first chunk %+v", c1)
	}
	if !corpus.Chunks[1].IsTable() || corpus.Chunks[1].AttachmentPath != "tables/t1.csv" {
		t.Fatalf("expected table chunk, got %+v", corpus.Chunks[1])
	}
	if corpus.Chunks[2].Scope != domain.ScopeNone {
		t.Fatalf("unknown scope tag must be treated as untagged")
	}

	v := corpus.Vectors[0]
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Fatalf("expected unit vector, got %v", v)
	}
	if corpus.Vectors[1][0] != 0 || corpus.Vectors[1][1] != 0 {
		t.Fatalf("expected zero vector to stay zero, got %v", corpus.Vectors[1])
	}

	stats := store.Stats()
	if !stats.Loaded || stats.Chunks != 3 || stats.Vectors != 3 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestStoreReadsJSONArrayEmbeddings(t *testing.T) {
	dir := t.TempDir()
	manifest := writeFile(t, dir, "chunks.jsonl", manifestFixture)
	embeddings := writeFile(t, dir, "embeddings.json", `[[1,0],[0,1]]`)

	corpus, err := NewStore(manifest, embeddings, quietLogger()).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if corpus.Indexable() != 2 {
		t.Fatalf("expected mismatch to leave 2 indexable positions, got %d", corpus.Indexable())
	}
}

func TestStoreLoadIsIdempotentAndShared(t *testing.T) {
	dir := t.TempDir()
	manifest := writeFile(t, dir, "chunks.jsonl", manifestFixture)
	embeddings := writeFile(t, dir, "embeddings.json", `[[1,0],[0,1],[1,1]]`)
	store := NewStore(manifest, embeddings, quietLogger())

	var wg sync.WaitGroup
	results := make([]*domain.Corpus, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := store.Load(context.Background())
			if err != nil {
				t.Errorf("Load() error = %v", err)
				return
			}
			results[i] = c
		}(i)
	}
	wg.Wait()

	for i, c := range results {
		if c != results[0] {
			t.Fatalf("load %d returned a different corpus", i)
		}
	}

	if err := os.Remove(manifest); err != nil {
		t.Fatalf("remove manifest: %v", err)
	}
	again, err := store.Load(context.Background())
	if err != nil || again != results[0] {
		t.Fatalf("expected cached corpus after first load, got %v / %v", again, err)
	}
}

func TestStoreFailuresAreStoreErrorsAndNotCached(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "chunks.jsonl")
	embeddings := writeFile(t, dir, "embeddings.json", `[[1,0],[0,1],[1,1]]`)
	store := NewStore(manifest, embeddings, quietLogger())

	_, err := store.Load(context.Background())
	if !domain.IsKind(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
	if store.Stats().Loaded {
		t.Fatalf("failed load must not be reported as loaded")
	}

	writeFile(t, dir, "chunks.jsonl", manifestFixture)
	if _, err := store.Load(context.Background()); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
}

func TestStoreRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name       string
		manifest   string
		embeddings string
	}{
		{name: "bad manifest line", manifest: "{not json}\n", embeddings: `[[1]]`},
		{name: "empty manifest", manifest: "\n\n", embeddings: `[[1]]`},
		{name: "bad embeddings", manifest: manifestFixture, embeddings: `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			manifest := writeFile(t, dir, "chunks.jsonl", tt.manifest)
			embeddings := writeFile(t, dir, "embeddings.json", tt.embeddings)

			_, err := NewStore(manifest, embeddings, quietLogger()).Load(context.Background())
			if !domain.IsKind(err, domain.ErrStoreUnavailable) {
				t.Fatalf("expected store unavailable, got %v", err)
			}
		})
	}
}
