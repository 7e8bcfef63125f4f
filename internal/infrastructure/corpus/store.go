package corpus

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
	"github.com/kirillkom/guideline-retrieval/internal/core/ports"
)

// maxLineBytes bounds one manifest or embedding line.
const maxLineBytes = 16 << 20

// Store loads the chunk manifest and embeddings once per process and serves
// the same read-only corpus to every caller afterwards. A failed load is not
// remembered, so the next query retries it.
type Store struct {
	manifestPath   string
	embeddingsPath string
	logger         *slog.Logger

	group  singleflight.Group
	mu     sync.RWMutex
	corpus *domain.Corpus
}

func NewStore(manifestPath, embeddingsPath string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		manifestPath:   manifestPath,
		embeddingsPath: embeddingsPath,
		logger:         logger,
	}
}

func (s *Store) Load(ctx context.Context) (*domain.Corpus, error) {
	if c := s.loaded(); c != nil {
		return c, nil
	}

	ch := s.group.DoChan("corpus", func() (any, error) {
		if c := s.loaded(); c != nil {
			return c, nil
		}
		c, err := s.read()
		if err != nil {
			s.logger.Error("corpus_load_failed",
				slog.String("manifest", s.manifestPath),
				slog.String("embeddings", s.embeddingsPath),
				slog.String("error", err.Error()),
			)
			return nil, err
		}
		s.mu.Lock()
		s.corpus = c
		s.mu.Unlock()
		return c, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Corpus), nil
	}
}

func (s *Store) Stats() ports.CorpusStats {
	c := s.loaded()
	if c == nil {
		return ports.CorpusStats{}
	}
	return ports.CorpusStats{Loaded: true, Chunks: len(c.Chunks), Vectors: len(c.Vectors)}
}

func (s *Store) loaded() *domain.Corpus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corpus
}

func (s *Store) read() (*domain.Corpus, error) {
	chunks, err := readManifest(s.manifestPath)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "read manifest", err)
	}
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "read manifest", errors.New("manifest has no chunks"))
	}
	vectors, err := readEmbeddings(s.embeddingsPath)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "read embeddings", err)
	}
	for i := range vectors {
		vectors[i] = domain.Normalize(vectors[i])
	}

	if len(chunks) != len(vectors) {
		s.logger.Warn("corpus_count_mismatch",
			slog.Int("chunks", len(chunks)),
			slog.Int("vectors", len(vectors)),
			slog.Int("indexable", min(len(chunks), len(vectors))),
		)
	}
	s.logger.Info("corpus_loaded",
		slog.Int("chunks", len(chunks)),
		slog.Int("vectors", len(vectors)),
	)
	return &domain.Corpus{Chunks: chunks, Vectors: vectors}, nil
}

type manifestRecord struct {
	ChunkID        string `json:"chunk_id"`
	DocID          string `json:"doc_id"`
	Title          string `json:"guideline_title"`
	Year           int    `json:"year"`
	SectionPath    string `json:"section_path"`
	Scope          string `json:"scope"`
	ContentType    string `json:"content_type"`
	Text           string `json:"text"`
	AttachmentID   string `json:"attachment_id"`
	AttachmentPath string `json:"attachment_path"`
}

func readManifest(path string) ([]domain.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	var chunks []domain.Chunk
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var rec manifestRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("manifest line %d: %w", line, err)
		}
		scope, ok := domain.ParseScope(rec.Scope)
		if !ok {
			scope = domain.ScopeNone
		}
		chunks = append(chunks, domain.Chunk{
			ChunkID:        rec.ChunkID,
			DocID:          rec.DocID,
			Title:          rec.Title,
			Year:           rec.Year,
			SectionPath:    rec.SectionPath,
			Scope:          scope,
			ContentType:    domain.ParseContentType(rec.ContentType),
			Text:           rec.Text,
			AttachmentID:   rec.AttachmentID,
			AttachmentPath: rec.AttachmentPath,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest: %w", err)
	}
	return chunks, nil
}

// readEmbeddings accepts one JSON array per line for .jsonl files and a
// single array of arrays otherwise.
func readEmbeddings(path string) ([][]float32, error) {
	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		return readEmbeddingLines(path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read embeddings: %w", err)
	}
	var vectors [][]float32
	if err := json.Unmarshal(raw, &vectors); err != nil {
		return nil, fmt.Errorf("decode embeddings: %w", err)
	}
	return vectors, nil
}

func readEmbeddingLines(path string) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open embeddings: %w", err)
	}
	defer f.Close()

	var vectors [][]float32
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(raw), &vec); err != nil {
			return nil, fmt.Errorf("embeddings line %d: %w", line, err)
		}
		vectors = append(vectors, vec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan embeddings: %w", err)
	}
	return vectors, nil
}
