package domain

import (
	"sort"
	"strings"
)

const (
	DefaultTopK          = 8
	MaxTopK              = 8
	DefaultTableRowLimit = 150
	MaxTableRowLimit     = 500
)

// FlagSet is the unordered set of intent flags derived from one question.
type FlagSet map[string]struct{}

func NewFlagSet(flags ...string) FlagSet {
	out := make(FlagSet, len(flags))
	for _, f := range flags {
		out[f] = struct{}{}
	}
	return out
}

func (f FlagSet) Has(flag string) bool {
	_, ok := f[flag]
	return ok
}

func (f FlagSet) HasAny(flags ...string) bool {
	for _, flag := range flags {
		if f.Has(flag) {
			return true
		}
	}
	return false
}

// Sorted returns the flags in lexical order for logs and responses.
func (f FlagSet) Sorted() []string {
	out := make([]string, 0, len(f))
	for flag := range f {
		out = append(out, flag)
	}
	sort.Strings(out)
	return out
}

func (f FlagSet) String() string {
	return strings.Join(f.Sorted(), ",")
}

type SearchRequest struct {
	Question         string `json:"question"`
	TopK             int    `json:"top_k,omitempty"`
	Scope            Scope  `json:"scope,omitempty"`
	IncludeTableRows bool   `json:"include_table_rows,omitempty"`
	TableRowLimit    int    `json:"table_row_limit,omitempty"`
}

// Normalized applies defaults and bounds without touching the question. Zero
// means "not given" and takes the default; other values are clamped.
func (r SearchRequest) Normalized() SearchRequest {
	out := r
	out.TopK = clampOrDefault(out.TopK, DefaultTopK, MaxTopK)
	out.TableRowLimit = clampOrDefault(out.TableRowLimit, DefaultTableRowLimit, MaxTableRowLimit)
	return out
}

func clampOrDefault(v, def, upper int) int {
	switch {
	case v == 0:
		return def
	case v < 1:
		return 1
	case v > upper:
		return upper
	default:
		return v
	}
}

type SearchResult struct {
	DocID          string              `json:"doc_id"`
	Title          string              `json:"guideline_title"`
	Year           int                 `json:"year"`
	ChunkID        string              `json:"chunk_id"`
	SectionPath    string              `json:"section_path"`
	Text           string              `json:"text"`
	ContentType    ContentType         `json:"content_type"`
	AttachmentID   string              `json:"attachment_id,omitempty"`
	AttachmentPath string              `json:"attachment_path,omitempty"`
	TableSubtype   TableSubtype        `json:"table_subtype"`
	TableText      string              `json:"table_text"`
	TableRows      []map[string]string `json:"table_rows,omitempty"`
	TableRowCount  int                 `json:"table_row_count"`
	Score          float64             `json:"score"`
}

// LogStage is one record of the per-query retrieval log. The engine only ever
// appends to the log; it never reads it back.
type LogStage struct {
	Stage   string         `json:"stage"`
	Details map[string]any `json:"details,omitempty"`
}

type SearchResponse struct {
	Question     string         `json:"question"`
	TopK         int            `json:"top_k"`
	Scope        Scope          `json:"scope"`
	Results      []SearchResult `json:"results"`
	RetrievalLog []LogStage     `json:"retrieval_log"`
}
