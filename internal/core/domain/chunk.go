package domain

import "strings"

type ContentType string

const (
	ContentProse ContentType = "prose"
	ContentTable ContentType = "table"
)

// ParseContentType treats anything that is not explicitly a table as prose.
func ParseContentType(raw string) ContentType {
	if strings.EqualFold(strings.TrimSpace(raw), string(ContentTable)) {
		return ContentTable
	}
	return ContentProse
}

type Scope string

const (
	ScopeNone          Scope = ""
	ScopePrevention    Scope = "prevention"
	ScopeScreening     Scope = "screening"
	ScopeDiagnosis     Scope = "diagnosis"
	ScopeTreatment     Scope = "treatment"
	ScopePediatrics    Scope = "pediatrics"
	ScopeComorbidities Scope = "comorbidities"
)

// Scopes lists every accepted scope in resolver priority order.
var Scopes = []Scope{
	ScopeTreatment,
	ScopeDiagnosis,
	ScopePrevention,
	ScopeScreening,
	ScopePediatrics,
	ScopeComorbidities,
}

func ParseScope(raw string) (Scope, bool) {
	value := Scope(strings.ToLower(strings.TrimSpace(raw)))
	if value == ScopeNone {
		return ScopeNone, true
	}
	for _, s := range Scopes {
		if s == value {
			return s, true
		}
	}
	return ScopeNone, false
}

// Chunk is one immutable corpus record. It is shared by every query once the
// corpus has been loaded and must never be mutated.
type Chunk struct {
	ChunkID        string      `json:"chunk_id"`
	DocID          string      `json:"doc_id"`
	Title          string      `json:"guideline_title"`
	Year           int         `json:"year,omitempty"`
	SectionPath    string      `json:"section_path"`
	Scope          Scope       `json:"scope,omitempty"`
	ContentType    ContentType `json:"content_type"`
	Text           string      `json:"text"`
	AttachmentID   string      `json:"attachment_id,omitempty"`
	AttachmentPath string      `json:"attachment_path,omitempty"`
}

func (c Chunk) IsTable() bool {
	return c.ContentType == ContentTable
}

// SectionSegments splits the pipe-delimited section path into trimmed headings.
func (c Chunk) SectionSegments() []string {
	parts := strings.Split(c.SectionPath, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Corpus is the process-wide, read-only chunk set. Vectors[i] belongs to
// Chunks[i]; positions beyond the shorter slice are never similarity-ranked.
type Corpus struct {
	Chunks  []Chunk
	Vectors [][]float32
}

func (c *Corpus) Size() int {
	if c == nil {
		return 0
	}
	return len(c.Chunks)
}

// Indexable is the number of positions that have both a chunk and a vector.
func (c *Corpus) Indexable() int {
	if c == nil {
		return 0
	}
	return min(len(c.Chunks), len(c.Vectors))
}
